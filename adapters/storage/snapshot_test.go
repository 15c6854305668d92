package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"azure-costs/core/document"
)

func TestSnapshotRoundtrip(t *testing.T) {
	dir := t.TempDir()
	store := NewSnapshotStore(dir, "client-1")

	assert.False(t, store.Complete())

	snapshot := &Snapshot{
		Subscriptions: []document.Document{document.Document(`{"subscriptionId":"s1"}`)},
		Rates:         []document.Document{document.Document(`{"MeterId":"m1"}`)},
		Usages: []document.Document{
			document.Document(`{"properties":{"meterId":"m1"}}`),
			document.Document(`{"properties":{"meterId":"m2"}}`),
		},
	}
	require.NoError(t, store.Save(snapshot))
	require.True(t, store.Complete())

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded.Subscriptions, 1)
	require.Len(t, loaded.Rates, 1)
	require.Len(t, loaded.Usages, 2)

	meterID, ok := loaded.Usages[1].GetString("properties.meterId")
	require.True(t, ok)
	assert.Equal(t, "m2", meterID)
}

func TestSnapshotFilesAreKeyedByClient(t *testing.T) {
	dir := t.TempDir()
	store := NewSnapshotStore(dir, "client-1")
	require.NoError(t, store.Save(&Snapshot{}))

	for _, name := range []string{"subscriptions_client-1.json", "rates_client-1.json", "usages_client-1.json"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	// A different client id does not see this snapshot.
	assert.False(t, NewSnapshotStore(dir, "client-2").Complete())
}

func TestSnapshotIncompleteWithoutAllThreeFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewSnapshotStore(dir, "client-1")
	require.NoError(t, store.Save(&Snapshot{}))

	require.NoError(t, os.Remove(filepath.Join(dir, "usages_client-1.json")))
	assert.False(t, store.Complete())
}

func TestSnapshotLoadRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	store := NewSnapshotStore(dir, "client-1")
	require.NoError(t, store.Save(&Snapshot{}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rates_client-1.json"), []byte("{nope"), 0644))

	_, err := store.Load()
	assert.Error(t, err)
}
