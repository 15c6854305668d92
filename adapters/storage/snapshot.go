// Package storage caches retrieval results on disk. A complete snapshot
// (subscriptions, rates and usages for one client) short-circuits network
// retrieval entirely on the next run.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"azure-costs/core/document"
	"azure-costs/internal/errors"
	"azure-costs/internal/logging"
)

// Snapshot holds one run's retrieval results.
type Snapshot struct {
	Subscriptions []document.Document
	Rates         []document.Document
	Usages        []document.Document
}

// SnapshotStore reads and writes snapshot files keyed by client id.
type SnapshotStore struct {
	dir      string
	clientID string
}

// NewSnapshotStore creates a snapshot store rooted at dir.
func NewSnapshotStore(dir, clientID string) *SnapshotStore {
	if dir == "" {
		dir = "."
	}
	return &SnapshotStore{dir: dir, clientID: clientID}
}

func (s *SnapshotStore) subscriptionsFile() string {
	return filepath.Join(s.dir, fmt.Sprintf("subscriptions_%s.json", s.clientID))
}

func (s *SnapshotStore) ratesFile() string {
	return filepath.Join(s.dir, fmt.Sprintf("rates_%s.json", s.clientID))
}

func (s *SnapshotStore) usagesFile() string {
	return filepath.Join(s.dir, fmt.Sprintf("usages_%s.json", s.clientID))
}

// Complete reports whether all three snapshot files are present.
func (s *SnapshotStore) Complete() bool {
	for _, name := range []string{s.subscriptionsFile(), s.ratesFile(), s.usagesFile()} {
		if _, err := os.Stat(name); err != nil {
			return false
		}
	}
	return true
}

// Load reads a complete snapshot from disk.
func (s *SnapshotStore) Load() (*Snapshot, error) {
	snapshot := &Snapshot{}

	for _, part := range []struct {
		name string
		dest *[]document.Document
	}{
		{s.subscriptionsFile(), &snapshot.Subscriptions},
		{s.ratesFile(), &snapshot.Rates},
		{s.usagesFile(), &snapshot.Usages},
	} {
		logging.Info("reading snapshot", zap.String("file", part.name))
		raw, err := os.ReadFile(part.name)
		if err != nil {
			return nil, errors.Wrap(errors.TypeConfig, "reading snapshot file", err)
		}
		doc, err := document.Parse(raw)
		if err != nil {
			return nil, errors.Wrapf(errors.TypeConfig, err, "snapshot file %s is not valid JSON", part.name)
		}
		*part.dest = doc.Array("@this")
	}

	return snapshot, nil
}

// Save writes a snapshot to disk, overwriting any previous one.
func (s *SnapshotStore) Save(snapshot *Snapshot) error {
	for _, part := range []struct {
		name string
		docs []document.Document
	}{
		{s.subscriptionsFile(), snapshot.Subscriptions},
		{s.ratesFile(), snapshot.Rates},
		{s.usagesFile(), snapshot.Usages},
	} {
		if part.docs == nil {
			part.docs = []document.Document{}
		}
		raw, err := json.Marshal(part.docs)
		if err != nil {
			return errors.Internal("marshaling snapshot", err)
		}
		if err := os.WriteFile(part.name, raw, 0644); err != nil {
			return errors.Wrap(errors.TypeConfig, "writing snapshot file", err)
		}
	}
	return nil
}
