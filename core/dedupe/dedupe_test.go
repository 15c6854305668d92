package dedupe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"azure-costs/core/document"
)

func TestHashDeterministic(t *testing.T) {
	a := document.Document(`{"a":1,"b":"x"}`)
	b := document.Document("{\n  \"a\": 1,\n  \"b\": \"x\"\n}")

	// Identical canonical forms hash identically, whitespace aside.
	assert.Equal(t, Hash(a), Hash(b))
	assert.Len(t, Hash(a), 64)

	c := document.Document(`{"a":2,"b":"x"}`)
	assert.NotEqual(t, Hash(a), Hash(c))
}

func TestDedupe(t *testing.T) {
	docs := []document.Document{
		document.Document(`{"id":1}`),
		document.Document(`{"id":2}`),
		document.Document(`{"id":1}`),
		document.Document(`{"id":3}`),
		document.Document(`{"id":2}`),
	}

	unique, duplicates := Dedupe(docs)
	assert.Equal(t, 2, duplicates)
	require.Len(t, unique, 3)

	// First-seen order preserved.
	assert.Equal(t, `{"id":1}`, unique[0].String())
	assert.Equal(t, `{"id":2}`, unique[1].String())
	assert.Equal(t, `{"id":3}`, unique[2].String())
}

func TestDedupeIdempotent(t *testing.T) {
	docs := []document.Document{
		document.Document(`{"id":1}`),
		document.Document(`{"id":1}`),
		document.Document(`{"id":2}`),
	}

	once, _ := Dedupe(docs)
	twice, duplicates := Dedupe(once)

	assert.Zero(t, duplicates)
	require.Len(t, twice, len(once))
	for i := range once {
		assert.Equal(t, once[i].String(), twice[i].String())
	}
}

func TestDedupeEmpty(t *testing.T) {
	unique, duplicates := Dedupe(nil)
	assert.Empty(t, unique)
	assert.Zero(t, duplicates)
}
