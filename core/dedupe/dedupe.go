// Package dedupe removes byte-identical records using a content hash. The
// hash doubles as the destination document id, so re-running the pipeline
// over overlapping data overwrites instead of accumulating duplicates.
package dedupe

import (
	"crypto/sha256"
	"encoding/hex"

	"azure-costs/core/document"
)

// Hash returns the hex-encoded SHA-256 of the document's canonical
// serialization. Identical canonical forms always yield identical digests.
func Hash(doc document.Document) string {
	sum := sha256.Sum256([]byte(doc.Canonical()))
	return hex.EncodeToString(sum[:])
}

// Dedupe drops records whose canonical serialization was already seen,
// preserving first-seen order for survivors. It returns the survivors and
// the number of duplicates dropped.
func Dedupe(docs []document.Document) ([]document.Document, int) {
	seen := make(map[string]struct{}, len(docs))
	unique := make([]document.Document, 0, len(docs))
	duplicates := 0

	for _, doc := range docs {
		h := Hash(doc)
		if _, ok := seen[h]; ok {
			duplicates++
			continue
		}
		seen[h] = struct{}{}
		unique = append(unique, doc)
	}

	return unique, duplicates
}
