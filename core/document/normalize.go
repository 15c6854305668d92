package document

import (
	"strings"

	"github.com/tidwall/gjson"
)

const instanceDataPath = "properties.instanceData"

// NormalizeInstanceData converts a string-embedded instanceData field into its
// parsed JSON form. Upstream sometimes double-encodes this field; the pipeline
// only ever deals with the tree form. Normalizing an already-normalized
// document is a no-op.
func NormalizeInstanceData(doc Document) Document {
	res := doc.Get(instanceDataPath)
	if !res.Exists() || res.Type != gjson.String {
		return doc
	}

	embedded := strings.TrimSpace(res.String())
	if !gjson.Valid(embedded) || (!strings.HasPrefix(embedded, "{") && !strings.HasPrefix(embedded, "[")) {
		return doc
	}

	out, err := doc.SetRaw(instanceDataPath, embedded)
	if err != nil {
		return doc
	}
	return out
}

// Lowercase returns documents with the string values at the given paths
// lowercased. Paths use gjson syntax; dots inside a key are escaped with a
// backslash. Missing paths and non-string values are left untouched.
func Lowercase(docs []Document, paths []string) []Document {
	out := make([]Document, len(docs))
	for i, doc := range docs {
		for _, path := range paths {
			if path == "" {
				continue
			}
			res := doc.Get(path)
			if !res.Exists() || res.Type != gjson.String {
				continue
			}
			lowered, err := doc.Set(path, strings.ToLower(res.String()))
			if err != nil {
				continue
			}
			doc = lowered
		}
		out[i] = doc
	}
	return out
}
