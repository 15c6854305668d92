// Package document provides a schemaless JSON document type with safe,
// path-based accessors. API payloads carry no fixed schema, so every read
// reports whether the field was actually present instead of failing.
package document

import (
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"azure-costs/internal/errors"
)

// Document is a raw JSON value. Mutating operations return a new Document;
// the receiver is never modified.
type Document []byte

// Parse validates raw bytes as JSON and returns them as a Document.
func Parse(raw []byte) (Document, error) {
	if !gjson.ValidBytes(raw) {
		return nil, errors.New(errors.TypeInternal, "invalid JSON document")
	}
	return Document(raw), nil
}

// TryParse attempts to parse a body as a JSON object. Upstream sometimes
// double-encodes error bodies as a JSON string holding JSON; when the direct
// parse fails, the outer string is unquoted and parsed again.
func TryParse(body string) (Document, bool) {
	trimmed := strings.TrimSpace(body)
	if gjson.Valid(trimmed) && strings.HasPrefix(trimmed, "{") {
		return Document(trimmed), true
	}

	if inner, err := strconv.Unquote(trimmed); err == nil {
		inner = strings.TrimSpace(inner)
		if gjson.Valid(inner) && strings.HasPrefix(inner, "{") {
			return Document(inner), true
		}
	}

	return nil, false
}

// GetString returns the string value at path and whether it was present.
func (d Document) GetString(path string) (string, bool) {
	res := gjson.GetBytes(d, path)
	if !res.Exists() || res.Type != gjson.String {
		return "", false
	}
	return res.String(), true
}

// GetNumber returns the numeric value at path and whether it was present.
func (d Document) GetNumber(path string) (float64, bool) {
	res := gjson.GetBytes(d, path)
	if !res.Exists() || res.Type != gjson.Number {
		return 0, false
	}
	return res.Float(), true
}

// Exists reports whether a value is present at path.
func (d Document) Exists(path string) bool {
	return gjson.GetBytes(d, path).Exists()
}

// Get returns the raw gjson result at path.
func (d Document) Get(path string) gjson.Result {
	return gjson.GetBytes(d, path)
}

// Array returns the elements of the array at path. A missing path and an
// empty array are both returned as a nil slice.
func (d Document) Array(path string) []Document {
	res := gjson.GetBytes(d, path)
	if !res.Exists() || !res.IsArray() {
		return nil
	}
	var docs []Document
	res.ForEach(func(_, value gjson.Result) bool {
		docs = append(docs, Document(value.Raw))
		return true
	})
	return docs
}

// Set returns a copy of the document with value stored at path.
func (d Document) Set(path string, value interface{}) (Document, error) {
	out, err := sjson.SetBytes(d, path, value)
	if err != nil {
		return nil, err
	}
	return Document(out), nil
}

// SetRaw returns a copy of the document with raw JSON stored at path.
func (d Document) SetRaw(path string, raw string) (Document, error) {
	out, err := sjson.SetRawBytes(d, path, []byte(raw))
	if err != nil {
		return nil, err
	}
	return Document(out), nil
}

// Canonical returns the compact single-line serialization of the document.
// This form is the input to content hashing and to bulk payload assembly, so
// it must be deterministic for identical input bytes.
func (d Document) Canonical() string {
	return gjson.GetBytes(d, "@ugly").Raw
}

func (d Document) String() string {
	return string(d)
}

// MarshalJSON emits the document verbatim.
func (d Document) MarshalJSON() ([]byte, error) {
	if len(d) == 0 {
		return []byte("null"), nil
	}
	return []byte(d), nil
}

// UnmarshalJSON stores raw bytes verbatim.
func (d *Document) UnmarshalJSON(data []byte) error {
	*d = append((*d)[0:0], data...)
	return nil
}
