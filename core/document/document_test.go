package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	doc, err := Parse([]byte(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, doc.String())

	_, err = Parse([]byte(`{"a":`))
	assert.Error(t, err)
}

func TestTryParseDirect(t *testing.T) {
	doc, ok := TryParse(`{"error":{"code":"InvalidInput"}}`)
	require.True(t, ok)
	code, found := doc.GetString("error.code")
	require.True(t, found)
	assert.Equal(t, "InvalidInput", code)
}

func TestTryParseDoubleEncoded(t *testing.T) {
	// A JSON string holding a JSON object, as upstream sometimes returns.
	doc, ok := TryParse(`"{\"error\":{\"code\":\"InvalidInput\",\"message\":\"reportedendtime cannot be in the future.\"}}"`)
	require.True(t, ok)
	message, found := doc.GetString("error.message")
	require.True(t, found)
	assert.Equal(t, "reportedendtime cannot be in the future.", message)
}

func TestTryParseGarbage(t *testing.T) {
	for _, body := range []string{"", "<html>502</html>", `"not json either"`, "[1,2]"} {
		_, ok := TryParse(body)
		assert.False(t, ok, "body %q should not parse as an object", body)
	}
}

func TestGetStringAbsence(t *testing.T) {
	doc := Document(`{"properties":{"meterId":"m1","quantity":4}}`)

	value, ok := doc.GetString("properties.meterId")
	require.True(t, ok)
	assert.Equal(t, "m1", value)

	_, ok = doc.GetString("properties.missing")
	assert.False(t, ok)

	// Present but not a string.
	_, ok = doc.GetString("properties.quantity")
	assert.False(t, ok)
}

func TestGetNumberAbsence(t *testing.T) {
	doc := Document(`{"properties":{"meterId":"m1","quantity":4.5}}`)

	value, ok := doc.GetNumber("properties.quantity")
	require.True(t, ok)
	assert.Equal(t, 4.5, value)

	_, ok = doc.GetNumber("properties.meterId")
	assert.False(t, ok)

	_, ok = doc.GetNumber("nope")
	assert.False(t, ok)
}

func TestArray(t *testing.T) {
	doc := Document(`{"value":[{"a":1},{"a":2}]}`)
	values := doc.Array("value")
	require.Len(t, values, 2)
	assert.Equal(t, `{"a":2}`, values[1].String())

	assert.Nil(t, Document(`{"value":[]}`).Array("value"))
	assert.Nil(t, Document(`{}`).Array("value"))
	assert.Nil(t, Document(`{"value":"x"}`).Array("value"))
}

func TestSetIsPure(t *testing.T) {
	doc := Document(`{"a":1}`)
	out, err := doc.Set("b", "x")
	require.NoError(t, err)

	assert.Equal(t, `{"a":1}`, doc.String())
	assert.Equal(t, "x", out.Get("b").String())
}

func TestCanonicalIsCompact(t *testing.T) {
	spread := Document("{\n  \"a\": 1,\n  \"b\": [1, 2]\n}")
	assert.Equal(t, `{"a":1,"b":[1,2]}`, spread.Canonical())

	// Identical bytes canonicalize identically.
	assert.Equal(t, spread.Canonical(), Document(spread.String()).Canonical())
}
