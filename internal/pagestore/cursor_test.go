package pagestore

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCursor_Valid(t *testing.T) {
	c, err := ParseCursor(json.RawMessage(`{"cursor_type":"bytes","offset":40000}`))
	require.NoError(t, err)
	assert.Equal(t, "bytes", c.CursorType)
	assert.Equal(t, int64(40000), c.Offset)
}

func TestParseCursor_ZeroOffset(t *testing.T) {
	c, err := ParseCursor(json.RawMessage(`{"cursor_type":"bytes","offset":0}`))
	require.NoError(t, err)
	assert.Equal(t, int64(0), c.Offset)
}

func TestParseCursor_CoercesIntegralFloat(t *testing.T) {
	c, err := ParseCursor(json.RawMessage(`{"cursor_type":"bytes","offset":128.0}`))
	require.NoError(t, err)
	assert.Equal(t, int64(128), c.Offset)
}

func TestParseCursor_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{"not an object", `"bytes:0"`, ErrCursorNotObject},
		{"array", `[0]`, ErrCursorNotObject},
		{"missing cursor_type", `{"offset":0}`, ErrCursorType},
		{"wrong cursor_type", `{"cursor_type":"lines","offset":0}`, ErrCursorType},
		{"non-string cursor_type", `{"cursor_type":7,"offset":0}`, ErrCursorType},
		{"missing offset", `{"cursor_type":"bytes"}`, ErrCursorOffset},
		{"negative offset", `{"cursor_type":"bytes","offset":-1}`, ErrCursorOffset},
		{"fractional offset", `{"cursor_type":"bytes","offset":1.5}`, ErrCursorOffset},
		{"string offset", `{"cursor_type":"bytes","offset":"12"}`, ErrCursorOffset},
		{"null offset", `{"cursor_type":"bytes","offset":null}`, ErrCursorOffset},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCursor(json.RawMessage(tt.raw))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestBytesCursor(t *testing.T) {
	c := BytesCursor(42)
	b, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"cursor_type":"bytes","offset":42}`, string(b))
}
