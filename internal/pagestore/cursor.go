// Package pagestore implements the pagination contract shared by shell_exec
// and read_file_chunk: byte cursors, page limits, spill files on disk, and
// the MIME/line statistics reported with every chunk.
package pagestore

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
)

// Page limit bounds. The hard byte cap equals the default: a page can be
// shrunk but never grown past 40 000 bytes.
const (
	DefaultLimitBytes = 40_000
	MaxLimitBytes     = 40_000
	MinLimitBytes     = 1

	DefaultLimitLines = 2_000
	MinLimitLines     = 1
	MaxLimitLines     = 100_000
)

// Cursor is a byte-offset marker into a single execution's stdout stream.
// "bytes" is the only defined cursor type.
type Cursor struct {
	CursorType string `json:"cursor_type"`
	Offset     int64  `json:"offset"`
}

// BytesCursor builds a cursor at the given stdout byte offset.
func BytesCursor(offset int64) *Cursor {
	return &Cursor{CursorType: "bytes", Offset: offset}
}

// Cursor validation errors. Each shape violation gets its own message so
// agents can repair the request without guessing.
var (
	ErrCursorNotObject = errors.New(`cursor must be an object of the form {"cursor_type": "bytes", "offset": <n>}`)
	ErrCursorType      = errors.New(`cursor cursor_type must be "bytes"`)
	ErrCursorOffset    = errors.New("cursor offset must be a finite non-negative integer")
)

// ParseCursor validates a raw JSON cursor. The offset is coerced through
// JSON's number representation and must come out finite, integral, and
// non-negative.
func ParseCursor(raw json.RawMessage) (*Cursor, error) {
	var shape map[string]json.RawMessage
	if err := json.Unmarshal(raw, &shape); err != nil {
		return nil, ErrCursorNotObject
	}

	typRaw, ok := shape["cursor_type"]
	if !ok {
		return nil, ErrCursorType
	}
	var typ string
	if err := json.Unmarshal(typRaw, &typ); err != nil || typ != "bytes" {
		return nil, ErrCursorType
	}

	offRaw, ok := shape["offset"]
	if !ok {
		return nil, ErrCursorOffset
	}
	var off float64
	// A JSON null unmarshals into a float64 without error; it is not a number.
	if err := json.Unmarshal(offRaw, &off); err != nil || strings.TrimSpace(string(offRaw)) == "null" {
		return nil, ErrCursorOffset
	}
	if math.IsNaN(off) || math.IsInf(off, 0) || off < 0 || off != math.Trunc(off) || off > math.MaxInt64 {
		return nil, ErrCursorOffset
	}

	return &Cursor{CursorType: "bytes", Offset: int64(off)}, nil
}
