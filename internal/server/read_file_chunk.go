package server

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/shemcp/shemcp/internal/pagestore"
)

type readFileChunkInput struct {
	URI        string          `json:"uri"`
	Cursor     json.RawMessage `json:"cursor,omitempty"`
	LimitBytes *float64        `json:"limit_bytes,omitempty"`
}

type readFileChunkResult struct {
	Data       string            `json:"data"`
	BytesStart int64             `json:"bytes_start"`
	BytesEnd   int64             `json:"bytes_end"`
	TotalBytes int64             `json:"total_bytes"`
	NextCursor *pagestore.Cursor `json:"next_cursor,omitempty"`
	MIME       string            `json:"mime"`
}

func (s *Server) handleReadFileChunk(_ context.Context, _ *mcp.CallToolRequest, in readFileChunkInput) (*mcp.CallToolResult, any, error) {
	path, err := s.store.PathForURI(in.URI)
	if err != nil {
		return errorResult("%s", err), nil, nil
	}

	limit := int64(pagestore.DefaultLimitBytes)
	if in.LimitBytes != nil {
		limit = int64(*in.LimitBytes)
		if limit < pagestore.MinLimitBytes || limit > pagestore.MaxLimitBytes {
			return errorResult("limit_bytes must be between %d and %d", pagestore.MinLimitBytes, pagestore.MaxLimitBytes), nil, nil
		}
	}

	var start int64
	if in.Cursor != nil {
		cursor, err := pagestore.ParseCursor(in.Cursor)
		if err != nil {
			return errorResult("%s", err), nil, nil
		}
		start = cursor.Offset
	}

	total, err := s.store.Size(path)
	if err != nil {
		if errors.Is(err, pagestore.ErrNotFound) {
			return errorResult("file not found: %s", in.URI), nil, nil
		}
		return errorResult("reading %s: %v", in.URI, err), nil, nil
	}

	end := start + limit
	if end > total {
		end = total
	}
	data, err := s.store.ReadRange(path, start, end)
	if err != nil {
		if errors.Is(err, pagestore.ErrNotFound) {
			return errorResult("file not found: %s", in.URI), nil, nil
		}
		return errorResult("reading %s: %v", in.URI, err), nil, nil
	}

	out := readFileChunkResult{
		Data:       string(data),
		BytesStart: start,
		BytesEnd:   start + int64(len(data)),
		TotalBytes: total,
		MIME:       pagestore.SniffMIME(string(data)),
	}
	if out.BytesEnd < total {
		out.NextCursor = pagestore.BytesCursor(out.BytesEnd)
	} else {
		// Consumed to the end: the spill file has served its purpose.
		s.store.Remove(path)
	}

	s.logger.Info("read_file_chunk",
		"uri", in.URI,
		"bytes_start", out.BytesStart,
		"bytes_end", out.BytesEnd,
		"total_bytes", total,
	)
	return jsonResult(out), nil, nil
}
