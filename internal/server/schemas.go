package server

import (
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Tool input schemas are authored by hand so the advertised contract stays
// bit-exact. The cursor property is deliberately unconstrained here: cursor
// shape violations are validated in-process to produce precise messages.

func shellExecTool() *mcp.Tool {
	return &mcp.Tool{
		Name: "shell_exec",
		Description: `Execute a command inside the sandbox root under the server's command policy.

Output is paginated: the mandatory page.cursor selects a byte window of this execution's stdout. Large output spills to a temp file addressable via read_file_chunk (on_large_output "spill", the default), is cut off ("truncate"), or fails the call ("error").

Policy denials report the matched rule. cwd must be relative to the sandbox root.`,
		InputSchema: &jsonschema.Schema{
			Type:     "object",
			Required: []string{"cmd", "page"},
			Properties: map[string]*jsonschema.Schema{
				"cmd": {
					Type:        "string",
					Description: "Program to execute, or a leading KEY=value environment assignment",
				},
				"args": {
					Type:        "array",
					Items:       &jsonschema.Schema{Type: "string"},
					Description: "Arguments passed to cmd",
				},
				"cwd": {
					Type:        "string",
					Description: "Working directory, relative to the sandbox root (absolute paths are rejected)",
				},
				"timeout_seconds": {
					Type:        "number",
					Description: "Timeout in seconds (1-300), capped at the policy ceiling",
				},
				"timeout_ms": {
					Type:        "number",
					Description: "Legacy timeout in milliseconds (1-300000); timeout_seconds wins when both are set",
				},
				"max_output_bytes": {
					Type:        "number",
					Description: "Per-stream output cap in bytes (1000-10000000), capped at the policy ceiling",
				},
				"page": {
					Type:        "object",
					Required:    []string{"cursor"},
					Description: "Pagination window over this execution's stdout",
					Properties: map[string]*jsonschema.Schema{
						"cursor": {
							Description: `Byte cursor: {"cursor_type": "bytes", "offset": <n>}; use offset 0 for the first page`,
						},
						"limit_bytes": {
							Type:        "number",
							Description: "Page size in bytes (1-40000, default 40000)",
						},
						"limit_lines": {
							Type:        "number",
							Description: "Line budget for the truncate and error modes (1-100000, default 2000); pages are cut by bytes only",
						},
					},
				},
				"on_large_output": {
					Type:        "string",
					Enum:        []any{"spill", "truncate", "error"},
					Description: `What to do when output exceeds the page: "spill" (default), "truncate", or "error"`,
				},
			},
		},
	}
}

func readFileChunkTool() *mcp.Tool {
	return &mcp.Tool{
		Name: "read_file_chunk",
		Description: `Read a byte range of a spill file produced by shell_exec.

The uri must use the mcp://tmp/ scheme returned as spill_uri / stderr_spill_uri. The file is deleted once a read reaches its end.`,
		InputSchema: &jsonschema.Schema{
			Type:     "object",
			Required: []string{"uri"},
			Properties: map[string]*jsonschema.Schema{
				"uri": {
					Type:        "string",
					Description: "Spill file URI (mcp://tmp/exec-<id>.out or .err)",
				},
				"cursor": {
					Description: `Byte cursor: {"cursor_type": "bytes", "offset": <n>}; omit to start at 0`,
				},
				"limit_bytes": {
					Type:        "number",
					Description: "Chunk size in bytes (1-40000, default 40000)",
				},
			},
		},
	}
}

func shellInfoTool() *mcp.Tool {
	return &mcp.Tool{
		Name: "shell_info",
		Description: `Describe the server: sandbox root, version, command policy, and effective ceilings. Takes no input.`,
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: map[string]*jsonschema.Schema{},
		},
	}
}
