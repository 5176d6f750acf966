package server

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/shemcp/shemcp/internal/version"
)

type shellInfoInput struct{}

type commandPolicyInfo struct {
	Allow []string `json:"allow"`
	Deny  []string `json:"deny"`
}

type shellInfoResult struct {
	SandboxRoot       string            `json:"sandbox_root"`
	ServerVersion     string            `json:"server_version"`
	CommandPolicy     commandPolicyInfo `json:"command_policy"`
	WorktreeDetection bool              `json:"worktree_detection"`
	TimeoutMs         int64             `json:"timeout_ms"`
	MaxOutputBytes    int64             `json:"max_output_bytes"`
}

func (s *Server) handleShellInfo(_ context.Context, _ *mcp.CallToolRequest, _ shellInfoInput) (*mcp.CallToolResult, any, error) {
	out := shellInfoResult{
		SandboxRoot:   s.pol.SandboxRoot,
		ServerVersion: version.Version,
		CommandPolicy: commandPolicyInfo{
			Allow: s.pol.AllowSources(),
			Deny:  s.pol.DenySources(),
		},
		WorktreeDetection: s.pol.WorktreeDetection,
		TimeoutMs:         s.pol.TimeoutMs,
		MaxOutputBytes:    s.pol.MaxOutputBytes,
	}
	return jsonResult(out), nil, nil
}
