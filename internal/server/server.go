// Package server wires the policy-and-execution pipeline to the MCP stdio
// transport and implements the three tool dispatchers.
package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/shemcp/shemcp/internal/executor"
	"github.com/shemcp/shemcp/internal/pagestore"
	"github.com/shemcp/shemcp/internal/policy"
	"github.com/shemcp/shemcp/internal/sandbox"
	"github.com/shemcp/shemcp/internal/version"
)

// Server owns the process-wide pipeline state: immutable policy, sandbox
// validator (with its worktree registry), spill store, and executor.
type Server struct {
	pol       *policy.Policy
	validator *sandbox.Validator
	store     *pagestore.Store
	exec      *executor.Executor
	logger    *slog.Logger
}

// New assembles a server from its collaborators.
func New(pol *policy.Policy, validator *sandbox.Validator, store *pagestore.Store, exec *executor.Executor, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		pol:       pol,
		validator: validator,
		store:     store,
		exec:      exec,
		logger:    logger,
	}
}

// Run serves MCP over stdio until the context is cancelled or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	srv := s.newMCPServer()
	s.logger.Info("server starting",
		"version", version.Version,
		"sandbox_root", s.pol.SandboxRoot,
		"worktree_detection", s.pol.WorktreeDetection,
	)
	return srv.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) newMCPServer() *mcp.Server {
	impl := &mcp.Implementation{
		Name:    "shemcp",
		Title:   "Sandboxed shell execution",
		Version: version.Version,
	}
	srv := mcp.NewServer(impl, nil)
	mcp.AddTool(srv, shellExecTool(), s.handleShellExec)
	mcp.AddTool(srv, readFileChunkTool(), s.handleReadFileChunk)
	mcp.AddTool(srv, shellInfoTool(), s.handleShellInfo)
	return srv
}

// errorResult builds a tool-level failure in the "Error: {message}" shape.
// These reach the agent as structured tool errors, never as protocol
// failures.
func errorResult(format string, args ...any) *mcp.CallToolResult {
	return textResult(true, "Error: "+fmt.Sprintf(format, args...))
}

func textResult(isError bool, text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: isError,
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
