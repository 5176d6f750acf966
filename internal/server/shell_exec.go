package server

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/shemcp/shemcp/internal/command"
	"github.com/shemcp/shemcp/internal/executor"
	"github.com/shemcp/shemcp/internal/pagestore"
	"github.com/shemcp/shemcp/internal/policy"
)

// pageInput is the mandatory pagination object of shell_exec. The cursor is
// kept raw so shape violations produce the pagestore's precise messages.
type pageInput struct {
	Cursor     json.RawMessage `json:"cursor,omitempty"`
	LimitBytes *float64        `json:"limit_bytes,omitempty"`
	LimitLines *float64        `json:"limit_lines,omitempty"`
}

type shellExecInput struct {
	Cmd            string     `json:"cmd"`
	Args           []string   `json:"args,omitempty"`
	Cwd            string     `json:"cwd,omitempty"`
	TimeoutSeconds *float64   `json:"timeout_seconds,omitempty"`
	TimeoutMs      *float64   `json:"timeout_ms,omitempty"`
	MaxOutputBytes *float64   `json:"max_output_bytes,omitempty"`
	Page           *pageInput `json:"page,omitempty"`
	OnLargeOutput  string     `json:"on_large_output,omitempty"`
}

type shellExecResult struct {
	ExitCode   int     `json:"exit_code"`
	Signal     *string `json:"signal"`
	DurationMs int64   `json:"duration_ms"`

	Cmdline          []string `json:"cmdline"`
	EffectiveCmdline []string `json:"effective_cmdline"`
	Cwd              string   `json:"cwd"`

	StdoutChunk string            `json:"stdout_chunk"`
	StderrChunk string            `json:"stderr_chunk"`
	BytesStart  int64             `json:"bytes_start"`
	BytesEnd    int64             `json:"bytes_end"`
	TotalBytes  int64             `json:"total_bytes"`
	Truncated   bool              `json:"truncated"`
	NextCursor  *pagestore.Cursor `json:"next_cursor,omitempty"`

	SpillURI       string `json:"spill_uri,omitempty"`
	StderrSpillURI string `json:"stderr_spill_uri,omitempty"`

	MIME        string `json:"mime"`
	LineCount   int    `json:"line_count"`
	StderrCount int    `json:"stderr_count"`

	EffectiveTimeoutMs      int64 `json:"effective_timeout_ms"`
	EffectiveMaxOutputBytes int64 `json:"effective_max_output_bytes"`
}

func (s *Server) handleShellExec(ctx context.Context, _ *mcp.CallToolRequest, in shellExecInput) (*mcp.CallToolResult, any, error) {
	started := time.Now()

	if strings.TrimSpace(in.Cmd) == "" {
		return errorResult("cmd must be a non-empty string"), nil, nil
	}
	if in.Page == nil {
		return errorResult("page is required"), nil, nil
	}
	if in.Page.Cursor == nil {
		return errorResult("page.cursor is required"), nil, nil
	}
	cursor, err := pagestore.ParseCursor(in.Page.Cursor)
	if err != nil {
		return errorResult("%s", err), nil, nil
	}

	limitBytes := int64(pagestore.DefaultLimitBytes)
	if in.Page.LimitBytes != nil {
		limitBytes = int64(*in.Page.LimitBytes)
		if limitBytes < pagestore.MinLimitBytes || limitBytes > pagestore.MaxLimitBytes {
			return errorResult("limit_bytes must be between %d and %d", pagestore.MinLimitBytes, pagestore.MaxLimitBytes), nil, nil
		}
	}
	limitLines := int64(pagestore.DefaultLimitLines)
	if in.Page.LimitLines != nil {
		limitLines = int64(*in.Page.LimitLines)
		if limitLines < pagestore.MinLimitLines || limitLines > pagestore.MaxLimitLines {
			return errorResult("limit_lines must be between %d and %d", pagestore.MinLimitLines, pagestore.MaxLimitLines), nil, nil
		}
	}

	onLarge := executor.OnLargeOutput(in.OnLargeOutput)
	switch onLarge {
	case "":
		onLarge = executor.OnSpill
	case executor.OnSpill, executor.OnTruncate, executor.OnError:
	default:
		return errorResult(`on_large_output must be "spill", "truncate", or "error"`), nil, nil
	}

	// Normalize: env prefix, then wrapper decomposition.
	inv, err := command.StripEnvPrefix(in.Cmd, in.Args)
	if err != nil {
		return errorResult("%s", err), nil, nil
	}
	wrapper, err := command.ParseWrapper(inv.Cmd, inv.Args)
	if err != nil {
		return errorResult("%s", err), nil, nil
	}

	// Policy judges the command the shell would actually run: the command
	// string for wrappers, the stripped invocation otherwise.
	checked := command.Reconstruct(append([]string{inv.Cmd}, inv.Args...))
	if wrapper.IsWrapper {
		checked = strings.TrimSpace(wrapper.CommandString)
	}
	original := command.Reconstruct(inv.Tokens())

	check := s.pol.CheckCommand(checked)
	if !check.Allowed {
		s.logger.Info("command denied",
			"cmdline", original,
			"checked", checked,
			"reason", check.Reason,
			"matched_rule", check.MatchedRule,
		)
		return textResult(true, denialText(check, checked, original, wrapper)), nil, nil
	}

	// Resolve and validate the working directory.
	if filepath.IsAbs(in.Cwd) {
		return errorResult("cwd must be relative; got %s (sandbox root: %s)", in.Cwd, s.pol.SandboxRoot), nil, nil
	}
	cwd := s.pol.SandboxRoot
	if in.Cwd != "" {
		cwd = filepath.Join(s.pol.SandboxRoot, in.Cwd)
	}
	resolvedCwd, err := s.validator.Validate(ctx, cwd)
	if err != nil {
		return errorResult("%s", err), nil, nil
	}

	timeoutMs := executor.EffectiveTimeoutMs(s.pol.TimeoutMs, toInt64(in.TimeoutSeconds), toInt64(in.TimeoutMs))
	maxOutput := executor.EffectiveMaxOutputBytes(s.pol.MaxOutputBytes, toInt64(in.MaxOutputBytes))

	res, err := s.exec.Execute(ctx, executor.Request{
		Invocation:     inv,
		Wrapper:        wrapper,
		Cwd:            resolvedCwd,
		TimeoutMs:      timeoutMs,
		MaxOutputBytes: maxOutput,
		LimitBytes:     limitBytes,
		LimitLines:     limitLines,
		CursorOffset:   cursor.Offset,
		OnLargeOutput:  onLarge,
	})
	if err != nil {
		// Large-output failure in "error" mode; the message is the contract.
		return textResult(true, err.Error()), nil, nil
	}

	out := shellExecResult{
		ExitCode:                res.ExitCode,
		Signal:                  optString(res.Signal),
		DurationMs:              res.DurationMs,
		Cmdline:                 inv.Tokens(),
		EffectiveCmdline:        res.EffectiveCmdline,
		Cwd:                     resolvedCwd,
		StdoutChunk:             res.StdoutChunk,
		StderrChunk:             res.StderrChunk,
		BytesStart:              res.BytesStart,
		BytesEnd:                res.BytesEnd,
		TotalBytes:              res.TotalBytes,
		Truncated:               res.Truncated,
		NextCursor:              res.NextCursor,
		SpillURI:                res.SpillURI,
		StderrSpillURI:          res.StderrSpillURI,
		MIME:                    res.MIME,
		LineCount:               res.LineCount,
		StderrCount:             res.StderrCount,
		EffectiveTimeoutMs:      timeoutMs,
		EffectiveMaxOutputBytes: maxOutput,
	}

	s.logger.Info("shell_exec",
		"cmdline", original,
		"cwd", resolvedCwd,
		"exit_code", res.ExitCode,
		"total_bytes", res.TotalBytes,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return jsonResult(out), nil, nil
}

// denialText renders the policy denial block: reason, matched rule, and the
// original plus unwrapped command lines for wrapper invocations.
func denialText(check policy.CheckResult, checked, original string, wrapper *command.WrapperResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Denied by policy: %s\n\nReason: %s\n", checked, check.Reason)
	if check.MatchedRule != "" {
		fmt.Fprintf(&b, "Matched %s rule: /%s/\n", check.RuleType, check.MatchedRule)
	}
	fmt.Fprintf(&b, "\nOriginal command: %s\n", original)
	if wrapper.IsWrapper {
		fmt.Fprintf(&b, "Unwrapped command: %s\n", strings.TrimSpace(wrapper.CommandString))
	}
	return b.String()
}

func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.Marshal(v)
	if err != nil {
		return errorResult("encoding response: %v", err)
	}
	return textResult(false, string(data))
}

func toInt64(v *float64) *int64 {
	if v == nil {
		return nil
	}
	i := int64(*v)
	return &i
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
