// Package executor spawns policy-approved child processes and captures
// their output under strict byte budgets, paginating through the spill
// store when a stream outgrows the page.
package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/shemcp/shemcp/internal/command"
	"github.com/shemcp/shemcp/internal/execenv"
	"github.com/shemcp/shemcp/internal/pagestore"
)

// OnLargeOutput selects what happens when a stream exceeds the page budget.
type OnLargeOutput string

const (
	OnSpill    OnLargeOutput = "spill"
	OnTruncate OnLargeOutput = "truncate"
	OnError    OnLargeOutput = "error"
)

// Executor runs child processes for the server. It owns no per-request
// state; every execution gets independent buffers and spill files.
type Executor struct {
	store        *pagestore.Store
	logger       *slog.Logger
	envAllowlist []string
}

// New creates an executor writing spills through store and forwarding only
// the allowlisted environment variable names.
func New(store *pagestore.Store, logger *slog.Logger, envAllowlist []string) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{store: store, logger: logger, envAllowlist: envAllowlist}
}

// Request is one fully validated execution: normalized invocation, parsed
// wrapper, resolved cwd, and effective limits.
type Request struct {
	Invocation *command.Invocation
	Wrapper    *command.WrapperResult
	Cwd        string

	TimeoutMs      int64
	MaxOutputBytes int64
	LimitBytes     int64
	LimitLines     int64
	CursorOffset   int64
	OnLargeOutput  OnLargeOutput
}

// Result is the structured outcome of one execution page.
type Result struct {
	ExitCode   int
	Signal     string
	DurationMs int64

	StdoutChunk string
	StderrChunk string
	BytesStart  int64
	BytesEnd    int64
	TotalBytes  int64
	Truncated   bool
	NextCursor  *pagestore.Cursor

	SpillURI       string
	StderrSpillURI string

	MIME        string
	LineCount   int
	StderrCount int

	EffectiveCmdline []string
}

// Strict-mode flags injected into wrapper invocations. sh omits pipefail,
// which is not POSIX.
var (
	bashStrictFlags = []string{"-o", "pipefail", "-o", "errexit"}
	shStrictFlags   = []string{"-e"}
)

// BuildArgv assembles the spawn command line. Wrappers are re-assembled as
// shell + preserved user flags + login flag + strict flags + -c + command
// string + trailing positional parameters; env prefixes are prepended to
// the command string so the shell performs the assignments for the inner
// command.
func BuildArgv(inv *command.Invocation, w *command.WrapperResult) []string {
	if w == nil || !w.IsWrapper {
		return append([]string{inv.Cmd}, inv.Args...)
	}

	exe := "/bin/sh"
	strict := shStrictFlags
	if w.Shell == command.ShellBash {
		exe = "/bin/bash"
		strict = bashStrictFlags
	}

	cmdStr := w.CommandString
	if len(inv.EnvVars) > 0 {
		cmdStr = strings.Join(inv.EnvVars, " ") + " " + cmdStr
	}

	argv := []string{exe}
	argv = append(argv, w.FlagsBeforeCommand...)
	if w.ShouldUseLogin {
		argv = append(argv, "-l")
	}
	argv = append(argv, strict...)
	argv = append(argv, "-c", cmdStr)
	if w.ArgsAfterCommand >= 0 && w.ArgsAfterCommand < len(inv.Args) {
		argv = append(argv, inv.Args[w.ArgsAfterCommand:]...)
	}
	return argv
}

// Execute spawns the child and returns one page of its output. Spawn
// failures and timeouts complete normally with exit_code -1; only the
// "error" large-output mode produces a request-level error.
func (e *Executor) Execute(ctx context.Context, req Request) (*Result, error) {
	argv := BuildArgv(req.Invocation, req.Wrapper)

	memCap := 2 * req.LimitBytes
	if req.MaxOutputBytes > memCap {
		memCap = req.MaxOutputBytes
	}
	outBuf := NewTailBuffer(memCap)
	errBuf := NewTailBuffer(memCap)

	var sp *pagestore.Spill
	if req.OnLargeOutput == OnSpill {
		sp = e.store.NewSpill()
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(req.TimeoutMs)*time.Millisecond)
	defer cancel()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = req.Cwd
	cmd.Env = execenv.Build(e.envAllowlist, os.Environ(), req.Invocation.EnvVars)
	// Stdin stays closed: captured, non-interactive execution only.

	// The child runs in its own process group so a timeout kill reaches
	// grandchildren holding the pipe write ends, not just the shell.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		return cmd.Process.Kill()
	}
	cmd.WaitDelay = 2 * time.Second

	start := time.Now()
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return e.spawnFailure(argv, sp, start, err), nil
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return e.spawnFailure(argv, sp, start, err), nil
	}
	if err := cmd.Start(); err != nil {
		return e.spawnFailure(argv, sp, start, err), nil
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		readLoop(stdout, outBuf, spWriter(sp, (*pagestore.Spill).WriteStdout))
	}()
	go func() {
		defer wg.Done()
		readLoop(stderr, errBuf, spWriter(sp, (*pagestore.Spill).WriteStderr))
	}()

	// If a process outside the group inherited the pipes, the readers
	// could block past the kill; close them after a short grace period.
	watchDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			grace := time.NewTimer(2 * time.Second)
			defer grace.Stop()
			select {
			case <-grace.C:
				_ = stdout.Close()
				_ = stderr.Close()
			case <-watchDone:
			}
		case <-watchDone:
		}
	}()

	// Readers drain before Wait; Wait closes the pipe read ends.
	wg.Wait()
	close(watchDone)
	waitErr := cmd.Wait()
	if sp != nil {
		sp.Close()
	}

	timedOut := errors.Is(ctx.Err(), context.DeadlineExceeded)
	exitCode, signal := exitStatus(waitErr, timedOut)
	duration := time.Since(start).Milliseconds()

	totalOut := outBuf.TotalWritten()
	totalOutLines := outBuf.TotalLines()

	if req.OnLargeOutput == OnError && (totalOut > req.LimitBytes || totalOutLines > req.LimitLines) {
		if sp != nil {
			sp.Discard()
		}
		return nil, fmt.Errorf("Output too large: %d bytes, %d lines. Use pagination or spill mode.", totalOut, totalOutLines)
	}

	res := &Result{
		ExitCode:         exitCode,
		Signal:           signal,
		DurationMs:       duration,
		TotalBytes:       totalOut,
		EffectiveCmdline: argv,
	}

	e.buildStdoutPage(res, req, sp, outBuf, totalOut, totalOutLines)
	e.buildStderrPage(res, req, sp, errBuf)

	res.MIME = pagestore.SniffMIME(res.StdoutChunk)
	res.LineCount = pagestore.CountLines(res.StdoutChunk)
	res.StderrCount = pagestore.CountLines(res.StderrChunk)

	if sp != nil {
		if res.NextCursor == nil {
			// Caller has seen everything; nothing left to retrieve.
			sp.Discard()
		} else {
			if sp.StdoutRetained() {
				res.SpillURI = sp.StdoutURI()
			}
			if sp.StderrRetained() {
				res.StderrSpillURI = sp.StderrURI()
			}
		}
	}

	return res, nil
}

func (e *Executor) buildStdoutPage(res *Result, req Request, sp *pagestore.Spill, buf *TailBuffer, total, totalLines int64) {
	bytesStart := req.CursorOffset
	if bytesStart > total {
		bytesStart = total
	}
	bytesEnd := min64(bytesStart+req.LimitBytes, total)

	var chunk []byte
	served := false
	if sp != nil && sp.StdoutRetained() {
		c, err := e.store.ReadRange(sp.StdoutPath(), bytesStart, bytesEnd)
		if err != nil {
			e.logger.Warn("reading stdout spill failed", "error", err)
		} else {
			chunk = c
			served = true
		}
	}
	if !served {
		if c, ok := buf.Range(bytesStart, bytesEnd); ok {
			chunk = c
		} else {
			// Cursor points into discarded in-memory bytes and no spill
			// exists: empty chunk, cursor unchanged. Spill mode is the
			// supported path for out-of-window pages.
			chunk = []byte{}
		}
	}
	// The window math must hold regardless of which source served the
	// chunk: bytes_end - bytes_start equals the chunk length.
	bytesEnd = bytesStart + int64(len(chunk))

	res.StdoutChunk = string(chunk)
	res.BytesStart = bytesStart
	res.BytesEnd = bytesEnd

	switch req.OnLargeOutput {
	case OnTruncate:
		res.Truncated = total > req.LimitBytes || totalLines > req.LimitLines
	default:
		if bytesEnd < total {
			res.Truncated = true
			res.NextCursor = pagestore.BytesCursor(bytesEnd)
		}
	}
}

func (e *Executor) buildStderrPage(res *Result, req Request, sp *pagestore.Spill, buf *TailBuffer) {
	totalErr := buf.TotalWritten()
	end := min64(req.MaxOutputBytes, totalErr)

	if sp != nil && sp.StderrRetained() {
		if c, err := e.store.ReadRange(sp.StderrPath(), 0, end); err == nil {
			res.StderrChunk = string(c)
			return
		}
	}
	if c, ok := buf.Range(0, end); ok {
		res.StderrChunk = string(c)
	}
}

func (e *Executor) spawnFailure(argv []string, sp *pagestore.Spill, start time.Time, err error) *Result {
	e.logger.Warn("spawn failed", "argv", argv, "error", err)
	if sp != nil {
		sp.Discard()
	}
	return &Result{
		ExitCode:         -1,
		DurationMs:       time.Since(start).Milliseconds(),
		StdoutChunk:      "",
		StderrChunk:      err.Error(),
		MIME:             "text/plain",
		StderrCount:      pagestore.CountLines(err.Error()),
		EffectiveCmdline: argv,
	}
}

func readLoop(r io.Reader, buf *TailBuffer, write func([]byte)) {
	b := make([]byte, 32*1024)
	for {
		n, err := r.Read(b)
		if n > 0 {
			buf.Push(b[:n])
			if write != nil {
				write(b[:n])
			}
		}
		if err != nil {
			return
		}
	}
}

func spWriter(sp *pagestore.Spill, w func(*pagestore.Spill, []byte)) func([]byte) {
	if sp == nil {
		return nil
	}
	return func(b []byte) { w(sp, b) }
}

// exitStatus extracts the exit code and signal name from Wait's error. A
// timed-out child was hard-killed; it reports SIGKILL with a -1 exit code
// when the platform offers nothing better.
func exitStatus(waitErr error, timedOut bool) (int, string) {
	if waitErr == nil {
		return 0, ""
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		code := exitErr.ExitCode()
		sig := ""
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			sig = signalName(ws.Signal())
		}
		if timedOut && sig == "" {
			sig = "SIGKILL"
		}
		return code, sig
	}
	if timedOut {
		return -1, "SIGKILL"
	}
	return -1, ""
}

func signalName(sig syscall.Signal) string {
	switch sig {
	case syscall.SIGKILL:
		return "SIGKILL"
	case syscall.SIGTERM:
		return "SIGTERM"
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGSEGV:
		return "SIGSEGV"
	case syscall.SIGPIPE:
		return "SIGPIPE"
	case syscall.SIGHUP:
		return "SIGHUP"
	default:
		return fmt.Sprintf("SIG%d", int(sig))
	}
}
