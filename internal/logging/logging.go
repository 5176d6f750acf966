// Package logging sets up the server's debug log. Stdout carries JSON-RPC
// framing, so all diagnostics go to a rotating file under $HOME/.shemcp.
package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// DefaultPath returns $HOME/.shemcp/debug.log.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}
	return filepath.Join(home, ".shemcp", "debug.log"), nil
}

// New returns a structured logger appending to the given file, rotated so
// the log cannot grow without bound. The parent directory is created if
// missing.
func New(path string, level slog.Level) (*slog.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    20, // MB
		MaxBackups: 3,
		MaxAge:     14, // days
		Compress:   true,
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler), nil
}
