// shemcp serves sandboxed shell command execution over the Model Context Protocol.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shemcp/shemcp/internal/config"
	"github.com/shemcp/shemcp/internal/executor"
	"github.com/shemcp/shemcp/internal/logging"
	"github.com/shemcp/shemcp/internal/pagestore"
	"github.com/shemcp/shemcp/internal/policy"
	"github.com/shemcp/shemcp/internal/sandbox"
	"github.com/shemcp/shemcp/internal/server"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "shemcp",
	Short: "Sandboxed shell execution server for AI agents (MCP over stdio).",
	Long: `shemcp exposes shell command execution to AI agents through the Model
Context Protocol. Every command runs inside a fixed sandbox root, is checked
against a regex allow/deny policy, and streams its output under strict byte
budgets with pagination and disk spill for large results.`,
	RunE:          runServe,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a TOML policy config file")
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, source, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logPath, err := logging.DefaultPath()
	if err != nil {
		return err
	}
	logger, err := logging.New(logPath, slog.LevelDebug)
	if err != nil {
		return err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determining cwd: %w", err)
	}
	root, err := sandbox.ResolveRoot(cwd)
	if err != nil {
		return err
	}

	pol, err := policy.New(policy.Config{
		SandboxRoot:       root,
		WorktreeDetection: cfg.WorktreeDetection,
		TimeoutMs:         cfg.TimeoutMs(),
		MaxOutputBytes:    cfg.MaxOutputBytes,
		EnvAllowlist:      cfg.EnvAllowlist,
		Allow:             cfg.Allow,
		Deny:              cfg.Deny,
	})
	if err != nil {
		return fmt.Errorf("compiling policy: %w", err)
	}

	spillDir, err := pagestore.DefaultDir()
	if err != nil {
		return err
	}
	store := pagestore.NewStore(spillDir, logger)
	store.Sweep(24 * time.Hour)

	registry := sandbox.NewRegistry(root, logger)
	validator := sandbox.NewValidator(root, cfg.WorktreeDetection, registry)
	exec := executor.New(store, logger, cfg.EnvAllowlist)

	if source != "" {
		logger.Info("config loaded", "path", source)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(pol, validator, store, exec, logger)
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
