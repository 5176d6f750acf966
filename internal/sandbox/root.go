// Package sandbox pins command execution to a single directory tree. It
// resolves the sandbox root once at startup, validates working directories
// against it, and extends the boundary to verified git worktrees.
package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
)

// Environment overrides consulted by ResolveRoot, in precedence order.
const (
	EnvSandboxRoot = "SHEMCP_SANDBOX_ROOT"
	EnvRoot        = "SHEMCP_ROOT"
)

// ResolveRoot selects the sandbox root for the process lifetime: the first
// override environment variable naming an existing directory, else the
// nearest ancestor of cwd containing a .git entry, else cwd itself. The
// result is absolute and symlink-resolved; it is chosen exactly once and
// never changes at runtime.
func ResolveRoot(cwd string) (string, error) {
	for _, name := range []string{EnvSandboxRoot, EnvRoot} {
		if dir := os.Getenv(name); dir != "" {
			if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
				return canonicalize(dir)
			}
		}
	}

	abs, err := filepath.Abs(cwd)
	if err != nil {
		return "", fmt.Errorf("resolving cwd %q: %w", cwd, err)
	}
	for dir := abs; ; {
		// A .git entry may be a directory (main checkout) or a file
		// (worktree checkout); both mark a repository root.
		if _, err := os.Lstat(filepath.Join(dir, ".git")); err == nil {
			return canonicalize(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return canonicalize(abs)
}

func canonicalize(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving sandbox root %q: %w", dir, err)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("resolving sandbox root %q: %w", dir, err)
	}
	return real, nil
}
