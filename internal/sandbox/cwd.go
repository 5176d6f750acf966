package sandbox

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Validator decides whether a candidate working directory may host a child
// process: inside the sandbox root, or inside a verified sibling worktree.
type Validator struct {
	root              string
	worktreeDetection bool
	registry          *Registry
}

// NewValidator creates a validator for the given canonical sandbox root.
func NewValidator(root string, worktreeDetection bool, registry *Registry) *Validator {
	return &Validator{
		root:              root,
		worktreeDetection: worktreeDetection,
		registry:          registry,
	}
}

// Root returns the sandbox root the validator was built with.
func (v *Validator) Root() string { return v.root }

// Validate checks the candidate absolute path and returns its fully
// resolved form. The two failure classes keep distinct messages so a caller
// can tell a typo ("not accessible") from a boundary violation ("not
// allowed").
func (v *Validator) Validate(ctx context.Context, candidate string) (string, error) {
	clean := filepath.Clean(candidate)

	if clean == v.root || isDescendant(v.root, clean) {
		return v.checkAccessible(clean, v.root)
	}

	if wtRoot, ok := v.registry.AllowedRootFor(clean); ok {
		return v.checkAccessible(clean, wtRoot)
	}

	if v.worktreeDetection {
		if wtRoot, ok := v.registry.ValidateWorktreePath(ctx, clean); ok {
			return v.checkAccessible(clean, wtRoot)
		}
	}

	return "", fmt.Errorf("cwd not allowed: %s (must be within %s)", clean, v.root)
}

// checkAccessible verifies the directory exists and is traversable, then
// resolves symlinks on both sides and confirms the real path has not
// escaped the real boundary.
func (v *Validator) checkAccessible(path, boundary string) (string, error) {
	fi, err := os.Stat(path)
	if err != nil || !fi.IsDir() {
		return "", fmt.Errorf("cwd not accessible: %s", path)
	}
	// Directory traversal needs read+execute; opening and listing probes both.
	if _, err := os.ReadDir(path); err != nil {
		return "", fmt.Errorf("cwd not accessible: %s", path)
	}

	realPath, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", fmt.Errorf("cwd not accessible: %s", path)
	}
	realBoundary, err := filepath.EvalSymlinks(boundary)
	if err != nil {
		return "", fmt.Errorf("cwd not accessible: %s", path)
	}

	rel, err := filepath.Rel(realBoundary, realPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", fmt.Errorf("cwd not allowed: %s (resolved outside sandbox root)", path)
	}
	return realPath, nil
}
