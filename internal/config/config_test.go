package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NotEmpty(t, cfg.Allow)
	assert.NotEmpty(t, cfg.Deny)
	assert.Equal(t, int64(120), cfg.TimeoutSeconds)
	assert.Equal(t, int64(120_000), cfg.TimeoutMs())
	assert.Equal(t, int64(5_000_000), cfg.MaxOutputBytes)
	assert.Contains(t, cfg.EnvAllowlist, "PATH")
	assert.True(t, cfg.WorktreeDetection)
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, source, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, source)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_ExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
allow = ["^true$"]
timeout_seconds = 10
`), 0o644))

	cfg, source, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, source)
	assert.Equal(t, []string{"^true$"}, cfg.Allow)
	assert.Equal(t, int64(10), cfg.TimeoutSeconds)
	// Keys absent from the file keep their defaults.
	assert.Equal(t, Default().Deny, cfg.Deny)
	assert.Equal(t, Default().MaxOutputBytes, cfg.MaxOutputBytes)
}

func TestLoad_EnvVarPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.toml")
	require.NoError(t, os.WriteFile(path, []byte(`max_output_bytes = 2000000`), 0o644))
	t.Setenv(EnvConfigPath, path)

	cfg, source, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, path, source)
	assert.Equal(t, int64(2_000_000), cfg.MaxOutputBytes)
}

func TestLoad_SearchPathFindsLocalFile(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".shemcp.toml"), []byte(`timeout_seconds = 42`), 0o644))

	cfg, source, err := Load("")
	require.NoError(t, err)
	assert.NotEmpty(t, source)
	assert.Equal(t, int64(42), cfg.TimeoutSeconds)
}

func TestLoad_MalformedFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte(`allow = [`), 0o644))

	_, _, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading config")
}

func TestLoad_MissingExplicitFileFails(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
