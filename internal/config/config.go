// Package config loads the server policy configuration from TOML. Config
// files are optional; without one the curated defaults apply.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// EnvConfigPath names an explicit config file, beating the search path.
const EnvConfigPath = "SHEMCP_CONFIG"

// Config is the TOML-visible policy surface. Keys present in the file
// replace the corresponding default wholesale; absent keys keep it.
type Config struct {
	Allow             []string `toml:"allow"`
	Deny              []string `toml:"deny"`
	TimeoutSeconds    int64    `toml:"timeout_seconds"`
	MaxOutputBytes    int64    `toml:"max_output_bytes"`
	EnvAllowlist      []string `toml:"env_allowlist"`
	WorktreeDetection bool     `toml:"worktree_detection"`
}

// Default returns the curated baseline: common development tools allowed,
// pushes to protected branches (and a few footguns) denied.
func Default() Config {
	return Config{
		Allow: []string{
			`^git($| )`,
			`^ls($| )`,
			`^cat($| )`,
			`^head($| )`,
			`^tail($| )`,
			`^grep($| )`,
			`^rg($| )`,
			`^find($| )`,
			`^echo($| )`,
			`^printf($| )`,
			`^pwd$`,
			`^which($| )`,
			`^env$`,
			`^wc($| )`,
			`^sed($| )`,
			`^awk($| )`,
			`^sort($| )`,
			`^uniq($| )`,
			`^diff($| )`,
			`^make($| )`,
			`^go($| )`,
			`^cargo($| )`,
			`^npm($| )`,
			`^npx($| )`,
			`^node($| )`,
			`^python3?($| )`,
			`^pip3?($| )`,
			`^curl($| )`,
			`^jq($| )`,
			`^tar($| )`,
			`^seq($| )`,
		},
		Deny: []string{
			`git\s+push\s+.*\b(main|master)\b`,
			`git\s+push\s+.*--force`,
			`rm\s+-rf\s+/(\s|$)`,
		},
		TimeoutSeconds: 120,
		MaxOutputBytes: 5_000_000,
		EnvAllowlist: []string{
			"PATH", "HOME", "USER", "LOGNAME", "SHELL",
			"LANG", "LC_ALL", "TERM", "TMPDIR", "TZ",
		},
		WorktreeDetection: true,
	}
}

// Load resolves and decodes the configuration. Search order: explicit path
// (from the CLI flag), $SHEMCP_CONFIG, ./.shemcp.toml, then
// $HOME/.shemcp/config.toml. The returned source is the file used, or ""
// when running on defaults. A named-but-unreadable or malformed file is an
// error: a server must not silently fall back to a policy the operator did
// not choose.
func Load(explicit string) (Config, string, error) {
	cfg := Default()

	path, required := explicit, explicit != ""
	if path == "" {
		if env := os.Getenv(EnvConfigPath); env != "" {
			path, required = env, true
		}
	}
	if path == "" {
		for _, candidate := range searchPath() {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}
	if path == "" {
		return cfg, "", nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if os.IsNotExist(err) && !required {
			return Default(), "", nil
		}
		return Config{}, "", fmt.Errorf("loading config %s: %w", path, err)
	}
	return cfg, path, nil
}

// TimeoutMs returns the timeout ceiling in milliseconds.
func (c Config) TimeoutMs() int64 { return c.TimeoutSeconds * 1000 }

func searchPath() []string {
	paths := []string{".shemcp.toml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".shemcp", "config.toml"))
	}
	return paths
}
