// Package version provides build-time version information.
//
// Set at build time via:
//
//	go build -ldflags "-X github.com/shemcp/shemcp/internal/version.Version=$(git describe --tags --always)"
package version

// Version is the release version, set at build time via ldflags.
var Version = "dev"

// GitCommit is the short git commit hash, set at build time via ldflags.
var GitCommit = "unknown"
