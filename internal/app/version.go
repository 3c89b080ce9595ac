package app

import "fmt"

// Version, Commit, and BuildTime are set via ldflags at build time.
// Example: go build -ldflags "-X github.com/g33ktony/hot-wheels-manager-sub006/internal/app.Version=1.0.0"
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// BuildVersion returns a formatted version string for startup logs.
func BuildVersion() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildTime)
}

// UserAgent appends the build version to the configured wiki User-Agent,
// e.g. "hot-wheels-catalogsync/1.0 (build dev)".
func UserAgent(base string) string {
	if base == "" {
		base = "hot-wheels-catalogsync"
	}
	return fmt.Sprintf("%s (build %s)", base, Version)
}
