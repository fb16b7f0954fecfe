// Package version holds build-time version information.
package version

// Overridden at build time with -ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)
