package version

import (
	"fmt"
	"runtime"
)

// Product is the name reported in the User-Agent header.
const Product = "app-updater"

var (
	// Version is the four-part version of the build. It can be overridden via ldflags.
	Version = "1.0.0.0"
	// Commit is the short git SHA embedded at build time (or "none").
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// Short returns only the version string.
func Short() string {
	return Version
}

// Full returns a human-readable version string with commit and build time.
func Full() string {
	return fmt.Sprintf("version: %s, commit: %s, built at: %s", Version, Commit, BuildTime)
}

// UserAgent returns the User-Agent value for feed and artifact requests.
// It carries the running version so servers can filter on it.
func UserAgent(runningVersion string) string {
	if runningVersion == "" {
		runningVersion = Version
	}

	return fmt.Sprintf("%s/%s (%s; %s)", Product, runningVersion, runtime.GOOS, runtime.GOARCH)
}
