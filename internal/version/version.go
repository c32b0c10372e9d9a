// Package version carries build identification for the smokewatch
// binary, stamped at link time via -ldflags and reported on startup and
// at /api/status.
package version

var (
	// Version is the release tag, "dev" for local builds.
	Version = "dev"
	// GitSHA is the commit the binary was built from.
	GitSHA = "unknown"
	// BuildTime is the UTC build timestamp.
	BuildTime = "unknown"
)
