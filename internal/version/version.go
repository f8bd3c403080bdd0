// Package version carries build metadata stamped in with -ldflags.
package version

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String returns the version annotated with the commit when known.
func String() string {
	if GitSHA == "unknown" || GitSHA == "" {
		return Version
	}
	return Version + "+" + GitSHA
}
