package version

// Build metadata for the ruledup binary.
const (
	// Version is the current semantic version.
	Version = "0.1.0"

	// BuildDate is set during build time (use -ldflags)
	BuildDate = "development"

	// GitCommit is set during build time (use -ldflags)
	GitCommit = "unknown"
)

// Info returns the bare version string.
func Info() string {
	return Version
}

// FullInfo returns detailed version information.
func FullInfo() string {
	return "ruledup " + Version + " (commit: " + GitCommit + ", built: " + BuildDate + ")"
}
