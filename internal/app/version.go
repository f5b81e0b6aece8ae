package app

import "fmt"

// Build-time variables set via ldflags, e.g.
//
//	-X github.com/wealthwise/voiceviz/internal/app.Version=v1.2.0
var (
	Version   = "dev"
	GitCommit = "unknown"
	GitTag    = ""
	BuildTime = "unknown"
)

// VersionInfo contains version information for the application.
type VersionInfo struct {
	Version   string
	GitCommit string
	GitTag    string
	BuildTime string
}

// GetVersionInfo returns the current version information.
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:   Version,
		GitCommit: GitCommit,
		GitTag:    GitTag,
		BuildTime: BuildTime,
	}
}

// Display returns the tag when the build has one, otherwise the version.
func (v VersionInfo) Display() string {
	if v.GitTag != "" {
		return v.GitTag
	}
	return v.Version
}

// FullString returns a detailed version string for logging.
func (v VersionInfo) FullString() string {
	return fmt.Sprintf("VoiceViz %s (commit: %s, built: %s)", v.Display(), v.GitCommit, v.BuildTime)
}
