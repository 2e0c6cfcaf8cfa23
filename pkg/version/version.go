// Package version holds build metadata set through -ldflags.
package version

import (
	"fmt"
	"runtime/debug"
)

// Build metadata. Overridden at link time with
// -X github.com/Sumatoshi-tech/lineindex/pkg/version.Version=...
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

const revisionKey = "vcs.revision"

// InitBinaryVersion fills unset metadata from the embedded build info.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	for _, setting := range info.Settings {
		if setting.Key == revisionKey && Commit == "unknown" {
			Commit = setting.Value
		}
	}
}

// String formats the metadata for the version command.
func String() string {
	return fmt.Sprintf("lineindex %s (commit: %s, built: %s)", Version, Commit, Date)
}
