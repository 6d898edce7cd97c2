// Package version carries build metadata of the checkstat binary.
package version

import (
	"runtime/debug"
)

const unknown = "<unknown>"

// Build metadata, overridden at link time with
// -ldflags "-X github.com/Sumatoshi-tech/checkstat/pkg/version.Version=...".
var (
	Version = "dev"
	Commit  = unknown
	Date    = unknown
)

// InitBinaryVersion fills Commit and Date from the embedded VCS settings when
// they were not set at link time, and Version from the module version when
// the binary was installed with go install.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	applyBuildInfo(info)
}

func applyBuildInfo(info *debug.BuildInfo) {
	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if Commit == unknown {
				Commit = setting.Value
			}
		case "vcs.time":
			if Date == unknown {
				Date = setting.Value
			}
		}
	}
}

// String formats the metadata for display.
func String() string {
	return Version + " (commit: " + Commit + ", built: " + Date + ")"
}
