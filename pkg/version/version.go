// Package version holds build metadata injected with -ldflags.
package version

import (
	"runtime/debug"
)

const unknown = "unknown"

// Build metadata. Overridden at link time:
//
//	-X github.com/Sumatoshi-tech/pyimports/pkg/version.Version=v0.1.0
var (
	Version = "dev"
	Commit  = unknown
	Date    = unknown
)

// InitBinaryVersion fills unset build metadata from the module build info
// embedded by the Go toolchain.
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

// String returns the one-line version banner.
func String() string {
	return "pyimports " + Version + " (commit: " + Commit + ", built: " + Date + ")"
}
