// Package version exposes the build identity of the running binary. The
// variables are overridden at build time via -ldflags; a module build without
// them falls back to Go's embedded build info.
package version

import "runtime/debug"

var (
	// Version is the semantic version of the binary.
	Version = "dev"

	// Commit is the VCS revision the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

func init() {
	if Version != "dev" {
		return
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			Commit = setting.Value
		case "vcs.time":
			Date = setting.Value
		}
	}
}

// String renders the full build identity.
func String() string {
	return Version + " (commit: " + Commit + ", built: " + Date + ")"
}
