package buildinfo

import "runtime"

// Set at link time with -ldflags "-X vrptw/internal/buildinfo.Version=...".
var (
	Version = "dev"
	Commit  = ""
	BuiltAt = ""
)

// Info is attached to every benchmark report so results can be traced to a build.
func Info() map[string]string {
	return map[string]string{
		"version": Version,
		"commit":  Commit,
		"builtAt": BuiltAt,
		"go":      runtime.Version(),
	}
}
