// Package version tells which build of musicfile is running.
package version

import "runtime/debug"

// Version can be set at build time, e.g.
// go build -ldflags "-X github.com/vsariola/musicfile/version.Version=$(git describe --dirty)" ./cmd/musicfile
var Version string

type Build struct {
	// Revision is the short VCS hash, suffixed with -dirty for modified
	// trees. Empty when built without VCS information.
	Revision  string
	GoVersion string
}

var Info = func() Build {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return Build{}
	}
	b := Build{GoVersion: info.GoVersion}
	modified := false
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			b.Revision = setting.Value[:min(7, len(setting.Value))]
		case "vcs.modified":
			modified = setting.Value == "true"
		}
	}
	if b.Revision != "" && modified {
		b.Revision += "-dirty"
	}
	return b
}()

// VersionOrHash is Version if set, otherwise the revision.
var VersionOrHash = func() string {
	if Version != "" {
		return Version
	}
	if Info.Revision != "" {
		return Info.Revision
	}
	return "(devel)"
}()
