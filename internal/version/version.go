// Package version reports the maxbot build.
package version

import (
	"runtime"
	"runtime/debug"
)

// Release builds set these with -ldflags -X. Commit and Date fall back to the VCS
// stamp the go command embeds.
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

var readBuildInfo = debug.ReadBuildInfo

// String renders the `maxbot version` line.
func String() string {
	commit, date := Commit, Date
	if info, ok := readBuildInfo(); ok && (commit == "" || date == "") {
		vcsCommit, vcsDate := fromSettings(info.Settings)
		if commit == "" {
			commit = vcsCommit
		}
		if date == "" {
			date = vcsDate
		}
	}
	if commit == "" {
		commit = "none"
	}
	if date == "" {
		date = "unknown"
	}
	return "maxbot " + Version + " (commit=" + commit + ", date=" + date + ", go=" + runtime.Version() + ")"
}

func fromSettings(settings []debug.BuildSetting) (commit string, date string) {
	dirty := false
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			commit = s.Value
		case "vcs.time":
			date = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if len(commit) > 12 {
		commit = commit[:12]
	}
	if commit != "" && dirty {
		commit += "-dirty"
	}
	return commit, date
}
