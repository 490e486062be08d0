// Package version reports which build of pdfchat is running.
//
// Release builds stamp the values with -ldflags:
//
//	go build -ldflags="-X github.com/54b3r/pdfchat-go/internal/version.version=v1.2.3 \
//	                    -X github.com/54b3r/pdfchat-go/internal/version.commit=abc1234 \
//	                    -X github.com/54b3r/pdfchat-go/internal/version.date=2025-01-01T00:00:00Z"
//
// Unstamped builds fall back to the module version and VCS settings the Go
// toolchain embeds, so `go install` binaries still report their commit.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set by -ldflags.
var (
	version string
	commit  string
	date    string
)

const unknown = "unknown"

// Info describes one build of the binary.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	Modified  bool   `json:"modified,omitempty"`
	GoVersion string `json:"go_version"`
}

// Get returns the build info of the running binary.
func Get() Info {
	bi, _ := debug.ReadBuildInfo()
	return resolve(version, commit, date, bi)
}

// resolve prefers stamped values and fills the gaps from bi, which may be nil.
func resolve(version, commit, date string, bi *debug.BuildInfo) Info {
	info := Info{Version: version, Commit: commit, BuildDate: date, GoVersion: runtime.Version()}
	if bi != nil {
		if info.Version == "" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.Commit == "" {
					info.Commit = shortSHA(s.Value)
				}
			case "vcs.time":
				if info.BuildDate == "" {
					info.BuildDate = s.Value
				}
			case "vcs.modified":
				info.Modified = s.Value == "true"
			}
		}
		if bi.GoVersion != "" {
			info.GoVersion = bi.GoVersion
		}
	}
	if info.Version == "" {
		info.Version = "dev"
	}
	if info.Commit == "" {
		info.Commit = unknown
	}
	if info.BuildDate == "" {
		info.BuildDate = unknown
	}
	return info
}

func shortSHA(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}

// String renders the one-line form printed by `pdfchat version`.
func (i Info) String() string {
	c := i.Commit
	if i.Modified {
		c += "-dirty"
	}
	return fmt.Sprintf("pdfchat %s (commit: %s, built: %s, %s)", i.Version, c, i.BuildDate, i.GoVersion)
}
