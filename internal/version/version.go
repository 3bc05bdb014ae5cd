// Package version exposes build metadata injected through -ldflags.
package version

import "fmt"

// Set at build time, e.g.
//
//	go build -ldflags "-X github.com/lotfimay/FollowUP-GRP4/internal/version.Version=1.2.0"
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info is the build metadata served at /version.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

// Get returns the current build metadata.
func Get() Info {
	return Info{Version: Version, Commit: GitCommit, BuildDate: BuildDate}
}

func (i Info) String() string {
	return fmt.Sprintf("followup %s (commit %s, built %s)", i.Version, i.Commit, i.BuildDate)
}
