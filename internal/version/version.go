// Package version exposes build metadata, populated via -ldflags at
// release time.
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the semantic version of this build.
	Version = "dev"
	// Commit is the git commit hash of this build.
	Commit = "unknown"
	// Date is the build timestamp.
	Date = "unknown"
)

// Info is the full build description.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns the build info for this binary.
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String renders a one-line version summary.
func (i Info) String() string {
	return fmt.Sprintf("stash %s (%s, %s, %s)", i.Version, i.Commit, i.Date, i.Platform)
}
