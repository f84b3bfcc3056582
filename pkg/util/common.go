// Package util provides small helpers shared across commands.
package util

import "fmt"

// BuildInfo describes the binary as stamped by the release pipeline.
// Zero fields mean a local, unstamped build.
type BuildInfo struct {
	Version string
	Date    string
	Commit  string
}

func (b BuildInfo) String() string {
	return fmt.Sprintf("Build version: %s\nBuild date: %s\nBuild commit: %s",
		orNA(b.Version), orNA(b.Date), orNA(b.Commit))
}

// PrintBuildInfo writes the build banner to stdout.
func PrintBuildInfo(version, date, commit string) {
	fmt.Println(BuildInfo{Version: version, Date: date, Commit: commit})
}

func orNA(v string) string {
	if v == "" {
		return "N/A"
	}
	return v
}
