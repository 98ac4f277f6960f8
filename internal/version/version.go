// Package version holds build metadata injected via ldflags:
//
//	-X github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/version.Version=v1.2.0
package version

import "fmt"

//nolint:gochecknoglobals // set by the linker
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String renders "cloudberry-storage <version> (<commit>, built <date>)".
func String() string {
	return fmt.Sprintf("cloudberry-storage %s (%s, built %s)", Version, Commit, Date)
}
