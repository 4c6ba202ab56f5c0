// Package version carries build information set through -ldflags.
package version

import (
	"runtime"

	"github.com/studyreward/rewardbook/internal/schema"
)

var (
	Version   = schema.AppVersion
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// GoVersion returns the Go runtime version string.
func GoVersion() string { return runtime.Version() }
