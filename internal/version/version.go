// Package version holds build information set through -ldflags.
package version

import (
	"fmt"
	"strings"

	"github.com/aatumaykin/chronos/internal/constants"
)

var (
	Version   = constants.DefaultVersion
	BuildTime = constants.DefaultBuildTime
	GitCommit = constants.DefaultGitCommit
	GoVersion = constants.DefaultGoVersion
)

func SetInfo(v, bt, gc, gv string) {
	if v != "" {
		Version = v
	}
	if bt != "" {
		BuildTime = bt
	}
	if gc != "" {
		GitCommit = gc
	}
	if gv != "" {
		GoVersion = gv
	}
}

func FormatStartupMessage() string {
	return fmt.Sprintf(constants.MsgServeStartup, Version)
}

// FormatVersion is the output of `chronos version`.
func FormatVersion() string {
	b := &strings.Builder{}
	b.WriteString("chronos - crontab job manager\n")
	fmt.Fprintf(b, "Version: %s\n", Version)
	fmt.Fprintf(b, "Build Time: %s\n", BuildTime)
	fmt.Fprintf(b, "Git Commit: %s\n", GitCommit)
	fmt.Fprintf(b, "Go Version: %s\n", GoVersion)
	return b.String()
}
