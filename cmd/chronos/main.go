package main

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/aatumaykin/chronos/internal/constants"
	"github.com/aatumaykin/chronos/internal/jobs"
	"github.com/aatumaykin/chronos/internal/messages"
	"github.com/aatumaykin/chronos/internal/version"
)

var (
	Version   string = "0.1.0-dev"
	BuildTime string = "unknown"
	GitCommit string = "unknown"
	GoVersion string = "unknown"
)

func init() {
	version.SetInfo(Version, BuildTime, GitCommit, GoVersion)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprint(os.Stderr, messages.FormatError(withCLIHints(err)))
		os.Exit(1)
	}
}

// withCLIHints adds remedies that only make sense on the command line.
func withCLIHints(err error) error {
	if errors.Is(err, jobs.ErrJobNotFound) {
		return errors.WithHint(err, constants.MsgJobNotFoundHint)
	}
	return err
}
