package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/aatumaykin/chronos/internal/constants"
	"github.com/aatumaykin/chronos/internal/runner"
)

var (
	testTimeout time.Duration
	testJob     string
)

// testCmd represents the test command
var testCmd = &cobra.Command{
	Use:   "test [command]...",
	Short: "Run a command once to see what it does",
	Long: `Run a command once, outside cron, and print its output and exit code.
With --job the stored command of that job is run instead.

Example usage:
  chronos test df -h
  chronos test --timeout 30s "curl -fsS https://example.com/health"
  chronos test --job backup`,
	RunE: runTest,
}

func init() {
	testCmd.Flags().DurationVar(&testTimeout, "timeout", 0, "stop the command after this long (default from config)")
	testCmd.Flags().StringVar(&testJob, "job", "", "run the command of this job")
}

func runTest(cmd *cobra.Command, args []string) error {
	if (testJob == "") == (len(args) == 0) {
		return errors.New("give either a command or --job")
	}

	c, err := loadContainer()
	if err != nil {
		return err
	}

	command := strings.Join(args, " ")
	if testJob != "" {
		job, err := c.Manager().Get(cmd.Context(), testJob)
		if err != nil {
			return err
		}
		command = job.Command
	}

	r := c.Runner()
	if testTimeout > 0 {
		r = runner.New(c.Config().Runner.Shell, testTimeout, c.Logger())
	}

	result, runErr := r.Run(cmd.Context(), command)

	out := cmd.OutOrStdout()
	if output := result.Output(); output != "" {
		fmt.Fprint(out, output)
		if !strings.HasSuffix(output, "\n") {
			fmt.Fprintln(out)
		}
	} else {
		fmt.Fprint(out, constants.MsgTestNoOutput)
	}

	if runErr != nil {
		return runErr
	}
	fmt.Fprintf(out, constants.MsgTestExitCode, result.ExitCode, result.Duration.Round(time.Millisecond))
	return nil
}
