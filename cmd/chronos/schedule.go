package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aatumaykin/chronos/internal/constants"
	"github.com/aatumaykin/chronos/internal/schedule"
)

var scheduleRuns int

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Work with schedule expressions",
}

var scheduleCheckCmd = &cobra.Command{
	Use:   "check <expression>...",
	Short: "Check a five-field schedule and print its next runs",
	Long: `Check a schedule expression the way cron would and print when it fires next.
The fields may be given as one quoted argument or as five arguments.`,
	Example: `  chronos schedule check "*/15 9-17 * * 1-5"`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runScheduleCheck,
}

func init() {
	scheduleCheckCmd.Flags().IntVarP(&scheduleRuns, "count", "n", constants.DefaultScheduleRuns, "how many upcoming runs to print")
	scheduleCmd.AddCommand(scheduleCheckCmd)
}

func runScheduleCheck(cmd *cobra.Command, args []string) error {
	sched, err := schedule.Parse(strings.Join(args, " "))
	if err != nil {
		return err
	}
	if err := sched.Validate(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, constants.MsgScheduleValid, sched)

	if scheduleRuns <= 0 {
		return nil
	}

	fmt.Fprint(out, constants.MsgScheduleNextRuns)
	from := time.Now()
	for i := 0; i < scheduleRuns; i++ {
		next, err := sched.Next(from)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, constants.MsgScheduleRun, next.Format(constants.TimeLayout))
		from = next
	}
	return nil
}
