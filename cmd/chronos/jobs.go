package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/aatumaykin/chronos/internal/constants"
	"github.com/aatumaykin/chronos/internal/jobs"
	"github.com/aatumaykin/chronos/internal/schedule"
)

var (
	addDisabled bool

	editName     string
	editCommand  string
	editSchedule string
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List crontab jobs",
	Args:    cobra.NoArgs,
	RunE:    runList,
}

var showCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show one job in detail",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var addCmd = &cobra.Command{
	Use:   "add <name> <schedule> <command>...",
	Short: "Add a job",
	Long: `Add a job to the crontab.

The schedule is one argument with five fields, e.g. "0 3 * * *".
The remaining arguments form the command. Pass "-" to read a
(possibly multi-line) command from standard input.`,
	Example: `  chronos add backup "0 3 * * *" tar czf /tmp/home.tgz /home
  chronos add --disabled report "*/15 * * * *" /usr/local/bin/report`,
	Args: cobra.MinimumNArgs(3),
	RunE: runAdd,
}

var editCmd = &cobra.Command{
	Use:   "edit <name>",
	Short: "Change a job's name, command or schedule",
	Long: `Change a job. Only the given fields change; the enabled state is kept.
Renaming a job moves its log along with it.`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

var deleteCmd = &cobra.Command{
	Use:     "delete <name>...",
	Aliases: []string{"rm"},
	Short:   "Delete jobs with their scripts and logs",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runDelete,
}

var enableCmd = &cobra.Command{
	Use:   "enable <name>...",
	Short: "Enable jobs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetEnabled(cmd, args, true)
	},
}

var disableCmd = &cobra.Command{
	Use:   "disable <name>...",
	Short: "Disable jobs (they stay in the crontab, commented out)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetEnabled(cmd, args, false)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Count jobs in the crontab",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	addCmd.Flags().BoolVar(&addDisabled, "disabled", false, "add the job disabled")

	editCmd.Flags().StringVar(&editName, "name", "", "new job name")
	editCmd.Flags().StringVar(&editCommand, "command", "", `new command ("-" reads standard input)`)
	editCmd.Flags().StringVar(&editSchedule, "schedule", "", "new five-field schedule")
}

func runList(cmd *cobra.Command, args []string) error {
	c, err := loadContainer()
	if err != nil {
		return err
	}

	list, err := c.Manager().List(cmd.Context())
	if err != nil {
		return err
	}
	return renderJobsTable(cmd.OutOrStdout(), list)
}

func runShow(cmd *cobra.Command, args []string) error {
	c, err := loadContainer()
	if err != nil {
		return err
	}

	job, err := c.Manager().Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	renderJob(cmd.OutOrStdout(), job)
	return nil
}

// readCommand returns arg, or standard input when arg is "-".
func readCommand(cmd *cobra.Command, arg string) (string, error) {
	if arg != "-" {
		return arg, nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", errors.Wrap(err, "failed to read command from stdin")
	}
	return string(data), nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	name := args[0]

	sched, err := schedule.Parse(args[1])
	if err != nil {
		return errors.WithHint(err, `quote the schedule as one argument, e.g. "0 3 * * *"`)
	}

	command, err := readCommand(cmd, strings.Join(args[2:], " "))
	if err != nil {
		return err
	}

	c, err := loadContainer()
	if err != nil {
		return err
	}

	var opts []jobs.CreateOption
	if addDisabled {
		opts = append(opts, jobs.Disabled())
	}

	job, err := c.Manager().Create(cmd.Context(), name, command, sched, opts...)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if job.Enabled {
		fmt.Fprintf(out, constants.MsgJobAdded, job.Name)
	} else {
		fmt.Fprintf(out, constants.MsgJobAddedDisabled, job.Name)
	}
	fmt.Fprintf(out, constants.MsgJobSchedule, job.Schedule)
	fmt.Fprintf(out, constants.MsgJobNextRun, formatNext(job.Next))
	fmt.Fprintf(out, constants.MsgJobScript, job.ScriptPath)
	return nil
}

func runEdit(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	if !flags.Changed("name") && !flags.Changed("command") && !flags.Changed("schedule") {
		return errors.New(constants.MsgJobNothingToEdit)
	}

	c, err := loadContainer()
	if err != nil {
		return err
	}
	m := c.Manager()

	current, err := m.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	name, command, sched := current.Name, current.Command, current.Schedule
	if flags.Changed("name") {
		name = editName
	}
	if flags.Changed("command") {
		if command, err = readCommand(cmd, editCommand); err != nil {
			return err
		}
	}
	if flags.Changed("schedule") {
		if sched, err = schedule.Parse(editSchedule); err != nil {
			return err
		}
	}

	job, err := m.Edit(cmd.Context(), args[0], name, command, sched)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), constants.MsgJobUpdated, job.Name)
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	c, err := loadContainer()
	if err != nil {
		return err
	}

	deleted, err := c.Manager().Delete(cmd.Context(), args)
	if deleted > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), constants.MsgJobsDeleted, deleted)
	}
	return err
}

func runSetEnabled(cmd *cobra.Command, args []string, enabled bool) error {
	c, err := loadContainer()
	if err != nil {
		return err
	}

	if err := c.Manager().SetEnabled(cmd.Context(), args, enabled); err != nil {
		return err
	}

	msg := constants.MsgJobsDisabled
	if enabled {
		msg = constants.MsgJobsEnabled
	}
	fmt.Fprintf(cmd.OutOrStdout(), msg, strings.Join(args, ", "))
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	c, err := loadContainer()
	if err != nil {
		return err
	}

	summary, err := c.Manager().Summary(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), constants.MsgJobsTotal, summary.Total, summary.Enabled, summary.Disabled)
	return nil
}
