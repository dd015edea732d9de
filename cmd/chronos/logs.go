package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/aatumaykin/chronos/internal/app"
	"github.com/aatumaykin/chronos/internal/constants"
	"github.com/aatumaykin/chronos/internal/jobs"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Read and manage job logs",
}

var logsShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print a job's log",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogsShow,
}

var logsClearCmd = &cobra.Command{
	Use:   "clear <name>",
	Short: "Empty a job's log",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogsClear,
}

var logsExportCmd = &cobra.Command{
	Use:   "export <name> <destination>",
	Short: "Copy a job's log to a file or directory",
	Args:  cobra.ExactArgs(2),
	RunE:  runLogsExport,
}

var logsFollowCmd = &cobra.Command{
	Use:   "follow <name>",
	Short: "Print a job's log and keep printing new output",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogsFollow,
}

func init() {
	logsCmd.AddCommand(logsShowCmd)
	logsCmd.AddCommand(logsClearCmd)
	logsCmd.AddCommand(logsExportCmd)
	logsCmd.AddCommand(logsFollowCmd)
}

// loadJob resolves name first: logs are addressed by job name, and an
// unknown name must not silently read or create a stray log.
func loadJob(cmd *cobra.Command, name string) (*app.Container, jobs.Job, error) {
	c, err := loadContainer()
	if err != nil {
		return nil, jobs.Job{}, err
	}
	job, err := c.Manager().Get(cmd.Context(), name)
	if err != nil {
		return nil, jobs.Job{}, err
	}
	return c, job, nil
}

func runLogsShow(cmd *cobra.Command, args []string) error {
	c, job, err := loadJob(cmd, args[0])
	if err != nil {
		return err
	}

	text, found, err := c.Logs().Read(job.Name)
	if err != nil {
		return err
	}
	if !found {
		fmt.Fprintf(cmd.OutOrStdout(), constants.MsgLogMissing, job.Name)
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), text)
	return nil
}

func runLogsClear(cmd *cobra.Command, args []string) error {
	c, job, err := loadJob(cmd, args[0])
	if err != nil {
		return err
	}

	if err := c.Workspace().EnsureDirs(); err != nil {
		return err
	}
	if err := c.Logs().Clear(job.Name); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), constants.MsgLogCleared, job.Name)
	return nil
}

func runLogsExport(cmd *cobra.Command, args []string) error {
	c, job, err := loadJob(cmd, args[0])
	if err != nil {
		return err
	}

	dst, err := c.Logs().Export(job.Name, args[1])
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return errors.WithHint(err, "the job has not written a log yet")
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), constants.MsgLogExported, dst)
	return nil
}

func runLogsFollow(cmd *cobra.Command, args []string) error {
	c, job, err := loadJob(cmd, args[0])
	if err != nil {
		return err
	}

	if err := c.Workspace().EnsureDirs(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.ErrOrStderr(), constants.MsgLogFollowing, job.LogPath)
	if err := c.Logs().Follow(ctx, job.Name, cmd.OutOrStdout()); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
