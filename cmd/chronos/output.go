package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"github.com/aatumaykin/chronos/internal/config"
	"github.com/aatumaykin/chronos/internal/constants"
	"github.com/aatumaykin/chronos/internal/jobs"
)

func fileExists(path string) bool {
	_, err := os.Stat(config.ExpandPath(path))
	return err == nil
}

func statusWord(enabled bool) string {
	if enabled {
		return constants.StatusEnabled
	}
	return constants.StatusDisabled
}

func formatNext(t time.Time) string {
	if t.IsZero() {
		return constants.StatusNever
	}
	return t.Format(constants.TimeLayout)
}

func displayName(job jobs.Job) string {
	if job.Name == "" {
		return constants.StatusUnnamed
	}
	return job.Name
}

// firstLine shortens multi-line commands for the table.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " …"
	}
	return s
}

// renderJobsTable prints jobs as a table followed by the totals.
func renderJobsTable(w io.Writer, list []jobs.Job) error {
	if len(list) == 0 {
		fmt.Fprint(w, constants.MsgJobsNotFound)
		return nil
	}

	data := pterm.TableData{{"NAME", "SCHEDULE", "STATUS", "NEXT RUN", "COMMAND"}}
	enabled, unnamed := 0, false
	for _, job := range list {
		if job.Enabled {
			enabled++
		}
		if job.Name == "" {
			unnamed = true
		}
		data = append(data, []string{
			displayName(job),
			job.Schedule.String(),
			statusWord(job.Enabled),
			formatNext(job.Next),
			firstLine(job.Command),
		})
	}

	if err := pterm.DefaultTable.WithHasHeader().WithWriter(w).WithData(data).Render(); err != nil {
		return err
	}

	fmt.Fprintf(w, constants.MsgJobsTotal, len(list), enabled, len(list)-enabled)
	if unnamed {
		fmt.Fprint(w, constants.MsgUnnamedJobsNote)
	}
	return nil
}

// renderJob prints every field of one job.
func renderJob(w io.Writer, job jobs.Job) {
	fmt.Fprintf(w, constants.MsgJobName, displayName(job))
	fmt.Fprintf(w, constants.MsgJobSchedule, job.Schedule)
	fmt.Fprintf(w, constants.MsgJobStatus, statusWord(job.Enabled))
	fmt.Fprintf(w, constants.MsgJobNextRun, formatNext(job.Next))
	fmt.Fprintf(w, constants.MsgJobCommand, job.Command)
	fmt.Fprintf(w, constants.MsgJobScript, job.ScriptPath)
	fmt.Fprintf(w, constants.MsgJobLog, job.LogPath)
	fmt.Fprintf(w, constants.MsgJobEntry, job.EntryCommand)
}
