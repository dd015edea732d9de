package constants

// Package messages contains all user-visible text printed by the chronos CLI.

// Error messages
const (
	// MsgErrorFormat is the prefix for formatting error messages.
	MsgErrorFormat = "❌ Error: %v\n"

	// MsgErrorHint is the line used for each remedy attached to an error.
	MsgErrorHint = "   Hint: %s\n"
)

// Config messages
const (
	// MsgConfigLoadError is the error message when configuration loading fails.
	MsgConfigLoadError = "❌ Failed to load configuration: %v\n"

	// MsgConfigValidationError is the message when configuration validation fails.
	MsgConfigValidationError = "❌ Configuration validation failed:\n"

	// MsgConfigValid is the message when configuration is successfully loaded and validated.
	MsgConfigValid = "✅ Configuration is valid: %s\n"

	// MsgConfigDefaults is printed when no config file exists and defaults are used.
	MsgConfigDefaults = "✅ No configuration file, defaults are valid\n"

	// MsgConfigValidatePrefix is the prefix for configuration validation errors.
	MsgConfigValidatePrefix = "  - %v\n"
)

// Job messages
const (
	// MsgJobAdded is the success message when a job is added.
	MsgJobAdded = "✅ Job '%s' added\n"

	// MsgJobAddedDisabled is the success message when a job is added disabled.
	MsgJobAddedDisabled = "✅ Job '%s' added (disabled)\n"

	// MsgJobUpdated is the success message when a job is edited.
	MsgJobUpdated = "✅ Job '%s' updated\n"

	// MsgJobsDeleted is the success message after deletion.
	MsgJobsDeleted = "✅ Deleted %d job(s)\n"

	// MsgJobsEnabled is the success message after enabling jobs.
	MsgJobsEnabled = "✅ Enabled: %s\n"

	// MsgJobsDisabled is the success message after disabling jobs.
	MsgJobsDisabled = "✅ Disabled: %s\n"

	// MsgJobNothingToEdit is returned when edit gets no changes.
	MsgJobNothingToEdit = "nothing to change: pass --name, --command or --schedule"

	// MsgJobNotFoundHint is the hint when a job is not found.
	MsgJobNotFoundHint = "Use 'chronos list' to see all jobs"
)

// Job detail labels
const (
	MsgJobName     = "Name:     %s\n"
	MsgJobSchedule = "Schedule: %s\n"
	MsgJobStatus   = "Status:   %s\n"
	MsgJobNextRun  = "Next run: %s\n"
	MsgJobCommand  = "Command:  %s\n"
	MsgJobScript   = "Script:   %s\n"
	MsgJobLog      = "Log:      %s\n"
	MsgJobEntry    = "Entry:    %s\n"
)

// Status words
const (
	StatusEnabled  = "enabled"
	StatusDisabled = "disabled"
	StatusNever    = "-"
	StatusUnnamed  = "(unnamed)"
)

// Jobs list messages
const (
	// MsgJobsNotFound is the message when the crontab has no jobs.
	MsgJobsNotFound = "No jobs in the crontab.\n"

	// MsgJobsTotal is the footer of the jobs list.
	MsgJobsTotal = "Total: %d job(s), %d enabled, %d disabled\n"

	// MsgUnnamedJobsNote explains entries chronos cannot address by name.
	MsgUnnamedJobsNote = "Entries without a name were not created by chronos and cannot be edited by name.\n"
)

// Transfer messages
const (
	// MsgExported is printed after a successful export.
	MsgExported = "✅ Exported %d job(s) to %s\n"

	// MsgImported is printed after a successful import.
	MsgImported = "✅ Import finished: %d created, %d updated, %d skipped\n"

	// MsgImportPartial is printed before the error of a halted import.
	MsgImportPartial = "Import stopped: %d created, %d updated, %d skipped before the failure\n"
)

// Test command messages
const (
	// MsgTestExitCode reports the exit code of a test run.
	MsgTestExitCode = "Exit code: %d (%s)\n"

	// MsgTestNoOutput is printed when the command wrote nothing.
	MsgTestNoOutput = "(no output)\n"
)

// Log messages
const (
	// MsgLogMissing is printed when a job has no log yet.
	MsgLogMissing = "No log for '%s' yet\n"

	// MsgLogCleared is printed after clearing a log.
	MsgLogCleared = "✅ Log of '%s' cleared\n"

	// MsgLogExported is printed after exporting a log.
	MsgLogExported = "✅ Log exported to %s\n"

	// MsgLogFollowing is printed when follow starts.
	MsgLogFollowing = "Following %s (Ctrl+C to stop)\n"
)

// Schedule messages
const (
	// MsgScheduleValid is printed for a valid expression.
	MsgScheduleValid = "✅ Valid schedule: %s\n"

	// MsgScheduleNextRuns is the header of upcoming activations.
	MsgScheduleNextRuns = "Next runs:\n"

	// MsgScheduleRun is one upcoming activation.
	MsgScheduleRun = "  %s\n"
)

// Serve messages
const (
	// MsgServeStartup is printed when the daemon starts.
	MsgServeStartup = "🕒 chronos serve started (version %s)\n"

	// MsgServeMetrics is printed when the metrics endpoint is up.
	MsgServeMetrics = "Metrics: http://%s/metrics\n"

	// MsgCleanupDone reports a manual staging sweep.
	MsgCleanupDone = "🧹 Removed %d staging file(s), %d bytes freed\n"
)
