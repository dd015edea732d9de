// Package config provides configuration loading and validation for chronos.
// It reads a TOML file, applies defaults, expands environment variables and
// validates the result.
//
// Configuration structure:
//   - [workspace]: root directory for scripts/ and logs/
//   - [logging]: level, format and output of chronos' own log
//   - [crontab]: which scheduler table backend to use
//   - [scripts]: how wrapper scripts are generated
//   - [runner]: the one-off test command
//   - [transfer]: import/export behaviour
//   - [monitor]: the serve daemon (periodic re-list, metrics)
//   - [cleanup]: removal of files left by interrupted writes
//
// Environment variables:
// Values can reference ${VAR} or ${VAR:default}.
// For example: path = "${CHRONOS_HOME:~/.chronos}"
package config

import "time"

// Crontab backends
const (
	BackendCommand = "command"
	BackendFile    = "file"
)

// Import conflict policies
const (
	ConflictSkip      = "skip"
	ConflictOverwrite = "overwrite"
	ConflictError     = "error"
)

// Config is the root configuration.
type Config struct {
	Workspace WorkspaceConfig `toml:"workspace"`
	Logging   LoggingConfig   `toml:"logging"`
	Crontab   CrontabConfig   `toml:"crontab"`
	Scripts   ScriptsConfig   `toml:"scripts"`
	Runner    RunnerConfig    `toml:"runner"`
	Transfer  TransferConfig  `toml:"transfer"`
	Monitor   MonitorConfig   `toml:"monitor"`
	Cleanup   CleanupConfig   `toml:"cleanup"`
}

// WorkspaceConfig is the chronos root directory.
type WorkspaceConfig struct {
	Path string `toml:"path"`
}

// LoggingConfig configures chronos' own log.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Output string `toml:"output"`
}

// CrontabConfig selects the scheduler table.
// backend "command" drives crontab(1); backend "file" edits a crontab-format file directly.
type CrontabConfig struct {
	Backend string `toml:"backend"`
	Binary  string `toml:"binary"`
	User    string `toml:"user"`
	File    string `toml:"file"`
}

// ScriptsConfig controls wrapper script generation.
type ScriptsConfig struct {
	Shell string `toml:"shell"`
}

// RunnerConfig controls `chronos test`.
type RunnerConfig struct {
	Shell          string `toml:"shell"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Timeout returns the test command timeout.
func (r RunnerConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// TransferConfig controls import/export.
type TransferConfig struct {
	OnConflict string `toml:"on_conflict"`
}

// MonitorConfig controls `chronos serve`.
type MonitorConfig struct {
	Schedule       string `toml:"schedule"`
	Listen         string `toml:"listen"`
	MetricsEnabled bool   `toml:"metrics_enabled"`
	PIDFile        string `toml:"pid_file"`
}

// CleanupConfig controls the staging file sweep run by `chronos serve` and
// `chronos cleanup`.
type CleanupConfig struct {
	Enabled           bool `toml:"enabled"`
	IntervalMinutes   int  `toml:"interval_minutes"`
	StagingTTLMinutes int  `toml:"staging_ttl_minutes"`
}

// Interval returns the time between sweeps.
func (c CleanupConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// StagingTTL returns the minimum age of a staging file before removal.
func (c CleanupConfig) StagingTTL() time.Duration {
	return time.Duration(c.StagingTTLMinutes) * time.Minute
}
