package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/robfig/cron/v3"
)

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := newConfig()
	applyDefaults(cfg)
	_ = expandEnvVars(cfg)
	return cfg
}

// newConfig returns a Config whose boolean switches default to on; TOML only
// overwrites the keys present in the file.
func newConfig() *Config {
	return &Config{
		Monitor: MonitorConfig{MetricsEnabled: true},
		Cleanup: CleanupConfig{Enabled: true},
	}
}

// Load reads the configuration from a TOML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := newConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(cfg)

	if err := expandEnvVars(cfg); err != nil {
		return nil, fmt.Errorf("failed to expand environment variables: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads path, falling back to Default when the file does not
// exist and optional is true.
func LoadOrDefault(path string, optional bool) (*Config, error) {
	path = expandHome(path)
	if _, err := os.Stat(path); optional && os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() []error {
	var errs []error

	if c.Workspace.Path == "" {
		errs = append(errs, fmt.Errorf("workspace.path is required"))
	} else if err := validatePath(c.Workspace.Path, "workspace.path"); err != nil {
		errs = append(errs, err)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid logging.level: %s (expected: debug, info, warn, error)", c.Logging.Level))
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Errorf("invalid logging.format: %s (expected: json, text)", c.Logging.Format))
	}
	if c.Logging.Output == "" {
		errs = append(errs, fmt.Errorf("logging.output is required"))
	}

	switch c.Crontab.Backend {
	case BackendCommand:
		if c.Crontab.Binary == "" {
			errs = append(errs, fmt.Errorf("crontab.binary is required when crontab.backend is '%s'", BackendCommand))
		}
	case BackendFile:
		if c.Crontab.File == "" {
			errs = append(errs, fmt.Errorf("crontab.file is required when crontab.backend is '%s'", BackendFile))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid crontab.backend: %s (expected: %s, %s)", c.Crontab.Backend, BackendCommand, BackendFile))
	}

	if !filepath.IsAbs(c.Scripts.Shell) {
		errs = append(errs, fmt.Errorf("scripts.shell must be an absolute path, got %q", c.Scripts.Shell))
	}

	if c.Runner.Shell == "" {
		errs = append(errs, fmt.Errorf("runner.shell is required"))
	}
	if c.Runner.TimeoutSeconds < 1 || c.Runner.TimeoutSeconds > 3600 {
		errs = append(errs, fmt.Errorf("runner.timeout_seconds must be between 1 and 3600 (got %d)", c.Runner.TimeoutSeconds))
	}

	switch c.Transfer.OnConflict {
	case ConflictSkip, ConflictOverwrite, ConflictError:
	default:
		errs = append(errs, fmt.Errorf("invalid transfer.on_conflict: %s (expected: %s, %s, %s)",
			c.Transfer.OnConflict, ConflictSkip, ConflictOverwrite, ConflictError))
	}

	if _, err := cron.ParseStandard(c.Monitor.Schedule); err != nil {
		errs = append(errs, fmt.Errorf("invalid monitor.schedule %q: %w", c.Monitor.Schedule, err))
	}
	if c.Monitor.MetricsEnabled && c.Monitor.Listen == "" {
		errs = append(errs, fmt.Errorf("monitor.listen is required when monitor.metrics_enabled=true"))
	}

	if c.Cleanup.IntervalMinutes < 1 {
		errs = append(errs, fmt.Errorf("cleanup.interval_minutes must be positive (got %d)", c.Cleanup.IntervalMinutes))
	}
	if c.Cleanup.StagingTTLMinutes < 1 {
		errs = append(errs, fmt.Errorf("cleanup.staging_ttl_minutes must be positive (got %d)", c.Cleanup.StagingTTLMinutes))
	}

	return errs
}

func validatePath(path, fieldName string) error {
	if strings.HasPrefix(path, "~") {
		return nil
	}
	if strings.Contains(path, "..") {
		return fmt.Errorf("%s contains potentially dangerous path traversal sequence", fieldName)
	}
	return nil
}

// applyDefaults fills in unset values.
func applyDefaults(c *Config) {
	if c.Workspace.Path == "" {
		c.Workspace.Path = "~/.chronos"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stderr"
	}

	if c.Crontab.Backend == "" {
		c.Crontab.Backend = BackendCommand
	}
	if c.Crontab.Binary == "" {
		c.Crontab.Binary = "crontab"
	}

	if c.Scripts.Shell == "" {
		c.Scripts.Shell = "/bin/bash"
	}

	if c.Runner.Shell == "" {
		c.Runner.Shell = "/bin/sh"
	}
	if c.Runner.TimeoutSeconds == 0 {
		c.Runner.TimeoutSeconds = 10
	}

	if c.Transfer.OnConflict == "" {
		c.Transfer.OnConflict = ConflictSkip
	}

	if c.Monitor.Schedule == "" {
		c.Monitor.Schedule = "@every 1m"
	}
	if c.Monitor.Listen == "" {
		c.Monitor.Listen = "127.0.0.1:9310"
	}
	if c.Monitor.PIDFile == "" {
		c.Monitor.PIDFile = filepath.Join(c.Workspace.Path, ".chronos.pid")
	}

	if c.Cleanup.IntervalMinutes == 0 {
		c.Cleanup.IntervalMinutes = 60
	}
	if c.Cleanup.StagingTTLMinutes == 0 {
		c.Cleanup.StagingTTLMinutes = 60
	}
}

// expandEnvVars expands ${VAR} references and ~ in path-like fields.
func expandEnvVars(c *Config) error {
	c.Workspace.Path = expandHome(expandEnv(c.Workspace.Path))
	c.Logging.Output = expandEnv(c.Logging.Output)
	c.Crontab.User = expandEnv(c.Crontab.User)
	c.Crontab.File = expandHome(expandEnv(c.Crontab.File))
	c.Monitor.Listen = expandEnv(c.Monitor.Listen)
	c.Monitor.PIDFile = expandHome(expandEnv(c.Monitor.PIDFile))
	return nil
}

// expandEnv expands ${VAR} and ${VAR:default} references.
func expandEnv(s string) string {
	if !strings.HasPrefix(s, "${") {
		return s
	}

	end := strings.Index(s, "}")
	if end == -1 {
		return s
	}

	content, rest := s[2:end], s[end+1:]
	if key, defaultVal, ok := strings.Cut(content, ":"); ok {
		if val := os.Getenv(key); val != "" {
			return val + rest
		}
		return defaultVal + rest
	}

	return os.Getenv(content) + rest
}

// expandHome expands a leading ~.
func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// ExpandPath applies the same ${VAR:default} and ~ expansion as Load.
func ExpandPath(path string) string {
	return expandHome(expandEnv(path))
}
