package main

import (
	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/aatumaykin/chronos/internal/app"
	"github.com/aatumaykin/chronos/internal/config"
	"github.com/aatumaykin/chronos/internal/constants"
	"github.com/aatumaykin/chronos/internal/logger"
)

var (
	configPath string
	logLevel   string
	noColor    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "chronos",
	Short: "chronos - manage crontab jobs",
	Long: `chronos manages the jobs in your crontab.

Every job gets a wrapper script that records its original command and
appends the output of each run to a per-job log.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			pterm.DisableStyling()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default "+constants.DefaultConfigPath+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colors and styling")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(enableCmd)
	rootCmd.AddCommand(disableCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(cleanupCmd)
}

// loadConfig reads the --config file, or the default one when it exists.
func loadConfig() (*config.Config, string, error) {
	if err := config.LoadEnvOptional(constants.DefaultEnvPath); err != nil {
		return nil, "", errors.Wrap(err, "failed to load .env")
	}

	path, optional := configPath, false
	if path == "" {
		path, optional = constants.DefaultConfigPath, true
	}

	cfg, err := config.LoadOrDefault(path, optional)
	if err != nil {
		return nil, path, errors.Wrapf(err, "failed to load configuration %s", path)
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, path, nil
}

// loadContainer loads and validates the configuration and wires every service.
func loadContainer() (*app.Container, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, errors.WithHint(
			errors.Newf("invalid configuration: %v", errors.Join(errs...)),
			"run 'chronos config validate' for details")
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize logger")
	}
	logger.SetDefault(log)

	return app.NewContainer(cfg, log)
}
