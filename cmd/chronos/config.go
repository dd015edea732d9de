package main

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/aatumaykin/chronos/internal/constants"
	"github.com/aatumaykin/chronos/internal/messages"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Validate chronos configuration.`,
}

// configValidateCmd represents the config validate command
var configValidateCmd = &cobra.Command{
	Use:   "validate [config-file]",
	Short: "Validate configuration file",
	Long: `Validate the configuration file and check for errors.
Without an argument the --config file (or ` + constants.DefaultConfigPath + `) is checked.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigValidate,
}

func init() {
	configCmd.AddCommand(configValidateCmd)
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		configPath = args[0]
	}

	out := cmd.OutOrStdout()

	cfg, path, err := loadConfig()
	if err != nil {
		fmt.Fprint(cmd.ErrOrStderr(), messages.FormatConfigLoadError(err))
		return errors.New("configuration could not be loaded")
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		fmt.Fprint(cmd.ErrOrStderr(), messages.FormatValidationErrors(errs))
		return errors.Newf("%d configuration error(s)", len(errs))
	}

	if configPath == "" && !fileExists(path) {
		fmt.Fprint(out, constants.MsgConfigDefaults)
		return nil
	}
	fmt.Fprintf(out, constants.MsgConfigValid, path)
	return nil
}
