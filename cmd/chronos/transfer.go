package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/aatumaykin/chronos/internal/constants"
	"github.com/aatumaykin/chronos/internal/jobs"
)

var (
	transferFormat string
	onConflict     string
)

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export named jobs to a file",
	Long: `Export every job created by chronos (name, command, schedule, enabled).
The format follows the file extension (.json, .yaml/.yml, .toml) unless
--format is given. "-" writes to standard output.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import jobs from a file",
	Long: `Import jobs exported by 'chronos export'. Every record is checked before
anything is written. --on-conflict decides what happens to records whose
name already exists: skip (default), overwrite or error.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	exportCmd.Flags().StringVar(&transferFormat, "format", "", "json, yaml or toml")
	importCmd.Flags().StringVar(&transferFormat, "format", "", "json, yaml or toml")
	importCmd.Flags().StringVar(&onConflict, "on-conflict", "", "skip, overwrite or error (default from config)")
}

func transferFormatFor(path string) (jobs.Format, error) {
	switch f := jobs.Format(transferFormat); f {
	case "":
		return jobs.FormatFromPath(path), nil
	case jobs.FormatJSON, jobs.FormatYAML, jobs.FormatTOML:
		return f, nil
	default:
		return "", errors.Newf("unknown format %q (expected: json, yaml, toml)", transferFormat)
	}
}

func runExport(cmd *cobra.Command, args []string) error {
	path := constants.DefaultExportFile
	if len(args) > 0 {
		path = args[0]
	}

	format, err := transferFormatFor(path)
	if err != nil {
		return err
	}

	c, err := loadContainer()
	if err != nil {
		return err
	}

	records, err := c.Manager().ExportAll(cmd.Context())
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := jobs.EncodeRecords(&buf, format, records); err != nil {
		return err
	}

	if path == "-" {
		_, err := cmd.OutOrStdout().Write(buf.Bytes())
		return err
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	fmt.Fprintf(cmd.OutOrStdout(), constants.MsgExported, len(records), path)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	path := args[0]

	format, err := transferFormatFor(path)
	if err != nil {
		return err
	}

	c, err := loadContainer()
	if err != nil {
		return err
	}

	policyName := onConflict
	if policyName == "" {
		policyName = c.Config().Transfer.OnConflict
	}
	policy, err := jobs.ParseConflictPolicy(policyName)
	if err != nil {
		return err
	}

	var data []byte
	if path == "-" {
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(cmd.InOrStdin()); err != nil {
			return errors.Wrap(err, "failed to read stdin")
		}
		data = buf.Bytes()
	} else if data, err = os.ReadFile(path); err != nil {
		return errors.Wrapf(err, "failed to read %s", path)
	}

	records, err := jobs.DecodeRecords(bytes.NewReader(data), format)
	if err != nil {
		return err
	}

	result, err := c.Manager().ImportAll(cmd.Context(), records, policy)
	out := cmd.OutOrStdout()
	if err != nil {
		if n := len(result.Created) + len(result.Updated) + len(result.Skipped); n > 0 {
			pterm.Warning.WithWriter(cmd.ErrOrStderr()).Printf(constants.MsgImportPartial,
				len(result.Created), len(result.Updated), len(result.Skipped))
		}
		return err
	}

	fmt.Fprintf(out, constants.MsgImported, len(result.Created), len(result.Updated), len(result.Skipped))
	return nil
}
