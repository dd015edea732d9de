package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aatumaykin/chronos/internal/constants"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove staging files left by interrupted writes",
	Long: `Remove hidden staging files from the scripts and logs directories.

Only files older than cleanup.staging_ttl_minutes are removed. chronos serve
runs the same sweep periodically.`,
	Args: cobra.NoArgs,
	RunE: runCleanup,
}

func runCleanup(cmd *cobra.Command, args []string) error {
	c, err := loadContainer()
	if err != nil {
		return err
	}

	stats, err := c.Cleanup().Run(c.Workspace(), c.Logger())
	fmt.Fprintf(cmd.OutOrStdout(), constants.MsgCleanupDone, stats.FilesRemoved, stats.BytesFreed)
	return err
}
