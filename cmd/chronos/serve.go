package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aatumaykin/chronos/internal/app"
	"github.com/aatumaykin/chronos/internal/constants"
	"github.com/aatumaykin/chronos/internal/version"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Watch the crontab and export job metrics",
	Long: `Re-read the crontab on [monitor] schedule and expose job counts as
Prometheus metrics on [monitor] listen (/metrics, /healthz).

Only one instance runs at a time; the PID file in [monitor] pid_file guards it.
Stops gracefully on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	c, err := loadContainer()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := app.New(c)
	out := cmd.OutOrStdout()

	go func() {
		select {
		case <-a.Ready():
			fmt.Fprint(out, version.FormatStartupMessage())
			if addr := a.Addr(); addr != "" {
				fmt.Fprintf(out, constants.MsgServeMetrics, addr)
			}
		case <-ctx.Done():
		}
	}()

	return a.Run(ctx)
}
