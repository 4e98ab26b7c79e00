// Package cmd defines the CLI commands for the clint-exporter executable.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	cfgFile    string
	devLogging bool
)

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clint-exporter",
		Short: "Bulk CRM deal exporter for the Clint platform",
		Long: `clint-exporter pulls every deal from every origin of a Clint CRM
account through the platform's bulk-export API, normalizes the resulting
CSV files, and combines them into a single dataset plus a run report.

Credentials are acquired automatically: a cached token is reused while
fresh, and otherwise a cascade of headless-browser and REST strategies
captures a new one.`,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ./config.yaml)")
	cmd.PersistentFlags().BoolVar(&devLogging, "dev-logging", false, "colored console logging for local runs")

	cmd.AddCommand(newExportCmd())

	return cmd
}

// Execute is the main entry point. It installs signal handling so an
// interrupt cancels the run between origins rather than mid-write.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
