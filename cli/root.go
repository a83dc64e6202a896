package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/orderly-agent/orderly/internals/version"
	"github.com/orderly-agent/orderly/sdk"
)

var rootCmd = &cobra.Command{
	Use:           "orderly",
	Short:         "Orderly drives the hospital information system GUI from natural language tasks.",
	Version:       version.Version(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI. Commands that talk to the daemon start it on
// demand, so there is no separate "start the daemon first" step.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(watchCmd)
}

// daemonClient returns a client after making sure a daemon answers on
// the configured port.
func daemonClient() (*sdk.Client, error) {
	client := sdk.NewClient()
	if err := ensureDaemonRunning(client); err != nil {
		return nil, err
	}
	return client, nil
}
