package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/orderly-agent/orderly/internals/timeouts"
	"github.com/orderly-agent/orderly/sdk"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check whether the daemon is running",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := sdk.NewClient()

		ctx, cancel := context.WithTimeout(cmd.Context(), timeouts.SecondShort)
		defer cancel()

		health, err := client.Health(ctx)
		if err != nil {
			return fmt.Errorf("daemon not reachable: %w", err)
		}

		fmt.Printf("status:  %s\nversion: %s\n", health.Status, health.Version)
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Shut down the daemon, cancelling any running task",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := sdk.NewClient()

		ctx, cancel := context.WithTimeout(cmd.Context(), timeouts.SecondShort)
		defer cancel()

		if err := client.Shutdown(ctx); err != nil {
			return err
		}
		fmt.Println("daemon stopping")
		return nil
	},
}
