package cli

import (
	"github.com/spf13/cobra"

	"github.com/orderly-agent/orderly/tui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Submit a task interactively and watch its log live",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := daemonClient()
		if err != nil {
			return err
		}
		return tui.Run(client)
	},
}
