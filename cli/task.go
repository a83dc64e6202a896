package cli

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/orderly-agent/orderly/internals/env"
	"github.com/orderly-agent/orderly/internals/term"
	"github.com/orderly-agent/orderly/internals/timeouts"
	"github.com/orderly-agent/orderly/sdk"
)

var taskFollow bool

var taskCmd = &cobra.Command{
	Use:   "task <instruction>",
	Short: "Submit a task to the agent",
	Long:  "Submit a natural language instruction for the agent to carry out against the running GUI. Only one task runs at a time; a second submission while one is active is rejected.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := daemonClient()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), timeouts.SecondShort)
		defer cancel()

		response, err := client.SubmitTask(ctx, args[0])
		if err != nil {
			if errors.Is(err, sdk.ErrBusy) {
				return errors.New("a task is already running; wait for it to finish or run 'orderly status'")
			}
			return err
		}

		fmt.Printf("task: %s\n", response.TaskID)
		if !taskFollow {
			logsURL := env.Get().BASE_URL + "/api/logs?task_id=" + url.QueryEscape(response.TaskID)
			fmt.Printf("logs: %s\n", term.ClickableLink(logsURL, logsURL))
			return nil
		}
		return streamTaskLogs(cmd.Context(), client, response.TaskID)
	},
}

func init() {
	taskCmd.Flags().BoolVarP(&taskFollow, "follow", "f", false, "stream task logs until the task finishes")
}

func streamTaskLogs(ctx context.Context, client *sdk.Client, taskID string) error {
	return client.StreamLogs(ctx, taskID, func(line string) {
		fmt.Println(line)
	})
}
