package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/orderly-agent/orderly/internals/schemas"
	"github.com/orderly-agent/orderly/internals/timeouts"
)

var statusSteps bool

var statusCmd = &cobra.Command{
	Use:   "status <task-id>",
	Short: "Show the status of a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := daemonClient()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), timeouts.SecondShort)
		defer cancel()

		response, err := client.TaskStatus(ctx, args[0])
		if err != nil {
			return err
		}

		printTask(response)
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusSteps, "steps", false, "include the per-step trace")
}

func printTask(response *schemas.TaskResponse) {
	fmt.Printf("task:        %s\n", response.TaskID)
	fmt.Printf("instruction: %s\n", response.Instruction)
	fmt.Printf("status:      %s\n", response.Status)
	if response.FailureTag != "" {
		fmt.Printf("failure:     %s\n", response.FailureTag)
	}
	if response.Error != "" {
		fmt.Printf("error:       %s\n", response.Error)
	}
	fmt.Printf("created:     %s\n", response.CreatedAt)
	if response.StartedAt != "" {
		fmt.Printf("started:     %s\n", response.StartedAt)
	}
	if response.FinishedAt != "" {
		fmt.Printf("finished:    %s\n", response.FinishedAt)
	}
	if len(response.Steps) > 0 {
		fmt.Printf("steps:       %d\n", len(response.Steps))
	}
	if !statusSteps {
		return
	}
	for _, step := range response.Steps {
		line := fmt.Sprintf("  %3d  %-7s %s", step.Index, step.Result, step.Action)
		if step.Error != "" {
			line += "  (" + step.Error + ")"
		}
		fmt.Println(line)
	}
}
