package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/postpilothq/postpilot/graph"
)

func newResumeCmd() *cobra.Command {
	var decision string
	cmd := &cobra.Command{
		Use:   "resume <thread-id>",
		Short: "Resume a suspended thread with a review decision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var delta graph.Update
			switch decision {
			case "approved":
				delta.SentryApproval = graph.Approval(graph.ApprovalApproved)
			case "rejected":
				delta.SentryApproval = graph.Approval(graph.ApprovalRejected)
			case "":
			default:
				return fmt.Errorf("unknown decision %q (expected approved or rejected)", decision)
			}

			a, err := buildApp(ctx, configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.executor.Resume(ctx, args[0], delta)
			if err != nil {
				return err
			}
			return printResult(cmd, result)
		},
	}
	cmd.Flags().StringVar(&decision, "decision", "", "review decision: approved or rejected")
	return cmd
}
