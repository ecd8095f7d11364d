package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/postpilothq/postpilot/graph"
)

func newRunCmd() *cobra.Command {
	var (
		threadID  string
		userID    string
		tier      string
		followers int
	)
	cmd := &cobra.Command{
		Use:   "run [message]",
		Short: "Start a new thread with the given message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx, configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			opts := graph.StartOptions{
				ThreadID:      threadID,
				UserID:        userID,
				Input:         strings.Join(args, " "),
				ModelTier:     tier,
				FollowerCount: followers,
			}
			if opts.ModelTier == "" {
				opts.ModelTier = a.cfg.ModelTier
			}
			if opts.FollowerCount == 0 {
				opts.FollowerCount = a.cfg.FollowerCount
			}

			result, err := a.executor.Start(ctx, opts)
			if err != nil {
				return err
			}
			return printResult(cmd, result)
		},
	}
	cmd.Flags().StringVar(&threadID, "thread-id", "", "thread identifier (generated when empty)")
	cmd.Flags().StringVar(&userID, "user", "cli", "user identifier attached to the thread")
	cmd.Flags().StringVar(&tier, "tier", "", "model tier override (fast or creative)")
	cmd.Flags().IntVar(&followers, "followers", 0, "follower count used for reach estimates")
	return cmd
}

func printResult(cmd *cobra.Command, result graph.Result) error {
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	if result.Suspended {
		fmt.Fprintf(cmd.OutOrStdout(),
			"\nThread %s is waiting for review. Approve or reject with:\n  postpilot resume %s --decision approved|rejected\n",
			result.ThreadID, result.ThreadID)
	}
	return nil
}
