package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/postpilothq/postpilot/state"
)

func newThreadsCmd() *cobra.Command {
	var (
		userID string
		status string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "threads",
		Short: "List known threads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx, configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			threads, err := a.store.ListThreads(ctx, state.ListThreadsQuery{
				UserID: userID,
				Status: status,
				Limit:  limit,
			})
			if err != nil {
				return err
			}
			if len(threads) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no threads found")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "THREAD\tUSER\tSTATUS\tUPDATED\tINPUT")
			for _, th := range threads {
				updated := ""
				if th.UpdatedAt != nil {
					updated = th.UpdatedAt.Format(time.RFC3339)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					th.ThreadID, th.UserID, th.Status, updated, truncate(th.Input, 48))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "filter by user identifier")
	cmd.Flags().StringVar(&status, "status", "", "filter by thread status")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of threads to list")
	return cmd
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
