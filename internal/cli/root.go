package cli

import (
	"github.com/spf13/cobra"
)

var configPath string

func NewRoot() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "postpilot",
		Short:         "Content production pipeline for social media",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          func(c *cobra.Command, _ []string) error { return c.Help() },
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "postpilot.yaml", "path to the configuration file")
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newResumeCmd())
	cmd.AddCommand(newInspectCmd())
	cmd.AddCommand(newThreadsCmd())
	return cmd
}
