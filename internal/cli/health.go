package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"brainoutai/internal/conversation"
)

var healthServerURL string

func newHealthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check that a BrainOutAI server is up",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := conversation.NewClient(healthServerURL)
			if err := client.Health(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "server at %s is healthy\n", healthServerURL)
			return nil
		},
	}
	cmd.Flags().StringVar(&healthServerURL, "server", "http://localhost:3001", "base URL of the BrainOutAI server")
	return cmd
}
