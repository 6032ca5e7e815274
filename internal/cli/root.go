// Package cli defines the brainoutai command tree.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "brainoutai",
		Short:         "BrainOutAI - over-complicated answers to simple questions",
		Long:          "BrainOutAI relays simple questions to an LLM with instructions to answer in the most unnecessarily complicated way possible.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default config.json, or $BRAINOUTAI_CONFIG)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newChatCmd())
	cmd.AddCommand(newHealthCmd())

	return cmd
}

func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return os.Getenv("BRAINOUTAI_CONFIG")
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}
