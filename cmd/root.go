// Package cmd implements the cropsage command-line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cropsage",
	Short: "CropSage - conversational agricultural advisor",
	Long: `CropSage is a conversational advisor for farmers. It gathers crop,
location, and symptom details over a chat, pulls current weather and
agronomy references when they are stale, and produces a cautious,
guardrail-checked action plan.

Running cropsage without a subcommand starts an interactive chat.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, args)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
