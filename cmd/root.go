package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "linker",
		Short: "Record linkage and blocking evaluation tool",
		Long: `Linker matches the records of two files that describe the same entities.

It indexes candidate pairs with full, sorted-neighbourhood or canopy blocking,
compares their fields with string and numeric similarity measures, classifies
them and evaluates every step against a ground-truth mapping.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	// Add subcommands
	cmd.AddCommand(newLinkCmd())

	return cmd
}
