package cmd

import (
	"github.com/lehigh-university-libraries/linker/internal/evalcmd"
	"github.com/spf13/cobra"
)

func newLinkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Record linkage experiments",
		Long: `Tools for running and evaluating record linkage experiments.

Supports full runs with classifier evaluation, blocking-only runs, a study of
string comparators on one field, scoring existing mappings and reporting on
the accumulated results log.`,
	}

	cmd.AddCommand(evalcmd.NewRunCmd())
	cmd.AddCommand(evalcmd.NewIndexCmd())
	cmd.AddCommand(evalcmd.NewCompareCmd())
	cmd.AddCommand(evalcmd.NewScoreCmd())
	cmd.AddCommand(evalcmd.NewReportCmd())
	cmd.AddCommand(evalcmd.NewInspectCmd())

	return cmd
}
