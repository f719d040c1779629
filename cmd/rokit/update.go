package main

import (
	"os"

	"github.com/spf13/cobra"
)

var updateCheckOnly bool

var updateCmd = &cobra.Command{
	Use:   "update [alias...]",
	Short: "Update pinned tools to the latest version matching their existing constraint",
	Long: `Update re-resolves each tool's version query against the latest
matching release and reinstalls it. With no arguments every tool in the
effective manifest is updated; naming aliases limits it to just those.

--check reports what would change without installing anything.`,
	RunE: runUpdate,
}

func init() {
	updateCmd.Flags().BoolVar(&updateCheckOnly, "check", false, "Report available updates without installing")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	o, _, err := newOrchestrator()
	if err != nil {
		return err
	}

	report, err := o.Update(cmd.Context(), cwd, args, updateCheckOnly)
	if err != nil {
		return err
	}

	for _, r := range report.Results {
		if r.Err != nil {
			cmd.PrintErrf("  ! %s: %v\n", r.Alias, r.Err)
			continue
		}
		if updateCheckOnly {
			cmd.Printf("  %s -> %s\n", r.Alias, r.Spec.String())
		} else {
			cmd.Printf("  %s updated to %s\n", r.Alias, r.Spec.String())
		}
	}

	if report.Failed() {
		return newReportError()
	}
	return nil
}
