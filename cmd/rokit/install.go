package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/rojo-rbx/rokit/cmd/rokit/ui"
	"github.com/rojo-rbx/rokit/internal/orchestrator"
)

var installParallelism int

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install every tool in the effective manifest",
	RunE:  runInstall,
}

func init() {
	installCmd.Flags().IntVar(&installParallelism, "parallelism", 0, "Concurrent installs (default 4)")
}

func runInstall(cmd *cobra.Command, _ []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	o, _, err := newOrchestrator()
	if err != nil {
		return err
	}
	if installParallelism > 0 {
		o.SetParallelism(installParallelism)
	}

	report, err := o.InstallAll(cmd.Context(), cwd)
	if err != nil {
		return err
	}

	printReport(cmd, report)
	if report.Failed() {
		return newReportError()
	}
	return nil
}

// reportError signals that a batch operation completed but some
// per-tool results failed; main maps it to exit 1 without printing a
// second "Error: ..." line, since printReport already described each
// failure.
type reportError struct{}

func (reportError) Error() string { return "" }

func newReportError() error { return reportError{} }

func printReport(cmd *cobra.Command, report orchestrator.Report) {
	style := ui.NewStyle()
	for _, r := range report.Results {
		if r.Err != nil {
			cmd.PrintErrf("  %s %s: %v\n", style.FailMark, r.Alias, r.Err)
			continue
		}
		cmd.Printf("  %s %s %s\n", style.SuccessMark, r.Alias, r.Spec.String())
	}
}
