package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/rojo-rbx/rokit/cmd/rokit/ui"
)

var listFormat string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the tools bound by the effective manifest",
	RunE:  runList,
}

var listJSON bool

func init() {
	listCmd.Flags().StringVarP(&listFormat, "output", "o", "text", "Output format (text, json)")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Shorthand for --output json")
}

type listEntryJSON struct {
	Alias     string `json:"alias"`
	Tool      string `json:"tool"`
	Version   string `json:"version"`
	Installed bool   `json:"installed"`
}

func runList(cmd *cobra.Command, _ []string) error {
	if listJSON {
		listFormat = outputJSON
	}

	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	o, _, err := newOrchestrator()
	if err != nil {
		return err
	}

	entries, err := o.List(cwd)
	if err != nil {
		return err
	}

	if listFormat == outputJSON {
		out := make([]listEntryJSON, 0, len(entries))
		for _, e := range entries {
			out = append(out, listEntryJSON{
				Alias:     e.Alias,
				Tool:      e.Id.ScopeName(),
				Version:   e.Version,
				Installed: e.Installed,
			})
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	style := ui.NewStyle()
	for _, e := range entries {
		mark := style.FailMark
		if e.Installed {
			mark = style.SuccessMark
		}
		cmd.Printf("  %s %-16s %s@%s\n", mark, e.Alias, e.Id.ScopeName(), e.Version)
	}
	return nil
}
