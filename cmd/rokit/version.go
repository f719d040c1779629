package main

import "github.com/spf13/cobra"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the rokit version",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cmd.Printf("rokit version %s\n", version)
		return nil
	},
}
