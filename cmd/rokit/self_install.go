package main

import (
	"os"

	"github.com/spf13/cobra"
)

var selfInstallCmd = &cobra.Command{
	Use:   "self-install",
	Short: "Install rokit's own dispatcher into ~/.rokit/bin and add it to PATH",
	RunE:  runSelfInstall,
}

func runSelfInstall(cmd *cobra.Command, _ []string) error {
	self, err := os.Executable()
	if err != nil {
		return err
	}

	o, dirs, err := newOrchestrator()
	if err != nil {
		return err
	}

	if err := o.SelfInstall(self, newShellProfileEditor(dirs)); err != nil {
		return err
	}

	cmd.Printf("Installed rokit to %s\n", dirs.BinDir())
	cmd.Println("Restart your shell (or source your rc file) to pick up the updated PATH.")
	return nil
}
