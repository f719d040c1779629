package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rojo-rbx/rokit/internal/manifest"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an empty rokit.toml in the current directory",
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, _ []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	path := filepath.Join(cwd, "rokit.toml")

	if _, err := os.Stat(path); err == nil {
		return newUsageError("rokit.toml already exists in %s", cwd)
	}

	m := manifest.New(path)
	if err := m.Save(); err != nil {
		return err
	}

	cmd.Printf("Created %s\n", path)
	return nil
}
