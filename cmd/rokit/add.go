package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rojo-rbx/rokit/internal/id"
	"github.com/rojo-rbx/rokit/internal/manifest"
)

var addCmd = &cobra.Command{
	Use:   "add <alias> <scope/name[@version]>",
	Short: "Add a tool to rokit.toml and install it",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runAdd,
}

func runAdd(cmd *cobra.Command, args []string) error {
	alias, shorthand, err := parseAddArgs(args)
	if err != nil {
		return err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	manifestPath, err := nearestOrNewManifest(cwd)
	if err != nil {
		return err
	}

	o, _, err := newOrchestrator()
	if err != nil {
		return err
	}

	spec, err := o.Add(cmd.Context(), manifestPath, id.Alias(alias), shorthand)
	if err != nil {
		return err
	}

	cmd.Printf("Added %s = %q to %s\n", alias, spec.String(), manifestPath)
	return nil
}

// parseAddArgs accepts both `rokit add rojo-rbx/rojo@1.4.0` (alias
// defaults to the repository name) and `rokit add rojo rojo-rbx/rojo@1.4.0`.
func parseAddArgs(args []string) (alias, shorthand string, err error) {
	if len(args) == 2 {
		return args[0], args[1], nil
	}
	shorthand = args[0]
	tid, _, parseErr := manifestShorthandToolId(shorthand)
	if parseErr != nil {
		return "", "", newUsageError("%v", parseErr)
	}
	return tid.Name, shorthand, nil
}

func manifestShorthandToolId(shorthand string) (id.ToolId, bool, error) {
	idPart := shorthand
	if at := strings.IndexByte(shorthand, '@'); at >= 0 {
		idPart = shorthand[:at]
	}
	tid, err := id.ParseToolId(idPart)
	if err == nil {
		return tid, true, nil
	}
	if shortcut, ok := id.ResolveShortcut(idPart); ok {
		return shortcut, true, nil
	}
	return id.ToolId{}, false, err
}

// nearestOrNewManifest returns the nearest existing rokit.toml found
// by walking upward from cwd, or cwd/rokit.toml if none exists yet.
func nearestOrNewManifest(cwd string) (string, error) {
	bindingsPaths, err := manifest.Discover(cwd)
	if err != nil {
		return "", err
	}
	for _, p := range bindingsPaths {
		if filepath.Base(p) == "rokit.toml" {
			return p, nil
		}
	}
	return filepath.Join(cwd, "rokit.toml"), nil
}
