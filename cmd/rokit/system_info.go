package main

import (
	"encoding/json"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/rojo-rbx/rokit/internal/ghauth"
	"github.com/rojo-rbx/rokit/internal/id"
)

var systemInfoFormat string

var systemInfoCmd = &cobra.Command{
	Use:   "system-info",
	Short: "Print rokit's host detection, data directories, and auth status",
	RunE:  runSystemInfo,
}

func init() {
	systemInfoCmd.Flags().StringVarP(&systemInfoFormat, "output", "o", "text", "Output format (text, json)")
}

type systemInfo struct {
	OS              string `json:"os"`
	Arch            string `json:"arch"`
	GoVersion       string `json:"goVersion"`
	Home            string `json:"home"`
	BinDir          string `json:"binDir"`
	ToolsDir        string `json:"toolsDir"`
	CacheDir        string `json:"cacheDir"`
	RokitVersion    string `json:"rokitVersion"`
	HasGitHubToken  bool   `json:"hasGitHubToken"`
	GitHubTokenMask string `json:"gitHubTokenMask,omitempty"`
}

func runSystemInfo(cmd *cobra.Command, _ []string) error {
	host := id.DetectHost()
	_, dirs, err := newOrchestrator()
	if err != nil {
		return err
	}

	info := systemInfo{
		OS:           string(host.OS),
		Arch:         string(host.Arch),
		GoVersion:    runtime.Version(),
		Home:         dirs.Home(),
		BinDir:       dirs.BinDir(),
		ToolsDir:     dirs.ToolsDir(),
		CacheDir:     dirs.CacheDir(),
		RokitVersion: version,
	}
	if token := ghauth.TokenFromEnv(); token != "" {
		info.HasGitHubToken = true
		info.GitHubTokenMask = maskToken(token)
	}

	if systemInfoFormat == outputJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	cmd.Printf("rokit %s\n", info.RokitVersion)
	cmd.Printf("  os/arch:   %s/%s\n", info.OS, info.Arch)
	cmd.Printf("  go:        %s\n", info.GoVersion)
	cmd.Printf("  home:      %s\n", info.Home)
	cmd.Printf("  bin:       %s\n", info.BinDir)
	cmd.Printf("  tools:     %s\n", info.ToolsDir)
	cmd.Printf("  cache:     %s\n", info.CacheDir)
	if info.HasGitHubToken {
		cmd.Printf("  github:    authenticated (%s)\n", info.GitHubTokenMask)
	} else {
		cmd.Println("  github:    unauthenticated")
	}
	return nil
}
