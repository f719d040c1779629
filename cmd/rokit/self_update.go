package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rojo-rbx/rokit/internal/extract"
	"github.com/rojo-rbx/rokit/internal/ghauth"
	"github.com/rojo-rbx/rokit/internal/id"
	"github.com/rojo-rbx/rokit/internal/rerr"
	"github.com/rojo-rbx/rokit/internal/selector"
	"github.com/rojo-rbx/rokit/internal/source/github"
)

// rokitScope/rokitName identify the repository rokit's own releases
// are published under, so self-update can reuse the same
// list-releases/select-asset/extract pipeline as any other tool.
const (
	rokitScope = "rojo-rbx"
	rokitName  = "rokit"
)

var selfUpdateCmd = &cobra.Command{
	Use:   "self-update",
	Short: "Replace the running rokit dispatcher with the latest release",
	RunE:  runSelfUpdate,
}

func runSelfUpdate(cmd *cobra.Command, _ []string) error {
	self, err := os.Executable()
	if err != nil {
		return err
	}

	httpClient := ghauth.NewHTTPClient(ghauth.TokenFromEnv())
	src := github.New(httpClient)
	src.UserAgent = "rokit/" + version

	ctx := cmd.Context()
	releases, err := src.ListReleases(ctx, rokitScope, rokitName)
	if err != nil {
		return err
	}
	if len(releases) == 0 {
		return fmt.Errorf("no rokit releases found")
	}
	release := releases[0]

	host := id.DetectHost()
	asset, err := selector.Select(release.Assets, host, rokitName)
	if err != nil {
		return err
	}

	body, err := src.FetchAsset(ctx, asset)
	if err != nil {
		return err
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		return rerr.Wrap(rerr.CategorySource, rerr.CodeSourceTransient, "downloading "+asset.Name, err)
	}

	format := extract.DetectFormat(strings.ToLower(asset.Name))
	candidate, err := extract.Extract(format, asset.Name, data, rokitName)
	if err != nil {
		return err
	}

	tmp := self + ".new"
	if err := os.WriteFile(tmp, candidate.Data, 0o755); err != nil {
		return rerr.Wrap(rerr.CategoryStore, rerr.CodeStoreIO, "writing new rokit binary", err)
	}
	if err := extract.MakeExecutable(tmp); err != nil {
		return err
	}
	if err := os.Rename(tmp, self); err != nil {
		return rerr.Wrap(rerr.CategoryStore, rerr.CodeStoreIO, "replacing rokit binary", err)
	}

	o, dirs, err := newOrchestrator()
	if err != nil {
		return err
	}
	if err := o.SelfInstall(self, newShellProfileEditor(dirs)); err != nil {
		return err
	}

	cmd.Printf("Updated rokit to %s\n", release.Version)
	return nil
}
