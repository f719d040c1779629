package dispatch

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rojo-rbx/rokit/internal/id"
	"github.com/rojo-rbx/rokit/internal/orchestrator"
	"github.com/rojo-rbx/rokit/internal/progress"
	"github.com/rojo-rbx/rokit/internal/rpath"
	"github.com/rojo-rbx/rokit/internal/source"
	"github.com/rojo-rbx/rokit/internal/store"
)

// fakeSource serves one release per repo, with a single plain
// (unarchived) asset named after the tool so extraction needs no
// archive format.
type fakeSource struct{}

func (fakeSource) ListReleases(ctx context.Context, author, name string) ([]source.Release, error) {
	return []source.Release{{
		TagName:     "v1.0.0",
		Version:     "1.0.0",
		PublishedAt: time.Now(),
		Assets:      []source.Asset{{Name: name, DownloadURL: "https://example.com/" + name, Size: 36}},
	}}, nil
}

func (f fakeSource) GetRelease(ctx context.Context, author, name, tag string) (source.Release, error) {
	rs, _ := f.ListReleases(ctx, author, name)
	return rs[0], nil
}

func (fakeSource) FetchAsset(ctx context.Context, asset source.Asset) (io.ReadCloser, error) {
	body := append([]byte{0x7f, 'E', 'L', 'F'}, bytes.Repeat([]byte{0}, 32)...)
	return io.NopCloser(bytes.NewReader(body)), nil
}

type acceptAll struct{}

func (acceptAll) PromptTrust(id.ToolId) progress.TrustDecision { return progress.TrustAccept }

func newTestDispatcher(t *testing.T) (*Dispatcher, *rpath.Dirs) {
	t.Helper()
	dirs, err := rpath.New(rpath.WithHome(t.TempDir()), rpath.WithCacheDir(t.TempDir()))
	require.NoError(t, err)
	require.NoError(t, dirs.EnsureAll())

	st := store.New(dirs)
	trust, err := store.LoadTrustCache(dirs.TrustFilePath())
	require.NoError(t, err)

	orch := orchestrator.New(dirs, fakeSource{}, st, trust).WithTrustPrompter(acceptAll{})
	d := New(orch, dirs.BinDir())
	return d, dirs
}

func writeManifestFile(t *testing.T, dir, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rokit.toml"), []byte(contents), 0o644))
}

func TestAliasFromArgv0StripsDirAndExeSuffix(t *testing.T) {
	assert.Equal(t, "rojo", AliasFromArgv0("/usr/local/bin/rojo"))
	assert.Equal(t, "rojo", AliasFromArgv0(`C:\tools\Rojo.EXE`))
	assert.Equal(t, "rojo", AliasFromArgv0("ROJO"))
}

func TestResolveIsCaseInsensitive(t *testing.T) {
	d, _ := newTestDispatcher(t)
	dir := t.TempDir()
	writeManifestFile(t, dir, "[tools]\nRojo = \"rojo-rbx/rojo@1.0.0\"\n")

	path, err := d.Resolve(context.Background(), "ROJO", dir)
	require.NoError(t, err)
	assert.NotEmpty(t, path)

	// A differently-cased invocation resolves to the same installed
	// binary, not a second copy.
	again, err := d.Resolve(context.Background(), "rOjO", dir)
	require.NoError(t, err)
	assert.Equal(t, path, again)
}

func TestResolveFallsThroughToPathWhenUnbound(t *testing.T) {
	d, dirs := newTestDispatcher(t)
	dir := t.TempDir()
	writeManifestFile(t, dir, "[tools]\n")

	_, err := d.Resolve(context.Background(), "systemtool", dir)
	require.Error(t, err)
	assert.True(t, isNoToolForAlias(err))

	pathDir := t.TempDir()
	name := "systemtool"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	exePath := filepath.Join(pathDir, name)
	require.NoError(t, os.WriteFile(exePath, []byte("#!/bin/sh\n"), 0o755))

	oldPath := os.Getenv("PATH")
	t.Cleanup(func() { os.Setenv("PATH", oldPath) })
	require.NoError(t, os.Setenv("PATH", pathDir+string(os.PathListSeparator)+dirs.BinDir()))

	found, err := d.ResolveOnPath("systemtool")
	require.NoError(t, err)
	assert.Equal(t, exePath, found)
}

func TestResolveOnPathSkipsBinDir(t *testing.T) {
	d, dirs := newTestDispatcher(t)
	name := "systemtool"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	shadowPath := filepath.Join(dirs.BinDir(), name)
	require.NoError(t, os.WriteFile(shadowPath, []byte("shim"), 0o755))

	oldPath := os.Getenv("PATH")
	t.Cleanup(func() { os.Setenv("PATH", oldPath) })
	require.NoError(t, os.Setenv("PATH", dirs.BinDir()))

	_, err := d.ResolveOnPath("systemtool")
	require.Error(t, err)
	assert.True(t, isNoToolForAlias(err))
}
