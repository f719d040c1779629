package orchestrator

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rojo-rbx/rokit/internal/id"
	"github.com/rojo-rbx/rokit/internal/progress"
	"github.com/rojo-rbx/rokit/internal/rpath"
	"github.com/rojo-rbx/rokit/internal/source"
	"github.com/rojo-rbx/rokit/internal/store"
)

// fakeSource serves a single canned release for any repo, with one
// asset matching host linux/x86_64 and a body that is a fake ELF.
type fakeSource struct {
	assetName string
	body      []byte
}

func (f *fakeSource) ListReleases(ctx context.Context, author, name string) ([]source.Release, error) {
	return []source.Release{{
		TagName:     "v1.4.0",
		Version:     "1.4.0",
		PublishedAt: time.Now(),
		Assets:      []source.Asset{{Name: f.assetName, DownloadURL: "https://example.com/" + f.assetName, Size: int64(len(f.body))}},
	}}, nil
}

func (f *fakeSource) GetRelease(ctx context.Context, author, name, tag string) (source.Release, error) {
	rs, _ := f.ListReleases(ctx, author, name)
	return rs[0], nil
}

func (f *fakeSource) FetchAsset(ctx context.Context, asset source.Asset) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.body)), nil
}

func fakeELFBytes() []byte {
	return append([]byte{0x7f, 'E', 'L', 'F'}, bytes.Repeat([]byte{0}, 32)...)
}

func newTestOrchestrator(t *testing.T, assetName string) (*Orchestrator, *rpath.Dirs) {
	t.Helper()
	dirs, err := rpath.New(rpath.WithHome(t.TempDir()), rpath.WithCacheDir(t.TempDir()))
	require.NoError(t, err)
	require.NoError(t, dirs.EnsureAll())

	st := store.New(dirs)
	trust, err := store.LoadTrustCache(dirs.TrustFilePath())
	require.NoError(t, err)

	src := &fakeSource{assetName: assetName, body: fakeELFBytes()}
	o := New(dirs, src, st, trust).WithTrustPrompter(acceptAll{})
	o.host = id.Host{OS: id.OSLinux, Arch: id.ArchX86_64}

	// Sync refuses to run before the dispatcher itself is in place;
	// stand one up the way self-install would.
	dispatcherSrc := filepath.Join(t.TempDir(), "rokit")
	require.NoError(t, os.WriteFile(dispatcherSrc, []byte("dispatcher"), 0o755))
	require.NoError(t, o.links.EnsureDispatcher(dispatcherSrc))

	return o, dirs
}

type acceptAll struct{}

func (acceptAll) PromptTrust(id.ToolId) progress.TrustDecision { return progress.TrustAccept }

func writeManifest(t *testing.T, dir, contents string) string {
	t.Helper()
	path := filepath.Join(dir, "rokit.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestAddResolvesInstallsAndWritesManifest(t *testing.T) {
	// Use a plain (unarchived) asset name matching the tool so Extract's
	// plain path picks it up directly.
	o, dir := newOrchestratorWithWorkdir(t, "rojo")
	manifestPath := filepath.Join(dir, "rokit.toml")

	spec, err := o.Add(context.Background(), manifestPath, "rojo", "rojo-rbx/rojo@1.4.0")
	require.NoError(t, err)
	assert.Equal(t, "1.4.0", spec.Version.String())

	data, err := os.ReadFile(manifestPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "rojo")
}

func newOrchestratorWithWorkdir(t *testing.T, assetBaseName string) (*Orchestrator, string) {
	t.Helper()
	o, _ := newTestOrchestrator(t, assetBaseName)
	dir := t.TempDir()
	return o, dir
}

func TestInstallAllInstallsEveryManifestEntry(t *testing.T) {
	o, _ := newOrchestratorWithWorkdir(t, "rojo")
	dir := t.TempDir()
	writeManifest(t, dir, "[tools]\nrojo = \"rojo-rbx/rojo@1.4.0\"\n")

	report, err := o.InstallAll(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.NoError(t, report.Results[0].Err)
	assert.False(t, report.Failed())
}

func TestInstallAllIsolatesPerToolFailure(t *testing.T) {
	o, _ := newOrchestratorWithWorkdir(t, "rojo")
	dir := t.TempDir()
	writeManifest(t, dir, "[tools]\nrojo = \"rojo-rbx/rojo@1.4.0\"\nbroken = \"rojo-rbx/rojo@99.9.9\"\n")

	report, err := o.InstallAll(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, report.Results, 2)
	assert.True(t, report.Failed())

	var sawOK, sawErr bool
	for _, r := range report.Results {
		if r.Err == nil {
			sawOK = true
		} else {
			sawErr = true
		}
	}
	assert.True(t, sawOK)
	assert.True(t, sawErr)
}

func TestListReportsInstalledState(t *testing.T) {
	o, _ := newOrchestratorWithWorkdir(t, "rojo")
	dir := t.TempDir()
	writeManifest(t, dir, "[tools]\nrojo = \"rojo-rbx/rojo@1.4.0\"\n")

	_, err := o.InstallAll(context.Background(), dir)
	require.NoError(t, err)

	entries, err := o.List(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Installed)
	assert.Equal(t, "rojo", entries[0].Alias)
}

func TestSetParallelismClamps(t *testing.T) {
	o, _ := newOrchestratorWithWorkdir(t, "rojo")
	o.SetParallelism(0)
	assert.Equal(t, 1, o.parallelism)
	o.SetParallelism(1000)
	assert.Equal(t, MaxParallelism, o.parallelism)
}
