package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rojo-rbx/rokit/internal/id"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadBareStringTools(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "rokit.toml", `# top comment
[tools]
rojo   = "rojo-rbx/rojo@7.4.1"
selene = "kampfkarren/selene@0.27.1"
`)

	m, err := Load(path)
	require.NoError(t, err)
	require.Len(t, m.Entries, 2)
	assert.Equal(t, id.Alias("rojo"), m.Entries[0].Alias)
	assert.Equal(t, "rojo-rbx/rojo@7.4.1", m.Entries[0].Spec)
	assert.Equal(t, id.Alias("selene"), m.Entries[1].Alias)
}

func TestLoadInlineTableTools(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "foreman.toml", `[tools]
rojo = { source = "rojo-rbx/rojo", version = "7.4.1" }
`)

	m, err := Load(path)
	require.NoError(t, err)
	require.Len(t, m.Entries, 1)
	assert.Equal(t, "rojo-rbx/rojo@7.4.1", m.Entries[0].Spec)
	assert.Equal(t, KindForeman, m.Kind)
}

func TestLoadMissingToolsTableIsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "rokit.toml", "# nothing here\n")

	m, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, m.Entries)
}

func TestLoadRejectsDuplicateAliasCaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "rokit.toml", `[tools]
Rojo = "rojo-rbx/rojo@7.4.1"
rojo = "rojo-rbx/rojo@7.4.2"
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestDiscoverNearestFirst(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	writeFile(t, root, "rokit.toml", "[tools]\n")
	writeFile(t, sub, "rokit.toml", "[tools]\n")

	found, err := Discover(sub)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, filepath.Join(sub, "rokit.toml"), found[0])
	assert.Equal(t, filepath.Join(root, "rokit.toml"), found[1])
}

func TestDiscoverPrefersRokitOverForemanInSameDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "rokit.toml", "[tools]\n")
	writeFile(t, dir, "foreman.toml", "[tools]\n")

	found, err := Discover(dir)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, filepath.Join(dir, "rokit.toml"), found[0])
}

func TestAddInsertsAndReplacesInPlace(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "rokit.toml", `# keep me
[tools]
rojo = "rojo-rbx/rojo@7.4.0"
`)

	m, err := Load(path)
	require.NoError(t, err)

	require.NoError(t, m.Add("rojo", "rojo-rbx/rojo@7.4.1"))
	require.NoError(t, m.Add("selene", "kampfkarren/selene@0.27.1"))
	require.NoError(t, m.Save())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "# keep me")
	assert.Contains(t, content, `rojo = "rojo-rbx/rojo@7.4.1"`)
	assert.Contains(t, content, `selene = "kampfkarren/selene@0.27.1"`)
}

func TestRemoveDropsEntry(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "rokit.toml", `[tools]
rojo = "rojo-rbx/rojo@7.4.1"
selene = "kampfkarren/selene@0.27.1"
`)

	m, err := Load(path)
	require.NoError(t, err)
	assert.True(t, m.Remove("Rojo"))
	require.NoError(t, m.Save())

	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Len(t, reloaded.Entries, 1)
	assert.Equal(t, id.Alias("selene"), reloaded.Entries[0].Alias)
}

func TestEffectiveUnionNearerWins(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "project")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	writeFile(t, root, "rokit.toml", `[tools]
rojo = "rojo-rbx/rojo@7.4.0"
selene = "kampfkarren/selene@0.27.1"
`)
	writeFile(t, sub, "rokit.toml", `[tools]
rojo = "rojo-rbx/rojo@7.4.1"
`)

	eff, err := Effective(sub)
	require.NoError(t, err)
	require.Contains(t, eff, "rojo")
	require.Contains(t, eff, "selene")
	assert.Equal(t, "7.4.1", eff["rojo"].Version.Exact.String())
	assert.Equal(t, filepath.Join(sub, "rokit.toml"), eff["rojo"].From)
}

func TestEffectiveDropsNonGitHubForemanEntry(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "foreman.toml", `[tools]
rojo = { source = "https://example.com/rojo", version = "1.0.0" }
selene = { source = "kampfkarren/selene", version = "0.27.1" }
`)

	eff, err := Effective(dir)
	require.NoError(t, err)
	_, hasRojo := eff["rojo"]
	assert.False(t, hasRojo)
	assert.Contains(t, eff, "selene")
}
