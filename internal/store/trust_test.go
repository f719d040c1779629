package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rojo-rbx/rokit/internal/id"
)

func TestTrustCacheMissingFileIsEmpty(t *testing.T) {
	tc, err := LoadTrustCache(filepath.Join(t.TempDir(), "trust.json"))
	require.NoError(t, err)
	assert.False(t, tc.Contains(id.ToolId{Provider: id.ProviderGitHub, Scope: "rojo-rbx", Name: "rojo"}))
}

func TestTrustCacheAddPersistsAndIsCaseInsensitive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trust.json")
	tc, err := LoadTrustCache(path)
	require.NoError(t, err)

	tid := id.ToolId{Provider: id.ProviderGitHub, Scope: "Rojo-Rbx", Name: "Rojo"}
	require.NoError(t, tc.Add(tid))

	assert.True(t, tc.Contains(tid))
	assert.True(t, tc.Contains(id.ToolId{Provider: id.ProviderGitHub, Scope: "rojo-rbx", Name: "rojo"}))

	reloaded, err := LoadTrustCache(path)
	require.NoError(t, err)
	assert.True(t, reloaded.Contains(tid))
}

func TestTrustCacheRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trust.json")
	tc, err := LoadTrustCache(path)
	require.NoError(t, err)

	tid := id.ToolId{Provider: id.ProviderGitHub, Scope: "rojo-rbx", Name: "rojo"}
	require.NoError(t, tc.Add(tid))
	require.NoError(t, tc.Remove(tid))

	assert.False(t, tc.Contains(tid))
}
