package id

import (
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseToolId(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ToolId
		wantErr bool
	}{
		{
			name:  "valid",
			input: "rojo-rbx/rojo",
			want:  ToolId{Provider: ProviderGitHub, Scope: "rojo-rbx", Name: "rojo"},
		},
		{
			name:    "missing slash",
			input:   "rojo",
			wantErr: true,
		},
		{
			name:    "empty segment",
			input:   "rojo-rbx/",
			wantErr: true,
		},
		{
			name:    "embedded whitespace",
			input:   "rojo rbx/rojo",
			wantErr: true,
		},
		{
			name:    "non-ascii",
			input:   "rojo-rbx/röjo",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseToolId(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToolIdEqualFold(t *testing.T) {
	a := ToolId{Provider: ProviderGitHub, Scope: "Rojo-Rbx", Name: "Rojo"}
	b := ToolId{Provider: ProviderGitHub, Scope: "rojo-rbx", Name: "rojo"}
	assert.True(t, a.EqualFold(b))
	assert.Equal(t, "github/rojo-rbx/rojo", b.Canonical())
}

func TestParseToolSpec(t *testing.T) {
	got, err := ParseToolSpec("rojo-rbx/rojo@v7.4.1")
	require.NoError(t, err)
	assert.Equal(t, "rojo-rbx", got.Id.Scope)
	assert.True(t, got.Version.Equal(semver.MustParse("7.4.1")))
	assert.Equal(t, "rojo-rbx/rojo@7.4.1", got.String())
}

func TestParseVersionQuery(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  VersionRequirement
	}{
		{"empty is latest", "", ReqLatest},
		{"literal latest", "latest", ReqLatest},
		{"exact", "1.4.0", ReqExact},
		{"exact with v prefix", "v1.4.0", ReqExact},
		{"caret constraint", "^1.4.0", ReqConstraint},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := ParseVersionQuery(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, q.Kind)
		})
	}
}

func TestVersionQueryMatches(t *testing.T) {
	exact, err := ParseVersionQuery("1.4.0")
	require.NoError(t, err)
	assert.True(t, exact.Matches(semver.MustParse("1.4.0")))
	assert.False(t, exact.Matches(semver.MustParse("1.4.1")))

	constraint, err := ParseVersionQuery("^1.4.0")
	require.NoError(t, err)
	assert.True(t, constraint.Matches(semver.MustParse("1.9.0")))
	assert.False(t, constraint.Matches(semver.MustParse("2.0.0")))
	assert.False(t, constraint.Matches(semver.MustParse("2.0.0-beta.1")), "prerelease excluded unless requested exactly")

	latest, err := ParseVersionQuery("latest")
	require.NoError(t, err)
	assert.True(t, latest.Matches(semver.MustParse("9.9.9")))
}

func TestResolveShortcut(t *testing.T) {
	tid, ok := ResolveShortcut("ROJO")
	require.True(t, ok)
	assert.Equal(t, "rojo-rbx", tid.Scope)

	_, ok = ResolveShortcut("not-a-real-tool")
	assert.False(t, ok)
}

func TestCanonicalAlias(t *testing.T) {
	assert.Equal(t, "rojo", CanonicalAlias(Alias("Rojo")))
}

func TestHostExecutableExt(t *testing.T) {
	assert.Equal(t, ".exe", Host{OS: OSWindows}.ExecutableExt())
	assert.Equal(t, "", Host{OS: OSLinux}.ExecutableExt())
}
