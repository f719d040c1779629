// Package id defines rokit's core identifiers: the provider-scoped
// tool identity, fully-resolved tool specs, manifest aliases, and the
// host descriptor the artifact selector scores release assets
// against.
package id

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Provider enumerates the release hosts rokit knows how to resolve
// against. GitHub is the only provider today; the type exists so a
// second provider can be added without changing ToolId's shape.
type Provider string

// ProviderGitHub is the only supported provider.
const ProviderGitHub Provider = "github"

const identSegment = `[A-Za-z0-9_.-]+`

// ToolId identifies a tool by provider, scope (GitHub org/user), and
// name (GitHub repository). Comparison is case-insensitive; the
// original casing is retained for display.
type ToolId struct {
	Provider Provider
	Scope    string
	Name     string
}

// ParseToolId parses "scope/name" (provider defaults to GitHub) into
// a ToolId. Rejects embedded whitespace, empty segments, and
// non-ASCII, per the identifier-normalization rules.
func ParseToolId(s string) (ToolId, error) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return ToolId{}, fmt.Errorf("tool id %q: expected \"scope/name\" form", s)
	}
	scope, name := parts[0], parts[1]
	if err := validateSegment(scope); err != nil {
		return ToolId{}, fmt.Errorf("tool id %q: invalid scope: %w", s, err)
	}
	if err := validateSegment(name); err != nil {
		return ToolId{}, fmt.Errorf("tool id %q: invalid name: %w", s, err)
	}
	return ToolId{Provider: ProviderGitHub, Scope: scope, Name: name}, nil
}

func validateSegment(s string) error {
	if s == "" {
		return fmt.Errorf("empty segment")
	}
	for _, r := range s {
		if r > 127 {
			return fmt.Errorf("non-ASCII character %q", r)
		}
		isAllowed := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '_' || r == '.' || r == '-'
		if !isAllowed {
			return fmt.Errorf("disallowed character %q (must match %s)", r, identSegment)
		}
	}
	return nil
}

// String returns the "provider/scope/name" form with its original
// casing; trust.json stores the lowercased Canonical form instead.
func (t ToolId) String() string {
	return string(t.Provider) + "/" + t.Scope + "/" + t.Name
}

// ScopeName returns the "scope/name" form used in manifests.
func (t ToolId) ScopeName() string {
	return t.Scope + "/" + t.Name
}

// Canonical returns the lowercased form used for filesystem paths,
// trust-cache membership, and any other on-disk comparison.
func (t ToolId) Canonical() string {
	return strings.ToLower(t.String())
}

// EqualFold reports whether two ToolIds are the same identity under
// case-insensitive comparison.
func (t ToolId) EqualFold(other ToolId) bool {
	return t.Canonical() == other.Canonical()
}

// BinaryName returns the default shim/binary name derived from the
// repository name. A manifest alias may differ, but this is the
// fallback.
func (t ToolId) BinaryName() string {
	return t.Name
}

// ToolSpec is a ToolId paired with a single fully-resolved semver
// version — no constraints, no "latest". This is the form stored in
// the tool store and in installed.json.
type ToolSpec struct {
	Id      ToolId
	Version *semver.Version
}

// String returns the canonical "scope/name@X.Y.Z" serialization.
func (s ToolSpec) String() string {
	return fmt.Sprintf("%s@%s", s.Id.ScopeName(), s.Version.String())
}

// ParseToolSpec parses "scope/name@X.Y.Z", accepting a leading "v" on
// the version per the identifiers-and-descriptors rules.
func ParseToolSpec(raw string) (ToolSpec, error) {
	idPart, versionPart, ok := strings.Cut(raw, "@")
	if !ok {
		return ToolSpec{}, fmt.Errorf("tool spec %q: expected \"scope/name@version\" form", raw)
	}
	tid, err := ParseToolId(idPart)
	if err != nil {
		return ToolSpec{}, err
	}
	v, err := semver.NewVersion(strings.TrimPrefix(versionPart, "v"))
	if err != nil {
		return ToolSpec{}, fmt.Errorf("tool spec %q: invalid version: %w", raw, err)
	}
	return ToolSpec{Id: tid, Version: v}, nil
}

// VersionRequirement classifies how a manifest entry expresses the
// version it wants, before resolution against actual releases.
type VersionRequirement int

const (
	// ReqExact pins to a literal semver version, e.g. "1.4.0".
	ReqExact VersionRequirement = iota
	// ReqConstraint pins to a semver range, e.g. "^1.4.0".
	ReqConstraint
	// ReqLatest means "whatever the newest qualifying release is".
	ReqLatest
)

// VersionQuery is an unresolved version expression: what the manifest
// (or an `add`/`update` CLI argument) asked for, prior to resolving it
// against a source's actual releases.
type VersionQuery struct {
	Kind       VersionRequirement
	Exact      *semver.Version
	Constraint *semver.Constraints
	Raw        string
}

// ParseVersionQuery interprets a version string into a VersionQuery.
func ParseVersionQuery(raw string) (VersionQuery, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "latest" {
		return VersionQuery{Kind: ReqLatest, Raw: raw}, nil
	}

	candidate := strings.TrimPrefix(trimmed, "v")
	if v, err := semver.NewVersion(candidate); err == nil {
		return VersionQuery{Kind: ReqExact, Exact: v, Raw: raw}, nil
	}

	c, err := semver.NewConstraint(trimmed)
	if err != nil {
		return VersionQuery{}, fmt.Errorf("version %q is neither an exact semver version nor a valid constraint: %w", raw, err)
	}
	return VersionQuery{Kind: ReqConstraint, Constraint: c, Raw: raw}, nil
}

// Matches reports whether candidate satisfies this query, excluding
// pre-release versions unless the query explicitly names one.
func (q VersionQuery) Matches(candidate *semver.Version) bool {
	if candidate.Prerelease() != "" {
		if q.Kind != ReqExact || q.Exact.Prerelease() == "" {
			return false
		}
	}
	switch q.Kind {
	case ReqExact:
		return candidate.Equal(q.Exact)
	case ReqConstraint:
		return q.Constraint.Check(candidate)
	case ReqLatest:
		return true
	default:
		return false
	}
}

// Alias is a short, manifest-local name standing in for a ToolId; it
// is also the filename of the shim the link manager creates. Aliases
// are compared case-insensitively within one manifest.
type Alias string

// CanonicalAlias lowercases an alias for uniqueness comparisons and
// store lookups, per the identifier-normalization rule.
func CanonicalAlias(a Alias) string {
	return strings.ToLower(string(a))
}

// Shortcuts maps well-known short names to their full ToolId, so that
// `rokit add rojo` resolves without the user typing the scope. Lookups
// are case-insensitive.
var Shortcuts = map[string]ToolId{
	"rojo":     {Provider: ProviderGitHub, Scope: "rojo-rbx", Name: "rojo"},
	"selene":   {Provider: ProviderGitHub, Scope: "kampfkarren", Name: "selene"},
	"stylua":   {Provider: ProviderGitHub, Scope: "JohnnyMorganz", Name: "StyLua"},
	"wally":    {Provider: ProviderGitHub, Scope: "UpliftGames", Name: "wally"},
	"lune":     {Provider: ProviderGitHub, Scope: "lune-org", Name: "lune"},
	"tarmac":   {Provider: ProviderGitHub, Scope: "rojo-rbx", Name: "tarmac"},
	"darklua":  {Provider: ProviderGitHub, Scope: "seaofvoices", Name: "darklua"},
	"lefthook": {Provider: ProviderGitHub, Scope: "evilmartians", Name: "lefthook"},
}

// ResolveShortcut looks up name (case-insensitively) in the shortcut
// table.
func ResolveShortcut(name string) (ToolId, bool) {
	for key, tid := range Shortcuts {
		if strings.EqualFold(key, name) {
			return tid, true
		}
	}
	return ToolId{}, false
}

// OSKind enumerates the operating systems rokit runs on.
type OSKind string

const (
	OSWindows OSKind = "windows"
	OSMacOS   OSKind = "macos"
	OSLinux   OSKind = "linux"
)

// ArchKind enumerates the CPU architectures rokit runs on.
type ArchKind string

const (
	ArchX86_64  ArchKind = "x86_64"
	ArchAarch64 ArchKind = "aarch64"
)

// Libc distinguishes the C library on Linux, used as an artifact
// selector tiebreaker.
type Libc string

const (
	LibcGNU     Libc = "gnu"
	LibcMusl    Libc = "musl"
	LibcUnknown Libc = "unknown"
)

// Host is the local execution environment descriptor: OS, arch, and
// the Linux-only libc/bitness tiebreak axes. Derived once at startup
// and threaded explicitly rather than read globally.
type Host struct {
	OS      OSKind
	Arch    ArchKind
	Libc    Libc
	Bitness int
}

// DetectHost returns the Host descriptor for the process's own
// runtime.
func DetectHost() Host {
	h := Host{Bitness: 64}

	switch runtime.GOOS {
	case "darwin":
		h.OS = OSMacOS
	case "windows":
		h.OS = OSWindows
	default:
		h.OS = OSLinux
	}

	switch runtime.GOARCH {
	case "arm64":
		h.Arch = ArchAarch64
	default:
		h.Arch = ArchX86_64
	}

	if h.OS == OSLinux {
		h.Libc = detectLibc()
	} else {
		h.Libc = LibcUnknown
	}

	return h
}

// String returns an "os-arch" form used in log output.
func (h Host) String() string {
	return string(h.OS) + "-" + string(h.Arch)
}

// ExecutableExt returns the filename suffix expected for native
// executables and shims on this host.
func (h Host) ExecutableExt() string {
	if h.OS == OSWindows {
		return ".exe"
	}
	return ""
}
