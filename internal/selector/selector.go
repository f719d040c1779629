// Package selector implements rokit's artifact scoring algorithm: given
// a release's asset list and a host descriptor, it picks exactly one
// asset, rejecting the coincidental substring matches that plague
// naive "does the filename contain the OS name" selection (a tool
// named tarmac must not be mistaken for a macOS build).
package selector

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rojo-rbx/rokit/internal/extract"
	"github.com/rojo-rbx/rokit/internal/id"
	"github.com/rojo-rbx/rokit/internal/rerr"
	"github.com/rojo-rbx/rokit/internal/source"
)

// compressionRank orders formats by the tiebreaker preference in
// §4.4.5: compressed transports save download time, so tar.gz beats
// zip beats tar beats gz beats plain.
func compressionRank(f extract.Format) int {
	switch f {
	case extract.FormatTarGz:
		return 0
	case extract.FormatZip:
		return 1
	case extract.FormatTar:
		return 2
	case extract.FormatGzip:
		return 3
	default:
		return 4
	}
}

// tier ranks how well an asset's detected OS/arch tokens match the
// host, best first.
type tier int

const (
	tierExactOSArch tier = iota
	tierExactOSAnyArch
	tierAnyOSAnyArch
	tierIncompatible
)

var osTokens = map[id.OSKind]map[string]bool{
	id.OSWindows: {"windows": true, "win": true, "win32": true, "win64": true, "pc": true},
	id.OSMacOS:   {"macos": true, "darwin": true, "osx": true, "apple": true, "mac": true},
	id.OSLinux:   {"linux": true, "unknown-linux": true, "gnu": true},
}

// archTokens holds the single-word arch tokens. x86_64 is handled
// separately below: splitting on "_" (one of the listed word
// separators) breaks "x86_64" into "x86" and "64", so it is recognized
// as an adjacent token pair rather than a single token.
var archTokens = map[id.ArchKind]map[string]bool{
	id.ArchX86_64:  {"x64": true, "amd64": true, "64bit": true},
	id.ArchAarch64: {"aarch64": true, "arm64": true},
}

const (
	x86Part = "x86"
	x64Part = "64"
)

var allOSTokens = unionOSKeys(osTokens)
var allArchTokens = unionArchKeys(archTokens)

func unionOSKeys(m map[id.OSKind]map[string]bool) map[string]bool {
	out := make(map[string]bool)
	for _, set := range m {
		for k := range set {
			out[k] = true
		}
	}
	return out
}

func unionArchKeys(m map[id.ArchKind]map[string]bool) map[string]bool {
	out := make(map[string]bool)
	for _, set := range m {
		for k := range set {
			out[k] = true
		}
	}
	out[x86Part] = true
	return out
}

// candidate is an asset plus its derived scoring inputs.
type candidate struct {
	asset  source.Asset
	format extract.Format
	tier   tier
}

// Select picks exactly one asset from assets for host, or returns a
// NoCompatibleArtifact error. toolName is the tool's own repository
// name (e.g. "tarmac"), used to keep name tokens that happen to spell
// a platform word from being scored as real platform tokens.
func Select(assets []source.Asset, host id.Host, toolName string) (source.Asset, error) {
	nameTokens := tokenize(strings.ToLower(toolName))
	nameSet := make(map[string]bool, len(nameTokens))
	for _, t := range nameTokens {
		nameSet[t] = true
	}

	var candidates []candidate
	for _, a := range assets {
		lower := strings.ToLower(a.Name)
		tokens := tokenize(lower)
		format := extract.DetectFormat(lower)

		t := classify(tokens, nameSet, host)
		if t == tierIncompatible {
			continue
		}

		candidates = append(candidates, candidate{asset: a, format: format, tier: t})
	}

	if len(candidates) == 0 {
		return source.Asset{}, rerr.New(rerr.CategorySelector, rerr.CodeNoCompatibleArtifact,
			fmt.Sprintf("no asset in release is compatible with %s", host.String())).
			WithDetail("host", host.String()).
			WithDetail("assetCount", len(assets))
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		ci, cj := candidates[i], candidates[j]
		if ci.tier != cj.tier {
			return ci.tier < cj.tier
		}
		if compressionRank(ci.format) != compressionRank(cj.format) {
			return compressionRank(ci.format) < compressionRank(cj.format)
		}
		if len(ci.asset.Name) != len(cj.asset.Name) {
			return len(ci.asset.Name) < len(cj.asset.Name)
		}
		return ci.asset.Name < cj.asset.Name
	})

	return candidates[0].asset, nil
}

// tokenize splits a lowercased filename into word tokens on
// [-_.+/ ], the separator set named in §4.4. Unlike a naive substring
// search, matching tokens one at a time (rather than scanning for
// substrings) is what prevents a tool named "tarmac" from being
// misread as containing the arch token "arm" or the OS token "mac".
func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		switch r {
		case '-', '_', '.', '+', '/', ' ':
			return true
		default:
			return false
		}
	})
}

// classify determines the compatibility tier of an asset's tokens
// against host, ignoring tokens that are part of the tool's own name.
func classify(tokens []string, nameSet map[string]bool, host id.Host) tier {
	var osMatch, archMatch bool
	var sawAnyOS, sawAnyArch bool
	var sawIncompatibleOS, sawIncompatibleArch bool

	isX86_64 := false
	for i := 0; i+1 < len(tokens); i++ {
		if tokens[i] == x86Part && tokens[i+1] == x64Part && !nameSet[tokens[i]] && !nameSet[tokens[i+1]] {
			isX86_64 = true
			break
		}
	}
	if isX86_64 {
		sawAnyArch = true
		if host.Arch == id.ArchX86_64 {
			archMatch = true
		} else {
			sawIncompatibleArch = true
		}
	}

	for _, tok := range tokens {
		if nameSet[tok] {
			continue
		}
		if allOSTokens[tok] {
			sawAnyOS = true
			if osTokens[host.OS][tok] {
				osMatch = true
			} else {
				sawIncompatibleOS = true
			}
		}
		if tok != x86Part && allArchTokens[tok] {
			sawAnyArch = true
			if archTokens[host.Arch][tok] {
				archMatch = true
			} else {
				sawIncompatibleArch = true
			}
		}
	}

	if sawIncompatibleOS || sawIncompatibleArch {
		return tierIncompatible
	}

	switch {
	case osMatch && archMatch:
		return tierExactOSArch
	case osMatch && !sawAnyArch:
		return tierExactOSAnyArch
	case !sawAnyOS && !sawAnyArch:
		return tierAnyOSAnyArch
	default:
		return tierIncompatible
	}
}

