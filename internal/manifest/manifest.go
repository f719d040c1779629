// Package manifest reads and writes rokit.toml (and its read-only
// compatible foreman.toml/aftman.toml cousins), discovers manifests by
// walking up from a working directory, and computes the effective
// alias -> spec mapping used by the orchestrator and dispatcher.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/rojo-rbx/rokit/internal/id"
	"github.com/rojo-rbx/rokit/internal/rerr"
)

// Kind distinguishes which file format a discovered manifest is,
// since foreman/aftman manifests are read-only compatible.
type Kind int

const (
	KindRokit Kind = iota
	KindForeman
	KindAftman
)

func (k Kind) filename() string {
	switch k {
	case KindForeman:
		return "foreman.toml"
	case KindAftman:
		return "aftman.toml"
	default:
		return "rokit.toml"
	}
}

func (k Kind) writable() bool {
	return k == KindRokit
}

// searchOrder lists the filenames Discover looks for at each
// directory level, rokit.toml first per the stated precedence
// decision (see DESIGN.md).
var searchOrder = []Kind{KindRokit, KindForeman, KindAftman}

// Entry is one alias -> tool binding as written in a manifest.
type Entry struct {
	Alias id.Alias
	Spec  string // raw "scope/name@version" form, or unresolved shorthand
}

// Manifest is a parsed rokit.toml (or compatible file), with entry
// order preserved for round-trip serialization.
type Manifest struct {
	Path    string
	Kind    Kind
	Entries []Entry

	raw []byte // original bytes, kept so Add/Remove can splice text in place
}

// aliasLinePattern matches a bare `alias = ...` key assignment at the
// top level of the [tools] table (not inside another nested table).
var aliasLinePattern = regexp.MustCompile(`^([A-Za-z0-9_.-]+)\s*=\s*(.+?)\s*$`)

// Discover walks upward from cwd to the filesystem root, collecting
// every manifest file found at each level, nearest first. A directory
// may contribute at most one manifest: rokit.toml takes precedence
// over foreman.toml and aftman.toml when more than one is present in
// the same directory (see DESIGN.md open-question resolution).
func Discover(cwd string) ([]string, error) {
	dir, err := filepath.Abs(cwd)
	if err != nil {
		return nil, err
	}

	var found []string
	for {
		for _, k := range searchOrder {
			candidate := filepath.Join(dir, k.filename())
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				found = append(found, candidate)
				break
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return found, nil
}

// kindForPath infers a manifest Kind from its filename.
func kindForPath(path string) Kind {
	switch strings.ToLower(filepath.Base(path)) {
	case "foreman.toml":
		return KindForeman
	case "aftman.toml":
		return KindAftman
	default:
		return KindRokit
	}
}

// tomlDocument mirrors the shape of a manifest's top-level [tools]
// table. Values are decoded generically because the table mixes two
// forms: a bare "scope/name@version" string, and Foreman's inline
// table `{ source = "...", version = "..." }`.
type tomlDocument struct {
	Tools map[string]any `toml:"tools"`
}

// Load parses the manifest at path. A missing [tools] table yields an
// empty, non-error Manifest. Entry order is recovered from the
// original text so Save can round-trip unrecognized formatting.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, rerr.Wrap(rerr.CategoryManifest, rerr.CodeManifestIO, "reading manifest "+path, err)
	}

	var doc tomlDocument
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, rerr.Wrap(rerr.CategoryManifest, rerr.CodeManifestParse, "parsing manifest "+path, err)
	}

	m := &Manifest{
		Path: path,
		Kind: kindForPath(path),
		raw:  data,
	}

	order := orderedAliases(data)
	seen := make(map[string]bool, len(doc.Tools))
	for _, alias := range order {
		value, ok := lookupFold(doc.Tools, alias)
		if !ok {
			continue
		}
		spec, err := decodeToolValue(value)
		if err != nil {
			return nil, rerr.Wrap(rerr.CategoryManifest, rerr.CodeManifestParse, fmt.Sprintf("manifest %s: tool %q", path, alias), err)
		}
		seen[strings.ToLower(alias)] = true
		m.Entries = append(m.Entries, Entry{Alias: id.Alias(alias), Spec: spec})
	}

	// Any aliases the line scan missed (unusual formatting) are still
	// included, appended in map-iteration order sorted for determinism.
	var leftover []string
	for alias := range doc.Tools {
		if !seen[strings.ToLower(alias)] {
			leftover = append(leftover, alias)
		}
	}
	sort.Strings(leftover)
	for _, alias := range leftover {
		spec, err := decodeToolValue(doc.Tools[alias])
		if err != nil {
			return nil, rerr.Wrap(rerr.CategoryManifest, rerr.CodeManifestParse, fmt.Sprintf("manifest %s: tool %q", path, alias), err)
		}
		m.Entries = append(m.Entries, Entry{Alias: id.Alias(alias), Spec: spec})
	}

	if err := m.validateUnique(); err != nil {
		return nil, err
	}

	return m, nil
}

func lookupFold(m map[string]any, key string) (any, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

// decodeToolValue normalizes a [tools] table value into its
// "scope/name@version" spec string, whether written as a bare string
// or a Foreman-style inline table.
func decodeToolValue(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case map[string]any:
		source, _ := v["source"].(string)
		version, _ := v["version"].(string)
		if source == "" {
			return "", fmt.Errorf("inline table missing \"source\"")
		}
		if version == "" {
			return source, nil
		}
		return source + "@" + version, nil
	default:
		return "", fmt.Errorf("unsupported tool value type %T", value)
	}
}

// orderedAliases recovers the order aliases appear in the [tools]
// table by scanning the raw text, since go-toml/v2's map decoding
// does not preserve key order.
func orderedAliases(data []byte) []string {
	var order []string
	inTools := false
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") {
			inTools = trimmed == "[tools]"
			continue
		}
		if !inTools || trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if match := aliasLinePattern.FindStringSubmatch(trimmed); match != nil {
			order = append(order, match[1])
		}
	}
	return order
}

func (m *Manifest) validateUnique() error {
	seen := make(map[string]bool, len(m.Entries))
	for _, e := range m.Entries {
		key := strings.ToLower(string(e.Alias))
		if seen[key] {
			return rerr.New(rerr.CategoryManifest, rerr.CodeManifestParse,
				fmt.Sprintf("manifest %s: duplicate alias %q (case-insensitive)", m.Path, e.Alias))
		}
		seen[key] = true
	}
	return nil
}

// Get looks up an alias case-insensitively.
func (m *Manifest) Get(alias string) (Entry, bool) {
	for _, e := range m.Entries {
		if strings.EqualFold(string(e.Alias), alias) {
			return e, true
		}
	}
	return Entry{}, false
}

// New returns an empty, writable rokit.toml manifest rooted at path.
// The file need not exist yet; Save will create it.
func New(path string) *Manifest {
	return &Manifest{Path: path, Kind: KindRokit}
}
