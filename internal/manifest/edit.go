package manifest

import (
	"fmt"
	"os"
	"strings"

	"github.com/rojo-rbx/rokit/internal/id"
	"github.com/rojo-rbx/rokit/internal/rerr"
)

// Add inserts or replaces an alias's spec. An existing entry whose
// alias matches case-insensitively is replaced in place and takes the
// new alias's casing. Save later writes the change as an in-place text
// edit: existing formatting, comments, and the position of other
// entries are left untouched. Returns an error only for a read-only
// manifest.
func (m *Manifest) Add(alias id.Alias, spec string) error {
	if !m.Kind.writable() {
		return rerr.New(rerr.CategoryManifest, rerr.CodeManifestIO, "cannot edit read-only manifest "+m.Path)
	}

	for i, e := range m.Entries {
		if strings.EqualFold(string(e.Alias), string(alias)) {
			m.Entries[i].Spec = spec
			m.Entries[i].Alias = alias
			return nil
		}
	}

	m.Entries = append(m.Entries, Entry{Alias: alias, Spec: spec})
	return nil
}

// Remove deletes an alias (case-insensitively). Reports whether an
// entry was actually removed.
func (m *Manifest) Remove(alias string) bool {
	for i, e := range m.Entries {
		if strings.EqualFold(string(e.Alias), alias) {
			m.Entries = append(m.Entries[:i], m.Entries[i+1:]...)
			return true
		}
	}
	return false
}

// Save writes the manifest back to Path. When the file already
// existed, the [tools] table is rewritten line-by-line in place and
// everything outside it (comments, other tables) is preserved
// verbatim; entries absent from the original text are appended at the
// end of the table. A manifest with no backing text yet is written
// fresh with a single [tools] table.
func (m *Manifest) Save() error {
	if !m.Kind.writable() {
		return rerr.New(rerr.CategoryManifest, rerr.CodeManifestIO, "cannot save read-only manifest "+m.Path)
	}

	var out string
	if m.raw == nil {
		out = renderFresh(m.Entries)
	} else {
		out = renderPatched(string(m.raw), m.Entries)
	}

	if err := os.WriteFile(m.Path, []byte(out), 0o644); err != nil {
		return rerr.Wrap(rerr.CategoryManifest, rerr.CodeManifestIO, "writing manifest "+m.Path, err)
	}
	m.raw = []byte(out)
	return nil
}

func renderFresh(entries []Entry) string {
	var b strings.Builder
	b.WriteString("[tools]\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "%s = %q\n", e.Alias, e.Spec)
	}
	return b.String()
}

// renderPatched rewrites the [tools] section of original text in
// place, replacing lines for known aliases, dropping lines for
// removed aliases, and appending new entries at the end of the
// section. Every other line (other tables, comments, blank lines) is
// copied through unchanged.
func renderPatched(original string, entries []Entry) string {
	want := make(map[string]string, len(entries))
	order := make([]string, 0, len(entries))
	for _, e := range entries {
		key := strings.ToLower(string(e.Alias))
		want[key] = fmt.Sprintf("%s = %q", e.Alias, e.Spec)
		order = append(order, key)
	}
	emitted := make(map[string]bool, len(entries))

	lines := strings.Split(original, "\n")
	var out []string
	inTools := false
	toolsSeen := false
	toolsEndIdx := -1

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "[") {
			if inTools {
				out = appendMissing(out, want, order, emitted)
				toolsEndIdx = len(out)
			}
			inTools = trimmed == "[tools]"
			if inTools {
				toolsSeen = true
			}
			out = append(out, line)
			continue
		}

		if !inTools {
			out = append(out, line)
			continue
		}

		if match := aliasLinePattern.FindStringSubmatch(trimmed); match != nil {
			key := strings.ToLower(match[1])
			if replacement, ok := want[key]; ok {
				out = append(out, replacement)
				emitted[key] = true
			}
			// entries removed from `entries` are simply dropped
			continue
		}

		out = append(out, line)
	}

	if inTools {
		out = appendMissing(out, want, order, emitted)
		toolsEndIdx = len(out)
	}

	if !toolsSeen {
		if len(out) > 0 && strings.TrimSpace(out[len(out)-1]) != "" {
			out = append(out, "")
		}
		out = append(out, "[tools]")
		out = appendMissing(out, want, order, emitted)
		toolsEndIdx = len(out)
	}

	_ = toolsEndIdx
	return strings.Join(out, "\n")
}

func appendMissing(out []string, want map[string]string, order []string, emitted map[string]bool) []string {
	for _, key := range order {
		if !emitted[key] {
			out = append(out, want[key])
			emitted[key] = true
		}
	}
	return out
}
