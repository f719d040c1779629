package manifest

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/rojo-rbx/rokit/internal/id"
	"github.com/rojo-rbx/rokit/internal/rerr"
)

// Binding is one resolved manifest entry: the alias as written, and
// the tool identity plus version query it points to.
type Binding struct {
	Alias   id.Alias
	Id      id.ToolId
	Version id.VersionQuery
	From    string // path of the manifest that won this alias
}

// Effective computes the union of every manifest discoverable from
// cwd, with nearer manifests winning on alias collision (case folded).
// A manifest whose own aliases collide with themselves was already
// rejected at Load time.
func Effective(cwd string) (map[string]Binding, error) {
	paths, err := Discover(cwd)
	if err != nil {
		return nil, err
	}

	result := make(map[string]Binding)
	for _, path := range paths {
		m, err := Load(path)
		if err != nil {
			return nil, err
		}
		for _, e := range m.Entries {
			key := strings.ToLower(string(e.Alias))
			if _, already := result[key]; already {
				continue // a nearer manifest already claimed this alias
			}

			tid, vq, ok, warnErr := resolveEntry(m.Kind, e)
			if warnErr != nil {
				return nil, warnErr
			}
			if !ok {
				continue // dropped: non-GitHub host in a compat manifest
			}

			result[key] = Binding{Alias: e.Alias, Id: tid, Version: vq, From: path}
		}
	}

	return result, nil
}

// resolveEntry turns a raw manifest Entry into a ToolId+VersionQuery.
// For foreman/aftman manifests, entries naming a non-GitHub host are
// dropped (ok=false) rather than erroring, per the compatibility rule;
// the manifest as a whole still loads.
func resolveEntry(kind Kind, e Entry) (id.ToolId, id.VersionQuery, bool, error) {
	spec := e.Spec

	if strings.Contains(spec, "://") {
		if kind == KindRokit {
			return id.ToolId{}, id.VersionQuery{}, false, rerr.New(rerr.CategorySpec, rerr.CodeSpecParse,
				fmt.Sprintf("tool %q: rokit.toml entries must be GitHub \"scope/name[@version]\", got %q", e.Alias, spec))
		}
		slog.Warn("dropping manifest entry with non-GitHub host", "tool", e.Alias, "spec", spec)
		return id.ToolId{}, id.VersionQuery{}, false, nil
	}

	idPart, versionPart, hasVersion := strings.Cut(spec, "@")

	tid, err := id.ParseToolId(idPart)
	if err != nil {
		if shortcut, ok := id.ResolveShortcut(idPart); ok {
			tid = shortcut
		} else {
			return id.ToolId{}, id.VersionQuery{}, false, rerr.Wrap(rerr.CategorySpec, rerr.CodeSpecParse,
				fmt.Sprintf("tool %q: invalid spec %q", e.Alias, spec), err)
		}
	}

	var vq id.VersionQuery
	if hasVersion {
		vq, err = id.ParseVersionQuery(versionPart)
		if err != nil {
			return id.ToolId{}, id.VersionQuery{}, false, rerr.Wrap(rerr.CategorySpec, rerr.CodeSpecParse,
				fmt.Sprintf("tool %q: invalid version in %q", e.Alias, spec), err)
		}
	} else {
		vq = id.VersionQuery{Kind: id.ReqLatest}
	}

	return tid, vq, true, nil
}
