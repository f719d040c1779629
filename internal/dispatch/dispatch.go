// Package dispatch implements rokit's shim-invocation path: given the
// name a shim was invoked as, resolve which tool that alias names in
// the effective manifest, install it on first use if necessary, and
// replace the current process with the resolved binary. When no
// manifest binds the alias at all, dispatch falls through to whatever
// same-named executable is next on PATH, so a shimmed name never masks
// a system-installed tool a project doesn't manage.
package dispatch

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rojo-rbx/rokit/internal/manifest"
	"github.com/rojo-rbx/rokit/internal/orchestrator"
	"github.com/rojo-rbx/rokit/internal/progress"
	"github.com/rojo-rbx/rokit/internal/rerr"
)

// Dispatcher resolves a shim invocation to an installed tool binary.
type Dispatcher struct {
	orch   *orchestrator.Orchestrator
	binDir string
	log    progress.Logger
}

// New returns a Dispatcher. binDir is excluded from the PATH
// fall-through search so a missing binding never resolves back to the
// dispatcher's own shim and loops.
func New(orch *orchestrator.Orchestrator, binDir string) *Dispatcher {
	return &Dispatcher{orch: orch, binDir: binDir, log: progress.NewSlogLogger(nil)}
}

// WithLogger sets the logger.
func (d *Dispatcher) WithLogger(l progress.Logger) *Dispatcher { d.log = l; return d }

// AliasFromArgv0 derives the manifest alias a shim was invoked as:
// the invocation's base name, lowercased, with a trailing ".exe"
// stripped. rokit itself (the dispatcher's own name) is never a valid
// alias, since binding to it would shadow the CLI.
func AliasFromArgv0(argv0 string) string {
	base := filepath.Base(argv0)
	if i := strings.LastIndexAny(base, `\/`); i >= 0 {
		base = base[i+1:]
	}
	base = strings.TrimSuffix(strings.ToLower(base), ".exe")
	return base
}

// Resolve determines which ToolSpec alias names in the effective
// manifest rooted at cwd, installing it first if it isn't already in
// the store. If no manifest binds alias, Resolve returns a
// NoToolForAlias error; the caller is expected to fall back to
// ResolveOnPath.
func (d *Dispatcher) Resolve(ctx context.Context, alias, cwd string) (string, error) {
	bindings, err := manifest.Effective(cwd)
	if err != nil {
		return "", err
	}

	b, ok := bindings[strings.ToLower(alias)]
	if !ok {
		return "", rerr.New(rerr.CategoryDispatcher, rerr.CodeNoToolForAlias,
			"no manifest entry binds alias "+alias)
	}

	spec, err := d.orch.EnsureInstalled(ctx, b)
	if err != nil {
		return "", err
	}

	return d.orch.Store().Path(spec)
}

// ResolveOnPath searches PATH, skipping the bin directory that holds
// rokit's own shims, for an executable literally named alias. This is
// the scenario-6 fall-through: a name nothing in the manifest chain
// binds still works if the system happens to provide it.
func (d *Dispatcher) ResolveOnPath(alias string) (string, error) {
	wantName := alias
	if runtime.GOOS == "windows" {
		wantName += ".exe"
	}

	absBin, _ := filepath.Abs(d.binDir)

	for _, dir := range filepath.SplitList(os.Getenv("PATH")) {
		if dir == "" {
			continue
		}
		if absDir, err := filepath.Abs(dir); err == nil && absDir == absBin {
			continue
		}

		candidate := filepath.Join(dir, wantName)
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() {
			continue
		}
		if runtime.GOOS != "windows" && info.Mode()&0o111 == 0 {
			continue
		}
		return candidate, nil
	}

	return "", rerr.New(rerr.CategoryDispatcher, rerr.CodeNoToolForAlias,
		"no manifest entry or PATH executable provides "+alias)
}

// Dispatch is the full shim entry point: resolve alias (falling
// through to PATH when unbound) and replace the current process with
// the resolved binary, forwarding args and the environment unchanged.
// It does not return on success; on failure it returns the error the
// caller should report before exiting nonzero.
func Dispatch(ctx context.Context, d *Dispatcher, argv0 string, args []string, cwd string) error {
	alias := AliasFromArgv0(argv0)
	if alias == "" {
		return rerr.New(rerr.CategoryDispatcher, rerr.CodeNoToolForAlias, "invoked with an empty name")
	}

	binPath, err := d.Resolve(ctx, alias, cwd)
	if err != nil {
		if !isNoToolForAlias(err) {
			return err
		}
		binPath, err = d.ResolveOnPath(alias)
		if err != nil {
			return err
		}
		d.log.Debug("falling through to PATH executable", "alias", alias, "path", binPath)
	}

	return execBinary(binPath, args)
}

func isNoToolForAlias(err error) bool {
	var e *rerr.Error
	return rerr.AsError(err, &e) && e.Code == rerr.CodeNoToolForAlias
}
