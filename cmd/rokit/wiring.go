package main

import (
	"github.com/rojo-rbx/rokit/internal/dispatch"
	"github.com/rojo-rbx/rokit/internal/ghauth"
	"github.com/rojo-rbx/rokit/internal/orchestrator"
	"github.com/rojo-rbx/rokit/internal/rpath"
	"github.com/rojo-rbx/rokit/internal/shellprofile"
	"github.com/rojo-rbx/rokit/internal/source/github"
	"github.com/rojo-rbx/rokit/internal/store"
	"github.com/rojo-rbx/rokit/cmd/rokit/ui"
)

// newOrchestrator wires the full production dependency graph: real
// directories, the GitHub source client (token-authenticated when one
// is available in the environment), the on-disk store and trust
// cache, and the terminal-facing progress/trust collaborators.
func newOrchestrator() (*orchestrator.Orchestrator, *rpath.Dirs, error) {
	dirs, err := rpath.New()
	if err != nil {
		return nil, nil, err
	}
	if err := dirs.EnsureAll(); err != nil {
		return nil, nil, err
	}

	httpClient := ghauth.NewHTTPClient(ghauth.TokenFromEnv())
	src := github.New(httpClient)
	src.UserAgent = "rokit/" + version

	st := store.New(dirs)
	trust, err := store.LoadTrustCache(dirs.TrustFilePath())
	if err != nil {
		return nil, nil, err
	}

	o := orchestrator.New(dirs, src, st, trust).
		WithSink(ui.NewProgressSink(colorableStderr(), ui.IsTTY())).
		WithLogger(newLogger()).
		WithTrustPrompter(ui.TrustPrompter{})

	return o, dirs, nil
}

// newDispatcher wires the dispatcher path on top of the same
// orchestrator as the CLI commands (progress sink and interactive
// trust prompt included), so a shim invocation auto-installs missing
// tools on first use.
func newDispatcher() (*dispatch.Dispatcher, error) {
	o, dirs, err := newOrchestrator()
	if err != nil {
		return nil, err
	}
	return dispatch.New(o, dirs.BinDir()).WithLogger(newLogger()), nil
}

func newShellProfileEditor(dirs *rpath.Dirs) *shellprofile.Editor {
	return shellprofile.New(dirs.Home())
}
