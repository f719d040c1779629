// Package orchestrator implements rokit's top-level flows: installing
// a manifest's full tool set, adding a tool, updating pinned versions,
// listing state, and self-install. It is grounded on the teacher's
// engine.go shape (Event/EventHandler, SetParallelism clamped to
// [1,MaxParallelism], bounded concurrency via
// golang.org/x/sync/semaphore), generalized from a multi-resource-kind
// DAG executor down to a single []ToolSpec batch — rokit has no
// cross-resource dependency graph to schedule.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"golang.org/x/sync/semaphore"

	"github.com/rojo-rbx/rokit/internal/extract"
	"github.com/rojo-rbx/rokit/internal/id"
	"github.com/rojo-rbx/rokit/internal/link"
	"github.com/rojo-rbx/rokit/internal/manifest"
	"github.com/rojo-rbx/rokit/internal/progress"
	"github.com/rojo-rbx/rokit/internal/rerr"
	"github.com/rojo-rbx/rokit/internal/rpath"
	"github.com/rojo-rbx/rokit/internal/selector"
	"github.com/rojo-rbx/rokit/internal/source"
	"github.com/rojo-rbx/rokit/internal/store"
)

const (
	// DefaultParallelism is the default number of concurrent tool
	// installations within one batch.
	DefaultParallelism = 4
	// MaxParallelism bounds SetParallelism.
	MaxParallelism = 20
)

// ToolResult is one tool's outcome within a batch operation.
type ToolResult struct {
	Alias string
	Spec  id.ToolSpec
	Err   error
}

// Report aggregates a batch operation's per-tool results. Failed()
// reports whether the caller should exit nonzero.
type Report struct {
	Results []ToolResult
}

// Failed reports whether any tool in the batch failed.
func (r Report) Failed() bool {
	for _, res := range r.Results {
		if res.Err != nil {
			return true
		}
	}
	return false
}

// Orchestrator ties together the manifest layer, source client,
// selector, extractor, store, and link manager into the CLI-facing
// operations.
type Orchestrator struct {
	dirs   *rpath.Dirs
	src    source.Client
	store  *store.Store
	trust  *store.TrustCache
	links  *link.Manager
	host   id.Host
	sink   progress.Sink
	log    progress.Logger
	prompt progress.TrustPrompter

	parallelism int
}

// New builds an Orchestrator. trust and sink/log/prompt may be
// replaced via the With* options below; sensible no-op defaults are
// used otherwise.
func New(dirs *rpath.Dirs, src source.Client, st *store.Store, trust *store.TrustCache) *Orchestrator {
	return &Orchestrator{
		dirs:        dirs,
		src:         src,
		store:       st,
		trust:       trust,
		links:       link.New(dirs.BinDir()),
		host:        id.DetectHost(),
		sink:        progress.NoopSink{},
		log:         progress.NewSlogLogger(nil),
		prompt:      progress.AutoDenyTrustPrompter{},
		parallelism: DefaultParallelism,
	}
}

// WithSink sets the progress sink.
func (o *Orchestrator) WithSink(s progress.Sink) *Orchestrator { o.sink = s; return o }

// WithLogger sets the logger.
func (o *Orchestrator) WithLogger(l progress.Logger) *Orchestrator { o.log = l; return o }

// WithTrustPrompter sets the trust prompter.
func (o *Orchestrator) WithTrustPrompter(p progress.TrustPrompter) *Orchestrator { o.prompt = p; return o }

// WithHost overrides the detected host descriptor; tests use this to
// exercise artifact selection for a host other than the one actually
// running the test.
func (o *Orchestrator) WithHost(h id.Host) *Orchestrator { o.host = h; return o }

// SetParallelism sets the number of concurrent tool installations,
// clamped to [1, MaxParallelism].
func (o *Orchestrator) SetParallelism(n int) {
	if n < 1 {
		n = 1
	}
	if n > MaxParallelism {
		n = MaxParallelism
	}
	o.parallelism = n
}

func (o *Orchestrator) emit(ev progress.Event) {
	if o.sink != nil {
		o.sink.Progress(ev)
	}
}

// InstallAll loads the effective manifest for cwd, installs every
// tool that is missing from the store (bounded concurrency), then
// refreshes the bin directory's shim set once for the whole batch.
func (o *Orchestrator) InstallAll(ctx context.Context, cwd string) (Report, error) {
	bindings, err := manifest.Effective(cwd)
	if err != nil {
		return Report{}, err
	}

	aliases := make([]string, 0, len(bindings))
	for alias := range bindings {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)

	report := o.installBatch(ctx, bindings, aliases)

	if err := o.refreshLinks(bindings); err != nil {
		return report, err
	}
	return report, nil
}

// installBatch resolves+installs every binding named in aliases with
// bounded concurrency, isolating each tool's failure from the others.
func (o *Orchestrator) installBatch(ctx context.Context, bindings map[string]manifest.Binding, aliases []string) Report {
	sem := semaphore.NewWeighted(int64(o.parallelism))
	var mu sync.Mutex
	var wg sync.WaitGroup
	results := make([]ToolResult, len(aliases))

	for i, alias := range aliases {
		i, alias := i, alias
		b := bindings[alias]

		if err := sem.Acquire(ctx, 1); err != nil {
			results[i] = ToolResult{Alias: alias, Err: rerr.New(rerr.CategoryCancelled, rerr.CodeCancelled, "batch cancelled")}
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			o.emit(progress.Event{Kind: progress.EventToolStart, Alias: alias})
			spec, err := o.resolveAndInstall(ctx, b.Alias, b.Id, b.Version)

			mu.Lock()
			results[i] = ToolResult{Alias: alias, Spec: spec, Err: err}
			mu.Unlock()

			if err != nil {
				o.emit(progress.Event{Kind: progress.EventToolError, Alias: alias, Err: err})
			} else {
				o.emit(progress.Event{Kind: progress.EventToolDone, Alias: alias, Spec: spec.String()})
			}
		}()
	}

	wg.Wait()
	return Report{Results: results}
}

// resolveAndInstall turns a (ToolId, VersionQuery) into an installed
// StoredTool: list releases, pick the best matching one, check trust,
// select the compatible artifact, download and extract it, and commit
// it to the store. If the spec is already installed, this is a cheap
// no-op beyond the release/version resolution.
func (o *Orchestrator) resolveAndInstall(ctx context.Context, alias id.Alias, tid id.ToolId, vq id.VersionQuery) (id.ToolSpec, error) {
	releases, err := o.src.ListReleases(ctx, tid.Scope, tid.Name)
	if err != nil {
		return id.ToolSpec{}, err
	}

	release, version, err := pickRelease(releases, vq)
	if err != nil {
		return id.ToolSpec{}, rerr.Wrap(rerr.CategorySource, rerr.CodeSourceTerminal,
			fmt.Sprintf("no release of %s matches %q", tid.ScopeName(), vq.Raw), err)
	}

	spec := id.ToolSpec{Id: tid, Version: version}

	if o.store.Has(spec) {
		return spec, nil
	}

	if !o.trust.Contains(tid) {
		if o.prompt.PromptTrust(tid) != progress.TrustAccept {
			return id.ToolSpec{}, rerr.New(rerr.CategoryTrust, rerr.CodeUntrustedTool,
				fmt.Sprintf("trust denied for %s", tid.Canonical()))
		}
		if err := o.trust.Add(tid); err != nil {
			return id.ToolSpec{}, err
		}
	}

	asset, err := selector.Select(release.Assets, o.host, tid.Name)
	if err != nil {
		return id.ToolSpec{}, err
	}

	body, err := o.src.FetchAsset(ctx, asset)
	if err != nil {
		return id.ToolSpec{}, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return id.ToolSpec{}, rerr.Wrap(rerr.CategorySource, rerr.CodeSourceTransient, "downloading "+asset.Name, err)
	}

	format := extract.DetectFormat(strings.ToLower(asset.Name))
	candidate, err := extract.Extract(format, asset.Name, data, tid.Name)
	if err != nil {
		return id.ToolSpec{}, err
	}

	want := extract.RequiredBinaryKind(string(o.host.OS))
	if candidate.Kind != want && candidate.Kind != extract.BinaryScript {
		return id.ToolSpec{}, rerr.New(rerr.CategoryExtract, rerr.CodeWrongBinaryKind,
			fmt.Sprintf("extracted binary for %s is not a valid %s executable", tid.ScopeName(), o.host.OS))
	}

	if _, err := o.store.Install(ctx, spec, candidate, asset.DownloadURL); err != nil {
		return id.ToolSpec{}, err
	}

	return spec, nil
}

// EnsureInstalled resolves b's version query against the source and
// installs it if it isn't already in the store, returning the
// concrete ToolSpec. Used by the dispatcher to install a tool on its
// first invocation rather than requiring a separate `rokit install`.
func (o *Orchestrator) EnsureInstalled(ctx context.Context, b manifest.Binding) (id.ToolSpec, error) {
	return o.resolveAndInstall(ctx, b.Alias, b.Id, b.Version)
}

// Store exposes the underlying tool store so the dispatcher can
// resolve a spec's on-disk binary path without duplicating store
// wiring.
func (o *Orchestrator) Store() *store.Store { return o.store }

// widenToMajorLine turns an exact-pinned version query into a
// constraint matching any release on the same major line, so `update`
// advances an exact pin to the newest compatible patch/minor instead
// of either leaving it frozen forever or jumping across a breaking
// major bump. Constraint and latest queries pass through unchanged.
func widenToMajorLine(vq id.VersionQuery) id.VersionQuery {
	if vq.Kind != id.ReqExact {
		return vq
	}
	c, err := semver.NewConstraint(fmt.Sprintf("^%d.0.0", vq.Exact.Major()))
	if err != nil {
		return vq
	}
	return id.VersionQuery{Kind: id.ReqConstraint, Constraint: c, Raw: vq.Raw}
}

// pickRelease finds the newest release satisfying vq among releases,
// which are assumed newest-first as source.Client guarantees.
func pickRelease(releases []source.Release, vq id.VersionQuery) (source.Release, *semver.Version, error) {
	for _, r := range releases {
		v, err := semver.NewVersion(strings.TrimPrefix(r.Version, "v"))
		if err != nil {
			continue
		}
		if vq.Kind == id.ReqLatest && r.Prerelease {
			continue
		}
		if vq.Matches(v) {
			return r, v, nil
		}
	}
	return source.Release{}, nil, fmt.Errorf("no matching release among %d candidates", len(releases))
}

// refreshLinks runs once per batch, after every install in it has
// settled, rewriting the bin directory's shim set to exactly the
// union of known aliases. Shims are copies/hard-links of the
// dispatcher binary itself (see internal/link), so only the alias set
// matters here, not each binding's resolved version.
func (o *Orchestrator) refreshLinks(bindings map[string]manifest.Binding) error {
	want := make(map[id.Alias]id.ToolSpec, len(bindings))
	for _, b := range bindings {
		want[b.Alias] = id.ToolSpec{Id: b.Id}
	}
	return o.links.Sync(want)
}

// Add resolves shorthandOrSpec to a concrete ToolSpec (picking the
// latest release matching an optional version constraint), installs
// it, writes the manifest entry, and refreshes links.
func (o *Orchestrator) Add(ctx context.Context, manifestPath string, alias id.Alias, shorthandOrSpec string) (id.ToolSpec, error) {
	tid, vq, err := parseAddTarget(shorthandOrSpec)
	if err != nil {
		return id.ToolSpec{}, err
	}

	spec, err := o.resolveAndInstall(ctx, alias, tid, vq)
	if err != nil {
		return id.ToolSpec{}, err
	}

	m, err := manifest.Load(manifestPath)
	if err != nil {
		m = manifest.New(manifestPath)
	}
	if err := m.Add(alias, spec.String()); err != nil {
		return id.ToolSpec{}, err
	}
	if err := m.Save(); err != nil {
		return id.ToolSpec{}, err
	}

	bindings, err := manifest.Effective(filepath.Dir(manifestPath))
	if err != nil {
		return spec, err
	}
	return spec, o.refreshLinks(bindings)
}

func parseAddTarget(raw string) (id.ToolId, id.VersionQuery, error) {
	idPart, versionPart, hasVersion := strings.Cut(raw, "@")

	tid, err := id.ParseToolId(idPart)
	if err != nil {
		if shortcut, ok := id.ResolveShortcut(idPart); ok {
			tid = shortcut
		} else {
			return id.ToolId{}, id.VersionQuery{}, err
		}
	}

	if !hasVersion {
		return tid, id.VersionQuery{Kind: id.ReqLatest}, nil
	}
	vq, err := id.ParseVersionQuery(versionPart)
	return tid, vq, err
}

// Update re-queries releases for the named aliases (or every alias in
// the effective manifest when aliases is empty) and installs the
// latest version matching each one's existing constraint. When
// checkOnly is true, no installation happens — the returned Report's
// Spec fields describe what *would* be installed.
func (o *Orchestrator) Update(ctx context.Context, cwd string, aliases []string, checkOnly bool) (Report, error) {
	bindings, err := manifest.Effective(cwd)
	if err != nil {
		return Report{}, err
	}

	targets := aliases
	if len(targets) == 0 {
		for alias := range bindings {
			targets = append(targets, alias)
		}
	}
	sort.Strings(targets)

	var results []ToolResult
	for _, alias := range targets {
		key := strings.ToLower(alias)
		b, ok := bindings[key]
		if !ok {
			results = append(results, ToolResult{Alias: alias, Err: rerr.New(rerr.CategorySpec, rerr.CodeSpecParse, "alias "+alias+" not found in any manifest")})
			continue
		}

		vq := widenToMajorLine(b.Version)

		if checkOnly {
			releases, err := o.src.ListReleases(ctx, b.Id.Scope, b.Id.Name)
			if err != nil {
				results = append(results, ToolResult{Alias: alias, Err: err})
				continue
			}
			_, v, err := pickRelease(releases, vq)
			if err != nil {
				results = append(results, ToolResult{Alias: alias, Err: err})
				continue
			}
			results = append(results, ToolResult{Alias: alias, Spec: id.ToolSpec{Id: b.Id, Version: v}})
			continue
		}

		spec, err := o.resolveAndInstall(ctx, b.Alias, b.Id, vq)
		results = append(results, ToolResult{Alias: alias, Spec: spec, Err: err})
	}

	report := Report{Results: results}
	if checkOnly {
		return report, nil
	}
	return report, o.refreshLinks(bindings)
}

// ListEntry is one row of `rokit list` output: an effective manifest
// binding plus whether it is currently installed.
type ListEntry struct {
	Alias     string
	Id        id.ToolId
	Version   string
	Installed bool
}

// List enumerates the effective manifest for cwd, annotated with
// store presence.
func (o *Orchestrator) List(cwd string) ([]ListEntry, error) {
	bindings, err := manifest.Effective(cwd)
	if err != nil {
		return nil, err
	}

	aliases := make([]string, 0, len(bindings))
	for alias := range bindings {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)

	installed, err := o.store.List()
	if err != nil {
		installed = nil
	}

	out := make([]ListEntry, 0, len(aliases))
	for _, alias := range aliases {
		b := bindings[alias]
		entry := ListEntry{Alias: string(b.Alias), Id: b.Id, Version: b.Version.Raw}

		for _, spec := range installed {
			if spec.Id.EqualFold(b.Id) && b.Version.Matches(spec.Version) {
				entry.Installed = true
				entry.Version = spec.Version.String()
				break
			}
		}
		out = append(out, entry)
	}
	return out, nil
}

// SelfInstall creates rokit's data directories if missing, places the
// dispatcher binary into bin/, and ensures bin/ is on PATH via editor.
// It is idempotent: re-running it with the same inputs is a no-op
// beyond the shell-profile check.
func (o *Orchestrator) SelfInstall(dispatcherBinaryPath string, editor progress.ShellProfileEditor) error {
	if err := o.dirs.EnsureAll(); err != nil {
		return rerr.Wrap(rerr.CategoryStore, rerr.CodeStoreIO, "creating rokit data directories", err)
	}
	if err := o.links.EnsureDispatcher(dispatcherBinaryPath); err != nil {
		return err
	}
	if editor == nil {
		editor = progress.NoopShellProfileEditor{}
	}
	return editor.EnsureOnPath(o.dirs.BinDir())
}
