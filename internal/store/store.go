// Package store manages rokit's on-disk tool store: the
// provider/scope/name/version tree under tool-storage, each version's
// installed.json sidecar, and the advisory locking that lets two
// processes race to install the same ToolSpec without corrupting it or
// downloading it twice.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/gofrs/flock"

	"github.com/rojo-rbx/rokit/internal/extract"
	"github.com/rojo-rbx/rokit/internal/id"
	"github.com/rojo-rbx/rokit/internal/rerr"
	"github.com/rojo-rbx/rokit/internal/rfile"
	"github.com/rojo-rbx/rokit/internal/rpath"
)

// lockTimeout bounds how long Install waits for a concurrent installer
// of the same spec to finish before giving up.
const lockTimeout = 5 * time.Minute

// Sidecar is the installed.json metadata written alongside every
// stored tool's binary.
type Sidecar struct {
	Provider    string    `json:"provider"`
	Scope       string    `json:"scope"`
	Name        string    `json:"name"`
	Version     string    `json:"version"`
	BinaryName  string    `json:"binaryName"`
	BinaryKind  string    `json:"binaryKind"`
	SourceURL   string    `json:"sourceUrl"`
	InstalledAt time.Time `json:"installedAt"`
}

// StoredTool pairs a resolved ToolSpec with its on-disk location and
// sidecar metadata.
type StoredTool struct {
	Spec       id.ToolSpec
	Dir        string
	BinaryPath string
	Sidecar    Sidecar
}

// Store is the content-addressed tool store rooted at dirs.ToolsDir().
type Store struct {
	dirs *rpath.Dirs
}

// New returns a Store backed by dirs.
func New(dirs *rpath.Dirs) *Store {
	return &Store{dirs: dirs}
}

func binaryKindName(k extract.BinaryKind) string {
	switch k {
	case extract.BinaryELF:
		return "elf"
	case extract.BinaryMachO:
		return "macho"
	case extract.BinaryPE:
		return "pe"
	case extract.BinaryScript:
		return "script"
	default:
		return "unknown"
	}
}

// versionDir returns the lowercase provider/scope/name/version
// directory for spec, per the filesystem-layout invariant that every
// path segment below tool-storage is lowercase.
func (s *Store) versionDir(spec id.ToolSpec) string {
	return filepath.Join(
		s.dirs.ToolsDir(),
		strings.ToLower(string(spec.Id.Provider)),
		strings.ToLower(spec.Id.Scope),
		strings.ToLower(spec.Id.Name),
		spec.Version.String(),
	)
}

func (s *Store) sidecarPath(spec id.ToolSpec) string {
	return filepath.Join(s.versionDir(spec), "installed.json")
}

func (s *Store) lockPath(spec id.ToolSpec) string {
	return s.versionDir(spec) + ".lock"
}

// Has reports whether spec is already installed (sidecar present and
// parses, and the binary it names exists).
func (s *Store) Has(spec id.ToolSpec) bool {
	sc, err := s.readSidecar(spec)
	if err != nil {
		return false
	}
	if _, err := os.Stat(filepath.Join(s.versionDir(spec), sc.BinaryName)); err != nil {
		return false
	}
	return true
}

// Path returns the path to spec's installed binary as named by its
// installed.json sidecar; it returns an error when the sidecar is
// missing or unreadable. It does not check that the binary exists.
func (s *Store) Path(spec id.ToolSpec) (string, error) {
	sc, err := s.readSidecar(spec)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.versionDir(spec), sc.BinaryName), nil
}

func (s *Store) readSidecar(spec id.ToolSpec) (Sidecar, error) {
	data, err := os.ReadFile(s.sidecarPath(spec))
	if err != nil {
		return Sidecar{}, rerr.Wrap(rerr.CategoryStore, rerr.CodeStoreIO, "reading sidecar for "+spec.String(), err)
	}
	var sc Sidecar
	if err := json.Unmarshal(data, &sc); err != nil {
		return Sidecar{}, rerr.Wrap(rerr.CategoryStore, rerr.CodeStoreIO, "parsing sidecar for "+spec.String(), err)
	}
	return sc, nil
}

// Install places candidate's executable into the store under spec,
// unless it is already there. Concurrent Install calls for the same
// spec serialize on a per-version advisory lockfile: the loser blocks
// until the winner finishes, then simply observes the winner's result
// rather than re-downloading or re-extracting — satisfying the
// exactly-one-StoredTool invariant without a distributed coordinator.
func (s *Store) Install(ctx context.Context, spec id.ToolSpec, candidate extract.Candidate, sourceURL string) (*StoredTool, error) {
	dest := s.versionDir(spec)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, rerr.Wrap(rerr.CategoryStore, rerr.CodeStoreIO, "creating store directory", err)
	}

	lock := flock.New(s.lockPath(spec))
	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	locked, err := lock.TryLockContext(lockCtx, 50*time.Millisecond)
	if err != nil || !locked {
		if err == nil {
			err = fmt.Errorf("timed out waiting for lock")
		}
		return nil, rerr.Wrap(rerr.CategoryStore, rerr.CodeStoreLockTimeout,
			"waiting for install lock on "+spec.String(), err)
	}
	defer lock.Unlock()

	if s.Has(spec) {
		return s.Get(spec)
	}

	tmpRoot := filepath.Join(s.dirs.ToolsDir(), ".tmp")
	if err := os.MkdirAll(tmpRoot, 0o755); err != nil {
		return nil, rerr.Wrap(rerr.CategoryStore, rerr.CodeStoreIO, "creating temp root directory", err)
	}
	tmpDir, err := os.MkdirTemp(tmpRoot, "install-*")
	if err != nil {
		return nil, rerr.Wrap(rerr.CategoryStore, rerr.CodeStoreIO, "creating temp install directory", err)
	}
	defer os.RemoveAll(tmpDir)

	binName := candidate.Name
	binPath := filepath.Join(tmpDir, binName)
	if err := os.WriteFile(binPath, candidate.Data, 0o644); err != nil {
		return nil, rerr.Wrap(rerr.CategoryStore, rerr.CodeStoreIO, "writing binary", err)
	}
	if err := extract.MakeExecutable(binPath); err != nil {
		return nil, rerr.Wrap(rerr.CategoryStore, rerr.CodeStoreIO, "setting executable bit", err)
	}

	sc := Sidecar{
		Provider:    string(spec.Id.Provider),
		Scope:       spec.Id.Scope,
		Name:        spec.Id.Name,
		Version:     spec.Version.String(),
		BinaryName:  binName,
		BinaryKind:  binaryKindName(candidate.Kind),
		SourceURL:   sourceURL,
		InstalledAt: installedAtNow(),
	}
	scData, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return nil, rerr.Wrap(rerr.CategoryStore, rerr.CodeStoreIO, "marshaling sidecar", err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "installed.json"), scData, 0o644); err != nil {
		return nil, rerr.Wrap(rerr.CategoryStore, rerr.CodeStoreIO, "writing sidecar", err)
	}

	ok, err := rfile.RenameDir(tmpDir, dest)
	if err != nil {
		return nil, rerr.Wrap(rerr.CategoryStore, rerr.CodeStoreIO, "placing install directory", err)
	}
	if !ok {
		// Another process completed the install between our Has()
		// check and our rename; defer to its result.
		return s.Get(spec)
	}

	return &StoredTool{Spec: spec, Dir: dest, BinaryPath: filepath.Join(dest, binName), Sidecar: sc}, nil
}

// installedAtNow exists so tests can exercise Install deterministically
// by overriding it; production code always reports wall-clock time.
var installedAtNow = func() time.Time { return time.Now().UTC() }

// Get loads the StoredTool for an already-installed spec.
func (s *Store) Get(spec id.ToolSpec) (*StoredTool, error) {
	sc, err := s.readSidecar(spec)
	if err != nil {
		return nil, err
	}
	dir := s.versionDir(spec)
	return &StoredTool{
		Spec:       spec,
		Dir:        dir,
		BinaryPath: filepath.Join(dir, sc.BinaryName),
		Sidecar:    sc,
	}, nil
}

// Remove deletes a stored tool version entirely.
func (s *Store) Remove(spec id.ToolSpec) error {
	if err := os.RemoveAll(s.versionDir(spec)); err != nil {
		return rerr.Wrap(rerr.CategoryStore, rerr.CodeStoreIO, "removing "+spec.String(), err)
	}
	os.Remove(s.lockPath(spec))
	return nil
}

// List walks the store and returns every installed ToolSpec, sorted by
// canonical identity then version for deterministic output.
func (s *Store) List() ([]id.ToolSpec, error) {
	root := s.dirs.ToolsDir()
	var out []id.ToolSpec

	providers, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, rerr.Wrap(rerr.CategoryStore, rerr.CodeStoreIO, "listing "+root, err)
	}

	for _, p := range providers {
		if !p.IsDir() || strings.HasPrefix(p.Name(), ".") {
			continue
		}
		scopes, err := os.ReadDir(filepath.Join(root, p.Name()))
		if err != nil {
			continue
		}
		for _, sc := range scopes {
			if !sc.IsDir() {
				continue
			}
			names, err := os.ReadDir(filepath.Join(root, p.Name(), sc.Name()))
			if err != nil {
				continue
			}
			for _, n := range names {
				if !n.IsDir() {
					continue
				}
				versions, err := os.ReadDir(filepath.Join(root, p.Name(), sc.Name(), n.Name()))
				if err != nil {
					continue
				}
				for _, v := range versions {
					if !v.IsDir() {
						continue
					}
					ver, err := semver.NewVersion(v.Name())
					if err != nil {
						continue
					}
					out = append(out, id.ToolSpec{
						Id: id.ToolId{
							Provider: id.Provider(p.Name()),
							Scope:    sc.Name(),
							Name:     n.Name(),
						},
						Version: ver,
					})
				}
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Id.Canonical() != out[j].Id.Canonical() {
			return out[i].Id.Canonical() < out[j].Id.Canonical()
		}
		return out[i].Version.LessThan(out[j].Version)
	})
	return out, nil
}
