// Package link maintains rokit's bin directory: one executable shim
// per known alias, plus the dispatcher binary itself. Shims are
// hard-links (or, across volumes, copies) of the dispatcher — never
// symlinks, since some Windows consumers refuse to launch a symlinked
// executable and shim invocation needs argv[0] to equal the shim name,
// which only a real file (or hardlink to one) reliably preserves.
package link

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/rojo-rbx/rokit/internal/id"
	"github.com/rojo-rbx/rokit/internal/rerr"
)

// DispatcherName is the bin-directory filename for rokit's own
// dispatcher binary.
const DispatcherName = "rokit"

// Manager maintains the bin directory's shim set.
type Manager struct {
	binDir string
}

// New returns a Manager rooted at binDir.
func New(binDir string) *Manager {
	return &Manager{binDir: binDir}
}

func shimName(alias id.Alias) string {
	name := id.CanonicalAlias(alias)
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

func (m *Manager) dispatcherPath() string {
	name := DispatcherName
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(m.binDir, name)
}

// EnsureDispatcher places (or refreshes, if its content differs from
// dispatcherBinaryPath) the dispatcher binary itself at
// <binDir>/rokit[.exe]. On Windows this always copies, never links, so
// a running dispatcher never holds a lock against its own self-update
// replacing the file it's linked from.
func (m *Manager) EnsureDispatcher(dispatcherBinaryPath string) error {
	if err := os.MkdirAll(m.binDir, 0o755); err != nil {
		return rerr.Wrap(rerr.CategoryDispatcher, rerr.CodeStoreIO, "creating bin directory", err)
	}
	dst := m.dispatcherPath()
	if sameFile(dispatcherBinaryPath, dst) {
		return nil
	}

	if runtime.GOOS == "windows" {
		return copyFile(dispatcherBinaryPath, dst)
	}
	return m.place(dispatcherBinaryPath, dst)
}

// Sync regenerates shims for exactly the aliases in bindings, pointing
// each at the dispatcher. Existing shims whose content already matches
// are left alone; shims for aliases no longer present are removed.
// Regeneration is idempotent — running it twice with the same bindings
// produces no filesystem churn beyond the first run.
func (m *Manager) Sync(bindings map[id.Alias]id.ToolSpec) error {
	if err := os.MkdirAll(m.binDir, 0o755); err != nil {
		return rerr.Wrap(rerr.CategoryDispatcher, rerr.CodeStoreIO, "creating bin directory", err)
	}

	dispatcher := m.dispatcherPath()
	if _, err := os.Stat(dispatcher); err != nil {
		return rerr.Wrap(rerr.CategoryDispatcher, rerr.CodeStoreIO, "dispatcher not yet installed at "+dispatcher, err)
	}

	want := make(map[string]bool, len(bindings))
	for alias := range bindings {
		want[shimName(alias)] = true
	}

	existing, err := m.existingShims()
	if err != nil {
		return err
	}

	for name := range want {
		path := filepath.Join(m.binDir, name)
		if sameFile(path, dispatcher) {
			continue
		}
		if err := m.place(dispatcher, path); err != nil {
			return err
		}
	}

	for _, name := range existing {
		if name == filepath.Base(dispatcher) {
			continue
		}
		if want[name] {
			continue
		}
		os.Remove(filepath.Join(m.binDir, name))
	}

	return nil
}

// existingShims lists the current bin-directory entries, sorted for
// deterministic iteration in tests.
func (m *Manager) existingShims() ([]string, error) {
	entries, err := os.ReadDir(m.binDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, rerr.Wrap(rerr.CategoryDispatcher, rerr.CodeStoreIO, "listing bin directory", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// place hard-links src to dst when possible (same volume), falling
// back to a full copy across volumes or when the filesystem doesn't
// support hard links at all.
func (m *Manager) place(src, dst string) error {
	os.Remove(dst)
	if err := os.Link(src, dst); err == nil {
		return nil
	}
	return copyFile(src, dst)
}

func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return rerr.Wrap(rerr.CategoryDispatcher, rerr.CodeStoreIO, "stat "+src, err)
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return rerr.Wrap(rerr.CategoryDispatcher, rerr.CodeStoreIO, "reading "+src, err)
	}

	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, data, info.Mode()); err != nil {
		return rerr.Wrap(rerr.CategoryDispatcher, rerr.CodeStoreIO, "writing "+tmp, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return rerr.Wrap(rerr.CategoryDispatcher, rerr.CodeStoreIO, "renaming "+tmp+" to "+dst, err)
	}
	return nil
}

// sameFile reports whether path is already a hard link to (or a
// byte-identical copy of) target, so Sync can skip a no-op rewrite.
func sameFile(path, target string) bool {
	pi, err := os.Stat(path)
	if err != nil {
		return false
	}
	ti, err := os.Stat(target)
	if err != nil {
		return false
	}
	if os.SameFile(pi, ti) {
		return true
	}
	if pi.Size() != ti.Size() {
		return false
	}
	a, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	b, err := os.ReadFile(target)
	if err != nil {
		return false
	}
	return string(a) == string(b)
}

// BinDir returns the managed directory.
func (m *Manager) BinDir() string { return m.binDir }
