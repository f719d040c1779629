// Package rpath resolves rokit's per-user directory layout: the tool
// store, the bin shim directory, and the download/extraction cache.
// Locations default to XDG-ish suffixes under the user's home
// directory but can be overridden with ROKIT_HOME and ROKIT_CACHE_DIR
// for testing and for unusual environments (containers, CI).
package rpath

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultHomeSuffix  = ".rokit"
	defaultCacheSuffix = ".cache/rokit"

	envHome  = "ROKIT_HOME"
	envCache = "ROKIT_CACHE_DIR"
)

// Dirs holds the resolved set of directories rokit reads from and
// writes to on this machine.
type Dirs struct {
	home     string
	cacheDir string
}

// Option configures Dirs.
type Option func(*Dirs)

// WithHome overrides the rokit home directory (normally
// $HOME/.rokit or $ROKIT_HOME).
func WithHome(dir string) Option {
	return func(d *Dirs) { d.home = dir }
}

// WithCacheDir overrides the cache directory (normally
// $HOME/.cache/rokit or $ROKIT_CACHE_DIR).
func WithCacheDir(dir string) Option {
	return func(d *Dirs) { d.cacheDir = dir }
}

// New resolves the Dirs for the current environment, honoring
// ROKIT_HOME and ROKIT_CACHE_DIR before falling back to defaults
// under the user's home directory.
func New(opts ...Option) (*Dirs, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	d := &Dirs{
		home:     filepath.Join(home, defaultHomeSuffix),
		cacheDir: filepath.Join(home, defaultCacheSuffix),
	}

	if v := os.Getenv(envHome); v != "" {
		expanded, err := Expand(v)
		if err != nil {
			return nil, err
		}
		d.home = expanded
	}
	if v := os.Getenv(envCache); v != "" {
		expanded, err := Expand(v)
		if err != nil {
			return nil, err
		}
		d.cacheDir = expanded
	}

	for _, opt := range opts {
		opt(d)
	}

	return d, nil
}

// Home returns rokit's root data directory.
func (d *Dirs) Home() string { return d.home }

// BinDir returns the directory where PATH shims are installed.
// Returns <home>/bin.
func (d *Dirs) BinDir() string {
	return filepath.Join(d.home, "bin")
}

// ToolsDir returns the content-addressed tool store root.
// Returns <home>/tool-storage.
func (d *Dirs) ToolsDir() string {
	return filepath.Join(d.home, "tool-storage")
}

// ToolVersionDir returns the install directory for one tool version.
// Returns <home>/tool-storage/<author>/<name>/<version>.
func (d *Dirs) ToolVersionDir(author, name, version string) string {
	return filepath.Join(d.ToolsDir(), author, name, version)
}

// InstalledManifestPath returns the path to the store's installed.json
// ledger.
func (d *Dirs) InstalledManifestPath() string {
	return filepath.Join(d.home, "installed.json")
}

// TrustFilePath returns the path to the trusted-author cache.
func (d *Dirs) TrustFilePath() string {
	return filepath.Join(d.home, "trust.json")
}

// LockFilePath returns the path to the store's advisory lock file.
func (d *Dirs) LockFilePath() string {
	return filepath.Join(d.home, "rokit.lock")
}

// CacheDir returns the root directory for downloaded archives pending
// extraction.
func (d *Dirs) CacheDir() string {
	return d.cacheDir
}

// EnsureAll creates the home, bin, tools, and cache directories if
// they don't already exist.
func (d *Dirs) EnsureAll() error {
	for _, dir := range []string{d.home, d.BinDir(), d.ToolsDir(), d.cacheDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// Expand expands a leading ~ to the user's home directory.
func Expand(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path == "~" {
		return os.UserHomeDir()
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}
