// Package rfile provides the small atomic-write primitive rokit uses
// anywhere a file must never be observed half-written: trust.json,
// installed.json sidecars, and the tool store's final binary rename.
package rfile

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteAtomic writes data to path by writing a sibling temp file and
// renaming it into place, so a crash or a concurrent reader never sees
// a partial file. perm is applied to the temp file before the rename.
func WriteAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".rfile-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file %s: %w", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("chmod temp file %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming %s to %s: %w", tmpPath, path, err)
	}
	return nil
}

// RenameDir moves a fully-populated temp directory onto its final
// path with a single rename, the same atomicity trick applied to a
// whole directory tree rather than one file. If dst already exists
// (another process won the race), src is discarded and ok is false.
func RenameDir(src, dst string) (ok bool, err error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return false, fmt.Errorf("creating directory %s: %w", filepath.Dir(dst), err)
	}
	if _, statErr := os.Stat(dst); statErr == nil {
		os.RemoveAll(src)
		return false, nil
	}
	if err := os.Rename(src, dst); err != nil {
		if _, statErr := os.Stat(dst); statErr == nil {
			os.RemoveAll(src)
			return false, nil
		}
		return false, fmt.Errorf("renaming %s to %s: %w", src, dst, err)
	}
	return true, nil
}
