package id

import (
	"os"
	"path/filepath"
)

// detectLibc makes a best-effort guess at the host's C library by
// checking for glibc's or musl's dynamic loader in the usual spots.
// Neither is guaranteed to be mounted there inside minimal containers,
// in which case the tiebreaker axis is simply unavailable.
func detectLibc() Libc {
	muslGlobs := []string{
		"/lib/ld-musl-*.so.1",
		"/usr/lib/ld-musl-*.so.1",
	}
	for _, pattern := range muslGlobs {
		if matches, _ := filepath.Glob(pattern); len(matches) > 0 {
			return LibcMusl
		}
	}

	glibcCandidates := []string{
		"/lib/x86_64-linux-gnu/libc.so.6",
		"/lib64/libc.so.6",
		"/lib/libc.so.6",
	}
	for _, path := range glibcCandidates {
		if _, err := os.Stat(path); err == nil {
			return LibcGNU
		}
	}

	return LibcUnknown
}
