// Package source defines the interface rokit uses to discover
// releases and fetch release assets for a tool. The only
// implementation shipped is GitHub Releases (internal/source/github),
// but resolution and selection code depend only on this interface so
// a second source (e.g. a private artifact mirror) could be added
// without touching the selector or store.
package source

import (
	"context"
	"io"
	"time"
)

// Asset is one downloadable file attached to a release.
type Asset struct {
	Name        string
	DownloadURL string
	Size        int64
}

// Release is a single published version of a tool, together with the
// assets attached to it.
type Release struct {
	TagName     string
	Version     string // TagName with a leading "v" stripped; other prefixes are kept
	Prerelease  bool
	PublishedAt time.Time
	Assets      []Asset
}

// Client resolves releases and streams asset bodies for a single
// tool's repository.
type Client interface {
	// ListReleases returns the tool's releases, newest first. Used to
	// resolve "latest" and constraint-based version specs.
	ListReleases(ctx context.Context, author, name string) ([]Release, error)

	// GetRelease returns the single release tagged with the given
	// version (with the canonical "v" prefix attempts already tried by
	// the caller).
	GetRelease(ctx context.Context, author, name, tag string) (Release, error)

	// FetchAsset streams the asset body. The caller is responsible for
	// closing the returned ReadCloser.
	FetchAsset(ctx context.Context, asset Asset) (io.ReadCloser, error)
}
