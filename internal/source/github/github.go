// Package github implements source.Client against the GitHub REST API
// (releases) and GitHub's asset download CDN, with exponential-backoff
// retry for transient network and rate-limit failures.
package github

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/rojo-rbx/rokit/internal/rerr"
	"github.com/rojo-rbx/rokit/internal/source"
)

const defaultAPIBase = "https://api.github.com"

// defaultUserAgent identifies rokit itself when no build version has
// been wired in by the caller (e.g. in tests).
const defaultUserAgent = "rokit/dev"

// Client talks to the GitHub REST API for release metadata and
// follows asset download URLs for binary content.
type Client struct {
	HTTP       *http.Client
	MaxRetries uint

	// APIBase overrides the GitHub API origin; tests point it at an
	// httptest.Server standing in for github.com. Production code
	// leaves it empty to use defaultAPIBase.
	APIBase string

	// UserAgent identifies the rokit release making the request.
	// cmd/rokit sets this to "rokit/<version>" at wiring time.
	UserAgent string
}

// New returns a Client using httpClient for requests. If httpClient is
// nil, http.DefaultClient is used (callers normally pass the
// token-injecting client from internal/ghauth).
func New(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{HTTP: httpClient, MaxRetries: 4, UserAgent: defaultUserAgent}
}

func (c *Client) userAgent() string {
	if c.UserAgent != "" {
		return c.UserAgent
	}
	return defaultUserAgent
}

func (c *Client) apiBase() string {
	if c.APIBase != "" {
		return c.APIBase
	}
	return defaultAPIBase
}

type releaseDTO struct {
	TagName     string    `json:"tag_name"`
	Prerelease  bool      `json:"prerelease"`
	PublishedAt time.Time `json:"published_at"`
	Assets      []struct {
		Name               string `json:"name"`
		Size               int64  `json:"size"`
		BrowserDownloadURL string `json:"browser_download_url"`
	} `json:"assets"`
}

func (d releaseDTO) toRelease() source.Release {
	r := source.Release{
		TagName:     d.TagName,
		Version:     normalizeTag(d.TagName),
		Prerelease:  d.Prerelease,
		PublishedAt: d.PublishedAt,
	}
	for _, a := range d.Assets {
		r.Assets = append(r.Assets, source.Asset{
			Name:        a.Name,
			DownloadURL: a.BrowserDownloadURL,
			Size:        a.Size,
		})
	}
	return r
}

// normalizeTag strips a leading "v" from a tag name, the convention
// nearly every GitHub-released CLI tool follows (v1.4.0 -> 1.4.0).
// Tags that don't start with a digit after stripping are left as-is,
// since some tools prefix releases with their own name instead.
func normalizeTag(tag string) string {
	trimmed := strings.TrimPrefix(tag, "v")
	if trimmed == "" {
		return tag
	}
	if trimmed[0] >= '0' && trimmed[0] <= '9' {
		return trimmed
	}
	return tag
}

// ListReleases returns up to 100 most recent releases, newest first,
// matching GitHub's default ordering.
func (c *Client) ListReleases(ctx context.Context, author, name string) ([]source.Release, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/releases?per_page=100", c.apiBase(), author, name)
	var dtos []releaseDTO
	if err := c.getJSON(ctx, url, &dtos); err != nil {
		return nil, err
	}

	releases := make([]source.Release, 0, len(dtos))
	for _, d := range dtos {
		releases = append(releases, d.toRelease())
	}
	return releases, nil
}

// GetRelease fetches the release tagged exactly tag.
func (c *Client) GetRelease(ctx context.Context, author, name, tag string) (source.Release, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/releases/tags/%s", c.apiBase(), author, name, tag)
	var dto releaseDTO
	if err := c.getJSON(ctx, url, &dto); err != nil {
		return source.Release{}, err
	}
	return dto.toRelease(), nil
}

// FetchAsset streams the asset's bytes from its download URL.
func (c *Client) FetchAsset(ctx context.Context, asset source.Asset) (io.ReadCloser, error) {
	resp, err := c.doWithRetry(ctx, asset.DownloadURL, "application/octet-stream")
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	resp, err := c.doWithRetry(ctx, url, "application/vnd.github+json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return rerr.Wrap(rerr.CategorySource, rerr.CodeSourceTerminal, "decoding GitHub response from "+url, err)
	}
	return nil
}

// doWithRetry performs the request, retrying transient failures
// (connection errors, 5xx, 408, 429) with exponential backoff. A context
// cancellation aborts the retry loop immediately.
func (c *Client) doWithRetry(ctx context.Context, url, accept string) (*http.Response, error) {
	op := func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, backoff.Permanent(rerr.Wrap(rerr.CategorySource, rerr.CodeSourceTerminal, "building request for "+url, err))
		}
		req.Header.Set("Accept", accept)
		req.Header.Set("User-Agent", c.userAgent())
		req.Header.Set("Accept-Encoding", "gzip, br, deflate")

		resp, err := c.HTTP.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(rerr.New(rerr.CategoryCancelled, rerr.CodeCancelled, "request cancelled"))
			}
			return nil, rerr.Wrap(rerr.CategorySource, rerr.CodeSourceTransient, "requesting "+url, err)
		}

		if resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			return nil, rerr.New(rerr.CategorySource, rerr.CodeSourceTransient, fmt.Sprintf("GitHub returned HTTP %d for %s", resp.StatusCode, url))
		}
		if resp.StatusCode == http.StatusNotFound {
			resp.Body.Close()
			return nil, backoff.Permanent(rerr.New(rerr.CategorySource, rerr.CodeSourceTerminal, "not found: "+url).WithHint("check that the tool's author/name and version are correct"))
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, backoff.Permanent(rerr.New(rerr.CategorySource, rerr.CodeSourceTerminal, fmt.Sprintf("GitHub returned HTTP %d for %s", resp.StatusCode, url)))
		}
		if err := decodeContentEncoding(resp); err != nil {
			resp.Body.Close()
			return nil, backoff.Permanent(rerr.Wrap(rerr.CategorySource, rerr.CodeSourceTerminal, "decoding response body from "+url, err))
		}
		return resp, nil
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(c.retries()),
	)
}

// decodeContentEncoding wraps resp.Body to undo whatever the server
// picked from our Accept-Encoding offer. Go's http.Transport only
// auto-decompresses gzip when Accept-Encoding is left unset; setting
// it ourselves (so the header actually advertises our preference) puts
// decompression back on us.
func decodeContentEncoding(resp *http.Response) error {
	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return err
		}
		resp.Body = wrapReadCloser(zr, resp.Body)
	case "deflate":
		resp.Body = wrapReadCloser(flate.NewReader(resp.Body), resp.Body)
	}
	return nil
}

// wrapReadCloser pairs a decompressing Reader with the underlying
// response body so closing the returned ReadCloser releases both.
func wrapReadCloser(r io.Reader, underlying io.Closer) io.ReadCloser {
	return struct {
		io.Reader
		io.Closer
	}{r, underlying}
}

func (c *Client) retries() uint {
	if c.MaxRetries == 0 {
		return 4
	}
	return c.MaxRetries
}
