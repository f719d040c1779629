package store

import (
	"encoding/json"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/rojo-rbx/rokit/internal/id"
	"github.com/rojo-rbx/rokit/internal/rerr"
	"github.com/rojo-rbx/rokit/internal/rfile"
)

// TrustCache is the persisted set of tool authors the user has
// accepted a trust prompt for, keyed by canonical "provider/scope/name"
// strings so membership checks are case-insensitive.
type TrustCache struct {
	mu   sync.Mutex
	path string
	ids  map[string]bool
}

// LoadTrustCache reads the trust cache from path, treating a missing
// file as an empty cache.
func LoadTrustCache(path string) (*TrustCache, error) {
	tc := &TrustCache{path: path, ids: make(map[string]bool)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return tc, nil
		}
		return nil, rerr.Wrap(rerr.CategoryTrust, rerr.CodeStoreIO, "reading trust cache "+path, err)
	}

	var entries []string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, rerr.Wrap(rerr.CategoryTrust, rerr.CodeStoreIO, "parsing trust cache "+path, err)
	}
	for _, e := range entries {
		tc.ids[strings.ToLower(e)] = true
	}
	return tc, nil
}

// Contains reports whether tid has already been trusted.
func (tc *TrustCache) Contains(tid id.ToolId) bool {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.ids[tid.Canonical()]
}

// Add records tid as trusted and persists the cache immediately, so a
// crash between Add and the next Install doesn't lose the decision.
func (tc *TrustCache) Add(tid id.ToolId) error {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.ids[tid.Canonical()] = true
	return tc.save()
}

// Remove revokes trust for tid and persists the change.
func (tc *TrustCache) Remove(tid id.ToolId) error {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	delete(tc.ids, tid.Canonical())
	return tc.save()
}

func (tc *TrustCache) save() error {
	entries := make([]string, 0, len(tc.ids))
	for k := range tc.ids {
		entries = append(entries, k)
	}
	sort.Strings(entries)

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return rerr.Wrap(rerr.CategoryTrust, rerr.CodeStoreIO, "marshaling trust cache", err)
	}
	if err := rfile.WriteAtomic(tc.path, data, 0o644); err != nil {
		return rerr.Wrap(rerr.CategoryTrust, rerr.CodeStoreIO, "writing trust cache "+tc.path, err)
	}
	return nil
}
