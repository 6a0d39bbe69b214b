// Package cache provides the durable per-entity status cache consulted by
// every fetcher to decide whether to skip, retry, or re-fetch an entity.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/jonesrussell/gamesync/internal/logger"
)

// StatusCache maps entity keys to the outcome of their last fetch attempt.
// It is loaded once at construction and persisted at batch checkpoints.
type StatusCache struct {
	path string
	log  logger.Interface

	mu      sync.RWMutex
	entries map[string]Entry

	now func() time.Time
}

// New loads the cache at path. A missing file yields an empty cache. An
// unreadable or corrupt file also yields an empty cache with a warning,
// so a damaged cache costs re-fetching, never a failed run.
func New(path string, log logger.Interface) *StatusCache {
	c := &StatusCache{
		path:    path,
		log:     log,
		entries: map[string]Entry{},
		now:     time.Now,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("Failed to read status cache, starting empty", "path", path, "error", err)
		}
		return c
	}

	// Duplicate keys from partial writes in prior runs decode
	// last-write-wins into the map.
	if err := json.Unmarshal(data, &c.entries); err != nil {
		log.Warn("Failed to parse status cache, starting empty", "path", path, "error", err)
		c.entries = map[string]Entry{}
	}

	return c
}

// Get returns the entry for key, if any.
func (c *StatusCache) Get(key string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	return e, ok
}

// Set overwrites the entry for key unconditionally, stamping CollectedAt
// with the current time if unset.
func (c *StatusCache) Set(key string, e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e.CollectedAt.IsZero() {
		e.CollectedAt = c.now()
	}
	c.entries[key] = e
}

// MarkSuccess records a successful fetch for key, resetting any
// accumulated failure count.
func (c *StatusCache) MarkSuccess(key string) {
	c.Set(key, Entry{Status: StatusSuccess})
}

// MarkStatus records a free-form status code for key, e.g. an error
// classification such as "timeout".
func (c *StatusCache) MarkStatus(key string, status Status) {
	c.Set(key, Entry{Status: status})
}

// RecordFail marks key failed and increments its failure count on top of
// whatever entry exists, so repeated failures accumulate toward quarantine.
func (c *StatusCache) RecordFail(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entries[key]
	c.entries[key] = Entry{
		Status:      StatusFailed,
		FailCount:   e.FailCount + 1,
		CollectedAt: c.now(),
	}
}

// IsStale reports whether key should be re-fetched under the given
// freshness window. Missing entries and missing timestamps are stale:
// on any ambiguity the answer favors re-fetching over silently skipping.
func (c *StatusCache) IsStale(key string, maxAge time.Duration) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || e.CollectedAt.IsZero() {
		return true
	}
	return c.now().Sub(e.CollectedAt) > maxAge
}

// TooManyFails reports whether key has failed at least maxAttempts times
// and should be quarantined from further fetch attempts.
func (c *StatusCache) TooManyFails(key string, maxAttempts int) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	return ok && e.Status == StatusFailed && e.FailCount >= maxAttempts
}

// UnresolvedKeys returns every key whose recorded status is not success,
// sorted for deterministic retry ordering.
func (c *StatusCache) UnresolvedKeys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.entries))
	for key, e := range c.entries {
		if e.Status != StatusSuccess {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of cached entries.
func (c *StatusCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// Stats is a tally of cache entries by outcome.
type Stats struct {
	Total       int
	Success     int
	Failed      int
	Quarantined int
}

// Stats tallies entries by outcome. Failed entries at or past the
// quarantineAfter threshold count as quarantined; every other
// non-success entry, including free-form error codes, counts as failed.
func (c *StatusCache) Stats(quarantineAfter int) Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Stats{Total: len(c.entries)}
	for _, e := range c.entries {
		switch {
		case e.Status == StatusSuccess:
			s.Success++
		case e.Status == StatusFailed && quarantineAfter > 0 && e.FailCount >= quarantineAfter:
			s.Quarantined++
		default:
			s.Failed++
		}
	}
	return s
}

// Save persists the full map to disk via a temp-file rename, so a crash
// mid-write leaves the previous cache intact.
func (c *StatusCache) Save() error {
	c.mu.RLock()
	data, err := json.MarshalIndent(c.entries, "", "  ")
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal status cache: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(c.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write status cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace status cache: %w", err)
	}

	return nil
}
