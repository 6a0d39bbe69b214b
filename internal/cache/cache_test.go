package cache_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/gamesync/internal/cache"
	"github.com/jonesrussell/gamesync/internal/logger"
)

func newTestCache(t *testing.T) (*cache.StatusCache, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "status.json")
	return cache.New(path, logger.NewNoOp()), path
}

func TestSetStampsTimestamp(t *testing.T) {
	c, _ := newTestCache(t)

	c.Set("730", cache.Entry{Status: cache.StatusSuccess})

	e, ok := c.Get("730")
	require.True(t, ok)
	assert.Equal(t, cache.StatusSuccess, e.Status)
	assert.WithinDuration(t, time.Now(), e.CollectedAt, time.Minute)
}

func TestSetKeepsExplicitTimestamp(t *testing.T) {
	c, _ := newTestCache(t)
	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	c.Set("730", cache.Entry{Status: cache.StatusSuccess, CollectedAt: at})

	e, ok := c.Get("730")
	require.True(t, ok)
	assert.Equal(t, at, e.CollectedAt)
}

func TestRecordFailIncrements(t *testing.T) {
	c, _ := newTestCache(t)

	c.RecordFail("10")
	c.RecordFail("10")

	e, ok := c.Get("10")
	require.True(t, ok)
	assert.Equal(t, cache.StatusFailed, e.Status)
	assert.Equal(t, 2, e.FailCount)

	// Success resets the accumulated count.
	c.MarkSuccess("10")
	e, _ = c.Get("10")
	assert.Equal(t, cache.StatusSuccess, e.Status)
	assert.Zero(t, e.FailCount)

	c.RecordFail("10")
	e, _ = c.Get("10")
	assert.Equal(t, 1, e.FailCount)
}

func TestIsStale(t *testing.T) {
	c, _ := newTestCache(t)

	assert.True(t, c.IsStale("missing", time.Hour))

	c.Set("fresh", cache.Entry{Status: cache.StatusSuccess, CollectedAt: time.Now().Add(-10 * time.Minute)})
	assert.False(t, c.IsStale("fresh", time.Hour))

	c.Set("old", cache.Entry{Status: cache.StatusSuccess, CollectedAt: time.Now().Add(-2 * time.Hour)})
	assert.True(t, c.IsStale("old", time.Hour))
	assert.False(t, c.IsStale("old", 3*time.Hour))
}

func TestTooManyFails(t *testing.T) {
	c, _ := newTestCache(t)

	c.RecordFail("10")
	c.RecordFail("10")
	assert.False(t, c.TooManyFails("10", 3), "one below the threshold still retries")

	c.RecordFail("10")
	assert.True(t, c.TooManyFails("10", 3))

	// Error-code statuses never quarantine.
	c.MarkStatus("20", "timeout")
	assert.False(t, c.TooManyFails("20", 3))

	assert.False(t, c.TooManyFails("missing", 3))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	c, path := newTestCache(t)

	c.MarkSuccess("1")
	c.RecordFail("2")
	c.MarkStatus("3", "rate_limited")
	require.NoError(t, c.Save())

	loaded := cache.New(path, logger.NewNoOp())
	assert.Equal(t, 3, loaded.Len())

	e, ok := loaded.Get("2")
	require.True(t, ok)
	assert.Equal(t, cache.StatusFailed, e.Status)
	assert.Equal(t, 1, e.FailCount)
	assert.False(t, e.CollectedAt.IsZero())

	e, ok = loaded.Get("3")
	require.True(t, ok)
	assert.Equal(t, cache.Status("rate_limited"), e.Status)
}

func TestLoadLegacyShapes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.json")
	data := []byte(`{
  "1": "success",
  "2": {"status": "failed", "fail_count": 2, "collected_at": "2026-08-01T00:00:00Z"},
  "3": {"status": "success", "collected_at": "not-a-timestamp"},
  "2": {"status": "failed", "fail_count": 4, "collected_at": "2026-08-02T00:00:00Z"}
}`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	c := cache.New(path, logger.NewNoOp())

	// Bare string statuses carry no timestamp, so they read as stale.
	e, ok := c.Get("1")
	require.True(t, ok)
	assert.Equal(t, cache.StatusSuccess, e.Status)
	assert.True(t, c.IsStale("1", time.Hour))

	// Duplicate keys resolve last-write-wins.
	e, ok = c.Get("2")
	require.True(t, ok)
	assert.Equal(t, 4, e.FailCount)

	// Unparseable timestamps normalize to stale.
	assert.True(t, c.IsStale("3", 24*365*time.Hour))
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	c := cache.New(path, logger.NewNoOp())
	assert.Zero(t, c.Len())
}

func TestUnresolvedKeys(t *testing.T) {
	c, _ := newTestCache(t)

	c.MarkSuccess("5")
	c.RecordFail("3")
	c.MarkStatus("1", "timeout")
	c.RecordFail("4")

	assert.Equal(t, []string{"1", "3", "4"}, c.UnresolvedKeys())
}

func TestStats(t *testing.T) {
	c, _ := newTestCache(t)

	c.MarkSuccess("1")
	c.MarkSuccess("2")
	c.MarkStatus("3", "timeout")
	c.RecordFail("4")
	for i := 0; i < 3; i++ {
		c.RecordFail("5")
	}

	s := c.Stats(3)
	assert.Equal(t, cache.Stats{Total: 5, Success: 2, Failed: 2, Quarantined: 1}, s)

	// A zero threshold disables quarantine tallying.
	s = c.Stats(0)
	assert.Equal(t, cache.Stats{Total: 5, Success: 2, Failed: 3}, s)
}
