package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/gamesync/internal/config"
	"github.com/jonesrussell/gamesync/internal/logger"
)

func newTestTracker(t *testing.T) (*Tracker, *time.Time) {
	t.Helper()
	now := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	tr := New(config.NewRateLimitConfig(), logger.NewNoOp())
	tr.now = func() time.Time { return now }
	return tr, &now
}

func TestBackoffProgression(t *testing.T) {
	tr, _ := newTestTracker(t)

	assert.Zero(t, tr.Backoff())

	want := []time.Duration{
		5 * time.Second,
		10 * time.Second,
		20 * time.Second,
		40 * time.Second,
		150 * time.Second, // threshold reached
		150 * time.Second,
	}
	for i, expected := range want {
		tr.RecordSignal()
		assert.Equal(t, expected, tr.Backoff(), "after %d signals", i+1)
	}
}

func TestWindowPruning(t *testing.T) {
	tr, now := newTestTracker(t)

	tr.RecordSignal()
	tr.RecordSignal()
	assert.True(t, tr.ShouldSlowDown())
	assert.Equal(t, 2, tr.Signals())

	*now = now.Add(61 * time.Second)
	assert.False(t, tr.ShouldSlowDown())
	assert.Zero(t, tr.Backoff())

	// A fresh signal after quiet time starts the progression over.
	assert.Equal(t, 1, tr.RecordSignal())
	assert.Equal(t, 5*time.Second, tr.Backoff())
}

func TestCurrentDelay(t *testing.T) {
	tr, _ := newTestTracker(t)
	base := 800 * time.Millisecond

	assert.Equal(t, base, tr.CurrentDelay(base))

	tr.RecordSignal()
	tr.RecordSignal()
	assert.Equal(t, base+600*time.Millisecond, tr.CurrentDelay(base))

	for i := 0; i < 10; i++ {
		tr.RecordSignal()
	}
	assert.Equal(t, 3*time.Second, tr.CurrentDelay(base), "delay is capped")
}

func TestHandleSignalBlocks(t *testing.T) {
	tr, _ := newTestTracker(t)

	var slept time.Duration
	tr.pause = func(_ context.Context, d time.Duration) { slept += d }

	tr.HandleSignal(context.Background())
	require.Equal(t, 5*time.Second, slept)

	tr.HandleSignal(context.Background())
	assert.Equal(t, 15*time.Second, slept)
}
