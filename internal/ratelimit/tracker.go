// Package ratelimit tracks throttle signals from a remote source and
// derives adaptive pacing from them: a soft per-request delay to avoid
// causing rate limits, and an exponential backoff to recover after one.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/jonesrussell/gamesync/internal/config"
	"github.com/jonesrussell/gamesync/internal/logger"
)

const (
	// delayStep is the additive per-signal increase applied to the
	// base inter-request delay.
	delayStep = 300 * time.Millisecond
	// maxDelay caps the inter-request delay regardless of signal count.
	maxDelay = 3 * time.Second
)

// Tracker keeps a sliding window of observed rate-limit signals for one
// remote source. It is process-local and never persisted.
type Tracker struct {
	cfg *config.RateLimitConfig
	log logger.Interface

	mu      sync.Mutex
	signals []time.Time

	now   func() time.Time
	pause func(context.Context, time.Duration)
}

// New returns a tracker with an empty signal window.
func New(cfg *config.RateLimitConfig, log logger.Interface) *Tracker {
	return &Tracker{
		cfg:   cfg,
		log:   log,
		now:   time.Now,
		pause: sleepContext,
	}
}

// RecordSignal appends a signal at the current time and returns how many
// signals remain inside the window.
func (t *Tracker) RecordSignal() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.signals = append(t.signals, now)
	t.prune(now)
	return len(t.signals)
}

// Signals returns the current in-window signal count.
func (t *Tracker) Signals() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.prune(t.now())
	return len(t.signals)
}

// ShouldSlowDown reports whether any signal remains inside the window.
func (t *Tracker) ShouldSlowDown() bool {
	return t.Signals() > 0
}

// Backoff returns the recovery pause for the current signal count:
// exponential in the count, capped at the configured maximum, and pinned
// to the maximum once the count reaches the threshold. Zero signals
// means no backoff.
func (t *Tracker) Backoff() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.prune(t.now())
	count := len(t.signals)
	if count == 0 {
		return 0
	}
	if count >= t.cfg.Threshold {
		return t.cfg.MaxBackoff
	}

	backoff := t.cfg.InitialBackoff << (count - 1)
	if backoff <= 0 || backoff > t.cfg.MaxBackoff {
		return t.cfg.MaxBackoff
	}
	return backoff
}

// CurrentDelay returns the pause to insert before the next request: the
// base delay plus a small additive penalty per in-window signal, capped.
// This spaces requests out proactively and is distinct from Backoff,
// which reacts to an explicit throttle response.
func (t *Tracker) CurrentDelay(base time.Duration) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.prune(t.now())
	d := base + time.Duration(len(t.signals))*delayStep
	if d > maxDelay {
		return maxDelay
	}
	return d
}

// HandleSignal records a throttle signal and blocks for the resulting
// backoff, or until ctx is canceled. This is a cooperative pause taken
// by the worker that observed the signal.
func (t *Tracker) HandleSignal(ctx context.Context) {
	count := t.RecordSignal()
	backoff := t.Backoff()
	t.log.Warn("Rate limit signal, backing off",
		"signals", count,
		"backoff", backoff,
	)
	t.pause(ctx, backoff)
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// prune discards signals older than the window. Callers must hold mu.
func (t *Tracker) prune(now time.Time) {
	cutoff := now.Add(-t.cfg.Window)
	keep := t.signals[:0]
	for _, ts := range t.signals {
		if ts.After(cutoff) {
			keep = append(keep, ts)
		}
	}
	t.signals = keep
}
