package sources

import (
	"testing"
	"time"

	"github.com/jonesrussell/gamesync/internal/config"
	"github.com/jonesrussell/gamesync/internal/fetch"
	"github.com/jonesrussell/gamesync/internal/logger"
	"github.com/jonesrussell/gamesync/internal/ratelimit"
)

// testRateLimit returns pacing loose enough to never stall a test and
// backoff pauses short enough to be harmless.
func testRateLimit() *config.RateLimitConfig {
	return &config.RateLimitConfig{
		Window:            time.Minute,
		Threshold:         5,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        2 * time.Millisecond,
		RequestsPerSecond: 1000,
		Burst:             100,
	}
}

func newTestClient(t *testing.T, timeout time.Duration) *fetch.Client {
	t.Helper()
	log := logger.NewNoOp()
	rl := testRateLimit()
	return fetch.NewClient(fetch.ClientParams{
		Timeout:   timeout,
		UserAgent: "gamesync-test",
		RateLimit: rl,
		Tracker:   ratelimit.New(rl, log),
		Logger:    log,
	})
}

func testParams(t *testing.T, timeout time.Duration) Params {
	t.Helper()
	log := logger.NewNoOp()
	return Params{
		Client:  newTestClient(t, timeout),
		Tracker: ratelimit.New(testRateLimit(), log),
		Scrape:  config.NewScrapeConfig(),
		Timeout: timeout,
		Logger:  log,
	}
}
