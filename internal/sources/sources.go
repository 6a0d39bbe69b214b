// Package sources implements the concrete data sources driven by the
// batch-fetch engine: the ranked leaderboard scrape, the per-entity
// catalog endpoints, and the deal-aggregator lookups. Each source
// supplies only endpoint calls and response parsing; batching, caching,
// pacing, and retries belong to the engine.
package sources

import (
	"fmt"
	"time"

	"github.com/jonesrussell/gamesync/internal/config"
	"github.com/jonesrussell/gamesync/internal/fetch"
	"github.com/jonesrussell/gamesync/internal/logger"
	"github.com/jonesrussell/gamesync/internal/ratelimit"
)

// Params carries the dependencies shared across source constructors.
// Client serves the JSON endpoints; the leaderboard scrape runs its own
// collector and draws on the tracker and scrape settings directly.
type Params struct {
	Client  *fetch.Client
	Tracker *ratelimit.Tracker
	Scrape  *config.ScrapeConfig
	Timeout time.Duration
	Logger  logger.Interface
}

// New builds the named engine-driven source. The full app list is not
// built here: it is a single cursor walk, not per-item work, and is
// handled by AppList directly.
func New(name string, cfg *config.SourceConfig, p Params) (fetch.Source, error) {
	switch name {
	case config.SourceCharts:
		return NewCharts(cfg, p)
	case config.SourceDetails:
		return NewDetails(p.Client, cfg, p.Logger), nil
	case config.SourceReviews:
		return NewReviews(p.Client, cfg, p.Logger), nil
	case config.SourcePlayers:
		return NewPlayers(p.Client, cfg, p.Logger), nil
	case config.SourceIDs:
		return NewIDLookup(p.Client, cfg, p.Logger), nil
	case config.SourcePrices:
		return NewPrices(p.Client, cfg, p.Logger), nil
	default:
		return nil, fmt.Errorf("unknown fetch source %q", name)
	}
}

// timestamp formats a collection time the way output tables store it.
func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
