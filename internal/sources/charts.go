package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/jonesrussell/gamesync/internal/config"
	"github.com/jonesrussell/gamesync/internal/fetch"
	"github.com/jonesrussell/gamesync/internal/logger"
	"github.com/jonesrussell/gamesync/internal/ratelimit"
)

// Charts scrapes the ranked concurrent-player leaderboard. Work items
// are 1-based page numbers; each page carries up to 25 ranked games.
type Charts struct {
	cfg       *config.SourceConfig
	tracker   *ratelimit.Tracker
	collector *colly.Collector
	log       logger.Interface
}

// NewCharts creates the leaderboard source and its collector. Retry
// stages revisit the same page URL, so revisits stay allowed; error
// responses are parsed so the status code survives classification.
func NewCharts(cfg *config.SourceConfig, p Params) (*Charts, error) {
	collector := colly.NewCollector(
		colly.UserAgent(p.Scrape.UserAgent),
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
		colly.IgnoreRobotsTxt(),
	)
	if p.Timeout > 0 {
		collector.SetRequestTimeout(p.Timeout)
	}

	// Clones share the collector's backend, so one rule serializes
	// page requests across all engine workers.
	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
	}); err != nil {
		return nil, fmt.Errorf("failed to set scrape limit: %w", err)
	}

	return &Charts{cfg: cfg, tracker: p.Tracker, collector: collector, log: p.Logger}, nil
}

// Name implements fetch.Source.
func (s *Charts) Name() string { return config.SourceCharts }

// Columns implements fetch.Source.
func (s *Charts) Columns() []string { return []string{"rank", "appid", "game_name"} }

// DedupeKeys implements fetch.Source.
func (s *Charts) DedupeKeys() []string { return []string{"appid"} }

// FetchOne scrapes one leaderboard page and extracts its ranked rows.
func (s *Charts) FetchOne(ctx context.Context, item fetch.WorkItem) fetch.Outcome {
	page, err := strconv.Atoi(item.ID)
	if err != nil || page < 1 {
		return fetch.Failed(item, fmt.Errorf("invalid page number %q", item.ID))
	}

	var (
		rows      []map[string]string
		sawTable  bool
		status    int
		scrapeErr error
	)

	c := s.collector.Clone()
	c.OnRequest(func(r *colly.Request) {
		select {
		case <-ctx.Done():
			r.Abort()
		default:
		}
	})
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		scrapeErr = err
	})
	c.OnHTML("table#top-games", func(*colly.HTMLElement) {
		sawTable = true
	})
	c.OnHTML("table#top-games tbody tr", func(e *colly.HTMLElement) {
		if row, ok := chartRow(e.DOM); ok {
			rows = append(rows, row)
		}
	})

	if err := c.Visit(fmt.Sprintf(s.cfg.Endpoint, page)); err != nil && scrapeErr == nil {
		scrapeErr = err
	}

	switch {
	case ctx.Err() != nil:
		return fetch.Errored(item, ctx.Err())
	case status == http.StatusTooManyRequests:
		s.tracker.HandleSignal(ctx)
		return fetch.Errored(item, fetch.ErrRateLimited)
	case status >= http.StatusBadRequest:
		return fetch.Errored(item, &fetch.StatusError{StatusCode: status})
	case scrapeErr != nil:
		return fetch.Errored(item, scrapeErr)
	case !sawTable:
		return fetch.Failed(item, errors.New("leaderboard table not found"))
	}
	return fetch.Success(item, rows...)
}

// chartRow extracts rank, app ID, and game name from one leaderboard
// row. Rows without a game link are skipped.
func chartRow(row *goquery.Selection) (map[string]string, bool) {
	link := row.Find("td.game-name a").First()
	href, ok := link.Attr("href")
	if !ok {
		return nil, false
	}
	appID := href[strings.LastIndex(href, "/")+1:]
	if appID == "" {
		return nil, false
	}
	return map[string]string{
		"rank":      strings.TrimSpace(row.Find("td").First().Text()),
		"appid":     appID,
		"game_name": strings.TrimSpace(link.Text()),
	}, true
}
