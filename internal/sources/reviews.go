package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/jonesrussell/gamesync/internal/config"
	"github.com/jonesrussell/gamesync/internal/fetch"
	"github.com/jonesrussell/gamesync/internal/logger"
)

// Reviews fetches the aggregate review summary for one game at a time.
type Reviews struct {
	client *fetch.Client
	cfg    *config.SourceConfig
	log    logger.Interface
}

// NewReviews creates the review-summary source.
func NewReviews(client *fetch.Client, cfg *config.SourceConfig, log logger.Interface) *Reviews {
	return &Reviews{client: client, cfg: cfg, log: log}
}

// Name implements fetch.Source.
func (s *Reviews) Name() string { return config.SourceReviews }

// Columns implements fetch.Source.
func (s *Reviews) Columns() []string {
	return []string{"appid", "num_reviews", "review_score", "total_reviews"}
}

// DedupeKeys implements fetch.Source.
func (s *Reviews) DedupeKeys() []string { return []string{"appid"} }

type reviewResponse struct {
	Success      int           `json:"success"`
	QuerySummary reviewSummary `json:"query_summary"`
}

type reviewSummary struct {
	NumReviews   int64 `json:"num_reviews"`
	ReviewScore  int64 `json:"review_score"`
	TotalReviews int64 `json:"total_reviews"`
}

// FetchOne fetches the review summary for one app. An empty summary on
// a successful response means the app has no reviews to aggregate.
func (s *Reviews) FetchOne(ctx context.Context, item fetch.WorkItem) fetch.Outcome {
	url := fmt.Sprintf(
		"%s/%s?json=1&filter=all&language=all&day_range=all&review_type=all&purchase_type=all",
		s.cfg.Endpoint, item.ID,
	)

	body, err := s.client.Get(ctx, url)
	if err != nil {
		return fetch.Errored(item, err)
	}

	var resp reviewResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fetch.Failed(item, fmt.Errorf("malformed review payload: %w", err))
	}

	if resp.Success != 1 {
		return fetch.Failed(item, errors.New("review query unsuccessful"))
	}
	if resp.QuerySummary == (reviewSummary{}) {
		return fetch.Failed(item, errors.New("no review data for app"))
	}

	return fetch.Success(item, map[string]string{
		"appid":         item.ID,
		"num_reviews":   strconv.FormatInt(resp.QuerySummary.NumReviews, 10),
		"review_score":  strconv.FormatInt(resp.QuerySummary.ReviewScore, 10),
		"total_reviews": strconv.FormatInt(resp.QuerySummary.TotalReviews, 10),
	})
}
