package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jonesrussell/gamesync/internal/config"
	"github.com/jonesrussell/gamesync/internal/fetch"
	"github.com/jonesrussell/gamesync/internal/logger"
)

// IDLookup maps store app IDs to deal-aggregator game IDs. Apps the
// aggregator does not know are still recorded, with an empty ID, so
// the output table documents every lookup attempt.
type IDLookup struct {
	client *fetch.Client
	cfg    *config.SourceConfig
	log    logger.Interface
	now    func() time.Time
}

// NewIDLookup creates the aggregator ID-lookup source.
func NewIDLookup(client *fetch.Client, cfg *config.SourceConfig, log logger.Interface) *IDLookup {
	return &IDLookup{client: client, cfg: cfg, log: log, now: time.Now}
}

// Name implements fetch.Source.
func (s *IDLookup) Name() string { return config.SourceIDs }

// Columns implements fetch.Source.
func (s *IDLookup) Columns() []string {
	return []string{"appid", "name", "itad_id", "collected_at"}
}

// DedupeKeys implements fetch.Source.
func (s *IDLookup) DedupeKeys() []string { return []string{"appid"} }

type lookupResponse struct {
	Found bool        `json:"found"`
	Game  *lookupGame `json:"game"`
}

type lookupGame struct {
	ID string `json:"id"`
}

// FetchOne resolves one app ID against the aggregator.
func (s *IDLookup) FetchOne(ctx context.Context, item fetch.WorkItem) fetch.Outcome {
	url := fmt.Sprintf("%s?key=%s&appid=%s", s.cfg.Endpoint, s.cfg.APIKey, item.ID)

	body, err := s.client.Get(ctx, url)
	if err != nil {
		return fetch.Errored(item, err)
	}

	var resp lookupResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fetch.Failed(item, fmt.Errorf("malformed lookup payload: %w", err))
	}

	row := map[string]string{
		"appid":        item.ID,
		"name":         item.Name,
		"itad_id":      "",
		"collected_at": timestamp(s.now()),
	}

	if !resp.Found || resp.Game == nil || resp.Game.ID == "" {
		return fetch.Failed(item, fmt.Errorf("app %s not known to aggregator", item.ID), row)
	}

	row["itad_id"] = resp.Game.ID
	return fetch.Success(item, row)
}
