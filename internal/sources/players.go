package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/jonesrussell/gamesync/internal/config"
	"github.com/jonesrussell/gamesync/internal/fetch"
	"github.com/jonesrussell/gamesync/internal/logger"
)

// Players fetches the live concurrent-player count for one game at a
// time.
type Players struct {
	client *fetch.Client
	cfg    *config.SourceConfig
	log    logger.Interface
}

// NewPlayers creates the player-count source.
func NewPlayers(client *fetch.Client, cfg *config.SourceConfig, log logger.Interface) *Players {
	return &Players{client: client, cfg: cfg, log: log}
}

// Name implements fetch.Source.
func (s *Players) Name() string { return config.SourcePlayers }

// Columns implements fetch.Source.
func (s *Players) Columns() []string { return []string{"appid", "player_count"} }

// DedupeKeys implements fetch.Source.
func (s *Players) DedupeKeys() []string { return []string{"appid"} }

type playerResponse struct {
	Response *playerResult `json:"response"`
}

type playerResult struct {
	PlayerCount *int64 `json:"player_count"`
}

// FetchOne fetches the current player count for one app. The endpoint
// answers 404 for apps without player stats, which is a permanent
// condition rather than a transport problem.
func (s *Players) FetchOne(ctx context.Context, item fetch.WorkItem) fetch.Outcome {
	url := fmt.Sprintf("%s?appid=%s", s.cfg.Endpoint, item.ID)

	body, err := s.client.Get(ctx, url)
	if err != nil {
		var statusErr *fetch.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return fetch.Failed(item, err)
		}
		return fetch.Errored(item, err)
	}

	var resp playerResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fetch.Failed(item, fmt.Errorf("malformed player payload: %w", err))
	}

	if resp.Response == nil || resp.Response.PlayerCount == nil {
		return fetch.Failed(item, errors.New("no player count for app"))
	}

	return fetch.Success(item, map[string]string{
		"appid":        item.ID,
		"player_count": strconv.FormatInt(*resp.Response.PlayerCount, 10),
	})
}
