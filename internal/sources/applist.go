package sources

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jonesrussell/gamesync/internal/config"
	"github.com/jonesrussell/gamesync/internal/fetch"
	"github.com/jonesrussell/gamesync/internal/logger"
	"github.com/jonesrussell/gamesync/internal/snapshot"
)

// appListPageSize is the maximum page size the catalog endpoint
// accepts per cursor step.
const appListPageSize = 50000

// AppList walks the store's full application catalog. Unlike the
// engine-driven sources this is a single cursor walk, so it has no
// per-item caching or retries.
type AppList struct {
	client *fetch.Client
	cfg    *config.SourceConfig
	log    logger.Interface
}

// NewAppList creates the full-catalog fetcher.
func NewAppList(client *fetch.Client, cfg *config.SourceConfig, log logger.Interface) *AppList {
	return &AppList{client: client, cfg: cfg, log: log}
}

type appListResponse struct {
	Response *appListPage `json:"response"`
}

type appListPage struct {
	Apps            []appListApp `json:"apps"`
	HaveMoreResults bool         `json:"have_more_results"`
	LastAppID       int64        `json:"last_appid"`
}

type appListApp struct {
	AppID int64  `json:"appid"`
	Name  string `json:"name"`
}

// FetchAll walks the catalog cursor until the store reports no more
// results. On error the walk stops and the pages gathered so far are
// returned alongside the error, so a partial list is still usable.
func (s *AppList) FetchAll(ctx context.Context) (*snapshot.Snapshot, error) {
	out := snapshot.New("appid", "name")

	var lastAppID int64
	for {
		url := fmt.Sprintf(
			"%s?key=%s&include_games=1&include_dlc=0&include_software=0"+
				"&include_videos=0&include_hardware=0&max_results=%d&last_appid=%d",
			s.cfg.Endpoint, s.cfg.APIKey, appListPageSize, lastAppID,
		)

		var resp appListResponse
		if err := s.client.GetJSON(ctx, url, &resp); err != nil {
			return out, fmt.Errorf("failed to fetch app list page: %w", err)
		}
		if resp.Response == nil {
			return out, errors.New("malformed app list payload")
		}

		for _, app := range resp.Response.Apps {
			out.AppendRecord(map[string]string{
				"appid": strconv.FormatInt(app.AppID, 10),
				"name":  app.Name,
			})
		}
		s.log.Debug("Fetched app list page",
			"apps", len(resp.Response.Apps),
			"total", out.Len(),
		)

		if !resp.Response.HaveMoreResults {
			return out, nil
		}
		lastAppID = resp.Response.LastAppID
	}
}

// FilterCommonIDs returns the rows of the full app list whose IDs
// appear on the scraped leaderboard. The result is the work list every
// per-entity fetcher downstream starts from.
func FilterCommonIDs(allApps, charts *snapshot.Snapshot) (*snapshot.Snapshot, error) {
	chartIDs, err := charts.Column("appid")
	if err != nil {
		return nil, fmt.Errorf("leaderboard snapshot: %w", err)
	}
	wanted := make(map[string]struct{}, len(chartIDs))
	for _, id := range chartIDs {
		wanted[id] = struct{}{}
	}

	idIdx := allApps.ColumnIndex("appid")
	if idIdx < 0 {
		return nil, errors.New(`app list snapshot: missing column "appid"`)
	}

	common := allApps.Filter(func(row []string) bool {
		if idIdx >= len(row) {
			return false
		}
		_, ok := wanted[row[idIdx]]
		return ok
	})
	return common, nil
}
