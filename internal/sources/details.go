package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/jonesrussell/gamesync/internal/config"
	"github.com/jonesrussell/gamesync/internal/fetch"
	"github.com/jonesrussell/gamesync/internal/logger"
	"github.com/jonesrussell/gamesync/internal/snapshot"
)

// listSeparator joins multi-valued cells such as genres and categories.
const listSeparator = ";"

// Details fetches the catalog detail payload for one game at a time.
type Details struct {
	client *fetch.Client
	cfg    *config.SourceConfig
	log    logger.Interface
}

// NewDetails creates the catalog-detail source.
func NewDetails(client *fetch.Client, cfg *config.SourceConfig, log logger.Interface) *Details {
	return &Details{client: client, cfg: cfg, log: log}
}

// Name implements fetch.Source.
func (s *Details) Name() string { return config.SourceDetails }

// Columns implements fetch.Source.
func (s *Details) Columns() []string {
	return []string{
		"appid", "name", "short_description", "is_free", "release_date",
		"header_image", "developer", "publisher", "initial_price",
		"final_price", "discount_percent", "categories", "genres",
	}
}

// DedupeKeys implements fetch.Source.
func (s *Details) DedupeKeys() []string { return []string{"appid"} }

// detailEnvelope is the per-app wrapper of the detail endpoint. The
// response body keys envelopes by the requested app ID.
type detailEnvelope struct {
	Success bool       `json:"success"`
	Data    detailData `json:"data"`
}

type detailData struct {
	Type             string           `json:"type"`
	Name             string           `json:"name"`
	SteamAppID       int64            `json:"steam_appid"`
	ShortDescription string           `json:"short_description"`
	IsFree           bool             `json:"is_free"`
	HeaderImage      string           `json:"header_image"`
	Developers       []string         `json:"developers"`
	Publishers       []string         `json:"publishers"`
	PriceOverview    *priceOverview   `json:"price_overview"`
	Categories       []descriptionTag `json:"categories"`
	Genres           []descriptionTag `json:"genres"`
	ReleaseDate      releaseDate      `json:"release_date"`
}

// priceOverview carries storefront prices in minor currency units.
type priceOverview struct {
	Initial         int64 `json:"initial"`
	Final           int64 `json:"final"`
	DiscountPercent int64 `json:"discount_percent"`
}

type descriptionTag struct {
	Description string `json:"description"`
}

type releaseDate struct {
	Date string `json:"date"`
}

// FetchOne fetches and parses the detail payload for one app. Apps
// that are not games count as semantic negatives.
func (s *Details) FetchOne(ctx context.Context, item fetch.WorkItem) fetch.Outcome {
	url := fmt.Sprintf("%s?appids=%s&l=%s", s.cfg.Endpoint, item.ID, s.cfg.Language)

	body, err := s.client.Get(ctx, url)
	if err != nil {
		return fetch.Errored(item, err)
	}

	var envelope map[string]detailEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fetch.Failed(item, fmt.Errorf("malformed detail payload: %w", err))
	}

	entry, ok := envelope[item.ID]
	if !ok || !entry.Success {
		return fetch.Failed(item, errors.New("no detail data for app"))
	}
	if entry.Data.Type != "game" {
		return fetch.Failed(item, fmt.Errorf("app type is %q, not game", entry.Data.Type))
	}
	if entry.Data.SteamAppID == 0 {
		return fetch.Failed(item, errors.New("detail payload missing app id"))
	}

	return fetch.Success(item, detailRow(&entry.Data))
}

// detailRow flattens a detail payload into an output record. Prices
// arrive in minor units and are truncated to whole currency units.
func detailRow(data *detailData) map[string]string {
	price := data.PriceOverview
	if price == nil {
		price = &priceOverview{}
	}
	return map[string]string{
		"appid":             strconv.FormatInt(data.SteamAppID, 10),
		"name":              data.Name,
		"short_description": html.UnescapeString(data.ShortDescription),
		"is_free":           strconv.FormatBool(data.IsFree),
		"release_date":      data.ReleaseDate.Date,
		"header_image":      data.HeaderImage,
		"developer":         firstOf(data.Developers),
		"publisher":         firstOf(data.Publishers),
		"initial_price":     strconv.FormatInt(price.Initial/100, 10),
		"final_price":       strconv.FormatInt(price.Final/100, 10),
		"discount_percent":  strconv.FormatInt(price.DiscountPercent, 10),
		"categories":        joinTags(data.Categories),
		"genres":            joinTags(data.Genres),
	}
}

// SplitFreePaid partitions the detail table into free and paid rows by
// the is_free flag, preserving all columns. The paid list feeds the
// deal-aggregator lookups; free games carry no price data worth
// collecting.
func SplitFreePaid(details *snapshot.Snapshot) (free, paid *snapshot.Snapshot, err error) {
	idx := details.ColumnIndex("is_free")
	if idx < 0 {
		return nil, nil, errors.New(`detail snapshot: missing column "is_free"`)
	}

	free = details.Filter(func(row []string) bool {
		return idx < len(row) && row[idx] == "true"
	})
	paid = details.Filter(func(row []string) bool {
		return idx >= len(row) || row[idx] != "true"
	})
	return free, paid, nil
}

func firstOf(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func joinTags(tags []descriptionTag) string {
	parts := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag.Description == "" {
			continue
		}
		parts = append(parts, tag.Description)
	}
	return strings.Join(parts, listSeparator)
}
