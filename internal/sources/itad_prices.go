package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jonesrussell/gamesync/internal/config"
	"github.com/jonesrussell/gamesync/internal/fetch"
	"github.com/jonesrussell/gamesync/internal/logger"
)

// Transport retry policy for one batched price request. Retries here
// cover only the request itself; unresolved batches feed back into the
// engine's staged retries.
const (
	priceTransportRetries = 3
	timeoutRetryPause     = 3 * time.Second
	connectionRetryPause  = 5 * time.Second
)

var errMalformedPrices = errors.New("malformed price payload")

// Prices fetches current deals and history lows from the aggregator's
// batched price endpoint. One request covers a whole engine batch, and
// each game expands to one output row per store listing it.
type Prices struct {
	client *fetch.Client
	cfg    *config.SourceConfig
	log    logger.Interface
	now    func() time.Time
	sleep  func(time.Duration)
}

// NewPrices creates the batched price source.
func NewPrices(client *fetch.Client, cfg *config.SourceConfig, log logger.Interface) *Prices {
	return &Prices{client: client, cfg: cfg, log: log, now: time.Now, sleep: time.Sleep}
}

// Name implements fetch.Source.
func (s *Prices) Name() string { return config.SourcePrices }

// Columns implements fetch.Source.
func (s *Prices) Columns() []string {
	return []string{
		"itad_id", "history_low_price", "history_low_currency",
		"shop_id", "shop_name", "current_price", "regular_price",
		"url", "discount_percent", "collected_at",
	}
}

// DedupeKeys implements fetch.Source.
func (s *Prices) DedupeKeys() []string { return []string{"itad_id", "shop_id"} }

type priceEntry struct {
	ID         string      `json:"id"`
	HistoryLow *historyLow `json:"historyLow"`
	Deals      []priceDeal `json:"deals"`
}

type historyLow struct {
	All *moneyAmount `json:"all"`
}

type moneyAmount struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

type priceDeal struct {
	Shop    priceShop    `json:"shop"`
	Price   *moneyAmount `json:"price"`
	Regular *moneyAmount `json:"regular"`
	Cut     int64        `json:"cut"`
	URL     string       `json:"url"`
}

type priceShop struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// FetchOne satisfies fetch.Source for a single item.
func (s *Prices) FetchOne(ctx context.Context, item fetch.WorkItem) fetch.Outcome {
	return s.FetchGroup(ctx, []fetch.WorkItem{item})[0]
}

// FetchGroup posts the whole batch of aggregator IDs in one request
// and fans the response back out to per-item outcomes. Games absent
// from the response are semantic negatives.
func (s *Prices) FetchGroup(ctx context.Context, items []fetch.WorkItem) []fetch.Outcome {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}

	entries, err := s.postWithRetry(ctx, ids)
	if err != nil {
		outcomes := make([]fetch.Outcome, len(items))
		for i, item := range items {
			if errors.Is(err, errMalformedPrices) {
				outcomes[i] = fetch.Failed(item, err)
			} else {
				outcomes[i] = fetch.Errored(item, err)
			}
		}
		return outcomes
	}

	byID := make(map[string]*priceEntry, len(entries))
	for i := range entries {
		byID[entries[i].ID] = &entries[i]
	}

	collected := timestamp(s.now())
	outcomes := make([]fetch.Outcome, len(items))
	for i, item := range items {
		entry, ok := byID[item.ID]
		if !ok {
			outcomes[i] = fetch.Failed(item, fmt.Errorf("no price data for game %s", item.ID))
			continue
		}
		outcomes[i] = fetch.Success(item, s.dealRows(item.ID, entry, collected)...)
	}
	return outcomes
}

// postWithRetry performs the batched POST, absorbing transient
// transport errors up to the retry budget. An undecodable body is not
// retried.
func (s *Prices) postWithRetry(ctx context.Context, ids []string) ([]priceEntry, error) {
	url := fmt.Sprintf("%s?key=%s&country=%s", s.cfg.Endpoint, s.cfg.APIKey, s.cfg.Country)

	var lastErr error
	for attempt := 1; attempt <= priceTransportRetries; attempt++ {
		body, err := s.client.Post(ctx, url, ids)
		if err == nil {
			var entries []priceEntry
			if err := json.Unmarshal(body, &entries); err != nil {
				return nil, fmt.Errorf("%w: %v", errMalformedPrices, err)
			}
			return entries, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			return nil, err
		}

		var statusErr *fetch.StatusError
		switch {
		case errors.Is(err, fetch.ErrRateLimited):
			// The client already served the tracker's backoff pause.
			s.log.Warn("Price batch rate limited", "attempt", attempt)
		case fetch.IsTimeout(err):
			s.sleep(timeoutRetryPause * time.Duration(attempt))
		case errors.As(err, &statusErr):
			return nil, err
		default:
			s.sleep(connectionRetryPause * time.Duration(attempt))
		}
	}
	return nil, lastErr
}

// dealRows expands one game's price entry into per-store rows.
func (s *Prices) dealRows(id string, entry *priceEntry, collected string) []map[string]string {
	var historyPrice, historyCurrency string
	if entry.HistoryLow != nil && entry.HistoryLow.All != nil {
		historyPrice = formatAmount(entry.HistoryLow.All)
		historyCurrency = entry.HistoryLow.All.Currency
	}

	rows := make([]map[string]string, 0, len(entry.Deals))
	for _, deal := range entry.Deals {
		rows = append(rows, map[string]string{
			"itad_id":              id,
			"history_low_price":    historyPrice,
			"history_low_currency": historyCurrency,
			"shop_id":              strconv.FormatInt(deal.Shop.ID, 10),
			"shop_name":            deal.Shop.Name,
			"current_price":        formatAmount(deal.Price),
			"regular_price":        formatAmount(deal.Regular),
			"url":                  deal.URL,
			"discount_percent":     strconv.FormatInt(deal.Cut, 10),
			"collected_at":         collected,
		})
	}
	return rows
}

func formatAmount(amount *moneyAmount) string {
	if amount == nil {
		return ""
	}
	return strconv.FormatFloat(amount.Amount, 'f', -1, 64)
}
