package table

import (
	"fmt"
	"strconv"

	"github.com/jonesrussell/gamesync/internal/snapshot"
)

// storePageURL is the storefront link emitted for Steam price rows.
const storePageURL = "https://store.steampowered.com/app/%s/"

type detailPrice struct {
	initial         float64
	finalPrice      string
	discountPercent string
}

// buildCurrentPrice derives per-shop current prices. Deal rows are
// resolved to app IDs through the deal-ID map and joined with catalog
// details; the discount rate against the catalog list price decides
// which deals count. Every priced game additionally gets a Steam row
// carrying the storefront's own price and discount.
func (b *Builder) buildCurrentPrice() (*snapshot.Snapshot, error) {
	appByDeal, err := b.dealAppIDs()
	if err != nil {
		return nil, err
	}

	detailCols, err := requireColumns(b.in.Details, "detail",
		"appid", "initial_price", "final_price", "discount_percent")
	if err != nil {
		return nil, err
	}
	prices := make(map[string]detailPrice, b.in.Details.Len())
	for _, row := range b.in.Details.Rows {
		initial, ok := parseNumber(row[detailCols[1]])
		if !ok {
			continue
		}
		prices[row[detailCols[0]]] = detailPrice{
			initial:         initial,
			finalPrice:      row[detailCols[2]],
			discountPercent: row[detailCols[3]],
		}
	}

	dealCols, err := requireColumns(b.in.Deals, "deal",
		"itad_id", "shop_id", "current_price", "url")
	if err != nil {
		return nil, err
	}

	steamID := strconv.Itoa(SteamPlatformID)
	snap := snapshot.New("game_id", "platform_id", "discount_rate", "discount_price", "url")
	for _, row := range b.in.Deals.Rows {
		appID := appByDeal[row[dealCols[0]]]
		if appID == "" {
			continue
		}
		detail, ok := prices[appID]
		if !ok || detail.initial == 0 {
			continue
		}
		// The aggregator's Steam listing duplicates the storefront row
		// appended below, and its rate against the list price is
		// meaningless there.
		if row[dealCols[1]] == steamID {
			continue
		}
		current, ok := parseNumber(row[dealCols[2]])
		if !ok {
			continue
		}
		rate := int64(((detail.initial - current) / detail.initial) * 100)
		if rate <= 0 {
			continue
		}
		snap.Rows = append(snap.Rows, []string{
			appID,
			row[dealCols[1]],
			strconv.FormatInt(rate, 10),
			formatTruncated(current),
			row[dealCols[3]],
		})
	}

	// The storefront itself is a platform: one row per priced game.
	for _, row := range b.in.Details.Rows {
		appID := row[detailCols[0]]
		detail, ok := prices[appID]
		if !ok || detail.initial == 0 {
			continue
		}
		snap.Rows = append(snap.Rows, []string{
			appID,
			steamID,
			detail.discountPercent,
			detail.finalPrice,
			fmt.Sprintf(storePageURL, appID),
		})
	}

	before := snap.Len()
	if err := snap.DedupeLast([]string{"game_id", "platform_id"}); err != nil {
		return nil, err
	}
	if dropped := before - snap.Len(); dropped > 0 {
		b.log.Info("Deduplicated price rows", "table", CurrentPriceByPlatform, "dropped", dropped)
	}
	return snap, nil
}

// dealAppIDs maps deal-aggregator IDs back to app IDs.
func (b *Builder) dealAppIDs() (map[string]string, error) {
	cols, err := requireColumns(b.in.DealIDs, "deal-ID", "itad_id", "appid")
	if err != nil {
		return nil, err
	}

	ids := make(map[string]string, b.in.DealIDs.Len())
	for _, row := range b.in.DealIDs.Rows {
		if row[cols[0]] != "" {
			ids[row[cols[0]]] = row[cols[1]]
		}
	}
	return ids, nil
}
