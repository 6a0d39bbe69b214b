package table

import (
	"fmt"
	"os"
	"strconv"

	"github.com/jonesrussell/gamesync/internal/snapshot"
)

type lowestDeal struct {
	platform string
	price    string
	value    float64
}

type reviewSignal struct {
	rating       string
	totalReviews string
}

// buildGameDynamic merges the volatile per-game signals: review score,
// concurrent players, cheapest current price across platforms, and the
// historical low. It consumes the full price table written earlier in
// the same pass.
func (b *Builder) buildGameDynamic() (*snapshot.Snapshot, error) {
	pricePath := b.paths.Table(CurrentPriceByPlatform)
	price, err := snapshot.ReadFile(pricePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load price intermediate: %w", err)
	}
	if err := os.Remove(pricePath); err != nil {
		return nil, fmt.Errorf("failed to consume price intermediate: %w", err)
	}

	priceCols, err := requireColumns(price, "price",
		"game_id", "platform_id", "discount_rate", "discount_price")
	if err != nil {
		return nil, err
	}
	lowest := make(map[string]lowestDeal)
	onSale := make(map[string]bool)
	for _, row := range price.Rows {
		gameID := row[priceCols[0]]
		if rate, ok := parseNumber(row[priceCols[2]]); ok && rate > 0 {
			onSale[gameID] = true
		}
		value, ok := parseNumber(row[priceCols[3]])
		if !ok {
			continue
		}
		if low, seen := lowest[gameID]; !seen || value < low.value {
			lowest[gameID] = lowestDeal{
				platform: row[priceCols[1]],
				price:    row[priceCols[3]],
				value:    value,
			}
		}
	}

	historyLows, err := b.historyLows()
	if err != nil {
		return nil, err
	}
	listPrices, err := b.listPrices()
	if err != nil {
		return nil, err
	}

	reviewCols, err := requireColumns(b.in.Reviews, "review",
		"appid", "review_score", "total_reviews")
	if err != nil {
		return nil, err
	}
	playerCols, err := requireColumns(b.in.Players, "player", "appid", "player_count")
	if err != nil {
		return nil, err
	}

	reviews := make(map[string]reviewSignal, b.in.Reviews.Len())
	order := make([]string, 0, b.in.Reviews.Len())
	for _, row := range b.in.Reviews.Rows {
		appID := row[reviewCols[0]]
		if appID == "" {
			continue
		}
		if _, seen := reviews[appID]; !seen {
			order = append(order, appID)
		}
		reviews[appID] = reviewSignal{
			rating:       row[reviewCols[1]],
			totalReviews: row[reviewCols[2]],
		}
	}

	players := make(map[string]string, b.in.Players.Len())
	for _, row := range b.in.Players.Rows {
		appID := row[playerCols[0]]
		if appID == "" {
			continue
		}
		if _, seen := players[appID]; !seen {
			if _, reviewed := reviews[appID]; !reviewed {
				order = append(order, appID)
			}
		}
		players[appID] = row[playerCols[1]]
	}

	steamID := strconv.Itoa(SteamPlatformID)
	snap := snapshot.New(
		"game_id", "rating", "active_players", "lowest_platform",
		"lowest_price", "history_lowest_price", "on_sale", "total_reviews",
	)
	for _, gameID := range order {
		review := reviews[gameID]

		platform, lowPrice := steamID, ""
		if low, ok := lowest[gameID]; ok {
			platform, lowPrice = low.platform, low.price
		}
		if lowPrice == "" {
			lowPrice = listPrices[gameID]
		}

		history := lowPrice
		if low, ok := historyLows[gameID]; ok {
			history = formatTruncated(low)
		}

		snap.Rows = append(snap.Rows, []string{
			gameID,
			review.rating,
			players[gameID],
			platform,
			lowPrice,
			history,
			strconv.FormatBool(onSale[gameID]),
			review.totalReviews,
		})
	}
	return snap, nil
}

// historyLows returns the lowest recorded deal price per app.
func (b *Builder) historyLows() (map[string]float64, error) {
	appByDeal, err := b.dealAppIDs()
	if err != nil {
		return nil, err
	}
	cols, err := requireColumns(b.in.Deals, "deal", "itad_id", "history_low_price")
	if err != nil {
		return nil, err
	}

	lows := make(map[string]float64)
	for _, row := range b.in.Deals.Rows {
		appID := appByDeal[row[cols[0]]]
		if appID == "" {
			continue
		}
		value, ok := parseNumber(row[cols[1]])
		if !ok {
			continue
		}
		if low, seen := lows[appID]; !seen || value < low {
			lows[appID] = value
		}
	}
	return lows, nil
}

// listPrices returns the verbatim catalog list price cell per app, the
// fallback for games without any deal row.
func (b *Builder) listPrices() (map[string]string, error) {
	cols, err := requireColumns(b.in.Details, "detail", "appid", "initial_price")
	if err != nil {
		return nil, err
	}

	prices := make(map[string]string, b.in.Details.Len())
	for _, row := range b.in.Details.Rows {
		prices[row[cols[0]]] = row[cols[1]]
	}
	return prices, nil
}
