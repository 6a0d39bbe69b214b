package table

import (
	"slices"
	"strconv"

	"github.com/jonesrussell/gamesync/internal/snapshot"
)

// Category memberships deciding the play-mode flags.
const singlePlayerCategory = "Single-player"

var multiplayerCategories = []string{
	"Multi-player", "Online PvP", "Co-op",
	"Shared/Split Screen PvP", "PvP", "Online Co-op",
}

// buildGameStatic flattens the slow-moving catalog fields per game and
// joins the untranslated title from the app catalog.
func (b *Builder) buildGameStatic() (*snapshot.Snapshot, error) {
	detailCols, err := requireColumns(b.in.Details, "detail",
		"appid", "name", "short_description", "release_date",
		"publisher", "developer", "header_image", "initial_price", "categories")
	if err != nil {
		return nil, err
	}
	catalogCols, err := requireColumns(b.in.Catalog, "catalog", "appid", "name")
	if err != nil {
		return nil, err
	}

	originalTitles := make(map[string]string, b.in.Catalog.Len())
	for _, row := range b.in.Catalog.Rows {
		originalTitles[row[catalogCols[0]]] = row[catalogCols[1]]
	}

	snap := snapshot.New(
		"id", "title", "original_title", "description", "release_date",
		"publisher", "developer", "thumbnail", "price",
		"is_singleplay", "is_multiplay",
	)
	for _, row := range b.in.Details.Rows {
		categories := splitList(row[detailCols[8]])
		snap.Rows = append(snap.Rows, []string{
			row[detailCols[0]],
			row[detailCols[1]],
			originalTitles[row[detailCols[0]]],
			row[detailCols[2]],
			row[detailCols[3]],
			row[detailCols[4]],
			row[detailCols[5]],
			row[detailCols[6]],
			row[detailCols[7]],
			strconv.FormatBool(slices.Contains(categories, singlePlayerCategory)),
			strconv.FormatBool(containsAny(categories, multiplayerCategories)),
		})
	}
	return snap, nil
}

func containsAny(values, targets []string) bool {
	for _, target := range targets {
		if slices.Contains(values, target) {
			return true
		}
	}
	return false
}
