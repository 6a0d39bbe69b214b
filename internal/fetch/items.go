package fetch

import (
	"fmt"
	"strconv"

	"github.com/jonesrussell/gamesync/internal/snapshot"
)

// ItemsFromSnapshot builds a work list from a snapshot's ID column,
// carrying the name column along for ledgers and logs when present.
// Rows with an empty ID are skipped.
func ItemsFromSnapshot(snap *snapshot.Snapshot, idCol, nameCol string) ([]WorkItem, error) {
	idIdx := snap.ColumnIndex(idCol)
	if idIdx < 0 {
		return nil, fmt.Errorf("missing column %q", idCol)
	}
	nameIdx := -1
	if nameCol != "" {
		nameIdx = snap.ColumnIndex(nameCol)
	}

	items := make([]WorkItem, 0, snap.Len())
	for _, row := range snap.Rows {
		if idIdx >= len(row) || row[idIdx] == "" {
			continue
		}
		item := WorkItem{ID: row[idIdx]}
		if nameIdx >= 0 && nameIdx < len(row) {
			item.Name = row[nameIdx]
		}
		items = append(items, item)
	}
	return items, nil
}

// PageItems builds a work list of 1-based page numbers.
func PageItems(pages int) []WorkItem {
	items := make([]WorkItem, 0, pages)
	for page := 1; page <= pages; page++ {
		items = append(items, WorkItem{ID: strconv.Itoa(page)})
	}
	return items
}
