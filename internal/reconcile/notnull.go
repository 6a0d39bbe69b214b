package reconcile

import (
	"github.com/jonesrussell/gamesync/internal/logger"
	"github.com/jonesrussell/gamesync/internal/snapshot"
)

// NotNullPolicy maps table names to columns the database declares NOT
// NULL. Rows with an empty cell in a required column would fail the
// upsert, so they are dropped before reconciliation.
type NotNullPolicy map[string][]string

// Filter returns snap without the rows violating the table's required
// columns. Required columns the snapshot does not carry are ignored;
// if none remain the policy cannot be applied and the snapshot passes
// through unchanged with a warning.
func (p NotNullPolicy) Filter(table string, snap *snapshot.Snapshot, log logger.Interface) *snapshot.Snapshot {
	var required []int
	for _, col := range p[table] {
		if idx := snap.ColumnIndex(col); idx >= 0 {
			required = append(required, idx)
		}
	}
	if len(required) == 0 {
		log.Warn("No required-column policy for table", "table", table)
		return snap
	}

	filtered := snap.Filter(func(row []string) bool {
		for _, idx := range required {
			if idx >= len(row) || row[idx] == "" {
				return false
			}
		}
		return true
	})

	if dropped := snap.Len() - filtered.Len(); dropped > 0 {
		log.Info("Dropped rows missing required columns",
			"table", table,
			"dropped", dropped,
		)
	}
	return filtered
}
