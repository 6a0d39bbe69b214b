package fetch

import (
	"errors"
	"os"

	"github.com/jonesrussell/gamesync/internal/snapshot"
)

// Ledger columns.
const (
	ledgerColID   = "id"
	ledgerColName = "name"
)

// readLedger loads the previous run's failed-ID ledger. A missing or
// unreadable ledger is an empty one.
func (e *Engine) readLedger() []WorkItem {
	if e.ledgerPath == "" {
		return nil
	}

	s, err := snapshot.ReadFile(e.ledgerPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			e.log.Warn("Failed to read ledger", "source", e.src.Name(), "error", err)
		}
		return nil
	}

	idIdx := s.ColumnIndex(ledgerColID)
	if idIdx < 0 {
		return nil
	}
	nameIdx := s.ColumnIndex(ledgerColName)

	items := make([]WorkItem, 0, s.Len())
	for _, row := range s.Rows {
		if row[idIdx] == "" {
			continue
		}
		item := WorkItem{ID: row[idIdx]}
		if nameIdx >= 0 {
			item.Name = row[nameIdx]
		}
		items = append(items, item)
	}
	return items
}

// writeLedger persists the items still failing after all retry stages
// and returns their count. With nothing unresolved, a stale ledger from
// an earlier run is removed.
func (e *Engine) writeLedger() int {
	if e.ledgerPath == "" {
		return 0
	}

	unresolved := dedupeItems(append(append([]WorkItem{}, e.failed...), e.errored...))
	if len(unresolved) == 0 {
		if err := os.Remove(e.ledgerPath); err != nil && !os.IsNotExist(err) {
			e.log.Warn("Failed to remove ledger", "source", e.src.Name(), "error", err)
		}
		return 0
	}

	s := snapshot.New(ledgerColID, ledgerColName)
	for _, item := range unresolved {
		s.AppendRecord(map[string]string{
			ledgerColID:   item.ID,
			ledgerColName: item.Name,
		})
	}
	if err := s.WriteFile(e.ledgerPath); err != nil {
		e.log.Error("Failed to write ledger", "source", e.src.Name(), "error", err)
	}
	return len(unresolved)
}
