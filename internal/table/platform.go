package table

import (
	"github.com/jonesrussell/gamesync/internal/snapshot"
)

// buildPlatform derives the platform table from the distinct shops seen
// in the deal data.
func (b *Builder) buildPlatform() (*snapshot.Snapshot, error) {
	cols, err := requireColumns(b.in.Deals, "deal", "shop_id", "shop_name")
	if err != nil {
		return nil, err
	}

	snap := snapshot.New("id", "name")
	seen := make(map[string]bool)
	for _, row := range b.in.Deals.Rows {
		id, name := row[cols[0]], row[cols[1]]
		if id == "" || name == "" || seen[id] {
			continue
		}
		seen[id] = true
		snap.Rows = append(snap.Rows, []string{id, name})
	}
	return snap, nil
}
