package table

import (
	"fmt"

	"github.com/jonesrussell/gamesync/internal/snapshot"
	"github.com/jonesrussell/gamesync/internal/storage"
)

// Inputs holds the raw fetch output every builder draws from. All six
// tables are derived from these snapshots plus the staged
// current_price_by_platform intermediate.
type Inputs struct {
	// Details is the parsed per-game catalog detail table.
	Details *snapshot.Snapshot
	// Reviews is the per-game review summary table.
	Reviews *snapshot.Snapshot
	// Players is the per-game concurrent player count table.
	Players *snapshot.Snapshot
	// Deals is the per-shop price deal table.
	Deals *snapshot.Snapshot
	// DealIDs maps app IDs to deal-aggregator IDs.
	DealIDs *snapshot.Snapshot
	// Catalog is the full app catalog listing, the source of untranslated
	// original titles.
	Catalog *snapshot.Snapshot
}

// LoadInputs reads the raw tables a build needs. A missing file is an
// error: the build cannot produce consistent deltas from partial input.
func LoadInputs(paths *storage.Paths) (*Inputs, error) {
	in := &Inputs{}
	for _, src := range []struct {
		name string
		dst  **snapshot.Snapshot
	}{
		{storage.FileGameDetails, &in.Details},
		{storage.FileGameReviews, &in.Reviews},
		{storage.FileActivePlayers, &in.Players},
		{storage.FileITADPrices, &in.Deals},
		{storage.FileITADIDs, &in.DealIDs},
		{storage.FileAppList, &in.Catalog},
	} {
		snap, err := snapshot.ReadFile(paths.Raw(src.name))
		if err != nil {
			return nil, fmt.Errorf("failed to load build input %s: %w", src.name, err)
		}
		*src.dst = snap
	}
	return in, nil
}
