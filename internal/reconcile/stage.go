package reconcile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/jonesrussell/gamesync/internal/logger"
	"github.com/jonesrussell/gamesync/internal/storage"
)

// StageDeltas writes the delta artifacts for one table and cleans up
// whatever an earlier run staged. A no-op reconciliation deletes any
// previously staged delta files so the uploader cannot re-apply stale
// changes, leaving the full snapshot in place; a real change stages the
// non-empty sides and drops the consumed full snapshot. Returns whether
// anything was staged.
func StageDeltas(paths *storage.Paths, table string, delta *Delta, log logger.Interface) (bool, error) {
	updatedPath := paths.TableUpdated(table)
	removedPath := paths.TableRemoved(table)
	snapshotPath := paths.Table(table)

	if delta.Empty() {
		log.Info("No changes for table", "table", table)
		for _, path := range []string{updatedPath, removedPath} {
			if err := removeIfExists(path); err != nil {
				return false, err
			}
		}
		return false, nil
	}

	log.Info("Staging table deltas",
		"table", table,
		"added_or_changed", delta.AddedOrChanged.Len(),
		"removed", delta.Removed.Len(),
	)

	if delta.AddedOrChanged.Empty() {
		if err := removeIfExists(updatedPath); err != nil {
			return false, err
		}
	} else if err := delta.AddedOrChanged.WriteFile(updatedPath); err != nil {
		return false, fmt.Errorf("failed to stage %s updates: %w", table, err)
	}

	if delta.Removed.Empty() {
		if err := removeIfExists(removedPath); err != nil {
			return false, err
		}
	} else if err := delta.Removed.WriteFile(removedPath); err != nil {
		return false, fmt.Errorf("failed to stage %s removals: %w", table, err)
	}

	if err := removeIfExists(snapshotPath); err != nil {
		return false, err
	}
	return true, nil
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}
