// Package upload implements the upload command, which applies staged
// table deltas to the PostgreSQL database.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	cmdcommon "github.com/jonesrussell/gamesync/cmd/common"
	"github.com/jonesrussell/gamesync/internal/database"
	"github.com/jonesrussell/gamesync/internal/snapshot"
	"github.com/jonesrussell/gamesync/internal/table"
)

// Run applies every staged delta file to the database. Removals run in
// reverse table order and upserts in forward order, so rows referencing
// other tables never dangle mid-upload. A failing table keeps its delta
// files on disk for the next run; the remaining tables still upload.
func Run(ctx context.Context, deps cmdcommon.CommandDeps) (map[string]int, error) {
	db, err := database.Connect(deps.Config.Database)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	overrides, err := table.DecodeOverrides(deps.Config.Tables)
	if err != nil {
		return nil, fmt.Errorf("decode table overrides: %w", err)
	}
	specs := table.Specs(overrides)

	repo := database.NewDeltaRepository(db, deps.Config.Database.UpsertChunkSize, deps.Logger)
	order := table.Order()
	counts := map[string]int{"upserted": 0, "removed": 0}

	var errs []error
	for i := len(order) - 1; i >= 0; i-- {
		name := order[i]
		n, err := applyDelta(deps, name, deps.Paths.TableRemoved(name), func(snap *snapshot.Snapshot) error {
			return repo.ApplyRemoved(ctx, name, snap, specs[name].Identity)
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("%s removals: %w", name, err))
			continue
		}
		counts["removed"] += n
	}

	for _, name := range order {
		n, err := applyDelta(deps, name, deps.Paths.TableUpdated(name), func(snap *snapshot.Snapshot) error {
			return repo.ApplyUpdated(ctx, name, snap, specs[name].Identity)
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("%s upserts: %w", name, err))
			continue
		}
		counts["upserted"] += n
	}

	for _, err := range errs {
		deps.Logger.Error("Table upload failed", "error", err)
	}
	return counts, errors.Join(errs...)
}

// applyDelta loads one staged delta file, applies it, and deletes the
// file once the database has accepted it. A missing file means the
// table had no changes of that kind.
func applyDelta(deps cmdcommon.CommandDeps, name, path string, apply func(*snapshot.Snapshot) error) (int, error) {
	snap, err := loadStaged(path)
	if err != nil || snap == nil {
		return 0, err
	}

	if err := apply(snap); err != nil {
		return 0, err
	}
	if err := os.Remove(path); err != nil {
		return 0, fmt.Errorf("remove consumed delta %s: %w", path, err)
	}
	deps.Logger.Debug("Applied staged delta", "table", name, "rows", snap.Len())
	return snap.Len(), nil
}

func loadStaged(path string) (*snapshot.Snapshot, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	snap, err := snapshot.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load staged delta %s: %w", path, err)
	}
	if snap.Empty() {
		return nil, os.Remove(path)
	}
	return snap, nil
}

// Command returns the upload command for use in the root command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "upload",
		Short: "Apply staged table deltas to the database",
		Long: `This command pushes the staged delta files produced by process into
PostgreSQL: removed rows are deleted and added or changed rows are
upserted, in chunks. Consumed delta files are deleted; a table whose
upload fails keeps its files so the next run retries it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := cmdcommon.NewCommandDeps(cmd)
			if err != nil {
				return fmt.Errorf("failed to initialize dependencies: %w", err)
			}
			counts, err := Run(cmd.Context(), deps)
			if err != nil {
				return err
			}
			deps.Logger.Info("Upload finished", "counts", counts)
			return nil
		},
	}
}
