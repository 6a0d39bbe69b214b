// Package backup implements the backup command, which dumps the live
// database tables into local snapshots.
package backup

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	cmdcommon "github.com/jonesrussell/gamesync/cmd/common"
	"github.com/jonesrussell/gamesync/internal/database"
	"github.com/jonesrussell/gamesync/internal/table"
)

// Run dumps every downstream table from the database. Each dump is
// written twice: into the processed directory, where it becomes the
// previous side of the next run's reconciliation, and into the backup
// directory as a restore point. A table that fails to dump is reported
// and the rest still run.
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

	repo := database.NewBackupRepository(db)
	counts := map[string]int{"tables": 0, "rows": 0}

	var errs []error
	for _, name := range table.Order() {
		snap, err := repo.DumpTable(ctx, name, specs[name].Identity)
		if err != nil {
			deps.Logger.Error("Table dump failed", "table", name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		if err := snap.WriteFile(deps.Paths.Table(name)); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := snap.WriteFile(deps.Paths.Backup(name)); err != nil {
			errs = append(errs, err)
			continue
		}
		deps.Logger.Debug("Dumped table", "table", name, "rows", snap.Len())
		counts["tables"]++
		counts["rows"] += snap.Len()
	}
	return counts, errors.Join(errs...)
}

// Command returns the backup command for use in the root command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Dump the database tables to local snapshots",
		Long: `This command reads every downstream table back out of PostgreSQL and
writes each as a CSV snapshot. The dumps replace the processed
snapshots, so the next process run reconciles against what the database
actually holds, and a copy is kept in the backup directory.`,
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
			deps.Logger.Info("Backup finished", "counts", counts)
			return nil
		},
	}
}
