// Package fetch implements the fetch command, which drives the
// pipeline's sources through the batch engine and writes the raw
// tables to the data directory.
package fetch

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	cmdcommon "github.com/jonesrussell/gamesync/cmd/common"
	"github.com/jonesrussell/gamesync/internal/config"
)

// Sources returns the sources a full fetch runs, in dependency order.
// The leaderboard scrape runs inside the list step; it stays
// addressable on its own for a cheap re-scrape.
func Sources() []string {
	return []string{
		config.SourceList,
		config.SourceDetails,
		config.SourceReviews,
		config.SourcePlayers,
		config.SourceIDs,
		config.SourcePrices,
	}
}

// Run fetches a single source and returns its result counts.
func Run(ctx context.Context, deps cmdcommon.CommandDeps, name string) (map[string]int, error) {
	return newRunner(deps).run(ctx, name)
}

// RunAll fetches every source in dependency order. A failing source is
// reported and the rest still run: each source resumes from its own
// status cache and prior output, so partial progress is kept.
func RunAll(ctx context.Context, deps cmdcommon.CommandDeps) error {
	var errs []error
	for _, name := range Sources() {
		counts, err := Run(ctx, deps, name)
		if err != nil {
			deps.Logger.Error("Source fetch failed", "source", name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		deps.Logger.Info("Source fetch finished", "source", name, "counts", counts)
	}
	return errors.Join(errs...)
}

// Command returns the fetch command for use in the root command.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch [source]",
		Short: "Fetch game data from the remote sources",
		Long: `This command fetches raw game data and writes it to the data directory
as CSV tables. Give it one source name, or "all" to run every source in
dependency order:

  list     leaderboard scrape + full catalog walk -> work list
  charts   leaderboard scrape only
  details  store details for every listed game (also splits free/paid)
  reviews  review summaries
  players  concurrent player counts
  ids      deal-aggregator ID lookup for paid games
  prices   deal-aggregator price snapshots

Progress is checkpointed after every batch, so an interrupted fetch
resumes where it stopped.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: append(config.SourceNames(), "all"),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := cmdcommon.NewCommandDeps(cmd)
			if err != nil {
				return fmt.Errorf("failed to initialize dependencies: %w", err)
			}

			ctx := cmd.Context()
			store, err := cmdcommon.NewObjectStore(ctx, deps)
			if err != nil {
				// A broken store must not block a local fetch.
				deps.Logger.Warn("Object store unavailable", "error", err)
			} else if store != nil {
				store.Bootstrap(ctx, deps.Paths, config.SourceNames())
			}

			var runErr error
			if args[0] == "all" {
				runErr = RunAll(ctx, deps)
			} else {
				var counts map[string]int
				counts, runErr = Run(ctx, deps, args[0])
				if runErr == nil {
					deps.Logger.Info("Source fetch finished", "source", args[0], "counts", counts)
				}
			}

			if store != nil {
				if _, backupErr := store.BackupArtifacts(ctx, deps.Paths); backupErr != nil {
					deps.Logger.Warn("Artifact backup failed", "error", backupErr)
				}
			}
			return runErr
		},
	}
	return cmd
}
