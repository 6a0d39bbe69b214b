// Package pipeline implements the pipeline command, which runs the
// full fetch, process, upload, and backup sequence and records a run
// summary.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	backupcmd "github.com/jonesrussell/gamesync/cmd/backup"
	cmdcommon "github.com/jonesrussell/gamesync/cmd/common"
	fetchcmd "github.com/jonesrussell/gamesync/cmd/fetch"
	processcmd "github.com/jonesrussell/gamesync/cmd/process"
	uploadcmd "github.com/jonesrussell/gamesync/cmd/upload"
	"github.com/jonesrussell/gamesync/internal/config"
	"github.com/jonesrussell/gamesync/internal/run"
	"github.com/jonesrussell/gamesync/internal/storage"
)

// step is one recorded unit of pipeline work.
type step struct {
	name string
	run  func(ctx context.Context) (map[string]int, error)
}

// Run executes the whole pipeline. Every step is recorded and a failed
// step never stops the steps after it: each stage resumes from its own
// checkpoints, so the most useful response to a partial failure is to
// keep going and report at the end.
func Run(ctx context.Context, deps cmdcommon.CommandDeps) error {
	rec := run.NewRecorder(deps.Paths.RunHistory(), deps.Logger)
	deps.Logger.Info("Pipeline starting", "run_id", rec.ID())

	store := openStore(ctx, deps, rec)

	var steps []step
	for _, name := range fetchcmd.Sources() {
		source := name
		steps = append(steps, step{
			name: "fetch:" + source,
			run: func(ctx context.Context) (map[string]int, error) {
				return fetchcmd.Run(ctx, deps, source)
			},
		})
	}
	steps = append(steps,
		step{name: "process", run: func(ctx context.Context) (map[string]int, error) {
			return processcmd.Run(ctx, deps)
		}},
		step{name: "upload", run: func(ctx context.Context) (map[string]int, error) {
			return uploadcmd.Run(ctx, deps)
		}},
		step{name: "backup", run: func(ctx context.Context) (map[string]int, error) {
			return backupcmd.Run(ctx, deps)
		}},
	)

	for _, s := range steps {
		if ctx.Err() != nil {
			rec.RecordSkip(s.name, "run canceled")
			continue
		}
		start := time.Now()
		counts, err := s.run(ctx)
		rec.RecordStep(s.name, start, counts, err)
		if err != nil {
			deps.Logger.Error("Pipeline step failed", "step", s.name, "error", err)
		}
	}

	backupArtifacts(ctx, deps, rec, store)

	summary, err := rec.Finish()
	if err != nil {
		return err
	}
	deps.Logger.Info("Pipeline finished",
		"run_id", summary.ID,
		"status", summary.Status,
		"duration", summary.FinishedAt.Sub(summary.StartedAt),
	)
	if summary.Status == run.StatusCompletedWithErrors {
		return fmt.Errorf("pipeline run %s completed with errors", summary.ID)
	}
	return nil
}

// openStore prepares the object store and restores missing local
// artifacts from it. Store trouble is recorded on the run, never fatal:
// the pipeline still works from whatever is on disk.
func openStore(ctx context.Context, deps cmdcommon.CommandDeps, rec *run.Recorder) *storage.ObjectStore {
	if !deps.Config.Storage.Enabled {
		rec.RecordSkip("bootstrap", "object store disabled")
		return nil
	}

	start := time.Now()
	store, err := cmdcommon.NewObjectStore(ctx, deps)
	if err != nil {
		rec.RecordStep("bootstrap", start, nil, err)
		return nil
	}
	restored := store.Bootstrap(ctx, deps.Paths, config.SourceNames())
	rec.RecordStep("bootstrap", start, map[string]int{"restored": restored}, nil)
	return store
}

// backupArtifacts pushes the run's caches and raw tables to the object
// store so the next host can bootstrap from them.
func backupArtifacts(ctx context.Context, deps cmdcommon.CommandDeps, rec *run.Recorder, store *storage.ObjectStore) {
	if store == nil {
		rec.RecordSkip("storage_backup", "object store disabled")
		return
	}
	if ctx.Err() != nil {
		rec.RecordSkip("storage_backup", "run canceled")
		return
	}

	start := time.Now()
	uploaded, err := store.BackupArtifacts(ctx, deps.Paths)
	rec.RecordStep("storage_backup", start, map[string]int{"uploaded": uploaded}, err)
	if err != nil {
		deps.Logger.Error("Pipeline step failed", "step", "storage_backup", "error", err)
	}
}

// Command returns the pipeline command for use in the root command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "pipeline",
		Short: "Run the full fetch, process, upload, and backup sequence",
		Long: `This command runs every pipeline stage in order: restore artifacts
from the object store, fetch each source, build and stage the tables,
upload the deltas, dump the database, and back the artifacts up again.
Failed steps are recorded in the run summary and do not stop the run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := cmdcommon.NewCommandDeps(cmd)
			if err != nil {
				return fmt.Errorf("failed to initialize dependencies: %w", err)
			}
			return Run(cmd.Context(), deps)
		},
	}
}
