// Package process implements the process command, which builds the
// downstream tables from raw fetch output and stages their deltas.
package process

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	cmdcommon "github.com/jonesrussell/gamesync/cmd/common"
	"github.com/jonesrussell/gamesync/internal/database"
	"github.com/jonesrussell/gamesync/internal/reconcile"
	"github.com/jonesrussell/gamesync/internal/table"
)

// Run builds every downstream table, stages deltas against the previous
// snapshots, and returns the staged/unchanged counts.
func Run(ctx context.Context, deps cmdcommon.CommandDeps) (map[string]int, error) {
	inputs, err := table.LoadInputs(deps.Paths)
	if err != nil {
		return nil, fmt.Errorf("load raw tables: %w", err)
	}

	overrides, err := table.DecodeOverrides(deps.Config.Tables)
	if err != nil {
		return nil, fmt.Errorf("decode table overrides: %w", err)
	}

	builder := table.NewBuilder(table.BuilderParams{
		Inputs: inputs,
		Specs:  table.Specs(overrides),
		Policy: loadPolicy(ctx, deps, overrides),
		Paths:  deps.Paths,
		Logger: deps.Logger,
	})

	report, err := builder.BuildAll()
	if err != nil {
		return nil, err
	}

	deps.Logger.Info("Tables built",
		"staged", report.Staged,
		"unchanged", report.Unchanged,
	)
	return report.Counts(), nil
}

// loadPolicy learns the required-column policy from the live database
// schema, then lets per-table config overrides replace what was
// learned. The build itself is local work, so an unreachable database
// downgrades the policy to overrides only instead of failing the run.
func loadPolicy(ctx context.Context, deps cmdcommon.CommandDeps, overrides map[string]table.Override) reconcile.NotNullPolicy {
	policy := reconcile.NotNullPolicy{}

	db, err := database.Connect(deps.Config.Database)
	if err != nil {
		deps.Logger.Warn("Schema probe skipped, database unreachable", "error", err)
	} else {
		defer db.Close()
		learned, err := database.NewSchemaRepository(db).NotNullColumns(ctx)
		if err != nil {
			deps.Logger.Warn("Schema probe failed", "error", err)
		} else {
			policy = learned
		}
	}

	for name, o := range overrides {
		if len(o.Required) > 0 {
			policy[name] = o.Required
		}
	}
	if len(policy) == 0 {
		return nil
	}
	return policy
}

// Command returns the process command for use in the root command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "process",
		Short: "Build the downstream tables and stage their deltas",
		Long: `This command turns the raw fetched tables into the six downstream
database tables, compares each against its previously uploaded snapshot,
and stages only the changed and removed rows for upload. Rows missing a
column the database declares NOT NULL are dropped first.`,
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
			deps.Logger.Info("Processing finished", "counts", counts)
			return nil
		},
	}
}
