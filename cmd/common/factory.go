package common

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/gamesync/internal/config"
	"github.com/jonesrussell/gamesync/internal/logger"
	"github.com/jonesrussell/gamesync/internal/storage"
)

// NewCommandDeps creates CommandDeps by loading config and constructing
// the logger and data layout. This consolidates the initialization every
// subcommand shares. The config path comes from the inherited --config
// flag when set.
func NewCommandDeps(cmd *cobra.Command) (CommandDeps, error) {
	var path string
	if f := cmd.Flag("config"); f != nil {
		path = f.Value.String()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return CommandDeps{}, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return CommandDeps{}, fmt.Errorf("create logger: %w", err)
	}

	paths := storage.NewPaths(cfg.App.DataDir)
	if err := paths.EnsureDirs(); err != nil {
		return CommandDeps{}, fmt.Errorf("prepare data directory: %w", err)
	}

	deps := CommandDeps{
		Config: cfg,
		Logger: log,
		Paths:  paths,
	}

	if validateErr := deps.Validate(); validateErr != nil {
		return CommandDeps{}, fmt.Errorf("validate deps: %w", validateErr)
	}

	return deps, nil
}
