// Package common provides shared utilities for command implementations.
package common

import (
	"github.com/jonesrussell/gamesync/internal/config"
	"github.com/jonesrussell/gamesync/internal/logger"
	"github.com/jonesrussell/gamesync/internal/storage"
)

// CommandDeps holds common dependencies for all commands.
// Use this instead of context.Value for type-safe dependency injection.
type CommandDeps struct {
	Config *config.Config
	Logger logger.Interface
	Paths  *storage.Paths
}

// Validate ensures all required dependencies are present.
func (d CommandDeps) Validate() error {
	if d.Config == nil {
		return ErrConfigRequired
	}
	if d.Logger == nil {
		return ErrLoggerRequired
	}
	if d.Paths == nil {
		return ErrPathsRequired
	}
	return nil
}
