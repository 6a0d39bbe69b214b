package common

import "errors"

var (
	// ErrConfigRequired is returned when CommandDeps.Config is nil
	ErrConfigRequired = errors.New("config is required")

	// ErrLoggerRequired is returned when CommandDeps.Logger is nil
	ErrLoggerRequired = errors.New("logger is required")

	// ErrPathsRequired is returned when CommandDeps.Paths is nil
	ErrPathsRequired = errors.New("data paths are required")
)
