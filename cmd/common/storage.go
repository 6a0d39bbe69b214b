package common

import (
	"context"
	"fmt"

	"github.com/jonesrussell/gamesync/internal/storage"
)

// NewObjectStore creates the configured object store and ensures its
// bucket exists. It returns nil when object storage is disabled, so
// callers can treat the store as optional.
// This consolidates the common pattern used across commands.
func NewObjectStore(ctx context.Context, deps CommandDeps) (*storage.ObjectStore, error) {
	if !deps.Config.Storage.Enabled {
		return nil, nil
	}

	store, err := storage.NewObjectStore(deps.Config.Storage, deps.Logger)
	if err != nil {
		return nil, fmt.Errorf("create object store: %w", err)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}
	return store, nil
}
