package storage_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/gamesync/internal/storage"
)

func TestPathsLayout(t *testing.T) {
	p := storage.NewPaths("/data")

	assert.Equal(t, filepath.Join("/data", "raw"), p.RawDir())
	assert.Equal(t, filepath.Join("/data", "raw", "all_app_list.csv"), p.Raw(storage.FileAppList))
	assert.Equal(t, filepath.Join("/data", "cache", "details_status.json"), p.StatusCache("details"))
	assert.Equal(t, filepath.Join("/data", "cache", "details_failed.csv"), p.FailedLedger("details"))
	assert.Equal(t, filepath.Join("/data", "processed", "game_static.csv"), p.Table("game_static"))
	assert.Equal(t, filepath.Join("/data", "processed", "game_static_updated.csv"), p.TableUpdated("game_static"))
	assert.Equal(t, filepath.Join("/data", "processed", "game_static_removed.csv"), p.TableRemoved("game_static"))
	assert.Equal(t, filepath.Join("/data", "backup", "game_static.csv"), p.Backup("game_static"))
}

func TestEnsureDirs(t *testing.T) {
	root := filepath.Join(t.TempDir(), "data")
	p := storage.NewPaths(root)

	require.NoError(t, p.EnsureDirs())

	for _, dir := range []string{p.RawDir(), p.ProcessedDir(), p.CacheDir(), p.BackupDir()} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}

	// Idempotent.
	require.NoError(t, p.EnsureDirs())
}
