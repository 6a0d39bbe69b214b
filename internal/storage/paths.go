// Package storage owns the local data layout shared by every pipeline
// step and the S3-compatible object store used for bootstrap and backup.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// Canonical raw-table file names, shared by fetchers and table builders.
const (
	FileChartsTop     = "steamcharts_top_games.csv"
	FileAppList       = "all_app_list.csv"
	FileCommonIDs     = "common_ids.csv"
	FileGameDetails   = "steam_game_detail_parsed.csv"
	FileGameReviews   = "steam_game_reviews.csv"
	FileActivePlayers = "steam_game_active_player.csv"
	FileITADIDs       = "itad_game_ids.csv"
	FileITADPrices    = "itad_game_prices.csv"
	FileFreeList      = "free_steam_list.csv"
	FilePaidList      = "paid_steam_list.csv"
)

// RawFiles lists every raw-table file the fetch stage can produce, in
// the order the pipeline produces them.
func RawFiles() []string {
	return []string{
		FileChartsTop,
		FileAppList,
		FileCommonIDs,
		FileGameDetails,
		FileFreeList,
		FilePaidList,
		FileGameReviews,
		FileActivePlayers,
		FileITADIDs,
		FileITADPrices,
	}
}

// Paths resolves every file the pipeline reads or writes beneath one
// data directory:
//
//	raw/        fetcher output tables
//	processed/  built snapshots and staged delta files
//	cache/      per-source status caches and failed-ID ledgers
//	backup/     post-upload table dumps
type Paths struct {
	root string
}

// NewPaths returns a layout rooted at dataDir.
func NewPaths(dataDir string) *Paths {
	return &Paths{root: dataDir}
}

// Root returns the data directory itself.
func (p *Paths) Root() string {
	return p.root
}

// RawDir returns the fetcher output directory.
func (p *Paths) RawDir() string {
	return filepath.Join(p.root, "raw")
}

// ProcessedDir returns the built-table and delta directory.
func (p *Paths) ProcessedDir() string {
	return filepath.Join(p.root, "processed")
}

// CacheDir returns the status-cache and ledger directory.
func (p *Paths) CacheDir() string {
	return filepath.Join(p.root, "cache")
}

// BackupDir returns the post-upload table dump directory.
func (p *Paths) BackupDir() string {
	return filepath.Join(p.root, "backup")
}

// Raw returns the path of a raw table file.
func (p *Paths) Raw(name string) string {
	return filepath.Join(p.RawDir(), name)
}

// Processed returns the path of a processed file.
func (p *Paths) Processed(name string) string {
	return filepath.Join(p.ProcessedDir(), name)
}

// StatusCache returns the status-cache path for a fetch source.
func (p *Paths) StatusCache(source string) string {
	return filepath.Join(p.CacheDir(), source+"_status.json")
}

// FailedLedger returns the failed-ID ledger path for a fetch source.
func (p *Paths) FailedLedger(source string) string {
	return filepath.Join(p.CacheDir(), source+"_failed.csv")
}

// Table returns the full-snapshot path for a database table.
func (p *Paths) Table(table string) string {
	return p.Processed(table + ".csv")
}

// Backup returns the backup-dump path for a database table.
func (p *Paths) Backup(table string) string {
	return filepath.Join(p.BackupDir(), table+".csv")
}

// TableUpdated returns the added-or-changed delta path for a table.
func (p *Paths) TableUpdated(table string) string {
	return p.Processed(table + "_updated.csv")
}

// TableRemoved returns the removed delta path for a table.
func (p *Paths) TableRemoved(table string) string {
	return p.Processed(table + "_removed.csv")
}

// RunHistory returns the path of the pipeline run-summary history.
func (p *Paths) RunHistory() string {
	return filepath.Join(p.CacheDir(), "runs.json")
}

// EnsureDirs creates the layout directories.
func (p *Paths) EnsureDirs() error {
	for _, dir := range []string{p.RawDir(), p.ProcessedDir(), p.CacheDir(), p.BackupDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create data directory %s: %w", dir, err)
		}
	}
	return nil
}
