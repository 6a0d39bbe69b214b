package table

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jonesrussell/gamesync/internal/logger"
	"github.com/jonesrussell/gamesync/internal/reconcile"
	"github.com/jonesrussell/gamesync/internal/snapshot"
	"github.com/jonesrussell/gamesync/internal/storage"
)

// listSeparator splits multi-valued cells. Must match the separator the
// detail fetcher joins genre and category lists with.
const listSeparator = ";"

// Builder materializes the downstream tables from raw fetch output and
// stages each table's deltas against its previous snapshot.
type Builder struct {
	in     *Inputs
	specs  map[string]Spec
	policy reconcile.NotNullPolicy
	paths  *storage.Paths
	log    logger.Interface

	genres *genreIndex
}

// BuilderParams configures a Builder. A nil Specs map uses the default
// table specs; a nil Policy skips required-column filtering entirely.
type BuilderParams struct {
	Inputs *Inputs
	Specs  map[string]Spec
	Policy reconcile.NotNullPolicy
	Paths  *storage.Paths
	Logger logger.Interface
}

// NewBuilder creates a builder over loaded inputs.
func NewBuilder(p BuilderParams) *Builder {
	specs := p.Specs
	if specs == nil {
		specs = Specs(nil)
	}
	return &Builder{
		in:     p.Inputs,
		specs:  specs,
		policy: p.Policy,
		paths:  p.Paths,
		log:    p.Logger,
	}
}

// Report summarizes one build pass over all tables.
type Report struct {
	Staged    []string
	Unchanged []string
}

// Counts renders the report as run-summary counts.
func (r *Report) Counts() map[string]int {
	return map[string]int{
		"staged":    len(r.Staged),
		"unchanged": len(r.Unchanged),
	}
}

// BuildAll materializes every table in dependency order, filters and
// sorts each, and stages its deltas. The processed directory is swept
// of foreign artifacts first so nothing from an abandoned run leaks
// into the next upload.
func (b *Builder) BuildAll() (*Report, error) {
	if err := b.sweepProcessed(); err != nil {
		return nil, err
	}

	report := &Report{}
	for _, name := range Order() {
		built, err := b.build(name)
		if err != nil {
			return nil, fmt.Errorf("failed to build %s: %w", name, err)
		}
		final, err := b.finalize(name, built)
		if err != nil {
			return nil, fmt.Errorf("failed to finalize %s: %w", name, err)
		}
		b.log.Debug("Built table", "table", name, "rows", final.Len())

		staged, err := b.stageDeltas(name, final)
		if err != nil {
			return nil, err
		}
		if staged {
			report.Staged = append(report.Staged, name)
		} else {
			report.Unchanged = append(report.Unchanged, name)
		}

		// game_dynamic consumes the full price table later in this
		// pass, so it is written out even when nothing changed.
		if name == CurrentPriceByPlatform {
			if err := final.WriteFile(b.paths.Table(name)); err != nil {
				return nil, err
			}
		}
	}
	return report, nil
}

func (b *Builder) build(name string) (*snapshot.Snapshot, error) {
	switch name {
	case Category:
		return b.buildCategory()
	case Platform:
		return b.buildPlatform()
	case CurrentPriceByPlatform:
		return b.buildCurrentPrice()
	case GameCategory:
		return b.buildGameCategory()
	case GameDynamic:
		return b.buildGameDynamic()
	case GameStatic:
		return b.buildGameStatic()
	default:
		return nil, fmt.Errorf("unknown table %s", name)
	}
}

// finalize applies the required-column policy and sorts by identity so
// snapshots diff deterministically across runs.
func (b *Builder) finalize(name string, snap *snapshot.Snapshot) (*snapshot.Snapshot, error) {
	if b.policy != nil {
		snap = b.policy.Filter(name, snap, b.log)
	}
	if err := snap.SortBy(b.specs[name].Identity...); err != nil {
		return nil, err
	}
	return snap, nil
}

func (b *Builder) stageDeltas(name string, snap *snapshot.Snapshot) (bool, error) {
	previous, err := b.loadPrevious(name)
	if err != nil {
		return false, err
	}
	delta, err := reconcile.Diff(snap, previous, b.specs[name].Identity)
	if err != nil {
		return false, fmt.Errorf("failed to reconcile %s: %w", name, err)
	}
	return reconcile.StageDeltas(b.paths, name, delta, b.log)
}

func (b *Builder) loadPrevious(name string) (*snapshot.Snapshot, error) {
	path := b.paths.Table(name)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	previous, err := snapshot.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load previous %s snapshot: %w", name, err)
	}
	return previous, nil
}

// sweepProcessed removes processed CSVs that are not full table
// snapshots, clearing delta files an interrupted run never uploaded.
func (b *Builder) sweepProcessed() error {
	keep := make(map[string]bool, len(b.specs))
	for _, name := range Order() {
		keep[name+".csv"] = true
	}

	entries, err := os.ReadDir(b.paths.ProcessedDir())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to scan processed directory: %w", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".csv") || keep[name] {
			continue
		}
		if err := os.Remove(filepath.Join(b.paths.ProcessedDir(), name)); err != nil {
			return fmt.Errorf("failed to sweep stale artifact %s: %w", name, err)
		}
		b.log.Debug("Swept stale processed artifact", "file", name)
	}
	return nil
}

// requireColumns resolves column positions in a raw input, failing fast
// on schema drift.
func requireColumns(snap *snapshot.Snapshot, input string, names ...string) ([]int, error) {
	idx := make([]int, len(names))
	for i, name := range names {
		pos := snap.ColumnIndex(name)
		if pos < 0 {
			return nil, fmt.Errorf("%s input missing column %q", input, name)
		}
		idx[i] = pos
	}
	return idx, nil
}

// parseNumber parses a numeric cell. Empty cells are not numbers.
func parseNumber(cell string) (float64, bool) {
	f, err := strconv.ParseFloat(cell, 64)
	return f, err == nil
}

// formatTruncated renders a numeric value the way the integer table
// columns store it, truncating toward zero.
func formatTruncated(f float64) string {
	return strconv.FormatInt(int64(f), 10)
}

// splitList splits a multi-valued cell into trimmed non-empty parts.
func splitList(cell string) []string {
	if cell == "" {
		return nil
	}
	parts := strings.Split(cell, listSeparator)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
