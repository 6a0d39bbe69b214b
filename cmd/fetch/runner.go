package fetch

import (
	"context"
	"fmt"

	cmdcommon "github.com/jonesrussell/gamesync/cmd/common"
	"github.com/jonesrussell/gamesync/internal/cache"
	"github.com/jonesrussell/gamesync/internal/config"
	fetchpkg "github.com/jonesrussell/gamesync/internal/fetch"
	"github.com/jonesrussell/gamesync/internal/logger"
	"github.com/jonesrussell/gamesync/internal/ratelimit"
	"github.com/jonesrussell/gamesync/internal/snapshot"
	"github.com/jonesrussell/gamesync/internal/sources"
	"github.com/jonesrussell/gamesync/internal/storage"
)

// Runner executes fetches for the pipeline's sources. Each source gets
// its own rate-limit tracker and client: remote hosts throttle
// independently, so slowdown state must not leak between sources.
type Runner struct {
	deps cmdcommon.CommandDeps
}

func newRunner(deps cmdcommon.CommandDeps) *Runner {
	return &Runner{deps: deps}
}

// run dispatches one named source.
func (r *Runner) run(ctx context.Context, name string) (map[string]int, error) {
	switch name {
	case config.SourceCharts:
		return r.runCharts(ctx)
	case config.SourceList:
		return r.runList(ctx)
	case config.SourceDetails:
		return r.runDetails(ctx)
	case config.SourceReviews:
		return r.runEngineSource(ctx, config.SourceReviews, storage.FileCommonIDs, storage.FileGameReviews)
	case config.SourcePlayers:
		return r.runEngineSource(ctx, config.SourcePlayers, storage.FileCommonIDs, storage.FileActivePlayers)
	case config.SourceIDs:
		return r.runEngineSource(ctx, config.SourceIDs, storage.FilePaidList, storage.FileITADIDs)
	case config.SourcePrices:
		return r.runPrices(ctx)
	default:
		return nil, fmt.Errorf("unknown fetch source %q", name)
	}
}

// transport builds the per-source tracker and client pair.
func (r *Runner) transport(log logger.Interface) (*fetchpkg.Client, *ratelimit.Tracker) {
	cfg := r.deps.Config
	tracker := ratelimit.New(cfg.RateLimit, log)
	client := fetchpkg.NewClient(fetchpkg.ClientParams{
		Timeout:   cfg.Fetch.RequestTimeout,
		UserAgent: cfg.Scrape.UserAgent,
		RateLimit: cfg.RateLimit,
		Tracker:   tracker,
		Logger:    log,
	})
	return client, tracker
}

// runEngine assembles the batch engine for one source and runs it over
// the given work items.
func (r *Runner) runEngine(ctx context.Context, name string, items []fetchpkg.WorkItem, outputFile string) (fetchpkg.Stats, error) {
	cfg := r.deps.Config
	srcCfg, err := cfg.Fetch.Source(name)
	if err != nil {
		return fetchpkg.Stats{}, err
	}

	log := r.deps.Logger.With("source", name)
	client, tracker := r.transport(log)

	src, err := sources.New(name, srcCfg, sources.Params{
		Client:  client,
		Tracker: tracker,
		Scrape:  cfg.Scrape,
		Timeout: cfg.Fetch.RequestTimeout,
		Logger:  log,
	})
	if err != nil {
		return fetchpkg.Stats{}, err
	}

	engine, err := fetchpkg.NewEngine(fetchpkg.EngineParams{
		Source:     src,
		Config:     cfg.Fetch,
		SourceCfg:  srcCfg,
		Cache:      cache.New(r.deps.Paths.StatusCache(name), log),
		Tracker:    tracker,
		OutputPath: r.deps.Paths.Raw(outputFile),
		LedgerPath: r.deps.Paths.FailedLedger(name),
		Logger:     log,
	})
	if err != nil {
		return fetchpkg.Stats{}, err
	}

	return engine.Run(ctx, items)
}

// runEngineSource runs an engine-driven source whose work items come
// from the ID column of a previously fetched raw table.
func (r *Runner) runEngineSource(ctx context.Context, name, inputFile, outputFile string) (map[string]int, error) {
	items, err := r.itemsFromRaw(inputFile, "appid", "name")
	if err != nil {
		return nil, err
	}
	stats, err := r.runEngine(ctx, name, items, outputFile)
	return stats.Counts(), err
}

// runCharts scrapes the concurrent-player leaderboard page by page.
func (r *Runner) runCharts(ctx context.Context) (map[string]int, error) {
	pages := fetchpkg.PageItems(r.deps.Config.Scrape.Pages())
	stats, err := r.runEngine(ctx, config.SourceCharts, pages, storage.FileChartsTop)
	return stats.Counts(), err
}

// runList produces the downstream work list: scrape the leaderboard,
// walk the full catalog, and keep the catalog rows whose IDs charted.
func (r *Runner) runList(ctx context.Context) (map[string]int, error) {
	counts, err := r.runCharts(ctx)
	if err != nil {
		return counts, fmt.Errorf("leaderboard scrape: %w", err)
	}

	cfg := r.deps.Config
	srcCfg, err := cfg.Fetch.Source(config.SourceList)
	if err != nil {
		return counts, err
	}

	log := r.deps.Logger.With("source", config.SourceList)
	client, _ := r.transport(log)

	apps, err := sources.NewAppList(client, srcCfg, log).FetchAll(ctx)
	if err != nil {
		return counts, fmt.Errorf("catalog walk: %w", err)
	}
	if err := apps.WriteFile(r.deps.Paths.Raw(storage.FileAppList)); err != nil {
		return counts, err
	}
	counts["apps"] = apps.Len()

	charts, err := snapshot.ReadFile(r.deps.Paths.Raw(storage.FileChartsTop))
	if err != nil {
		return counts, fmt.Errorf("leaderboard output: %w", err)
	}
	common, err := sources.FilterCommonIDs(apps, charts)
	if err != nil {
		return counts, err
	}
	if err := common.WriteFile(r.deps.Paths.Raw(storage.FileCommonIDs)); err != nil {
		return counts, err
	}
	counts["common"] = common.Len()

	log.Info("Work list built", "apps", apps.Len(), "common", common.Len())
	return counts, nil
}

// runDetails fetches catalog details, then splits the output into the
// free and paid lists the deal lookups start from.
func (r *Runner) runDetails(ctx context.Context) (map[string]int, error) {
	items, err := r.itemsFromRaw(storage.FileCommonIDs, "appid", "name")
	if err != nil {
		return nil, err
	}

	stats, err := r.runEngine(ctx, config.SourceDetails, items, storage.FileGameDetails)
	counts := stats.Counts()
	if err != nil {
		return counts, err
	}

	details, err := snapshot.ReadFile(r.deps.Paths.Raw(storage.FileGameDetails))
	if err != nil {
		return counts, err
	}
	free, paid, err := sources.SplitFreePaid(details)
	if err != nil {
		return counts, err
	}
	if err := free.WriteFile(r.deps.Paths.Raw(storage.FileFreeList)); err != nil {
		return counts, err
	}
	if err := paid.WriteFile(r.deps.Paths.Raw(storage.FilePaidList)); err != nil {
		return counts, err
	}
	counts["free"] = free.Len()
	counts["paid"] = paid.Len()
	return counts, nil
}

// runPrices fetches deal prices for every resolved aggregator ID.
func (r *Runner) runPrices(ctx context.Context) (map[string]int, error) {
	// Rows with an unresolved aggregator ID are skipped by the item
	// builder.
	items, err := r.itemsFromRaw(storage.FileITADIDs, "itad_id", "name")
	if err != nil {
		return nil, err
	}
	stats, err := r.runEngine(ctx, config.SourcePrices, items, storage.FileITADPrices)
	return stats.Counts(), err
}

// itemsFromRaw builds engine work items from a raw table's ID column.
func (r *Runner) itemsFromRaw(file, idCol, nameCol string) ([]fetchpkg.WorkItem, error) {
	snap, err := snapshot.ReadFile(r.deps.Paths.Raw(file))
	if err != nil {
		return nil, fmt.Errorf("fetch input %s: %w", file, err)
	}
	items, err := fetchpkg.ItemsFromSnapshot(snap, idCol, nameCol)
	if err != nil {
		return nil, fmt.Errorf("fetch input %s: %w", file, err)
	}
	return items, nil
}
