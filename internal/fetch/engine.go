package fetch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jonesrussell/gamesync/internal/cache"
	"github.com/jonesrussell/gamesync/internal/config"
	"github.com/jonesrussell/gamesync/internal/logger"
	"github.com/jonesrussell/gamesync/internal/ratelimit"
	"github.com/jonesrussell/gamesync/internal/snapshot"
	"github.com/jonesrussell/gamesync/internal/worker"
)

// Stats counts fetch attempts over one run. Success, Failed, and
// Errored count attempts, so a retried item contributes more than once;
// Unresolved is the number of distinct items still failing at the end.
type Stats struct {
	Input       int
	Success     int
	Failed      int
	Errored     int
	Skipped     int
	Unresolved  int
	Quarantined int
}

// Counts returns the stats as a map for run summaries.
func (s Stats) Counts() map[string]int {
	return map[string]int{
		"input":       s.Input,
		"success":     s.Success,
		"failed":      s.Failed,
		"errored":     s.Errored,
		"skipped":     s.Skipped,
		"unresolved":  s.Unresolved,
		"quarantined": s.Quarantined,
	}
}

// EngineParams wires an Engine's collaborators.
type EngineParams struct {
	Source     Source
	Config     *config.FetchConfig
	SourceCfg  *config.SourceConfig
	Cache      *cache.StatusCache
	Tracker    *ratelimit.Tracker
	OutputPath string
	LedgerPath string
	Logger     logger.Interface
}

// Engine drives the staged batch-fetch protocol for one source: a first
// pass over the input in batches with a checkpoint after every batch,
// then a fixed schedule of retry stages over failed and errored items,
// then a ledger write so the next run can pick up what is still broken.
type Engine struct {
	src    Source
	group  GroupSource // non-nil when the source fetches whole batches
	cfg    *config.FetchConfig
	srcCfg *config.SourceConfig

	cache   *cache.StatusCache
	tracker *ratelimit.Tracker
	pool    *worker.Pool
	log     logger.Interface

	outputPath string
	ledgerPath string
	output     *snapshot.Snapshot

	names   map[string]string
	failed  []WorkItem
	errored []WorkItem

	stats         Stats
	checkpointErr error

	sleep func(time.Duration)
}

// NewEngine creates an engine for one source.
func NewEngine(p EngineParams) (*Engine, error) {
	if p.Source == nil {
		return nil, errors.New("source cannot be nil")
	}
	if p.Config == nil || p.SourceCfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if p.Cache == nil {
		return nil, errors.New("cache cannot be nil")
	}
	if p.Tracker == nil {
		return nil, errors.New("tracker cannot be nil")
	}
	if p.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	e := &Engine{
		src:        p.Source,
		cfg:        p.Config,
		srcCfg:     p.SourceCfg,
		cache:      p.Cache,
		tracker:    p.Tracker,
		pool:       worker.NewPool(p.Config.Workers),
		log:        p.Logger,
		outputPath: p.OutputPath,
		ledgerPath: p.LedgerPath,
		sleep:      time.Sleep,
	}
	e.group, _ = p.Source.(GroupSource)
	return e, nil
}

// Run drains items through the full protocol and returns attempt stats.
// The returned error reports checkpoint trouble or cancellation; fetch
// failures are counted, ledgered, and logged, never fatal.
func (e *Engine) Run(ctx context.Context, items []WorkItem) (Stats, error) {
	e.stats = Stats{Input: len(items)}
	e.failed = nil
	e.errored = nil
	e.checkpointErr = nil

	e.names = make(map[string]string, len(items))
	for _, item := range items {
		if item.Name != "" {
			e.names[item.ID] = item.Name
		}
	}

	if err := e.loadOutput(); err != nil {
		return e.stats, err
	}

	e.log.Info("Fetch run starting",
		"source", e.src.Name(),
		"items", len(items),
		"cached", e.cache.Len(),
	)

	e.fetchBatches(ctx, items, e.cfg.BatchSize)

	// Unresolved items from the previous run join this run's retries.
	if ledger := e.readLedger(); len(ledger) > 0 {
		e.log.Info("Loaded failed-ID ledger", "source", e.src.Name(), "items", len(ledger))
		e.failed = append(e.failed, ledger...)
	}

	e.retryStage(ctx, &e.errored, 3, "errored")
	e.retryStage(ctx, &e.failed, 2, "failed")
	e.retryStage(ctx, &e.errored, 1, "errored")
	e.retryStage(ctx, &e.failed, 1, "failed")
	e.finalSweep(ctx)

	e.stats.Unresolved = e.writeLedger()
	for _, key := range e.cache.UnresolvedKeys() {
		if e.cache.TooManyFails(key, e.cfg.MaxAttempts) {
			e.stats.Quarantined++
		}
	}

	e.log.Info("Fetch run finished",
		"source", e.src.Name(),
		"success", e.stats.Success,
		"failed", e.stats.Failed,
		"errored", e.stats.Errored,
		"skipped", e.stats.Skipped,
		"unresolved", e.stats.Unresolved,
		"quarantined", e.stats.Quarantined,
	)
	if e.checkpointErr != nil {
		return e.stats, e.checkpointErr
	}
	return e.stats, ctx.Err()
}

// fetchBatches splits items into consecutive batches, dispatches each,
// and checkpoints after every batch so a crash loses at most one batch.
func (e *Engine) fetchBatches(ctx context.Context, items []WorkItem, batchSize int) {
	if batchSize < 1 {
		batchSize = 1
	}

	for start := 0; start < len(items); start += batchSize {
		if ctx.Err() != nil {
			return
		}

		batch := items[start:min(start+batchSize, len(items))]
		outcomes := e.dispatch(ctx, batch)
		if len(outcomes) == 0 {
			continue
		}

		e.record(outcomes)

		if err := e.checkpoint(); err != nil {
			e.log.Error("Checkpoint failed", "source", e.src.Name(), "error", err)
			if e.checkpointErr == nil {
				e.checkpointErr = err
			}
		}
	}
}

// dispatch fetches one batch, skipping cached and quarantined items.
// It blocks until every dispatched item has completed: batch completion
// is the synchronization barrier checkpointing depends on.
func (e *Engine) dispatch(ctx context.Context, batch []WorkItem) []Outcome {
	pending := make([]WorkItem, 0, len(batch))
	for _, item := range batch {
		if e.shouldSkip(item) {
			e.stats.Skipped++
			continue
		}
		pending = append(pending, item)
	}
	if len(pending) == 0 {
		return nil
	}

	if e.group != nil {
		e.sleep(e.tracker.CurrentDelay(e.srcCfg.BaseDelay))
		return e.group.FetchGroup(ctx, pending)
	}

	results := make(chan Outcome, len(pending))
	for _, item := range pending {
		item := item
		e.sleep(e.tracker.CurrentDelay(e.srcCfg.BaseDelay))
		if err := e.pool.Submit(ctx, func() {
			results <- e.src.FetchOne(ctx, item)
		}); err != nil {
			results <- Errored(item, err)
		}
	}
	e.pool.Wait()
	close(results)

	outcomes := make([]Outcome, 0, len(pending))
	for out := range results {
		outcomes = append(outcomes, out)
	}
	return outcomes
}

// shouldSkip reports whether an item needs no network call: a fresh
// success, or a quarantined repeat failure.
func (e *Engine) shouldSkip(item WorkItem) bool {
	entry, ok := e.cache.Get(item.ID)
	if !ok {
		return false
	}
	if entry.Status == cache.StatusSuccess {
		if e.srcCfg.Staleness > 0 && e.cache.IsStale(item.ID, e.srcCfg.Staleness) {
			return false
		}
		return true
	}
	return e.cache.TooManyFails(item.ID, e.cfg.MaxAttempts)
}

// record applies a batch's outcomes to the cache, the output table, and
// the retry lists. This runs on the engine's goroutine only; workers
// never mutate shared state.
func (e *Engine) record(outcomes []Outcome) {
	for _, out := range outcomes {
		switch out.Class {
		case ClassSuccess:
			e.cache.MarkSuccess(out.Item.ID)
			for _, rec := range out.Rows {
				e.output.AppendRecord(rec)
			}
			e.stats.Success++
		case ClassFailed:
			e.cache.RecordFail(out.Item.ID)
			for _, rec := range out.Rows {
				e.output.AppendRecord(rec)
			}
			e.failed = append(e.failed, out.Item)
			e.stats.Failed++
			e.log.Debug("Fetch returned no data",
				"source", e.src.Name(),
				"id", out.Item.ID,
				"error", out.Err,
			)
		case ClassErrored:
			code := out.Code
			if code == "" {
				code = CodeConnection
			}
			e.cache.MarkStatus(out.Item.ID, code)
			e.errored = append(e.errored, out.Item)
			e.stats.Errored++
			e.log.Warn("Fetch errored",
				"source", e.src.Name(),
				"id", out.Item.ID,
				"code", code,
				"error", out.Err,
			)
		}
	}
}

// retryStage runs up to rounds passes over the given list with the
// smaller retry batch size. The list refills as attempts fail again, so
// each round consumes it and stops early once it stays empty.
func (e *Engine) retryStage(ctx context.Context, list *[]WorkItem, rounds int, stage string) {
	for round := 1; round <= rounds; round++ {
		targets := dedupeItems(*list)
		if len(targets) == 0 {
			return
		}
		*list = nil

		e.log.Info("Retry round starting",
			"source", e.src.Name(),
			"stage", stage,
			"round", round,
			"targets", len(targets),
		)
		e.fetchBatches(ctx, targets, e.cfg.RetryBatchSize)
		e.sleep(e.cfg.RetryCooldown)
	}
}

// finalSweep takes one last round over every cached non-success key, so
// entities that failed in runs before this one get a chance too.
func (e *Engine) finalSweep(ctx context.Context) {
	keys := e.cache.UnresolvedKeys()
	if len(keys) == 0 {
		return
	}

	targets := make([]WorkItem, 0, len(keys))
	for _, key := range keys {
		targets = append(targets, WorkItem{ID: key, Name: e.names[key]})
	}
	e.retryStage(ctx, &targets, 1, "final")
}

// checkpoint merges and persists the output table and the cache. Rows
// re-fetched this batch replace their previous versions.
func (e *Engine) checkpoint() error {
	keys := e.src.DedupeKeys()
	if err := e.output.DedupeLast(keys); err != nil {
		return fmt.Errorf("failed to dedupe output: %w", err)
	}
	if err := e.output.SortBy(keys...); err != nil {
		return fmt.Errorf("failed to sort output: %w", err)
	}
	if err := e.output.WriteFile(e.outputPath); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := e.cache.Save(); err != nil {
		return fmt.Errorf("failed to save cache: %w", err)
	}
	return nil
}

// loadOutput starts the output table from the previous run's file, if
// any, remapped onto the source's current schema.
func (e *Engine) loadOutput() error {
	e.output = snapshot.New(e.src.Columns()...)

	existing, err := snapshot.ReadFile(e.outputPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load existing output: %w", err)
	}
	e.output.AppendAll(existing)
	return nil
}

// dedupeItems drops repeated IDs, keeping first occurrence order.
func dedupeItems(items []WorkItem) []WorkItem {
	seen := make(map[string]struct{}, len(items))
	out := make([]WorkItem, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		out = append(out, item)
	}
	return out
}
