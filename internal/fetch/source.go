// Package fetch implements the incremental batch-fetch protocol shared
// by every data source: cache-aware skipping, bounded-concurrency
// dispatch, per-batch checkpoints, and staged retries over failures.
package fetch

import "context"

// WorkItem is one unit of fetch work: an entity ID plus an optional
// display name carried along for ledgers and log lines.
type WorkItem struct {
	ID   string
	Name string
}

// Source is a single remote data source. Implementations supply only
// the endpoint call and response parsing; the engine owns batching,
// caching, pacing, and retries.
type Source interface {
	// Name identifies the source in logs, cache files, and ledgers.
	Name() string
	// Columns is the schema of the source's output table.
	Columns() []string
	// DedupeKeys is the identity tuple used when merging freshly
	// fetched rows into the persisted output at checkpoints.
	DedupeKeys() []string
	// FetchOne fetches a single item and classifies the result. It
	// must not panic and must classify every failure mode rather than
	// returning a bare error.
	FetchOne(ctx context.Context, item WorkItem) Outcome
}

// GroupSource is a source whose remote endpoint accepts many IDs per
// request. The engine sends it whole batches instead of dispatching
// items to the worker pool; transport retries happen inside FetchGroup.
type GroupSource interface {
	Source
	FetchGroup(ctx context.Context, items []WorkItem) []Outcome
}
