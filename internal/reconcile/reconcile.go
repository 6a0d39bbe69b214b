// Package reconcile diffs freshly built table snapshots against their
// previously persisted versions and stages the resulting delta files
// for the database uploader.
package reconcile

import (
	"fmt"
	"slices"

	"github.com/jonesrussell/gamesync/internal/snapshot"
)

// Delta holds the outcome of reconciling one table: rows to upsert and
// rows to delete, keyed by the table's identity columns.
type Delta struct {
	AddedOrChanged *snapshot.Snapshot
	Removed        *snapshot.Snapshot
}

// Empty reports whether the reconciliation was a no-op.
func (d *Delta) Empty() bool {
	return d.AddedOrChanged.Empty() && d.Removed.Empty()
}

// Diff compares current against previous, keyed by the identity
// columns. Rows only in current, or present in both with any
// non-identity cell differing, land in AddedOrChanged with their
// current values; rows only in previous land in Removed. A nil or
// empty previous means a first run: everything is added.
func Diff(current, previous *snapshot.Snapshot, identity []string) (*Delta, error) {
	idx, err := current.IdentityIndices(identity)
	if err != nil {
		return nil, fmt.Errorf("current table: %w", err)
	}

	delta := &Delta{
		AddedOrChanged: snapshot.New(current.Columns...),
		Removed:        snapshot.New(current.Columns...),
	}

	if previous.Empty() {
		for _, row := range current.Rows {
			if err := delta.AddedOrChanged.Append(row); err != nil {
				return nil, err
			}
		}
		return delta, nil
	}

	prev, err := align(previous, current.Columns)
	if err != nil {
		return nil, fmt.Errorf("previous table: %w", err)
	}

	prevByKey := make(map[string][]string, prev.Len())
	for _, row := range prev.Rows {
		prevByKey[snapshot.Key(row, idx)] = row
	}

	isIdentity := make(map[int]bool, len(idx))
	for _, i := range idx {
		isIdentity[i] = true
	}

	seen := make(map[string]struct{}, current.Len())
	for _, row := range current.Rows {
		key := snapshot.Key(row, idx)
		seen[key] = struct{}{}

		prevRow, ok := prevByKey[key]
		if !ok || rowChanged(row, prevRow, isIdentity) {
			if err := delta.AddedOrChanged.Append(row); err != nil {
				return nil, err
			}
		}
	}

	for _, row := range prev.Rows {
		if _, ok := seen[snapshot.Key(row, idx)]; ok {
			continue
		}
		if err := delta.Removed.Append(row); err != nil {
			return nil, err
		}
	}
	return delta, nil
}

// rowChanged reports whether any non-identity cell differs between the
// current and previous versions of a row.
func rowChanged(current, previous []string, isIdentity map[int]bool) bool {
	for i := range current {
		if isIdentity[i] {
			continue
		}
		if i >= len(previous) || current[i] != previous[i] {
			return true
		}
	}
	return false
}

// align rebuilds snap's rows in the given column order. Snapshots of
// the same logical table are only comparable when their column names
// match, so a genuine schema difference is an error.
func align(snap *snapshot.Snapshot, columns []string) (*snapshot.Snapshot, error) {
	if slices.Equal(snap.Columns, columns) {
		return snap, nil
	}
	if len(snap.Columns) != len(columns) {
		return nil, fmt.Errorf("has %d columns, expected %d", len(snap.Columns), len(columns))
	}

	idx := make([]int, len(columns))
	for i, name := range columns {
		j := snap.ColumnIndex(name)
		if j < 0 {
			return nil, fmt.Errorf("missing column %q", name)
		}
		idx[i] = j
	}

	out := snapshot.New(columns...)
	for _, row := range snap.Rows {
		aligned := make([]string, len(columns))
		for i, j := range idx {
			if j < len(row) {
				aligned[i] = row[j]
			}
		}
		if err := out.Append(aligned); err != nil {
			return nil, err
		}
	}
	return out, nil
}
