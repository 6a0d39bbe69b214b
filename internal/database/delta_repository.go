package database

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jonesrussell/gamesync/internal/logger"
	"github.com/jonesrussell/gamesync/internal/snapshot"
)

// DeltaRepository applies staged table deltas: targeted deletes for
// removed rows and chunked multi-row upserts for added-or-changed rows.
type DeltaRepository struct {
	db        *sqlx.DB
	chunkSize int
	log       logger.Interface
}

// NewDeltaRepository creates a delta repository. chunkSize bounds the
// rows bound into a single statement.
func NewDeltaRepository(db *sqlx.DB, chunkSize int, log logger.Interface) *DeltaRepository {
	return &DeltaRepository{db: db, chunkSize: chunkSize, log: log}
}

// ApplyRemoved deletes the snapshot's rows from the table by identity.
// All chunks run in one transaction so a partially applied removal
// never survives.
func (r *DeltaRepository) ApplyRemoved(ctx context.Context, table string, snap *snapshot.Snapshot, identity []string) error {
	if snap.Empty() {
		return nil
	}
	idx, err := snap.IdentityIndices(identity)
	if err != nil {
		return fmt.Errorf("removed delta for %s: %w", table, err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	for start := 0; start < snap.Len(); start += r.chunkSize {
		chunk := snap.Rows[start:min(start+r.chunkSize, snap.Len())]
		query, args := deleteStatement(table, identity, idx, chunk)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to delete %s rows: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s deletes: %w", table, err)
	}
	r.log.Info("Applied removed delta", "table", table, "rows", snap.Len())
	return nil
}

// ApplyUpdated upserts the snapshot's rows by identity. Database-managed
// columns are stripped and empty cells bind NULL. All chunks run in one
// transaction.
func (r *DeltaRepository) ApplyUpdated(ctx context.Context, table string, snap *snapshot.Snapshot, identity []string) error {
	if snap.Empty() {
		return nil
	}

	cols := make([]string, 0, len(snap.Columns))
	src := make([]int, 0, len(snap.Columns))
	for j, col := range snap.Columns {
		if managedColumns[col] {
			continue
		}
		cols = append(cols, col)
		src = append(src, j)
	}
	for _, col := range identity {
		if !slices.Contains(cols, col) {
			return fmt.Errorf("updated delta for %s missing identity column %q", table, col)
		}
	}
	setCols := make([]string, 0, len(cols))
	for _, col := range cols {
		if !slices.Contains(identity, col) {
			setCols = append(setCols, col)
		}
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin upsert transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	for start := 0; start < snap.Len(); start += r.chunkSize {
		chunk := snap.Rows[start:min(start+r.chunkSize, snap.Len())]
		query, args := upsertStatement(table, cols, src, identity, setCols, chunk)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to upsert %s rows: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s upserts: %w", table, err)
	}
	r.log.Info("Applied updated delta", "table", table, "rows", snap.Len())
	return nil
}

// deleteStatement builds DELETE FROM table WHERE identity IN (tuples)
// for one chunk of rows.
func deleteStatement(table string, identity []string, idx []int, rows [][]string) (string, []any) {
	args := make([]any, 0, len(rows)*len(idx))
	tuples := make([]string, 0, len(rows))
	n := 1
	for _, row := range rows {
		marks := make([]string, len(idx))
		for i, j := range idx {
			marks[i] = fmt.Sprintf("$%d", n)
			args = append(args, row[j])
			n++
		}
		if len(idx) == 1 {
			tuples = append(tuples, marks[0])
		} else {
			tuples = append(tuples, "("+strings.Join(marks, ", ")+")")
		}
	}

	keys := quoteAll(identity)
	clause := keys[0]
	if len(keys) > 1 {
		clause = "(" + strings.Join(keys, ", ") + ")"
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE %s IN (%s)",
		pq.QuoteIdentifier(table), clause, strings.Join(tuples, ", "))
	return query, args
}

// upsertStatement builds a multi-row INSERT ... ON CONFLICT DO UPDATE
// for one chunk of rows.
func upsertStatement(table string, cols []string, src []int, identity, setCols []string, rows [][]string) (string, []any) {
	args := make([]any, 0, len(rows)*len(cols))
	values := make([]string, 0, len(rows))
	n := 1
	for _, row := range rows {
		marks := make([]string, len(cols))
		for i, j := range src {
			marks[i] = fmt.Sprintf("$%d", n)
			if j < len(row) && row[j] != "" {
				args = append(args, row[j])
			} else {
				args = append(args, nil)
			}
			n++
		}
		values = append(values, "("+strings.Join(marks, ", ")+")")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES %s ON CONFLICT (%s)",
		pq.QuoteIdentifier(table),
		strings.Join(quoteAll(cols), ", "),
		strings.Join(values, ", "),
		strings.Join(quoteAll(identity), ", "),
	)

	if len(setCols) == 0 {
		b.WriteString(" DO NOTHING")
	} else {
		assignments := make([]string, len(setCols))
		for i, col := range setCols {
			quoted := pq.QuoteIdentifier(col)
			assignments[i] = quoted + " = EXCLUDED." + quoted
		}
		b.WriteString(" DO UPDATE SET " + strings.Join(assignments, ", "))
	}
	return b.String(), args
}

func quoteAll(cols []string) []string {
	quoted := make([]string, len(cols))
	for i, col := range cols {
		quoted[i] = pq.QuoteIdentifier(col)
	}
	return quoted
}
