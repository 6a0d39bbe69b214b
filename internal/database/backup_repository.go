package database

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jonesrussell/gamesync/internal/snapshot"
)

// BackupRepository dumps live tables into snapshots. The dumps become
// the previous side of the next run's reconciliation, so cell
// formatting must match what the table builders emit.
type BackupRepository struct {
	db *sqlx.DB
}

// NewBackupRepository creates a new backup repository.
func NewBackupRepository(db *sqlx.DB) *BackupRepository {
	return &BackupRepository{db: db}
}

// DumpTable reads the whole table ordered by its identity columns,
// excluding database-managed columns so the snapshot stays comparable
// with built tables.
func (r *BackupRepository) DumpTable(ctx context.Context, table string, identity []string) (*snapshot.Snapshot, error) {
	query := fmt.Sprintf("SELECT * FROM %s ORDER BY %s",
		pq.QuoteIdentifier(table), strings.Join(quoteAll(identity), ", "))

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to dump table %s: %w", table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	kept := make([]int, 0, len(columns))
	names := make([]string, 0, len(columns))
	for i, col := range columns {
		if managedColumns[col] {
			continue
		}
		kept = append(kept, i)
		names = append(names, col)
	}

	snap := snapshot.New(names...)
	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", table, err)
		}
		row := make([]string, len(kept))
		for i, j := range kept {
			row[i] = formatValue(values[j])
		}
		snap.Rows = append(snap.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s rows: %w", table, err)
	}

	return snap, nil
}

// formatValue renders a scanned database value the way the table
// builders format cells, so dump-vs-build comparison is plain string
// equality. NULL becomes the empty cell.
func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(v)
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}
