package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/gamesync/internal/reconcile"
)

// managedColumns are maintained by the database itself and never appear
// in built snapshots, so they are excluded from the required-column
// policy and from upserts.
var managedColumns = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"deleted_at": true,
}

// SchemaRepository reads table metadata from information_schema.
type SchemaRepository struct {
	db *sqlx.DB
}

// NewSchemaRepository creates a new schema repository.
func NewSchemaRepository(db *sqlx.DB) *SchemaRepository {
	return &SchemaRepository{db: db}
}

// NotNullColumns returns the NOT NULL columns of every public table,
// keyed by table name. The result is the required-column policy applied
// to built snapshots before reconciliation.
func (r *SchemaRepository) NotNullColumns(ctx context.Context) (reconcile.NotNullPolicy, error) {
	query := `
		SELECT table_name, column_name
		FROM information_schema.columns
		WHERE table_schema = 'public'
		  AND is_nullable = 'NO'
		  AND table_name NOT LIKE 'pg_%'
		  AND table_name NOT LIKE 'sql_%'
		ORDER BY table_name, ordinal_position
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query not-null columns: %w", err)
	}
	defer rows.Close()

	policy := make(reconcile.NotNullPolicy)
	for rows.Next() {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			return nil, fmt.Errorf("failed to scan not-null column: %w", err)
		}
		if managedColumns[column] {
			continue
		}
		policy[table] = append(policy[table], column)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read not-null columns: %w", err)
	}

	return policy, nil
}
