package database_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/gamesync/internal/database"
	"github.com/jonesrussell/gamesync/internal/logger"
	"github.com/jonesrussell/gamesync/internal/snapshot"
)

func newDeltaRepo(t *testing.T, chunkSize int) (*database.DeltaRepository, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db := sqlx.NewDb(mockDB, "postgres")
	return database.NewDeltaRepository(db, chunkSize, logger.NewNoOp()), mock
}

func deltaSnap(t *testing.T, columns []string, rows ...[]string) *snapshot.Snapshot {
	t.Helper()
	s := snapshot.New(columns...)
	for _, row := range rows {
		require.NoError(t, s.Append(row))
	}
	return s
}

func TestApplyRemovedSingleIdentity(t *testing.T) {
	repo, mock := newDeltaRepo(t, 500)
	snap := deltaSnap(t, []string{"id", "category_name"},
		[]string{"3", "Action"},
		[]string{"7", "Puzzle"},
	)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "category" WHERE "id" IN ($1, $2)`)).
		WithArgs("3", "7").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := repo.ApplyRemoved(context.Background(), "category", snap, []string{"id"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyRemovedCompositeIdentity(t *testing.T) {
	repo, mock := newDeltaRepo(t, 500)
	snap := deltaSnap(t,
		[]string{"game_id", "platform_id", "discount_rate", "discount_price", "url"},
		[]string{"730", "61", "0", "15", "https://store/730"},
	)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(
		`DELETE FROM "current_price_by_platform" WHERE ("game_id", "platform_id") IN (($1, $2))`)).
		WithArgs("730", "61").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.ApplyRemoved(context.Background(), "current_price_by_platform", snap,
		[]string{"game_id", "platform_id"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyRemovedChunksInOneTransaction(t *testing.T) {
	repo, mock := newDeltaRepo(t, 1)
	snap := deltaSnap(t, []string{"id"}, []string{"1"}, []string{"2"})

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "platform" WHERE "id" IN ($1)`)).
		WithArgs("1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "platform" WHERE "id" IN ($1)`)).
		WithArgs("2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.ApplyRemoved(context.Background(), "platform", snap, []string{"id"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyRemovedEmptySnapshotTouchesNothing(t *testing.T) {
	repo, mock := newDeltaRepo(t, 500)

	err := repo.ApplyRemoved(context.Background(), "category",
		snapshot.New("id", "category_name"), []string{"id"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyUpdatedUpsert(t *testing.T) {
	repo, mock := newDeltaRepo(t, 500)
	snap := deltaSnap(t, []string{"game_id", "rating"},
		[]string{"730", "9"},
		[]string{"570", "8"},
	)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(
		`INSERT INTO "game_dynamic" ("game_id", "rating") VALUES ($1, $2), ($3, $4) `+
			`ON CONFLICT ("game_id") DO UPDATE SET "rating" = EXCLUDED."rating"`)).
		WithArgs("730", "9", "570", "8").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := repo.ApplyUpdated(context.Background(), "game_dynamic", snap, []string{"game_id"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyUpdatedStripsManagedColumnsAndBindsNull(t *testing.T) {
	repo, mock := newDeltaRepo(t, 500)
	snap := deltaSnap(t, []string{"id", "name", "created_at"},
		[]string{"5", "", "2025-01-01T00:00:00Z"},
	)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(
		`INSERT INTO "platform" ("id", "name") VALUES ($1, $2) `+
			`ON CONFLICT ("id") DO UPDATE SET "name" = EXCLUDED."name"`)).
		WithArgs("5", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.ApplyUpdated(context.Background(), "platform", snap, []string{"id"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyUpdatedMissingIdentityColumn(t *testing.T) {
	repo, mock := newDeltaRepo(t, 500)
	snap := deltaSnap(t, []string{"id", "name"}, []string{"5", "GOG"})

	err := repo.ApplyUpdated(context.Background(), "game_dynamic", snap, []string{"game_id"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing identity column "game_id"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyUpdatedRollsBackOnError(t *testing.T) {
	repo, mock := newDeltaRepo(t, 500)
	snap := deltaSnap(t, []string{"id", "category_name"}, []string{"1", "Action"})

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO").WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	err := repo.ApplyUpdated(context.Background(), "category", snap, []string{"id"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to upsert category rows")
	assert.NoError(t, mock.ExpectationsWereMet())
}
