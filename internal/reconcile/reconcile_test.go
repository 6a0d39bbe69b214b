package reconcile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/gamesync/internal/reconcile"
	"github.com/jonesrussell/gamesync/internal/snapshot"
)

func buildSnap(t *testing.T, columns []string, rows ...[]string) *snapshot.Snapshot {
	t.Helper()
	snap := snapshot.New(columns...)
	for _, row := range rows {
		require.NoError(t, snap.Append(row))
	}
	return snap
}

func TestDiffFirstRun(t *testing.T) {
	current := buildSnap(t, []string{"id", "price"}, []string{"1", "10"}, []string{"2", "20"})

	delta, err := reconcile.Diff(current, nil, []string{"id"})
	require.NoError(t, err)

	assert.False(t, delta.Empty())
	assert.Equal(t, current.Rows, delta.AddedOrChanged.Rows)
	assert.True(t, delta.Removed.Empty())
}

func TestDiffAddChangeRemove(t *testing.T) {
	previous := buildSnap(t, []string{"id", "price"}, []string{"1", "10"}, []string{"2", "20"})
	current := buildSnap(t, []string{"id", "price"}, []string{"1", "15"}, []string{"3", "5"})

	delta, err := reconcile.Diff(current, previous, []string{"id"})
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"1", "15"}, {"3", "5"}}, delta.AddedOrChanged.Rows)
	assert.Equal(t, [][]string{{"2", "20"}}, delta.Removed.Rows)
}

func TestDiffNoChanges(t *testing.T) {
	previous := buildSnap(t, []string{"id", "price"}, []string{"1", "10"}, []string{"2", "20"})
	current := buildSnap(t, []string{"id", "price"}, []string{"1", "10"}, []string{"2", "20"})

	delta, err := reconcile.Diff(current, previous, []string{"id"})
	require.NoError(t, err)

	assert.True(t, delta.Empty())
}

func TestDiffUnchangedRowsExcluded(t *testing.T) {
	previous := buildSnap(t, []string{"id", "name", "price"},
		[]string{"1", "a", "10"},
		[]string{"2", "b", "20"},
	)
	current := buildSnap(t, []string{"id", "name", "price"},
		[]string{"1", "a", "10"},
		[]string{"2", "b", "25"},
	)

	delta, err := reconcile.Diff(current, previous, []string{"id"})
	require.NoError(t, err)

	require.Equal(t, 1, delta.AddedOrChanged.Len())
	assert.Equal(t, []string{"2", "b", "25"}, delta.AddedOrChanged.Rows[0])
	assert.True(t, delta.Removed.Empty())
}

func TestDiffCompositeIdentity(t *testing.T) {
	previous := buildSnap(t, []string{"game_id", "platform_id", "price"},
		[]string{"10", "61", "20"},
		[]string{"10", "35", "18"},
	)
	current := buildSnap(t, []string{"game_id", "platform_id", "price"},
		[]string{"10", "61", "15"},
		[]string{"10", "35", "18"},
	)

	delta, err := reconcile.Diff(current, previous, []string{"game_id", "platform_id"})
	require.NoError(t, err)

	require.Equal(t, 1, delta.AddedOrChanged.Len())
	assert.Equal(t, []string{"10", "61", "15"}, delta.AddedOrChanged.Rows[0])
	assert.True(t, delta.Removed.Empty())
}

func TestDiffPreviousColumnOrderDiffers(t *testing.T) {
	previous := buildSnap(t, []string{"price", "id"}, []string{"10", "1"})
	current := buildSnap(t, []string{"id", "price"}, []string{"1", "10"})

	delta, err := reconcile.Diff(current, previous, []string{"id"})
	require.NoError(t, err)

	assert.True(t, delta.Empty(), "column order must not affect comparison")
}

func TestDiffSchemaMismatch(t *testing.T) {
	previous := buildSnap(t, []string{"id", "cost"}, []string{"1", "10"})
	current := buildSnap(t, []string{"id", "price"}, []string{"1", "10"})

	_, err := reconcile.Diff(current, previous, []string{"id"})
	require.Error(t, err)
}

func TestDiffMissingIdentityColumn(t *testing.T) {
	current := buildSnap(t, []string{"id", "price"}, []string{"1", "10"})

	_, err := reconcile.Diff(current, nil, []string{"game_id"})
	require.Error(t, err)
}
