package run_test

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/gamesync/internal/logger"
	"github.com/jonesrussell/gamesync/internal/run"
)

func TestRecorderLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.json")
	r := run.NewRecorder(path, logger.NewNoOp())
	require.NotEmpty(t, r.ID())

	start := time.Now()
	r.RecordStep("fetch:details", start, map[string]int{"success": 10, "failed": 2}, nil)
	r.RecordStep("process", start, nil, nil)

	summary, err := r.Finish()
	require.NoError(t, err)
	assert.Equal(t, run.StatusCompleted, summary.Status)
	require.Len(t, summary.Steps, 2)
	assert.Equal(t, run.StepCompleted, summary.Steps[0].Status)
	assert.Equal(t, 10, summary.Steps[0].Counts["success"])

	loaded, err := run.LoadLatest(path)
	require.NoError(t, err)
	assert.Equal(t, summary.ID, loaded.ID)
	assert.Len(t, loaded.Steps, 2)
}

func TestRecorderStepFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.json")
	r := run.NewRecorder(path, logger.NewNoOp())

	r.RecordStep("fetch:reviews", time.Now(), nil, errors.New("boom"))
	r.RecordStep("upload", time.Now(), nil, nil)
	r.RecordSkip("backup", "storage disabled")

	summary, err := r.Finish()
	require.NoError(t, err)
	assert.Equal(t, run.StatusCompletedWithErrors, summary.Status)
	assert.Equal(t, run.StepFailed, summary.Steps[0].Status)
	assert.Equal(t, "boom", summary.Steps[0].Error)
	assert.Equal(t, run.StepCompleted, summary.Steps[1].Status, "later steps still run and record")
	assert.Equal(t, run.StepSkipped, summary.Steps[2].Status)
}

func TestHistoryAccumulatesAcrossRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.json")

	var ids []string
	for i := 0; i < 3; i++ {
		r := run.NewRecorder(path, logger.NewNoOp())
		r.RecordStep("process", time.Now(), nil, nil)
		summary, err := r.Finish()
		require.NoError(t, err)
		ids = append(ids, summary.ID)
	}

	history, err := run.LoadHistory(path)
	require.NoError(t, err)
	require.Len(t, history, 3)
	for i, s := range history {
		assert.Equal(t, ids[i], s.ID, "history keeps runs oldest first")
	}

	latest, err := run.LoadLatest(path)
	require.NoError(t, err)
	assert.Equal(t, ids[2], latest.ID)
}

func TestHistoryBounded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.json")

	for i := 0; i < 25; i++ {
		r := run.NewRecorder(path, logger.NewNoOp())
		_, err := r.Finish()
		require.NoError(t, err)
	}

	history, err := run.LoadHistory(path)
	require.NoError(t, err)
	assert.Len(t, history, 20, "history trims to the newest entries")
}

func TestLoadLatestMissing(t *testing.T) {
	_, err := run.LoadLatest(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}
