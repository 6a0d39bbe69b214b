package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/gamesync/internal/api"
	"github.com/jonesrussell/gamesync/internal/cache"
	"github.com/jonesrussell/gamesync/internal/logger"
	"github.com/jonesrussell/gamesync/internal/run"
	"github.com/jonesrussell/gamesync/internal/snapshot"
	"github.com/jonesrussell/gamesync/internal/storage"
)

func newTestRouter(t *testing.T) (http.Handler, *storage.Paths) {
	t.Helper()

	paths := storage.NewPaths(t.TempDir())
	require.NoError(t, paths.EnsureDirs())

	handler := api.NewHandler(api.HandlerParams{
		Paths:           paths,
		Sources:         []string{"details", "reviews"},
		QuarantineAfter: 3,
		Logger:          logger.NewNoOp(),
	})
	return api.NewRouter(handler, logger.NewNoOp()), paths
}

func get(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	router, _ := newTestRouter(t)

	w := get(t, router, "/healthz")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestStatusReportsPerSourceCounts(t *testing.T) {
	router, paths := newTestRouter(t)

	c := cache.New(paths.StatusCache("details"), logger.NewNoOp())
	c.MarkSuccess("730")
	c.MarkSuccess("570")
	c.MarkStatus("400", "timeout")
	for i := 0; i < 3; i++ {
		c.RecordFail("10")
	}
	require.NoError(t, c.Save())

	ledger := snapshot.New("id", "name")
	ledger.Append([]string{"10", "Counter-Strike"})
	require.NoError(t, ledger.WriteFile(paths.FailedLedger("details")))

	w := get(t, router, "/api/v1/status")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Sources []api.SourceStatus `json:"sources"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Sources, 2)

	assert.Equal(t, api.SourceStatus{
		Source:      "details",
		Total:       4,
		Success:     2,
		Failed:      1,
		Quarantined: 1,
		Ledger:      1,
	}, resp.Sources[0])

	// A source with no cache on disk reports zeroes rather than erroring.
	assert.Equal(t, api.SourceStatus{Source: "reviews"}, resp.Sources[1])
}

func TestRunsEmptyBeforeFirstRun(t *testing.T) {
	router, _ := newTestRouter(t)

	w := get(t, router, "/api/v1/runs")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"runs":[]}`, w.Body.String())
}

func TestRunsReturnsHistoryOldestFirst(t *testing.T) {
	router, paths := newTestRouter(t)

	var ids []string
	for i := 0; i < 3; i++ {
		rec := run.NewRecorder(paths.RunHistory(), logger.NewNoOp())
		rec.RecordStep("process", time.Now(), nil, nil)
		summary, err := rec.Finish()
		require.NoError(t, err)
		ids = append(ids, summary.ID)
	}

	w := get(t, router, "/api/v1/runs")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Runs []run.Summary `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Runs, 3)
	for i, summary := range resp.Runs {
		assert.Equal(t, ids[i], summary.ID)
	}
}

func TestLatestRunNotFoundBeforeFirstRun(t *testing.T) {
	router, _ := newTestRouter(t)

	w := get(t, router, "/api/v1/runs/latest")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLatestRunReturnsSummary(t *testing.T) {
	router, paths := newTestRouter(t)

	rec := run.NewRecorder(paths.RunHistory(), logger.NewNoOp())
	rec.RecordStep("fetch", time.Now(), map[string]int{"fetched": 12}, nil)
	summary, err := rec.Finish()
	require.NoError(t, err)

	w := get(t, router, "/api/v1/runs/latest")
	require.Equal(t, http.StatusOK, w.Code)

	var got run.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, summary.ID, got.ID)
	assert.Equal(t, "completed", got.Status)
	require.Len(t, got.Steps, 1)
	assert.Equal(t, "fetch", got.Steps[0].Name)
	assert.Equal(t, 12, got.Steps[0].Counts["fetched"])
}
