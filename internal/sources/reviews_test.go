package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/gamesync/internal/config"
	"github.com/jonesrussell/gamesync/internal/fetch"
	"github.com/jonesrussell/gamesync/internal/logger"
)

func newReviews(t *testing.T, serverURL string) *Reviews {
	t.Helper()
	cfg := &config.SourceConfig{Endpoint: serverURL + "/appreviews"}
	return NewReviews(newTestClient(t, 5*time.Second), cfg, logger.NewNoOp())
}

func TestReviewsFetchOne(t *testing.T) {
	var gotPath, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{
			"success": 1,
			"query_summary": {"num_reviews": 20, "review_score": 8, "total_reviews": 91578}
		}`))
	}))
	defer server.Close()

	out := newReviews(t, server.URL).FetchOne(context.Background(), fetch.WorkItem{ID: "570"})

	require.Equal(t, fetch.ClassSuccess, out.Class)
	assert.Equal(t, "/appreviews/570", gotPath)
	assert.Equal(t,
		"json=1&filter=all&language=all&day_range=all&review_type=all&purchase_type=all",
		gotQuery,
	)

	require.Len(t, out.Rows, 1)
	assert.Equal(t, map[string]string{
		"appid":         "570",
		"num_reviews":   "20",
		"review_score":  "8",
		"total_reviews": "91578",
	}, out.Rows[0])
}

func TestReviewsNoData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success": 1, "query_summary": {}}`))
	}))
	defer server.Close()

	out := newReviews(t, server.URL).FetchOne(context.Background(), fetch.WorkItem{ID: "570"})

	assert.Equal(t, fetch.ClassFailed, out.Class)
	assert.Empty(t, out.Rows)
}

func TestReviewsUnsuccessful(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success": 2}`))
	}))
	defer server.Close()

	out := newReviews(t, server.URL).FetchOne(context.Background(), fetch.WorkItem{ID: "570"})

	assert.Equal(t, fetch.ClassFailed, out.Class)
}

func TestReviewsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	out := newReviews(t, server.URL).FetchOne(context.Background(), fetch.WorkItem{ID: "570"})

	assert.Equal(t, fetch.ClassErrored, out.Class)
}
