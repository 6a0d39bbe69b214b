package sources

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/gamesync/internal/config"
	"github.com/jonesrussell/gamesync/internal/fetch"
	"github.com/jonesrussell/gamesync/internal/logger"
)

var testClock = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func newIDLookup(t *testing.T, serverURL string) *IDLookup {
	t.Helper()
	cfg := &config.SourceConfig{Endpoint: serverURL + "/games/lookup/v1", APIKey: "test-key"}
	src := NewIDLookup(newTestClient(t, 5*time.Second), cfg, logger.NewNoOp())
	src.now = func() time.Time { return testClock }
	return src
}

func TestIDLookupFound(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"found": true, "game": {"id": "018d937e-fcff", "slug": "dota-2"}}`))
	}))
	defer server.Close()

	out := newIDLookup(t, server.URL).FetchOne(context.Background(),
		fetch.WorkItem{ID: "570", Name: "Dota 2"})

	require.Equal(t, fetch.ClassSuccess, out.Class)
	assert.Equal(t, "key=test-key&appid=570", gotQuery)
	require.Len(t, out.Rows, 1)
	assert.Equal(t, map[string]string{
		"appid":        "570",
		"name":         "Dota 2",
		"itad_id":      "018d937e-fcff",
		"collected_at": "2025-03-14T09:30:00Z",
	}, out.Rows[0])
}

func TestIDLookupNotFoundStillRecorded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"found": false}`))
	}))
	defer server.Close()

	out := newIDLookup(t, server.URL).FetchOne(context.Background(),
		fetch.WorkItem{ID: "480", Name: "Spacewar"})

	assert.Equal(t, fetch.ClassFailed, out.Class)
	require.Len(t, out.Rows, 1)
	assert.Equal(t, "480", out.Rows[0]["appid"])
	assert.Empty(t, out.Rows[0]["itad_id"])
}

func TestIDLookupServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	out := newIDLookup(t, server.URL).FetchOne(context.Background(), fetch.WorkItem{ID: "480"})

	assert.Equal(t, fetch.ClassErrored, out.Class)
}

const priceBatchPayload = `[
  {
    "id": "game-a",
    "historyLow": {"all": {"amount": 4.99, "currency": "USD"}},
    "deals": [
      {
        "shop": {"id": 61, "name": "Steam"},
        "price": {"amount": 9.99, "currency": "USD"},
        "regular": {"amount": 19.99, "currency": "USD"},
        "cut": 50,
        "url": "https://store.example.com/a"
      },
      {
        "shop": {"id": 35, "name": "GOG"},
        "price": {"amount": 11.49, "currency": "USD"},
        "regular": {"amount": 19.99, "currency": "USD"},
        "cut": 42,
        "url": "https://gog.example.com/a"
      }
    ]
  },
  {"id": "game-b", "deals": []}
]`

func newPrices(t *testing.T, serverURL string, timeout time.Duration) (*Prices, *[]time.Duration) {
	t.Helper()
	cfg := &config.SourceConfig{
		Endpoint: serverURL + "/games/prices/v3",
		APIKey:   "test-key",
		Country:  "US",
	}
	src := NewPrices(newTestClient(t, timeout), cfg, logger.NewNoOp())
	src.now = func() time.Time { return testClock }
	var pauses []time.Duration
	src.sleep = func(d time.Duration) { pauses = append(pauses, d) }
	return src, &pauses
}

func TestPricesFetchGroup(t *testing.T) {
	var gotQuery string
	var gotBody []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		_, _ = w.Write([]byte(priceBatchPayload))
	}))
	defer server.Close()

	src, _ := newPrices(t, server.URL, 5*time.Second)
	items := []fetch.WorkItem{{ID: "game-a"}, {ID: "game-b"}, {ID: "game-c"}}
	outcomes := src.FetchGroup(context.Background(), items)

	assert.Equal(t, "key=test-key&country=US", gotQuery)
	assert.Equal(t, []string{"game-a", "game-b", "game-c"}, gotBody)

	require.Len(t, outcomes, 3)

	require.Equal(t, fetch.ClassSuccess, outcomes[0].Class)
	require.Len(t, outcomes[0].Rows, 2)
	assert.Equal(t, map[string]string{
		"itad_id":              "game-a",
		"history_low_price":    "4.99",
		"history_low_currency": "USD",
		"shop_id":              "61",
		"shop_name":            "Steam",
		"current_price":        "9.99",
		"regular_price":        "19.99",
		"url":                  "https://store.example.com/a",
		"discount_percent":     "50",
		"collected_at":         "2025-03-14T09:30:00Z",
	}, outcomes[0].Rows[0])
	assert.Equal(t, "35", outcomes[0].Rows[1]["shop_id"])

	// No current deals is still a successful answer.
	assert.Equal(t, fetch.ClassSuccess, outcomes[1].Class)
	assert.Empty(t, outcomes[1].Rows)

	// Absent from the response entirely is a semantic negative.
	assert.Equal(t, fetch.ClassFailed, outcomes[2].Class)
}

func TestPricesRetriesTimeout(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			time.Sleep(300 * time.Millisecond)
			return
		}
		_, _ = w.Write([]byte(`[{"id": "game-a", "deals": []}]`))
	}))
	defer server.Close()

	src, pauses := newPrices(t, server.URL, 100*time.Millisecond)
	outcomes := src.FetchGroup(context.Background(), []fetch.WorkItem{{ID: "game-a"}})

	require.Len(t, outcomes, 1)
	assert.Equal(t, fetch.ClassSuccess, outcomes[0].Class)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, []time.Duration{timeoutRetryPause}, *pauses)
}

func TestPricesMalformedBody(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	src, _ := newPrices(t, server.URL, 5*time.Second)
	outcomes := src.FetchGroup(context.Background(), []fetch.WorkItem{{ID: "a"}, {ID: "b"}})

	require.Len(t, outcomes, 2)
	for _, out := range outcomes {
		assert.Equal(t, fetch.ClassFailed, out.Class)
	}
	assert.Equal(t, int32(1), calls.Load(), "an undecodable body is not retried")
}

func TestPricesServerErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	src, _ := newPrices(t, server.URL, 5*time.Second)
	outcomes := src.FetchGroup(context.Background(), []fetch.WorkItem{{ID: "a"}})

	require.Len(t, outcomes, 1)
	assert.Equal(t, fetch.ClassErrored, outcomes[0].Class)
	assert.Equal(t, fetch.CodeHTTPError, outcomes[0].Code)
	assert.Equal(t, int32(1), calls.Load())
}
