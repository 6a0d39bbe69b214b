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
	"github.com/jonesrussell/gamesync/internal/snapshot"
)

const detailPayload = `{
  "2357570": {
    "success": true,
    "data": {
      "type": "game",
      "name": "Overwatch 2",
      "steam_appid": 2357570,
      "short_description": "Team-based action &amp; heroes",
      "is_free": false,
      "header_image": "https://cdn.example.com/header.jpg",
      "developers": ["Blizzard Entertainment", "Second Studio"],
      "publishers": ["Blizzard Entertainment"],
      "price_overview": {"initial": 3999, "final": 1999, "discount_percent": 50},
      "categories": [{"id": 1, "description": "Multi-player"}, {"id": 49, "description": "PvP"}],
      "genres": [{"id": "1", "description": "Action"}, {"id": "37", "description": "Free To Play"}],
      "release_date": {"coming_soon": false, "date": "10 Aug, 2023"}
    }
  }
}`

func newDetails(t *testing.T, serverURL string) *Details {
	t.Helper()
	cfg := &config.SourceConfig{Endpoint: serverURL + "/api/appdetails", Language: "english"}
	return NewDetails(newTestClient(t, 5*time.Second), cfg, logger.NewNoOp())
}

func TestDetailsFetchOne(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(detailPayload))
	}))
	defer server.Close()

	src := newDetails(t, server.URL)
	out := src.FetchOne(context.Background(), fetch.WorkItem{ID: "2357570", Name: "Overwatch 2"})

	require.Equal(t, fetch.ClassSuccess, out.Class)
	assert.Equal(t, "appids=2357570&l=english", gotQuery)

	require.Len(t, out.Rows, 1)
	row := out.Rows[0]
	assert.Equal(t, "2357570", row["appid"])
	assert.Equal(t, "Overwatch 2", row["name"])
	assert.Equal(t, "Team-based action & heroes", row["short_description"])
	assert.Equal(t, "false", row["is_free"])
	assert.Equal(t, "10 Aug, 2023", row["release_date"])
	assert.Equal(t, "Blizzard Entertainment", row["developer"])
	assert.Equal(t, "Blizzard Entertainment", row["publisher"])
	assert.Equal(t, "39", row["initial_price"])
	assert.Equal(t, "19", row["final_price"])
	assert.Equal(t, "50", row["discount_percent"])
	assert.Equal(t, "Multi-player;PvP", row["categories"])
	assert.Equal(t, "Action;Free To Play", row["genres"])
}

func TestDetailsFreeGame(t *testing.T) {
	payload := `{"10": {"success": true, "data": {
		"type": "game", "name": "Freebie", "steam_appid": 10, "is_free": true,
		"release_date": {"date": ""}
	}}}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(payload))
	}))
	defer server.Close()

	out := newDetails(t, server.URL).FetchOne(context.Background(), fetch.WorkItem{ID: "10"})

	require.Equal(t, fetch.ClassSuccess, out.Class)
	require.Len(t, out.Rows, 1)
	row := out.Rows[0]
	assert.Equal(t, "true", row["is_free"])
	assert.Equal(t, "0", row["initial_price"])
	assert.Equal(t, "0", row["final_price"])
	assert.Equal(t, "0", row["discount_percent"])
	assert.Empty(t, row["developer"])
	assert.Empty(t, row["genres"])
}

func TestDetailsNotAGame(t *testing.T) {
	payload := `{"20": {"success": true, "data": {"type": "dlc", "steam_appid": 20, "name": "Pack"}}}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(payload))
	}))
	defer server.Close()

	out := newDetails(t, server.URL).FetchOne(context.Background(), fetch.WorkItem{ID: "20"})

	assert.Equal(t, fetch.ClassFailed, out.Class)
	assert.Empty(t, out.Rows)
}

func TestDetailsUnsuccessful(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"30": {"success": false}}`))
	}))
	defer server.Close()

	out := newDetails(t, server.URL).FetchOne(context.Background(), fetch.WorkItem{ID: "30"})

	assert.Equal(t, fetch.ClassFailed, out.Class)
}

func TestDetailsMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	out := newDetails(t, server.URL).FetchOne(context.Background(), fetch.WorkItem{ID: "40"})

	assert.Equal(t, fetch.ClassFailed, out.Class)
}

func TestDetailsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	out := newDetails(t, server.URL).FetchOne(context.Background(), fetch.WorkItem{ID: "50"})

	assert.Equal(t, fetch.ClassErrored, out.Class)
	assert.Equal(t, fetch.CodeHTTPError, out.Code)
}

func TestSplitFreePaid(t *testing.T) {
	details := snapshot.New("appid", "name", "is_free")
	details.Append([]string{"730", "Counter-Strike 2", "true"})
	details.Append([]string{"2357570", "Overwatch 2", "true"})
	details.Append([]string{"1086940", "Baldur's Gate 3", "false"})
	details.Append([]string{"2050650", "Resident Evil 4", ""})

	free, paid, err := SplitFreePaid(details)
	require.NoError(t, err)

	assert.Equal(t, 2, free.Len())
	assert.Equal(t, 2, paid.Len(), "unflagged rows count as paid")
	assert.Equal(t, details.Columns, free.Columns, "split keeps every column")

	ids, err := paid.Column("appid")
	require.NoError(t, err)
	assert.Equal(t, []string{"1086940", "2050650"}, ids)
}

func TestSplitFreePaidMissingColumn(t *testing.T) {
	_, _, err := SplitFreePaid(snapshot.New("appid", "name"))
	require.Error(t, err)
}
