package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mauv0809/ripple-snapshot/internal/cache"
	"github.com/mauv0809/ripple-snapshot/internal/config"
	"github.com/mauv0809/ripple-snapshot/internal/metrics"
	"github.com/mauv0809/ripple-snapshot/internal/processor"
	"github.com/mauv0809/ripple-snapshot/internal/public"
	"github.com/mauv0809/ripple-snapshot/internal/pubsub"
	"github.com/mauv0809/ripple-snapshot/internal/rankings"
	"github.com/mauv0809/ripple-snapshot/internal/ripple"
)

type refresherFunc func(ctx context.Context, dryRun bool) (processor.Result, error)

func (f refresherFunc) Refresh(ctx context.Context, dryRun bool) (processor.Result, error) {
	return f(ctx, dryRun)
}

type testServer struct {
	*Server
	cache   *cache.Mock
	store   *rankings.MockStore
	metrics *metrics.Service
}

// setupTestServer wires a server against a mock cache and ranking store.
func setupTestServer(t *testing.T, flagDefault bool) *testServer {
	t.Helper()

	reg := prometheus.NewRegistry()
	metricsSvc := metrics.NewService(reg)
	c := cache.NewMock()
	store := rankings.NewMock()
	store.FetchPageFunc = func(context.Context, rankings.QueryParams, *int64) (rankings.Page, error) {
		calc := time.Now().UnixMilli()
		return rankings.Page{
			Rows:   []rankings.Row{{PlayerID: "p1", Score: 1.2}, {PlayerID: "p2", Score: 0.9}},
			Total:  2,
			CalcTs: &calc,
		}, nil
	}
	proc := processor.New(store, c, metricsSvc, pubsub.NewMock(), processor.Options{
		Params:       rankings.DefaultParams(),
		RetryBackoff: time.Millisecond,
	})
	reader := public.New(c, metricsSvc, public.Options{FlagDefault: flagDefault})

	server := NewServer(reader, proc, metrics.NewMetricsHandler(reg), nil, config.Config{})
	return &testServer{Server: server, cache: c, store: store, metrics: metricsSvc}
}

func (s *testServer) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(method, target, nil)
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	s.Router.ServeHTTP(rr, req)
	return rr
}

func TestHealthCheckHandler(t *testing.T) {
	server := setupTestServer(t, false)

	rr := server.do(t, http.MethodGet, "/health")

	assert.Equal(t, http.StatusOK, rr.Code, "handler returned wrong status code")
	assert.Equal(t, "OK!", rr.Body.String(), "handler returned unexpected body")
}

func TestPublicHandlers_Disabled(t *testing.T) {
	server := setupTestServer(t, false)

	for _, path := range []string{
		"/api/ripple/public/leaderboard",
		"/api/ripple/public/leaderboard/danger",
		"/api/ripple/public/metadata",
	} {
		t.Run(path, func(t *testing.T) {
			rr := server.do(t, http.MethodGet, path)
			assert.Equal(t, http.StatusNotFound, rr.Code)
			assert.JSONEq(t, `{"detail":"Competition leaderboard is disabled"}`, rr.Body.String())
		})
	}
}

func TestPublicHandlers_FlagFromCache(t *testing.T) {
	server := setupTestServer(t, false)
	server.cache.Put(cache.FeatureFlagKey, []byte("true"))

	rr := server.do(t, http.MethodGet, "/api/ripple/public/leaderboard")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestPublicLeaderboardHandler(t *testing.T) {
	server := setupTestServer(t, true)

	t.Run("nothing published", func(t *testing.T) {
		rr := server.do(t, http.MethodGet, "/api/ripple/public/leaderboard")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, []any{}, body["data"])
		assert.EqualValues(t, 0, body["record_count"])
		assert.Equal(t, true, body["stale"])
		assert.Contains(t, body, "retrieved_at_ms")
	})

	t.Run("after refresh", func(t *testing.T) {
		rr := server.do(t, http.MethodPost, "/ripple/refresh")
		require.Equal(t, http.StatusOK, rr.Code)

		rr = server.do(t, http.MethodGet, "/api/ripple/public/leaderboard")
		require.Equal(t, http.StatusOK, rr.Code)

		var body public.Decorated[ripple.StableRow]
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.False(t, body.Stale)
		assert.Equal(t, 2, body.RecordCount)
		require.Len(t, body.Data, 2)
		assert.Equal(t, "p1", body.Data[0].PlayerID)
		assert.Equal(t, 1, body.Data[0].StableRank)
	})
}

func TestPublicDangerHandler(t *testing.T) {
	server := setupTestServer(t, true)
	server.cache.Put(cache.DangerLatestKey, []byte("garbage"))

	rr := server.do(t, http.MethodGet, "/api/ripple/public/leaderboard/danger")
	require.Equal(t, http.StatusOK, rr.Code)

	var body public.Decorated[ripple.DangerRow]
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Empty(t, body.Data)
	assert.True(t, body.Stale)
}

func TestPublicMetadataHandler(t *testing.T) {
	server := setupTestServer(t, true)
	require.Equal(t, http.StatusOK, server.do(t, http.MethodPost, "/ripple/refresh").Code)

	rr := server.do(t, http.MethodGet, "/api/ripple/public/metadata")
	require.Equal(t, http.StatusOK, rr.Code)

	var body public.MetaResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.NotNil(t, body.Meta)
	assert.Equal(t, 2, body.Meta.StableRecordCount)
	assert.True(t, body.Stable.Present)
	assert.False(t, body.Stable.Stale)
	assert.True(t, body.Danger.Present)
	assert.Equal(t, public.FeatureFlag{Key: cache.FeatureFlagKey, Enabled: true}, body.FeatureFlag)
}

func TestRefreshHandler(t *testing.T) {
	t.Run("publishes", func(t *testing.T) {
		server := setupTestServer(t, true)
		rr := server.do(t, http.MethodPost, "/ripple/refresh")
		require.Equal(t, http.StatusOK, rr.Code)

		var res processor.Result
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
		assert.False(t, res.Skipped)
		assert.False(t, res.DryRun)
		assert.Equal(t, 2, *res.StableRows)
		assert.NotEmpty(t, server.cache.Writes())
	})

	t.Run("dry run writes nothing", func(t *testing.T) {
		server := setupTestServer(t, true)
		rr := server.do(t, http.MethodPost, "/ripple/refresh?dry_run=true")
		require.Equal(t, http.StatusOK, rr.Code)

		var res processor.Result
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
		assert.True(t, res.DryRun)
		assert.Empty(t, server.cache.Writes())
	})

	t.Run("skipped when locked", func(t *testing.T) {
		server := setupTestServer(t, true)
		ok, err := server.cache.AcquireLock(context.Background(), cache.LockKey, "other", time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		rr := server.do(t, http.MethodPost, "/ripple/refresh")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"skipped":true,"reason":"locked"}`, rr.Body.String())
		assert.Zero(t, server.store.Reads())
	})

	t.Run("failure", func(t *testing.T) {
		base := setupTestServer(t, true)
		failing := refresherFunc(func(context.Context, bool) (processor.Result, error) {
			return processor.Result{}, errors.New("no such table: player_rankings")
		})
		server := &testServer{Server: NewServer(base.Reader, failing, base.MetricsHandler, nil, config.Config{})}

		rr := server.do(t, http.MethodPost, "/ripple/refresh")
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.JSONEq(t, `{"detail":"Snapshot refresh failed"}`, rr.Body.String())
	})

	t.Run("only POST", func(t *testing.T) {
		server := setupTestServer(t, true)
		rr := server.do(t, http.MethodGet, "/ripple/refresh")
		assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	server := setupTestServer(t, true)
	server.do(t, http.MethodGet, "/api/ripple/public/leaderboard")

	rr := server.do(t, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ripple_public_reads_total")
}
