package processor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mauv0809/ripple-snapshot/internal/cache"
	"github.com/mauv0809/ripple-snapshot/internal/config"
	"github.com/mauv0809/ripple-snapshot/internal/database"
	"github.com/mauv0809/ripple-snapshot/internal/metrics"
	"github.com/mauv0809/ripple-snapshot/internal/pubsub"
	"github.com/mauv0809/ripple-snapshot/internal/rankings"
	"github.com/mauv0809/ripple-snapshot/internal/ripple"
)

// seededStore returns a SQLite-backed ranking store whose last ranking run is
// at day 35. Every player's latest tournament is on day 30, and the scores
// keep drifting after the first post-event run on day 32.
func seededStore(t *testing.T) rankings.RankingStore {
	t.Helper()
	const day = rankings.MsPerDay

	db, dialect, err := database.InitDB(context.Background(), config.DatabaseConfig{DBName: ":memory:", Migrate: true})
	require.NoError(t, err)
	store := rankings.New(db, dialect, nil)
	t.Cleanup(func() { store.Close() })

	exec := func(query string, args ...any) {
		_, err := db.Exec(query, args...)
		require.NoError(t, err)
	}

	exec(`INSERT INTO players (player_id, display_name) VALUES ('p1', 'Player One'), ('p2', NULL), ('p3', 'Player Three')`)
	for i, d := range []int64{10, 20, 30} {
		tid := []string{"t1", "t2", "t3"}[i]
		exec(`INSERT INTO tournaments (tournament_id, event_ms, is_ranked) VALUES (?, ?, 1)`, tid, d*day)
		for _, p := range []string{"p1", "p2", "p3"} {
			exec(`INSERT INTO tournament_players (tournament_id, player_id) VALUES (?, ?)`, tid, p)
		}
	}

	runs := []struct {
		calc   int64
		scores map[string]float64
	}{
		{15, map[string]float64{"p1": 1.0, "p2": 0.8, "p3": 0.5}},
		{25, map[string]float64{"p1": 1.1, "p2": 0.9, "p3": 0.6}},
		{32, map[string]float64{"p1": 1.3, "p2": 0.7, "p3": 0.65}},
		{35, map[string]float64{"p1": 1.4, "p2": 0.75, "p3": 0.6}},
	}
	for _, run := range runs {
		for p, score := range run.scores {
			exec(`INSERT INTO player_rankings (player_id, score, player_rank, calculated_at_ms, build_version) VALUES (?, ?, NULL, ?, 'b1')`,
				p, score, run.calc*day)
		}
	}
	return store
}

func scoresByPlayer(rows []ripple.StableRow) map[string]float64 {
	out := make(map[string]float64, len(rows))
	for _, r := range rows {
		out[r.PlayerID] = r.StableScore
	}
	return out
}

func TestReconstruct_MatchesPublishAtSameTime(t *testing.T) {
	ts := 35 * rankings.MsPerDay
	store := seededStore(t)
	c := cache.NewMock()

	p := New(store, c, metrics.NewMock(), pubsub.NewMock(), Options{
		Params:       rankings.DefaultParams(),
		Transform:    ripple.DefaultTransform(),
		MaxRetries:   1,
		RetryBackoff: time.Millisecond,
		Now:          func() time.Time { return time.UnixMilli(ts) },
	})
	ctx := context.Background()

	reconstructed, err := p.reconstruct(ctx, ts)
	require.NoError(t, err)
	require.NotNil(t, reconstructed)

	_, err = p.Refresh(ctx, false)
	require.NoError(t, err)
	published := decode[ripple.StablePayload](t, c, cache.StableLatestKey)

	want := scoresByPlayer(reconstructed.Data)
	got := scoresByPlayer(published.Data)
	require.Len(t, got, 3)
	for id, score := range want {
		assert.InDelta(t, score, got[id], 1e-9, "stable score of %s", id)
	}
	assert.InDelta(t, 1.3, got["p1"], 1e-9, "scores stay at the first run after the latest tournament")
	assert.InDelta(t, 0.7, got["p2"], 1e-9)
	assert.Equal(t, *reconstructed.CalculatedAtMs, *published.CalculatedAtMs)
}
