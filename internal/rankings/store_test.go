package rankings_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mauv0809/ripple-snapshot/internal/config"
	"github.com/mauv0809/ripple-snapshot/internal/database"
	"github.com/mauv0809/ripple-snapshot/internal/rankings"
)

const day = rankings.MsPerDay

// setupTestDB creates a migrated in-memory SQLite database for testing.
func setupTestDB(t *testing.T) (rankings.RankingStore, *sql.DB) {
	t.Helper()

	cfg := config.DatabaseConfig{DBName: ":memory:", Migrate: true}
	db, dialect, err := database.InitDB(context.Background(), cfg)
	require.NoError(t, err)

	store := rankings.New(db, dialect, nil)
	t.Cleanup(func() { store.Close() })
	return store, db
}

// seed loads two ranking snapshots (day 150 and day 190) and a tournament history.
func seed(t *testing.T, db *sql.DB) {
	t.Helper()

	exec := func(query string, args ...any) {
		_, err := db.Exec(query, args...)
		require.NoError(t, err)
	}

	exec(`INSERT INTO players (player_id, display_name) VALUES ('p1', 'Player One'), ('p2', NULL), ('p3', 'Player Three'), ('p4', 'Player Four')`)

	tournaments := []struct {
		id     string
		day    int64
		ranked int
	}{
		{"t1", 100, 1}, {"t2", 110, 1}, {"t3", 120, 1}, {"t4", 130, 1},
		{"t5", 140, 0}, {"t6", 50, 1}, {"t7", 210, 1},
	}
	for _, tt := range tournaments {
		exec(`INSERT INTO tournaments (tournament_id, event_ms, is_ranked) VALUES (?, ?, ?)`, tt.id, tt.day*day, tt.ranked)
	}

	entries := map[string][]string{
		"p1": {"t1", "t2", "t3", "t4"},
		"p2": {"t1", "t2", "t3"},
		"p3": {"t2", "t5"},
		"p4": {"t6", "t2", "t3", "t4"},
	}
	for player, ts := range entries {
		for _, tid := range ts {
			exec(`INSERT INTO tournament_players (tournament_id, player_id) VALUES (?, ?)`, tid, player)
		}
	}

	rows := []struct {
		player string
		score  float64
		rank   int
		calc   int64
		build  string
	}{
		{"p1", 1.0, 1, 150 * day, "b1"},
		{"p2", 0.5, 2, 150 * day, "b1"},
		{"p4", 0.2, 3, 150 * day, "b1"},
		{"p1", 1.1, 2, 190 * day, "b2"},
		{"p2", 1.1, 3, 190 * day, "b2"},
		{"p3", 2.0, 1, 190 * day, "b2"},
		{"p4", -0.3, 4, 190 * day, "b2"},
	}
	for _, r := range rows {
		exec(`INSERT INTO player_rankings (player_id, score, player_rank, calculated_at_ms, build_version) VALUES (?, ?, ?, ?, ?)`,
			r.player, r.score, r.rank, r.calc, r.build)
	}
}

func ptr[T any](v T) *T { return &v }

func ids(rows []rankings.Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.PlayerID
	}
	return out
}

func TestFetchPage(t *testing.T) {
	store, db := setupTestDB(t)
	seed(t, db)
	ctx := context.Background()
	at := ptr(200 * day)

	t.Run("latest snapshot with default params", func(t *testing.T) {
		page, err := store.FetchPage(ctx, rankings.DefaultParams(), at)
		require.NoError(t, err)

		assert.Equal(t, []string{"p1", "p2", "p4"}, ids(page.Rows), "ties break by player id")
		assert.Equal(t, 3, page.Total)
		require.NotNil(t, page.CalcTs)
		assert.Equal(t, 190*day, *page.CalcTs)
		require.NotNil(t, page.BuildVersion)
		assert.Equal(t, "b2", *page.BuildVersion)

		p1 := page.Rows[0]
		assert.Equal(t, "Player One", *p1.DisplayName)
		assert.Equal(t, 1.1, p1.Score)
		assert.Equal(t, 4, *p1.WindowCount)
		assert.Equal(t, 4, *p1.TournamentCount)
		assert.Equal(t, 130*day, *p1.LastActiveMs)
		assert.Nil(t, page.Rows[1].DisplayName)
	})

	t.Run("historical snapshot", func(t *testing.T) {
		params := rankings.DefaultParams()
		params.TsMs = ptr(160 * day)
		page, err := store.FetchPage(ctx, params, at)
		require.NoError(t, err)

		assert.Equal(t, 150*day, *page.CalcTs)
		assert.Equal(t, "b1", *page.BuildVersion)
		require.Len(t, page.Rows, 3)
		assert.Equal(t, 0.5, page.Rows[1].Score)
	})

	t.Run("unranked tournaments count when ranked_only is off", func(t *testing.T) {
		params := rankings.DefaultParams()
		params.MinTournaments = 2
		params.RankedOnly = false
		page, err := store.FetchPage(ctx, params, at)
		require.NoError(t, err)
		assert.Equal(t, []string{"p3", "p1", "p2", "p4"}, ids(page.Rows))
	})

	t.Run("limit and offset", func(t *testing.T) {
		params := rankings.DefaultParams()
		params.Limit = ptr(1)
		params.Offset = 1
		page, err := store.FetchPage(ctx, params, at)
		require.NoError(t, err)
		assert.Equal(t, []string{"p2"}, ids(page.Rows))
		assert.Equal(t, 3, page.Total)
	})

	t.Run("window slides out old tournaments", func(t *testing.T) {
		page, err := store.FetchPage(ctx, rankings.DefaultParams(), ptr(225*day))
		require.NoError(t, err)
		// At day 225 the window starts at day 105, so t1 has expired.
		assert.Equal(t, []string{"p1", "p4"}, ids(page.Rows))
	})
}

func TestFetchPage_EmptyStore(t *testing.T) {
	store, _ := setupTestDB(t)

	page, err := store.FetchPage(context.Background(), rankings.DefaultParams(), nil)
	require.NoError(t, err)
	assert.Empty(t, page.Rows)
	assert.NotNil(t, page.Rows)
	assert.Zero(t, page.Total)
	assert.Nil(t, page.CalcTs)
	assert.Nil(t, page.BuildVersion)
}

func TestFetchDanger(t *testing.T) {
	store, db := setupTestDB(t)
	seed(t, db)

	page, err := store.FetchDanger(context.Background(), rankings.DefaultParams(), ptr(200*day))
	require.NoError(t, err)

	require.Len(t, page.Rows, 2)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 190*day, *page.CalcTs)

	p2 := page.Rows[0]
	assert.Equal(t, "p2", p2.PlayerID)
	assert.Equal(t, 2, *p2.PlayerRank)
	assert.Equal(t, 3, *p2.WindowTournamentCount)
	assert.Equal(t, 100*day, *p2.OldestInWindowMs)
	assert.Equal(t, 220*day, *p2.NextExpiryMs)
	assert.Equal(t, 20*day, *p2.MsLeft)

	p4 := page.Rows[1]
	assert.Equal(t, "p4", p4.PlayerID)
	assert.Equal(t, 110*day, *p4.OldestInWindowMs, "tournaments outside the window are ignored")
	assert.Equal(t, 230*day, *p4.NextExpiryMs)
}

func TestFetchPlayerEvents(t *testing.T) {
	store, db := setupTestDB(t)
	seed(t, db)

	events, err := store.FetchPlayerEvents(context.Background(), []string{"p1", "p3", "p4", "missing"})
	require.NoError(t, err)

	require.Len(t, events, 3)
	assert.NotContains(t, events, "missing")
	assert.Equal(t, 130*day, *events["p1"].LatestEventMs)
	assert.Equal(t, 4, *events["p1"].TournamentCount)
	assert.Equal(t, 140*day, *events["p3"].LatestEventMs)
	assert.Equal(t, 2, *events["p3"].TournamentCount, "lifetime count includes unranked")
	assert.Equal(t, 4, *events["p4"].TournamentCount)

	empty, err := store.FetchPlayerEvents(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestFirstScoresAfterEvents(t *testing.T) {
	store, db := setupTestDB(t)
	seed(t, db)
	ctx := context.Background()
	events := map[string]int64{"p1": 160 * day, "p2": 100 * day, "p4": 195 * day}

	t.Run("without cutoff", func(t *testing.T) {
		scores, err := store.FirstScoresAfterEvents(ctx, events, nil)
		require.NoError(t, err)
		assert.Equal(t, map[string]float64{"p1": 1.1, "p2": 0.5}, scores)
	})

	t.Run("with cutoff", func(t *testing.T) {
		scores, err := store.FirstScoresAfterEvents(ctx, events, ptr(160*day))
		require.NoError(t, err)
		assert.Equal(t, map[string]float64{"p2": 0.5}, scores)
	})

	t.Run("empty input", func(t *testing.T) {
		scores, err := store.FirstScoresAfterEvents(ctx, map[string]int64{}, nil)
		require.NoError(t, err)
		assert.Empty(t, scores)
	})
}

func TestCalcTsLookups(t *testing.T) {
	store, db := setupTestDB(t)
	seed(t, db)
	ctx := context.Background()

	prev, err := store.PreviousCalcTsBefore(ctx, ptr(190*day))
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, 150*day, *prev)

	prev, err = store.PreviousCalcTsBefore(ctx, ptr(150*day))
	require.NoError(t, err)
	assert.Nil(t, prev, "strictly earlier")

	prev, err = store.PreviousCalcTsBefore(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, prev)

	latest, err := store.LatestCalcTsAtOrBefore(ctx, 190*day)
	require.NoError(t, err)
	assert.Equal(t, 190*day, *latest)

	latest, err = store.LatestCalcTsAtOrBefore(ctx, 100*day)
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestDispose(t *testing.T) {
	ctx := context.Background()
	cfg := config.DatabaseConfig{DBName: filepath.Join(t.TempDir(), "rankings.db"), Migrate: true}

	db, dialect, err := database.InitDB(ctx, cfg)
	require.NoError(t, err)
	seed(t, db)

	opened := 0
	store := rankings.New(db, dialect, func(ctx context.Context) (*sql.DB, error) {
		opened++
		fresh, _, err := database.Open(ctx, cfg)
		return fresh, err
	})
	defer store.Close()

	require.NoError(t, store.Dispose(ctx))
	assert.Equal(t, 1, opened)
	assert.Error(t, db.Ping(), "the disposed pool is closed")

	page, err := store.FetchPage(ctx, rankings.DefaultParams(), ptr(200*day))
	require.NoError(t, err, "queries keep working on the fresh pool")
	assert.Len(t, page.Rows, 3)
}

func TestDispose_WithoutOpener(t *testing.T) {
	store, _ := setupTestDB(t)
	assert.Error(t, store.Dispose(context.Background()))
}
