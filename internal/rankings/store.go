package rankings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/mauv0809/ripple-snapshot/internal/database"
)

// idChunkSize bounds the number of bind parameters per IN clause.
const idChunkSize = 500

// Option customizes a store.
type Option func(*store)

// WithClock overrides the clock used when a query has no explicit reference time.
func WithClock(now func() time.Time) Option {
	return func(s *store) {
		s.now = now
	}
}

// New creates a new RankingStore on top of db. reopen is used by Dispose.
func New(db *sql.DB, dialect database.Dialect, reopen Opener, opts ...Option) RankingStore {
	s := &store{
		db:      db,
		dialect: dialect,
		reopen:  reopen,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// eligibleRow is a snapshot row joined with the player's tournament activity.
type eligibleRow struct {
	Row
	OldestInWindowMs *int64
}

type snapshot struct {
	calcTs *int64
	build  *string
}

func (s *store) conn() *sql.DB {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db
}

// FetchPage implements RankingStore.
func (s *store) FetchPage(ctx context.Context, params QueryParams, atMs *int64) (Page, error) {
	rows, snap, err := s.eligible(ctx, "fetch page", params, atMs)
	if err != nil {
		return Page{}, err
	}

	page := Page{
		Rows:         make([]Row, 0, len(rows)),
		Total:        len(rows),
		CalcTs:       snap.calcTs,
		BuildVersion: snap.build,
	}
	for _, r := range window(rows, params) {
		page.Rows = append(page.Rows, r.Row)
	}
	return page, nil
}

// FetchDanger implements RankingStore.
func (s *store) FetchDanger(ctx context.Context, params QueryParams, atMs *int64) (DangerPage, error) {
	rows, snap, err := s.eligible(ctx, "fetch danger", params, atMs)
	if err != nil {
		return DangerPage{}, err
	}
	ref := s.reference(atMs)
	windowMs := params.WindowMs()

	danger := make([]DangerRow, 0)
	for i, r := range rows {
		count := 0
		if r.WindowCount != nil {
			count = *r.WindowCount
		}
		// One more expiry would drop the player below the threshold.
		if count > params.MinTournaments {
			continue
		}
		rank := i + 1
		d := DangerRow{
			PlayerID:              r.PlayerID,
			DisplayName:           r.DisplayName,
			Score:                 r.Score,
			PlayerRank:            &rank,
			WindowTournamentCount: r.WindowCount,
			OldestInWindowMs:      r.OldestInWindowMs,
		}
		if r.OldestInWindowMs != nil {
			next := *r.OldestInWindowMs + windowMs
			left := next - ref
			d.NextExpiryMs = &next
			d.MsLeft = &left
		}
		danger = append(danger, d)
	}

	sort.SliceStable(danger, func(i, j int) bool {
		a, b := danger[i].NextExpiryMs, danger[j].NextExpiryMs
		switch {
		case a == nil && b == nil:
			return danger[i].PlayerID < danger[j].PlayerID
		case a == nil:
			return false
		case b == nil:
			return true
		case *a != *b:
			return *a < *b
		default:
			return danger[i].PlayerID < danger[j].PlayerID
		}
	})

	return DangerPage{
		Rows:         window(danger, params),
		Total:        len(danger),
		CalcTs:       snap.calcTs,
		BuildVersion: snap.build,
	}, nil
}

// FetchPlayerEvents implements RankingStore.
func (s *store) FetchPlayerEvents(ctx context.Context, ids []string) (map[string]PlayerEvent, error) {
	events := make(map[string]PlayerEvent, len(ids))
	if len(ids) == 0 {
		return events, nil
	}
	db := s.conn()

	for _, chunk := range chunks(uniq(ids), idChunkSize) {
		query := fmt.Sprintf(`
			SELECT tp.player_id, MAX(t.event_ms), COUNT(*)
			FROM tournament_players tp
			JOIN tournaments t ON t.tournament_id = tp.tournament_id
			WHERE tp.player_id IN (%s)
			GROUP BY tp.player_id`, placeholders(len(chunk)))

		rows, err := db.QueryContext(ctx, s.dialect.Rebind(query), anySlice(chunk)...)
		if err != nil {
			return nil, classify("fetch player events", err)
		}
		for rows.Next() {
			var id string
			var latest, count sql.NullInt64
			if err := rows.Scan(&id, &latest, &count); err != nil {
				log.Error("Failed to scan player event row", "error", err)
				continue
			}
			events[id] = PlayerEvent{
				LatestEventMs:   int64Ptr(latest),
				TournamentCount: intPtr(count),
			}
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, classify("fetch player events", err)
		}
	}
	return events, nil
}

// FirstScoresAfterEvents implements RankingStore.
func (s *store) FirstScoresAfterEvents(ctx context.Context, events map[string]int64, cutoffMs *int64) (map[string]float64, error) {
	scores := make(map[string]float64, len(events))
	if len(events) == 0 {
		return scores, nil
	}
	db := s.conn()

	ids := make([]string, 0, len(events))
	for id := range events {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, chunk := range chunks(ids, idChunkSize) {
		minEvent := events[chunk[0]]
		for _, id := range chunk {
			minEvent = min(minEvent, events[id])
		}

		query := fmt.Sprintf(`
			SELECT player_id, score, calculated_at_ms
			FROM player_rankings
			WHERE player_id IN (%s) AND calculated_at_ms >= ?`, placeholders(len(chunk)))
		args := append(anySlice(chunk), minEvent)
		if cutoffMs != nil {
			query += " AND calculated_at_ms <= ?"
			args = append(args, *cutoffMs)
		}
		query += " ORDER BY player_id ASC, calculated_at_ms ASC"

		rows, err := db.QueryContext(ctx, s.dialect.Rebind(query), args...)
		if err != nil {
			return nil, classify("first scores after events", err)
		}
		for rows.Next() {
			var id string
			var score sql.NullFloat64
			var calcTs int64
			if err := rows.Scan(&id, &score, &calcTs); err != nil {
				log.Error("Failed to scan first score row", "error", err)
				continue
			}
			if _, done := scores[id]; done {
				continue
			}
			if calcTs < events[id] {
				continue
			}
			if !validScore(score) {
				log.Warn("Skipping malformed ranking score", "player_id", id, "calculated_at_ms", calcTs)
				continue
			}
			scores[id] = score.Float64
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, classify("first scores after events", err)
		}
	}
	return scores, nil
}

// PreviousCalcTsBefore implements RankingStore. A nil currentTs has no predecessor.
func (s *store) PreviousCalcTsBefore(ctx context.Context, currentTs *int64) (*int64, error) {
	if currentTs == nil {
		return nil, nil
	}
	return s.maxCalcTs(ctx, "previous calc ts", "calculated_at_ms < ?", *currentTs)
}

// LatestCalcTsAtOrBefore implements RankingStore.
func (s *store) LatestCalcTsAtOrBefore(ctx context.Context, cutoffMs int64) (*int64, error) {
	return s.maxCalcTs(ctx, "latest calc ts", "calculated_at_ms <= ?", cutoffMs)
}

// Dispose implements RankingStore.
func (s *store) Dispose(ctx context.Context) error {
	if s.reopen == nil {
		return errors.New("rankings: store has no opener, cannot dispose pool")
	}
	fresh, err := s.reopen(ctx)
	if err != nil {
		return classify("dispose", err)
	}

	s.mu.Lock()
	old := s.db
	s.db = fresh
	s.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			log.Warn("Failed to close disposed ranking pool", "error", err)
		}
	}
	log.Info("Ranking store connection pool disposed and reopened")
	return nil
}

// Close implements RankingStore.
func (s *store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *store) maxCalcTs(ctx context.Context, op, cond string, arg int64) (*int64, error) {
	var ts sql.NullInt64
	query := "SELECT MAX(calculated_at_ms) FROM player_rankings WHERE " + cond
	if err := s.conn().QueryRowContext(ctx, s.dialect.Rebind(query), arg).Scan(&ts); err != nil {
		return nil, classify(op, err)
	}
	return int64Ptr(ts), nil
}

func (s *store) reference(atMs *int64) int64 {
	if atMs != nil {
		return *atMs
	}
	return s.now().UnixMilli()
}

// resolveSnapshot finds the latest calculation at or before params.TsMs.
func (s *store) resolveSnapshot(ctx context.Context, db *sql.DB, params QueryParams) (snapshot, error) {
	query := "SELECT calculated_at_ms, build_version FROM player_rankings"
	var conds []string
	var args []any
	if params.TsMs != nil {
		conds = append(conds, "calculated_at_ms <= ?")
		args = append(args, *params.TsMs)
	}
	if params.Build != nil {
		conds = append(conds, "build_version = ?")
		args = append(args, *params.Build)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY calculated_at_ms DESC LIMIT 1"

	var ts int64
	var build sql.NullString
	err := db.QueryRowContext(ctx, s.dialect.Rebind(query), args...).Scan(&ts, &build)
	if errors.Is(err, sql.ErrNoRows) {
		return snapshot{}, nil
	}
	if err != nil {
		return snapshot{}, err
	}
	snap := snapshot{calcTs: &ts}
	if build.Valid && build.String != "" {
		snap.build = &build.String
	}
	return snap, nil
}

// eligible loads every player of the resolved snapshot that meets the
// tournament threshold, ordered by score descending then player id.
func (s *store) eligible(ctx context.Context, op string, params QueryParams, atMs *int64) ([]eligibleRow, snapshot, error) {
	db := s.conn()
	snap, err := s.resolveSnapshot(ctx, db, params)
	if err != nil {
		return nil, snapshot{}, classify(op, err)
	}
	if snap.calcTs == nil {
		return []eligibleRow{}, snap, nil
	}

	ref := s.reference(atMs)
	windowStart := ref - params.WindowMs()
	ranked := ""
	if params.RankedOnly {
		ranked = " AND t.is_ranked = 1"
	}
	query := fmt.Sprintf(`
		WITH activity AS (
			SELECT tp.player_id AS player_id,
				COUNT(*) AS tournament_count,
				MAX(t.event_ms) AS last_active_ms,
				CAST(SUM(CASE WHEN t.event_ms > ? THEN 1 ELSE 0 END) AS BIGINT) AS window_count,
				MIN(CASE WHEN t.event_ms > ? THEN t.event_ms END) AS oldest_in_window_ms
			FROM tournament_players tp
			JOIN tournaments t ON t.tournament_id = tp.tournament_id
			WHERE t.event_ms <= ?%s
			GROUP BY tp.player_id
		)
		SELECT r.player_id, p.display_name, r.score, r.player_rank,
			a.tournament_count, a.last_active_ms, COALESCE(a.window_count, 0), a.oldest_in_window_ms
		FROM player_rankings r
		LEFT JOIN players p ON p.player_id = r.player_id
		LEFT JOIN activity a ON a.player_id = r.player_id
		WHERE r.calculated_at_ms = ? AND COALESCE(a.window_count, 0) >= ?`, ranked)

	rows, err := db.QueryContext(ctx, s.dialect.Rebind(query),
		windowStart, windowStart, ref, *snap.calcTs, params.MinTournaments)
	if err != nil {
		return nil, snapshot{}, classify(op, err)
	}
	defer rows.Close()

	out := make([]eligibleRow, 0)
	for rows.Next() {
		var (
			id                        sql.NullString
			name                      sql.NullString
			score                     sql.NullFloat64
			rank, tc, last, wc, oldest sql.NullInt64
		)
		if err := rows.Scan(&id, &name, &score, &rank, &tc, &last, &wc, &oldest); err != nil {
			log.Error("Failed to scan ranking row", "error", err)
			continue
		}
		if !id.Valid || id.String == "" || !validScore(score) {
			log.Warn("Skipping malformed ranking row", "player_id", id.String, "calculated_at_ms", *snap.calcTs)
			continue
		}
		out = append(out, eligibleRow{
			Row: Row{
				PlayerID:        id.String,
				DisplayName:     strPtr(name),
				Score:           score.Float64,
				Rank:            intPtr(rank),
				TournamentCount: intPtr(tc),
				LastActiveMs:    int64Ptr(last),
				WindowCount:     intPtr(wc),
			},
			OldestInWindowMs: int64Ptr(oldest),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, snapshot{}, classify(op, err)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].PlayerID < out[j].PlayerID
	})
	return out, snap, nil
}

// window applies offset and limit.
func window[T any](rows []T, params QueryParams) []T {
	start := max(params.Offset, 0)
	if start >= len(rows) {
		return []T{}
	}
	end := len(rows)
	if params.Limit != nil && start+*params.Limit < end {
		end = start + max(*params.Limit, 0)
	}
	return rows[start:end]
}

func validScore(v sql.NullFloat64) bool {
	return v.Valid && !math.IsNaN(v.Float64) && !math.IsInf(v.Float64, 0)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func chunks(ids []string, size int) [][]string {
	var out [][]string
	for len(ids) > size {
		out = append(out, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}

func uniq(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func anySlice(ids []string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

func strPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}
