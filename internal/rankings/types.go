package rankings

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/mauv0809/ripple-snapshot/internal/database"
)

// MsPerDay is the number of milliseconds in a day.
const MsPerDay int64 = 86_400_000

// store reads the append-only ranking database.
type store struct {
	mu      sync.RWMutex
	db      *sql.DB
	dialect database.Dialect
	reopen  Opener
	now     func() time.Time
}

// Opener builds a fresh connection pool; it is called when the current pool is disposed.
type Opener func(ctx context.Context) (*sql.DB, error)

// QueryParams selects which players and which ranking snapshot a query covers.
type QueryParams struct {
	Limit                *int    `json:"limit"`
	Offset               int     `json:"offset"`
	MinTournaments       int     `json:"min_tournaments"`
	TournamentWindowDays int     `json:"tournament_window_days"`
	RankedOnly           bool    `json:"ranked_only"`
	Build                *string `json:"build"`
	TsMs                 *int64  `json:"ts_ms"`
}

// DefaultParams returns the query parameters used when nothing is configured.
func DefaultParams() QueryParams {
	return QueryParams{
		MinTournaments:       3,
		TournamentWindowDays: 120,
		RankedOnly:           true,
	}
}

// WindowMs is the tournament window length in milliseconds.
func (p QueryParams) WindowMs() int64 {
	return int64(p.TournamentWindowDays) * MsPerDay
}

// Row is one player's entry in a ranking snapshot. Rank is only a hint; the
// snapshot builder recomputes the authoritative rank.
type Row struct {
	PlayerID        string
	DisplayName     *string
	Score           float64
	Rank            *int
	TournamentCount *int
	LastActiveMs    *int64
	WindowCount     *int
}

// DangerRow is an eligible player whose oldest in-window tournament is next to expire.
type DangerRow struct {
	PlayerID              string
	DisplayName           *string
	Score                 float64
	PlayerRank            *int
	WindowTournamentCount *int
	OldestInWindowMs      *int64
	NextExpiryMs          *int64
	MsLeft                *int64
}

// PlayerEvent summarizes a player's lifetime tournament history.
type PlayerEvent struct {
	LatestEventMs   *int64
	TournamentCount *int
}

// Page is the result envelope of FetchPage.
type Page struct {
	Rows         []Row
	Total        int
	CalcTs       *int64
	BuildVersion *string
}

// DangerPage is the result envelope of FetchDanger.
type DangerPage struct {
	Rows         []DangerRow
	Total        int
	CalcTs       *int64
	BuildVersion *string
}
