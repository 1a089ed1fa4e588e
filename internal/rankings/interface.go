package rankings

import "context"

// RankingStore defines read-only access to the ranking database.
type RankingStore interface {
	// FetchPage returns the eligible players of the latest snapshot at or before
	// params.TsMs. atMs anchors the tournament window and defaults to now.
	FetchPage(ctx context.Context, params QueryParams, atMs *int64) (Page, error)
	// FetchDanger returns eligible players ordered by soonest window expiry.
	FetchDanger(ctx context.Context, params QueryParams, atMs *int64) (DangerPage, error)
	FetchPlayerEvents(ctx context.Context, ids []string) (map[string]PlayerEvent, error)
	// FirstScoresAfterEvents returns, per player, the earliest ranking score
	// calculated at or after the given event time and not after cutoffMs.
	FirstScoresAfterEvents(ctx context.Context, events map[string]int64, cutoffMs *int64) (map[string]float64, error)
	PreviousCalcTsBefore(ctx context.Context, currentTs *int64) (*int64, error)
	LatestCalcTsAtOrBefore(ctx context.Context, cutoffMs int64) (*int64, error)
	// Dispose replaces the connection pool with a freshly opened one.
	Dispose(ctx context.Context) error
	Close() error
}
