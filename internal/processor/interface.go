package processor

import (
	"context"

	"github.com/mauv0809/ripple-snapshot/internal/rankings"
)

// Store defines the ranking store operations required by the processor.
type Store interface {
	FetchPage(ctx context.Context, params rankings.QueryParams, atMs *int64) (rankings.Page, error)
	FetchDanger(ctx context.Context, params rankings.QueryParams, atMs *int64) (rankings.DangerPage, error)
	FetchPlayerEvents(ctx context.Context, ids []string) (map[string]rankings.PlayerEvent, error)
	FirstScoresAfterEvents(ctx context.Context, events map[string]int64, cutoffMs *int64) (map[string]float64, error)
	PreviousCalcTsBefore(ctx context.Context, currentTs *int64) (*int64, error)
	LatestCalcTsAtOrBefore(ctx context.Context, cutoffMs int64) (*int64, error)
	Dispose(ctx context.Context) error
}

// Refresher runs one snapshot refresh. Schedulers and the HTTP tier depend on
// this rather than on the Processor itself.
type Refresher interface {
	Refresh(ctx context.Context, dryRun bool) (Result, error)
}
