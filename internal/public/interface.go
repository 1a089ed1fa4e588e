package public

import (
	"context"

	"github.com/mauv0809/ripple-snapshot/internal/ripple"
)

// Reader serves the published leaderboard to public callers. Every method
// returns ErrDisabled while the competition leaderboard flag is off.
type Reader interface {
	Stable(ctx context.Context) (Decorated[ripple.StableRow], error)
	Danger(ctx context.Context) (Decorated[ripple.DangerRow], error)
	Meta(ctx context.Context) (MetaResponse, error)
}
