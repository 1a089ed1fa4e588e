package processor

import (
	"sync/atomic"
	"time"

	"github.com/mauv0809/ripple-snapshot/internal/cache"
	"github.com/mauv0809/ripple-snapshot/internal/config"
	"github.com/mauv0809/ripple-snapshot/internal/metrics"
	"github.com/mauv0809/ripple-snapshot/internal/notifier"
	"github.com/mauv0809/ripple-snapshot/internal/pubsub"
	"github.com/mauv0809/ripple-snapshot/internal/rankings"
	"github.com/mauv0809/ripple-snapshot/internal/ripple"
)

// ReasonLocked is reported when another publisher holds the snapshot lock.
const ReasonLocked = "locked"

// Processor publishes stable leaderboard snapshots.
type Processor struct {
	store   Store
	cache   cache.Cache
	pubsub  pubsub.PubSubClient
	metrics metrics.Metrics
	opts    Options

	// consecutive refreshes that ended in an error
	failures atomic.Int32
}

// Options tunes a Processor.
type Options struct {
	Params        rankings.QueryParams
	Transform     ripple.Transform
	LockTTL       time.Duration
	MaxRetries    int
	RetryBackoff  time.Duration
	TaskTimeLimit time.Duration
	SoftTimeLimit time.Duration
	AnnounceTopic string
	// Notifier receives failure and recovery alerts; nil disables them.
	Notifier notifier.Notifier
	Now      func() time.Time
}

// OptionsFromConfig derives processor options from the application config.
func OptionsFromConfig(cfg config.Config) Options {
	r := cfg.Ripple
	params := rankings.DefaultParams()
	params.MinTournaments = r.MinTournaments
	params.TournamentWindowDays = r.WindowDays
	params.RankedOnly = r.RankedOnly
	return Options{
		Params: params,
		Transform: ripple.Transform{
			ScoreOffset:   r.ScoreOffset,
			DisplayOffset: r.DisplayOffset,
			Multiplier:    r.ScoreMultiplier,
		},
		LockTTL:       r.LockTTL(),
		MaxRetries:    r.MaxRetries,
		RetryBackoff:  r.RetryBackoff,
		TaskTimeLimit: r.TaskTimeLimit,
		SoftTimeLimit: r.SoftTimeLimit,
		AnnounceTopic: cfg.Announce.Topic,
	}
}

// Result describes the outcome of one Refresh call.
type Result struct {
	Skipped        bool   `json:"skipped"`
	Reason         string `json:"reason,omitempty"`
	DryRun         bool   `json:"dry_run,omitempty"`
	StableRows     *int   `json:"stable_rows,omitempty"`
	DangerRows     *int   `json:"danger_rows,omitempty"`
	GeneratedAtMs  *int64 `json:"generated_at_ms,omitempty"`
	BaselineSource string `json:"baseline_source,omitempty"`
}

// generation holds every artifact of one refresh, built in memory before
// anything is written.
type generation struct {
	generatedAtMs  int64
	stable         ripple.StablePayload
	danger         ripple.DangerPayload
	meta           ripple.MetaPayload
	percentiles    ripple.PercentilesPayload
	deltas         ripple.DeltasPayload
	states         ripple.PlayerStates
	baseline       *ripple.BaselinePayload
	baselineSource string
}
