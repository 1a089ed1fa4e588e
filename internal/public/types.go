package public

import (
	"errors"
	"time"

	"github.com/mauv0809/ripple-snapshot/internal/cache"
	"github.com/mauv0809/ripple-snapshot/internal/metrics"
	"github.com/mauv0809/ripple-snapshot/internal/ripple"
)

// ErrDisabled is returned while the competition leaderboard flag is off.
var ErrDisabled = errors.New("competition leaderboard is disabled")

// DisabledDetail is the detail message shown to callers while the flag is off.
const DisabledDetail = "Competition leaderboard is disabled"

// Read outcomes reported to metrics.
const (
	OutcomeHit       = "hit"
	OutcomeMiss      = "miss"
	OutcomeMalformed = "malformed"
	OutcomeDisabled  = "disabled"
	OutcomeError     = "error"
)

// DefaultStaleThreshold is how old a generation may get before it is flagged stale.
const DefaultStaleThreshold = 24 * time.Hour

// Service reads published payloads from the cache.
type Service struct {
	cache   cache.Cache
	metrics metrics.Metrics
	opts    Options
}

// Options tunes a Service.
type Options struct {
	// FlagDefault applies when the cache holds no usable flag value.
	FlagDefault    bool
	StaleThreshold time.Duration
	Now            func() time.Time
}

// Decorated is a published envelope as handed to public readers.
type Decorated[T any] struct {
	ripple.Envelope[T]
	RetrievedAtMs int64 `json:"retrieved_at_ms"`
	Stale         bool  `json:"stale"`
}

// Presence describes whether a payload is currently published.
type Presence struct {
	Present bool `json:"present"`
	Stale   bool `json:"stale"`
}

// FeatureFlag reports the resolved competition leaderboard flag.
type FeatureFlag struct {
	Key     string `json:"key"`
	Enabled bool   `json:"enabled"`
}

// MetaResponse is the public metadata view.
type MetaResponse struct {
	Meta          *ripple.MetaPayload `json:"meta"`
	Stable        Presence            `json:"stable"`
	Danger        Presence            `json:"danger"`
	FeatureFlag   FeatureFlag         `json:"feature_flag"`
	RetrievedAtMs int64               `json:"retrieved_at_ms"`
}
