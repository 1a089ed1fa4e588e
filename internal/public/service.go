package public

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/mauv0809/ripple-snapshot/internal/cache"
	"github.com/mauv0809/ripple-snapshot/internal/config"
	"github.com/mauv0809/ripple-snapshot/internal/metrics"
	"github.com/mauv0809/ripple-snapshot/internal/ripple"
)

var _ Reader = (*Service)(nil)

// New creates a new public read Service.
func New(c cache.Cache, metrics metrics.Metrics, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.StaleThreshold <= 0 {
		opts.StaleThreshold = DefaultStaleThreshold
	}
	return &Service{cache: c, metrics: metrics, opts: opts}
}

// Stable returns the live stable leaderboard.
func (s *Service) Stable(ctx context.Context) (Decorated[ripple.StableRow], error) {
	const endpoint = "stable"
	if err := s.gate(ctx, endpoint); err != nil {
		return Decorated[ripple.StableRow]{}, err
	}
	env, _, err := read[ripple.StableRow](ctx, s, endpoint, cache.StableLatestKey)
	if err != nil {
		return Decorated[ripple.StableRow]{}, err
	}
	return decorate(env, s.opts.Now(), s.opts.StaleThreshold), nil
}

// Danger returns the live danger view.
func (s *Service) Danger(ctx context.Context) (Decorated[ripple.DangerRow], error) {
	const endpoint = "danger"
	if err := s.gate(ctx, endpoint); err != nil {
		return Decorated[ripple.DangerRow]{}, err
	}
	env, _, err := read[ripple.DangerRow](ctx, s, endpoint, cache.DangerLatestKey)
	if err != nil {
		return Decorated[ripple.DangerRow]{}, err
	}
	return decorate(env, s.opts.Now(), s.opts.StaleThreshold), nil
}

// Meta returns the generation summary along with presence and staleness of
// the stable and danger payloads.
func (s *Service) Meta(ctx context.Context) (MetaResponse, error) {
	const endpoint = "meta"
	if err := s.gate(ctx, endpoint); err != nil {
		return MetaResponse{}, err
	}

	var meta *ripple.MetaPayload
	m, err := cache.GetJSON[ripple.MetaPayload](ctx, s.cache, cache.MetaKey)
	switch {
	case err == nil:
		meta = &m
		s.metrics.IncPublicReads(endpoint, OutcomeHit)
	case errors.Is(err, cache.ErrMiss):
		s.metrics.IncPublicReads(endpoint, OutcomeMiss)
	case errors.Is(err, cache.ErrMalformed):
		log.Warn("Ignoring malformed meta payload", "error", err)
		s.metrics.IncPublicReads(endpoint, OutcomeMalformed)
	default:
		s.metrics.IncPublicReads(endpoint, OutcomeError)
		return MetaResponse{}, fmt.Errorf("failed to read meta: %w", err)
	}

	now := s.opts.Now()
	stable, stablePresent, err := read[ripple.StableRow](ctx, s, "", cache.StableLatestKey)
	if err != nil {
		return MetaResponse{}, err
	}
	danger, dangerPresent, err := read[ripple.DangerRow](ctx, s, "", cache.DangerLatestKey)
	if err != nil {
		return MetaResponse{}, err
	}

	return MetaResponse{
		Meta:          meta,
		Stable:        Presence{Present: stablePresent, Stale: IsStale(stable.GeneratedAtMs, now, s.opts.StaleThreshold)},
		Danger:        Presence{Present: dangerPresent, Stale: IsStale(danger.GeneratedAtMs, now, s.opts.StaleThreshold)},
		FeatureFlag:   FeatureFlag{Key: cache.FeatureFlagKey, Enabled: true},
		RetrievedAtMs: now.UnixMilli(),
	}, nil
}

// Enabled resolves the competition leaderboard flag. A value stored in the
// cache wins; anything absent or unrecognized falls back to the default.
func (s *Service) Enabled(ctx context.Context) bool {
	raw, err := s.cache.Get(ctx, cache.FeatureFlagKey)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			log.Warn("Failed to read feature flag, using default", "key", cache.FeatureFlagKey, "error", err)
		}
		return s.opts.FlagDefault
	}
	enabled, ok := config.ParseFlag(strings.Trim(string(raw), `"`))
	if !ok {
		log.Warn("Unrecognized feature flag value, using default", "key", cache.FeatureFlagKey, "value", string(raw))
		return s.opts.FlagDefault
	}
	return enabled
}

func (s *Service) gate(ctx context.Context, endpoint string) error {
	if s.Enabled(ctx) {
		return nil
	}
	s.metrics.IncPublicReads(endpoint, OutcomeDisabled)
	return ErrDisabled
}

// read loads an envelope, substituting the empty envelope when it is absent
// or unusable. An empty endpoint skips metrics.
func read[T any](ctx context.Context, s *Service, endpoint, key string) (ripple.Envelope[T], bool, error) {
	env, err := cache.GetJSON[ripple.Envelope[T]](ctx, s.cache, key)
	outcome := OutcomeHit
	switch {
	case errors.Is(err, cache.ErrMiss):
		outcome = OutcomeMiss
	case errors.Is(err, cache.ErrMalformed):
		log.Warn("Serving empty payload in place of malformed one", "key", key, "error", err)
		outcome = OutcomeMalformed
	case err != nil:
		if endpoint != "" {
			s.metrics.IncPublicReads(endpoint, OutcomeError)
		}
		return ripple.Envelope[T]{}, false, fmt.Errorf("failed to read %s: %w", key, err)
	case !env.Valid():
		log.Warn("Serving empty payload in place of one without data", "key", key)
		outcome = OutcomeMalformed
	}
	if endpoint != "" {
		s.metrics.IncPublicReads(endpoint, outcome)
	}
	if outcome != OutcomeHit {
		return Empty[T](), false, nil
	}
	return env, true, nil
}

// Empty returns the envelope served when nothing is published.
func Empty[T any]() ripple.Envelope[T] {
	return ripple.Envelope[T]{Data: []T{}}
}

// IsStale reports whether a generation is missing or older than threshold.
func IsStale(generatedAtMs *int64, now time.Time, threshold time.Duration) bool {
	if generatedAtMs == nil {
		return true
	}
	return now.UnixMilli()-*generatedAtMs > threshold.Milliseconds()
}

func decorate[T any](env ripple.Envelope[T], now time.Time, threshold time.Duration) Decorated[T] {
	return Decorated[T]{
		Envelope:      env,
		RetrievedAtMs: now.UnixMilli(),
		Stale:         IsStale(env.GeneratedAtMs, now, threshold),
	}
}
