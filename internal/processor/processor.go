package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/mauv0809/ripple-snapshot/internal/cache"
	"github.com/mauv0809/ripple-snapshot/internal/metrics"
	"github.com/mauv0809/ripple-snapshot/internal/notifier"
	"github.com/mauv0809/ripple-snapshot/internal/pubsub"
	"github.com/mauv0809/ripple-snapshot/internal/rankings"
	"github.com/mauv0809/ripple-snapshot/internal/ripple"
)

var _ Refresher = (*Processor)(nil)

// New creates a new Processor.
func New(store Store, c cache.Cache, metrics metrics.Metrics, pubsub pubsub.PubSubClient, opts Options) *Processor {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 15 * time.Minute
	}
	if opts.Transform == (ripple.Transform{}) {
		opts.Transform = ripple.DefaultTransform()
	}
	return &Processor{
		store:   store,
		cache:   c,
		pubsub:  pubsub,
		metrics: metrics,
		opts:    opts,
	}
}

// Refresh rebuilds and publishes the stable leaderboard under the cluster-wide
// snapshot lock. When the lock is held elsewhere it returns a skipped result
// without touching the store or any payload. A dry run builds everything but
// writes nothing.
func (p *Processor) Refresh(ctx context.Context, dryRun bool) (Result, error) {
	token := uuid.NewString()
	acquired, err := p.cache.AcquireLock(ctx, cache.LockKey, token, p.opts.LockTTL)
	if err != nil {
		p.metrics.IncRefreshFailures()
		return Result{}, fmt.Errorf("failed to acquire snapshot lock: %w", err)
	}
	if !acquired {
		log.Info("Snapshot refresh skipped, lock held by another publisher")
		p.metrics.IncRefreshSkipped()
		return Result{Skipped: true, Reason: ReasonLocked}, nil
	}
	defer p.releaseLock(ctx, token)

	log.Info("Starting snapshot refresh", "token", token, "dry_run", dryRun)
	start := time.Now()

	runCtx := ctx
	if p.opts.TaskTimeLimit > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, p.opts.TaskTimeLimit)
		defer cancel()
	}
	if p.opts.SoftTimeLimit > 0 {
		soft := time.AfterFunc(p.opts.SoftTimeLimit, func() {
			log.Warn("Snapshot refresh exceeded its soft time limit", "token", token, "limit", p.opts.SoftTimeLimit)
		})
		defer soft.Stop()
	}

	gen, err := p.buildWithRetry(runCtx)
	if err == nil && !dryRun {
		err = p.publish(runCtx, gen)
	}
	p.metrics.ObserveRefreshDuration(time.Since(start).Seconds())
	if err != nil {
		p.metrics.IncRefreshFailures()
		log.Error("Snapshot refresh failed", "error", err, "token", token)
		if !dryRun {
			p.alertFailure(ctx, err, token)
		}
		return Result{}, err
	}

	stableRows, dangerRows := gen.stable.RecordCount, gen.danger.RecordCount
	res := Result{
		DryRun:         dryRun,
		StableRows:     &stableRows,
		DangerRows:     &dangerRows,
		GeneratedAtMs:  &gen.generatedAtMs,
		BaselineSource: gen.baselineSource,
	}
	if dryRun {
		log.Info("[Dry Run] Would have published snapshot", "stable_rows", stableRows, "danger_rows", dangerRows, "baseline_source", gen.baselineSource)
		return res, nil
	}

	p.metrics.IncRefreshRuns()
	p.metrics.SetPublished(gen.generatedAtMs, stableRows, dangerRows)
	p.announce(runCtx, gen)
	p.alertRecovered(ctx, gen)
	log.Info("Snapshot refresh finished", "generated_at_ms", gen.generatedAtMs, "stable_rows", stableRows, "danger_rows", dangerRows, "duration", time.Since(start))
	return res, nil
}

// buildWithRetry runs build attempts until one succeeds. Connection errors
// dispose the ranking pool and are retried with exponential backoff; any
// other error ends the run.
func (p *Processor) buildWithRetry(ctx context.Context) (*generation, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = max(p.opts.RetryBackoff, time.Millisecond)
	b.RandomizationFactor = 0
	b.Multiplier = 2

	attempt := 0
	operation := func() (*generation, error) {
		attempt++
		gen, err := p.build(ctx)
		if err == nil {
			return gen, nil
		}
		if !rankings.IsConnectionError(err) {
			return nil, backoff.Permanent(err)
		}
		log.Warn("Ranking store connection error, disposing pool", "attempt", attempt, "max_attempts", p.opts.MaxRetries, "error", err)
		p.metrics.IncPoolDisposals()
		if derr := p.store.Dispose(ctx); derr != nil {
			log.Error("Failed to dispose ranking store pool", "error", derr)
		}
		return nil, err
	}

	gen, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(p.opts.MaxRetries)),
		backoff.WithNotify(func(err error, next time.Duration) {
			p.metrics.IncRefreshRetries()
			log.Info("Retrying snapshot build", "in", next, "error", err)
		}),
	)
	if err != nil {
		return nil, err
	}
	return gen, nil
}

func (p *Processor) releaseLock(ctx context.Context, token string) {
	// The run context may already be cancelled; the lock must still go.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	released, err := p.cache.ReleaseLock(ctx, cache.LockKey, token)
	switch {
	case err != nil:
		log.Error("Failed to release snapshot lock", "error", err, "token", token)
	case !released:
		log.Warn("Snapshot lock was no longer ours at release", "token", token)
	default:
		log.Debug("Released snapshot lock", "token", token)
	}
}

func (p *Processor) announce(ctx context.Context, gen *generation) {
	if p.pubsub == nil || p.opts.AnnounceTopic == "" {
		return
	}
	msg := pubsub.GenerationPublished{
		Event:                pubsub.EventGenerationPublished,
		GeneratedAtMs:        gen.generatedAtMs,
		StableCalculatedAtMs: gen.stable.CalculatedAtMs,
		StableRecordCount:    gen.stable.RecordCount,
		DangerRecordCount:    gen.danger.RecordCount,
		BuildVersion:         gen.stable.BuildVersion,
		BaselineSource:       gen.baselineSource,
	}
	if err := p.pubsub.SendMessage(ctx, p.opts.AnnounceTopic, msg); err != nil {
		log.Warn("Failed to announce published generation", "error", err, "topic", p.opts.AnnounceTopic)
	}
}

func (p *Processor) alertFailure(ctx context.Context, err error, token string) {
	p.failures.Add(1)
	if p.opts.Notifier == nil {
		return
	}
	failure := notifier.RefreshFailure{Error: err.Error(), Token: token, AtMs: p.opts.Now().UnixMilli()}
	if nerr := p.opts.Notifier.SendRefreshFailure(context.WithoutCancel(ctx), failure); nerr != nil {
		log.Warn("Failed to send refresh failure alert", "error", nerr)
	}
}

func (p *Processor) alertRecovered(ctx context.Context, gen *generation) {
	failed := p.failures.Swap(0)
	if failed == 0 || p.opts.Notifier == nil {
		return
	}
	recovery := notifier.Recovery{
		GeneratedAtMs:  gen.generatedAtMs,
		StableRows:     gen.stable.RecordCount,
		DangerRows:     gen.danger.RecordCount,
		FailedAttempts: int(failed),
	}
	if err := p.opts.Notifier.SendRecovered(ctx, recovery); err != nil {
		log.Warn("Failed to send recovery alert", "error", err)
	}
}
