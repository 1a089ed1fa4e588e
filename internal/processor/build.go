package processor

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/mauv0809/ripple-snapshot/internal/cache"
	"github.com/mauv0809/ripple-snapshot/internal/rankings"
	"github.com/mauv0809/ripple-snapshot/internal/ripple"
)

// build runs one read-and-compute attempt. It never writes.
func (p *Processor) build(ctx context.Context) (*generation, error) {
	generatedAt := p.opts.Now().UnixMilli()
	params := p.opts.Params
	tr := p.opts.Transform

	page, err := p.store.FetchPage(ctx, params, &generatedAt)
	if err != nil {
		return nil, err
	}
	dangerPage, err := p.store.FetchDanger(ctx, params, &generatedAt)
	if err != nil {
		return nil, err
	}
	events, err := p.fetchEvents(ctx, page.Rows)
	if err != nil {
		return nil, err
	}

	prior, err := p.loadState(ctx)
	if err != nil {
		return nil, err
	}
	baseline, source, err := p.resolveBaseline(ctx, page.CalcTs, generatedAt)
	if err != nil {
		return nil, err
	}

	firstScores := map[string]float64{}
	if gated := ripple.GatedEvents(page.Rows, events, prior, nil); len(gated) > 0 {
		firstScores, err = p.store.FirstScoresAfterEvents(ctx, gated, nil)
		if err != nil {
			return nil, err
		}
	}

	rows, states := ripple.BuildStable(ripple.BuildInput{
		Rows:          page.Rows,
		Events:        events,
		FirstScores:   firstScores,
		Prior:         prior,
		GeneratedAtMs: generatedAt,
		Transform:     tr,
	})
	stable := ripple.NewStablePayload(rows, page, params, generatedAt)
	danger := ripple.BuildDanger(dangerPage, rows, params, generatedAt, tr)

	log.Debug("Built snapshot generation", "generated_at_ms", generatedAt, "calc_ts", page.CalcTs, "stable_rows", stable.RecordCount, "danger_rows", danger.RecordCount, "baseline_source", source)
	return &generation{
		generatedAtMs:  generatedAt,
		stable:         stable,
		danger:         danger,
		meta:           ripple.BuildMeta(stable, danger, generatedAt),
		percentiles:    ripple.BuildPercentiles(rows, generatedAt, tr),
		deltas:         ripple.ComputeDeltas(rows, baseline, generatedAt, tr),
		states:         states,
		baseline:       baseline,
		baselineSource: source,
	}, nil
}

func (p *Processor) fetchEvents(ctx context.Context, rows []rankings.Row) (map[string]rankings.PlayerEvent, error) {
	if len(rows) == 0 {
		return map[string]rankings.PlayerEvent{}, nil
	}
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.PlayerID
	}
	return p.store.FetchPlayerEvents(ctx, ids)
}

// loadState reads the durable player state. Missing or corrupt state starts over empty.
func (p *Processor) loadState(ctx context.Context) (ripple.PlayerStates, error) {
	states, err := cache.GetJSON[ripple.PlayerStates](ctx, p.cache, cache.StateKey)
	switch {
	case errors.Is(err, cache.ErrMiss):
		return ripple.PlayerStates{}, nil
	case errors.Is(err, cache.ErrMalformed):
		log.Warn("Player state is corrupt, rebuilding from scratch", "error", err)
		return ripple.PlayerStates{}, nil
	case err != nil:
		return nil, fmt.Errorf("failed to load player state: %w", err)
	}
	if states == nil {
		states = ripple.PlayerStates{}
	}
	return states, nil
}

// loadPayload reads a published stable payload as a baseline, treating
// absent, corrupt and structurally invalid blobs alike.
func (p *Processor) loadPayload(ctx context.Context, key string) (*ripple.BaselinePayload, error) {
	payload, err := cache.GetJSON[ripple.BaselinePayload](ctx, p.cache, key)
	switch {
	case errors.Is(err, cache.ErrMiss):
		return nil, nil
	case errors.Is(err, cache.ErrMalformed):
		log.Warn("Ignoring malformed cached payload", "key", key, "error", err)
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("failed to load %s: %w", key, err)
	}
	if !payload.Valid() {
		log.Warn("Ignoring cached payload without data", "key", key)
		return nil, nil
	}
	return &payload, nil
}

// resolveBaseline picks the payload to diff against: the live snapshot, then
// the preserved previous one, then the last snapshot before today, then the
// snapshot preceding calcTs. It returns a nil payload when none exists.
func (p *Processor) resolveBaseline(ctx context.Context, calcTs *int64, generatedAt int64) (*ripple.BaselinePayload, string, error) {
	live, err := p.loadPayload(ctx, cache.StableLatestKey)
	if err != nil || live != nil {
		return live, ripple.SourceLatest, err
	}
	previous, err := p.loadPayload(ctx, cache.StablePreviousKey)
	if err != nil || previous != nil {
		return previous, ripple.SourcePrevious, err
	}

	if cutoff := (generatedAt/rankings.MsPerDay)*rankings.MsPerDay - 1; cutoff > 0 {
		ts, err := p.store.LatestCalcTsAtOrBefore(ctx, cutoff)
		if err != nil {
			return nil, "", err
		}
		if ts != nil {
			payload, err := p.reconstruct(ctx, *ts)
			if err != nil {
				return nil, "", err
			}
			if payload != nil {
				baseline := ripple.ToBaseline(*payload)
				return &baseline, ripple.SourceReconstruction, nil
			}
		}
	}

	ts, err := p.store.PreviousCalcTsBefore(ctx, calcTs)
	if err != nil || ts == nil {
		return nil, "", err
	}
	payload, err := p.reconstruct(ctx, *ts)
	if err != nil || payload == nil {
		return nil, "", err
	}
	baseline := ripple.ToBaseline(*payload)
	return &baseline, ripple.SourceReconstruction, nil
}

// reconstruct rebuilds the stable payload as it would have been published at ts.
func (p *Processor) reconstruct(ctx context.Context, ts int64) (*ripple.StablePayload, error) {
	params := p.opts.Params
	params.TsMs = &ts

	page, err := p.store.FetchPage(ctx, params, &ts)
	if err != nil {
		return nil, err
	}
	if len(page.Rows) == 0 {
		return nil, nil
	}
	events, err := p.fetchEvents(ctx, page.Rows)
	if err != nil {
		return nil, err
	}

	firstScores := map[string]float64{}
	if gated := ripple.GatedEvents(page.Rows, events, nil, &ts); len(gated) > 0 {
		firstScores, err = p.store.FirstScoresAfterEvents(ctx, gated, &ts)
		if err != nil {
			return nil, err
		}
	}

	rows, _ := ripple.BuildStable(ripple.BuildInput{
		Rows:          page.Rows,
		Events:        events,
		FirstScores:   firstScores,
		CutoffMs:      &ts,
		GeneratedAtMs: ts,
		Transform:     p.opts.Transform,
	})
	payload := ripple.NewStablePayload(rows, page, params, ts)
	log.Info("Reconstructed historical baseline", "calc_ts", ts, "rows", payload.RecordCount)
	return &payload, nil
}
