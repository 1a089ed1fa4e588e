package processor

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/mauv0809/ripple-snapshot/internal/cache"
	"github.com/mauv0809/ripple-snapshot/internal/ripple"
)

// publish writes a fully built generation. The order is fixed: readers see
// per-key skew only, and meta never refers to a newer generation than the
// live stable payload.
func (p *Processor) publish(ctx context.Context, gen *generation) error {
	type write struct {
		key   string
		value any
	}
	var writes []write
	if gen.baseline != nil {
		writes = append(writes,
			write{cache.StablePreviousKey, gen.baseline},
			write{cache.PreviousMetaKey, ripple.PreviousMeta{
				Source:               gen.baselineSource,
				PayloadGeneratedAtMs: gen.baseline.GeneratedAtMs,
			}},
		)
	}
	writes = append(writes,
		write{cache.StateKey, gen.states},
		write{cache.StableLatestKey, gen.stable},
		write{cache.DangerLatestKey, gen.danger},
		write{cache.MetaKey, gen.meta},
		write{cache.PercentilesKey, gen.percentiles},
		write{cache.DeltasKey, gen.deltas},
	)

	for _, w := range writes {
		if err := cache.SetJSON(ctx, p.cache, w.key, w.value); err != nil {
			log.Error("Failed to publish snapshot artifact", "key", w.key, "error", err)
			return err
		}
		log.Debug("Published snapshot artifact", "key", w.key)
	}
	return nil
}
