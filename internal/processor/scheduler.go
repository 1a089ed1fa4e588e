package processor

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// Schedule runs a refresh immediately and then every interval until ctx is
// done. Failures are logged; the next tick tries again.
func Schedule(ctx context.Context, r Refresher, interval time.Duration) {
	if interval <= 0 {
		log.Info("Snapshot scheduler disabled")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info("Snapshot scheduler started", "interval", interval)
	for {
		if _, err := r.Refresh(ctx, false); err != nil {
			log.Error("Scheduled snapshot refresh failed", "error", err)
		}
		select {
		case <-ctx.Done():
			log.Info("Snapshot scheduler stopped")
			return
		case <-ticker.C:
		}
	}
}
