package cache

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/mauv0809/ripple-snapshot/internal/config"
)

// New opens the cache backend selected by cfg.
func New(ctx context.Context, cfg config.CacheConfig) (Cache, error) {
	switch strings.ToLower(cfg.Backend) {
	case "redis":
		log.Info("Using Redis cache")
		return NewRedis(ctx, cfg.RedisURL)
	case "badger":
		log.Info("Using Badger cache", "path", cfg.BadgerPath)
		return NewBadger(cfg.BadgerPath)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
