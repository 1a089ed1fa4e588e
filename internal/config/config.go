package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

// minRetryBackoff is the smallest pause allowed between refresh attempts.
const minRetryBackoff = 500 * time.Millisecond

// Load reads configuration from environment variables and .env file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, reading from environment variables")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Ripple.RetryBackoff < minRetryBackoff {
		cfg.Ripple.RetryBackoff = minRetryBackoff
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints that env parsing cannot express.
func (c Config) Validate() error {
	r := c.Ripple
	var errs []error
	if r.MinTournaments < 0 {
		errs = append(errs, fmt.Errorf("RIPPLE_MIN_TOURNAMENTS must be >= 0, got %d", r.MinTournaments))
	}
	if r.WindowDays <= 0 {
		errs = append(errs, fmt.Errorf("RIPPLE_WINDOW_DAYS must be > 0, got %d", r.WindowDays))
	}
	if r.ScoreMultiplier == 0 {
		errs = append(errs, errors.New("RIPPLE_SCORE_MULTIPLIER must be non-zero"))
	}
	if r.MaxRetries < 1 {
		errs = append(errs, fmt.Errorf("RIPPLE_MAX_REFRESH_RETRIES must be >= 1, got %d", r.MaxRetries))
	}
	// A crashed publisher's lock must expire on its own after the scheduler kills it.
	if r.LockTTL() <= r.TaskTimeLimit {
		errs = append(errs, fmt.Errorf("RIPPLE_LOCK_TTL_SECONDS (%s) must exceed RIPPLE_TASK_TIME_LIMIT (%s)", r.LockTTL(), r.TaskTimeLimit))
	}
	if r.SoftTimeLimit > r.TaskTimeLimit {
		errs = append(errs, fmt.Errorf("RIPPLE_SOFT_TIME_LIMIT (%s) must not exceed RIPPLE_TASK_TIME_LIMIT (%s)", r.SoftTimeLimit, r.TaskTimeLimit))
	}
	switch strings.ToLower(c.Cache.Backend) {
	case "redis", "badger":
	default:
		errs = append(errs, fmt.Errorf("CACHE_BACKEND must be redis or badger, got %q", c.Cache.Backend))
	}
	if _, ok := ParseFlag(c.FeatureFlagDefault); !ok {
		errs = append(errs, fmt.Errorf("COMP_LEADERBOARD_ENABLED has unrecognized value %q", c.FeatureFlagDefault))
	}
	return errors.Join(errs...)
}

// FeatureFlagEnabled returns the env default for the competition leaderboard flag.
func (c Config) FeatureFlagEnabled() bool {
	enabled, _ := ParseFlag(c.FeatureFlagDefault)
	return enabled
}

// ParseFlag interprets a boolean flag value. The second result is false when
// the value is in neither the truthy nor the falsy set.
func ParseFlag(raw string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "t", "yes", "y", "on":
		return true, true
	case "0", "false", "f", "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}

// Level maps LOG_LEVEL onto a charmbracelet level, defaulting to info.
func (c Config) Level() log.Level {
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(c.LogLevel)))
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}
