package config

import "time"

// Config holds all configuration for the application.
type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	Database DatabaseConfig
	Cache    CacheConfig
	Ripple   RippleConfig
	Announce AnnounceConfig
	Inngest  InngestConfig
	Slack    SlackConfig
	// FeatureFlagDefault is the raw COMP_LEADERBOARD_ENABLED value; see ParseFlag.
	FeatureFlagDefault string `env:"COMP_LEADERBOARD_ENABLED" envDefault:"false"`
}

type DatabaseConfig struct {
	DBName      string      `env:"DB_NAME" envDefault:"rankings.db"`
	DatabaseURL string      `env:"DATABASE_URL"`
	Turso       TursoConfig `envPrefix:"TURSO_"`
	Migrate     bool        `env:"DB_MIGRATE" envDefault:"false"`
}

type TursoConfig struct {
	PrimaryURL string `env:"PRIMARY_URL"`
	AuthToken  string `env:"AUTH_TOKEN"`
}

type CacheConfig struct {
	Backend    string `env:"CACHE_BACKEND" envDefault:"redis"`
	RedisURL   string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	BadgerPath string `env:"BADGER_PATH" envDefault:"./data/cache"`
}

// RippleConfig carries the snapshot engine knobs.
type RippleConfig struct {
	MinTournaments   int           `env:"RIPPLE_MIN_TOURNAMENTS" envDefault:"3"`
	WindowDays       int           `env:"RIPPLE_WINDOW_DAYS" envDefault:"120"`
	RankedOnly       bool          `env:"RIPPLE_RANKED_ONLY" envDefault:"true"`
	ScoreOffset      float64       `env:"RIPPLE_SCORE_OFFSET" envDefault:"0"`
	ScoreMultiplier  float64       `env:"RIPPLE_SCORE_MULTIPLIER" envDefault:"25"`
	DisplayOffset    float64       `env:"RIPPLE_DISPLAY_OFFSET" envDefault:"150"`
	LockTTLSeconds   int           `env:"RIPPLE_LOCK_TTL_SECONDS" envDefault:"900"`
	MaxRetries       int           `env:"RIPPLE_MAX_REFRESH_RETRIES" envDefault:"3"`
	StaleThresholdMs int64         `env:"RIPPLE_STALE_THRESHOLD_MS" envDefault:"86400000"`
	RefreshInterval  time.Duration `env:"RIPPLE_REFRESH_INTERVAL" envDefault:"5m"`
	RetryBackoff     time.Duration `env:"RIPPLE_RETRY_BACKOFF" envDefault:"500ms"`
	TaskTimeLimit    time.Duration `env:"RIPPLE_TASK_TIME_LIMIT" envDefault:"10m"`
	SoftTimeLimit    time.Duration `env:"RIPPLE_SOFT_TIME_LIMIT" envDefault:"9m"`
}

type AnnounceConfig struct {
	ProjectID string `env:"GCP_PROJECT"`
	Topic     string `env:"RIPPLE_ANNOUNCE_TOPIC"`
}

type InngestConfig struct {
	AppID      string `env:"INNGEST_APP_ID" envDefault:"ripple-snapshot"`
	SigningKey string `env:"INNGEST_SIGNING_KEY"`
	EventKey   string `env:"INNGEST_EVENT_KEY"`
	Dev        bool   `env:"INNGEST_DEV" envDefault:"false"`
	Cron       string `env:"RIPPLE_REFRESH_CRON" envDefault:"*/5 * * * *"`
}

// SlackConfig enables operator alerts when both values are set.
type SlackConfig struct {
	Token     string `env:"SLACK_TOKEN"`
	ChannelID string `env:"SLACK_CHANNEL_ID"`
}

// Enabled reports whether Slack alerts are configured.
func (s SlackConfig) Enabled() bool {
	return s.Token != "" && s.ChannelID != ""
}

// LockTTL returns the mutex TTL as a duration.
func (r RippleConfig) LockTTL() time.Duration {
	return time.Duration(r.LockTTLSeconds) * time.Second
}

// Enabled reports whether the Inngest integration has credentials.
func (i InngestConfig) Enabled() bool {
	return i.SigningKey != "" || i.Dev
}
