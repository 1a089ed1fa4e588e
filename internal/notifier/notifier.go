package notifier

import "context"

// Notifier defines a high-level interface for alerting operators about the
// snapshot publisher. This decouples the processor from the specific
// notification provider (e.g., Slack).
type Notifier interface {
	// A refresh ended without publishing.
	SendRefreshFailure(ctx context.Context, failure RefreshFailure) error
	// The first successful publish after one or more failures.
	SendRecovered(ctx context.Context, recovery Recovery) error
}

// RefreshFailure describes a refresh that did not publish.
type RefreshFailure struct {
	Error string
	Token string
	AtMs  int64
}

// Recovery describes the publish that ended a run of failures.
type Recovery struct {
	GeneratedAtMs  int64
	StableRows     int
	DangerRows     int
	FailedAttempts int
}
