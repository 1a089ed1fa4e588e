package pubsub

import "cloud.google.com/go/pubsub"

type client struct {
	client   *pubsub.Client
	teardown func()
}

// noop drops every message; it is used when no project is configured.
type noop struct{}

// EventType represents the type of event/message sent via pubsub.
type EventType string

const (
	EventGenerationPublished EventType = "ripple-generation-published"
)

// GenerationPublished announces a newly published snapshot generation.
type GenerationPublished struct {
	Event                EventType `msgpack:"event"`
	GeneratedAtMs        int64     `msgpack:"generated_at_ms"`
	StableCalculatedAtMs *int64    `msgpack:"stable_calculated_at_ms"`
	StableRecordCount    int       `msgpack:"stable_record_count"`
	DangerRecordCount    int       `msgpack:"danger_record_count"`
	BuildVersion         *string   `msgpack:"build_version"`
	BaselineSource       string    `msgpack:"baseline_source"`
}
