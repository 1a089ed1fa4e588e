package metrics

import "github.com/prometheus/client_golang/prometheus"

// Service holds all the Prometheus metrics for the application.
// By defining them all in one place, we ensure consistency in naming and labeling.
type Service struct {
	RefreshRuns        prometheus.Counter
	RefreshSkipped     prometheus.Counter
	RefreshRetries     prometheus.Counter
	RefreshFailures    prometheus.Counter
	PoolDisposals      prometheus.Counter
	RefreshDuration    prometheus.Histogram
	LastGeneration     prometheus.Gauge
	PublishedRows      *prometheus.GaugeVec
	PublicReads        *prometheus.CounterVec
	Alerts             *prometheus.CounterVec
	StartupTimeSeconds prometheus.Gauge
}
