package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ Metrics = (*Service)(nil)

// NewMetricsHandler returns an http.Handler for the given Gatherer.
// If no gatherer is provided, it uses the default one.
func NewMetricsHandler(gatherer ...prometheus.Gatherer) http.Handler {
	gath := prometheus.DefaultGatherer
	if len(gatherer) > 0 {
		gath = gatherer[0]
	}
	return promhttp.HandlerFor(gath, promhttp.HandlerOpts{})
}

// NewService creates and registers the Prometheus metrics.
// If no registerer is provided, it uses the default Prometheus registerer.
func NewService(registerer ...prometheus.Registerer) *Service {
	reg := prometheus.DefaultRegisterer
	if len(registerer) > 0 {
		reg = registerer[0]
	}

	s := &Service{
		RefreshRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ripple_refresh_runs_total",
			Help: "The total number of snapshot refreshes that published a generation.",
		}),
		RefreshSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ripple_refresh_skipped_total",
			Help: "The total number of refreshes skipped because another publisher held the lock.",
		}),
		RefreshRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ripple_refresh_retries_total",
			Help: "The total number of refresh attempts retried after a connection error.",
		}),
		RefreshFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ripple_refresh_failures_total",
			Help: "The total number of refreshes that failed without publishing.",
		}),
		PoolDisposals: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ripple_ranking_pool_disposals_total",
			Help: "The total number of times the ranking store connection pool was rebuilt.",
		}),
		RefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ripple_refresh_duration_seconds",
			Help:    "The duration of a full snapshot refresh.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		LastGeneration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ripple_last_generation_timestamp_ms",
			Help: "The generated_at_ms of the most recently published generation.",
		}),
		PublishedRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ripple_published_rows",
			Help: "The number of rows in the most recently published payloads.",
		}, []string{"payload"}),
		PublicReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ripple_public_reads_total",
			Help: "The total number of public leaderboard reads by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		Alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ripple_alerts_total",
			Help: "The total number of operator alerts by outcome.",
		}, []string{"outcome"}),
		StartupTimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ripple_startup_duration_seconds",
			Help: "The duration of the application startup in seconds.",
		}),
	}

	reg.MustRegister(
		s.RefreshRuns,
		s.RefreshSkipped,
		s.RefreshRetries,
		s.RefreshFailures,
		s.PoolDisposals,
		s.RefreshDuration,
		s.LastGeneration,
		s.PublishedRows,
		s.PublicReads,
		s.Alerts,
		s.StartupTimeSeconds,
	)

	return s
}

func (s *Service) IncRefreshRuns() {
	s.RefreshRuns.Inc()
}

func (s *Service) IncRefreshSkipped() {
	s.RefreshSkipped.Inc()
}

func (s *Service) IncRefreshRetries() {
	s.RefreshRetries.Inc()
}

func (s *Service) IncRefreshFailures() {
	s.RefreshFailures.Inc()
}

func (s *Service) IncPoolDisposals() {
	s.PoolDisposals.Inc()
}

func (s *Service) ObserveRefreshDuration(seconds float64) {
	s.RefreshDuration.Observe(seconds)
}

func (s *Service) SetPublished(generatedAtMs int64, stableRows, dangerRows int) {
	s.LastGeneration.Set(float64(generatedAtMs))
	s.PublishedRows.WithLabelValues("stable").Set(float64(stableRows))
	s.PublishedRows.WithLabelValues("danger").Set(float64(dangerRows))
}

func (s *Service) IncPublicReads(endpoint, outcome string) {
	s.PublicReads.WithLabelValues(endpoint, outcome).Inc()
}

func (s *Service) IncAlerts(outcome string) {
	s.Alerts.WithLabelValues(outcome).Inc()
}

func (s *Service) SetStartupTime(duration float64) {
	s.StartupTimeSeconds.Set(duration)
}
