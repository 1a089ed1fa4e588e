package metrics

// Metrics defines the interface for collecting application metrics.
// This decouples the application from the specific metrics implementation (e.g., Prometheus).
type Metrics interface {
	IncRefreshRuns()
	IncRefreshSkipped()
	IncRefreshRetries()
	IncRefreshFailures()
	IncPoolDisposals()
	ObserveRefreshDuration(seconds float64)
	SetPublished(generatedAtMs int64, stableRows, dangerRows int)
	IncPublicReads(endpoint, outcome string)
	IncAlerts(outcome string)
	SetStartupTime(duration float64)
}
