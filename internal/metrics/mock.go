package metrics

import "sync"

// Mock is a mock implementation of the Metrics interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu               sync.Mutex
	refreshRuns      int
	refreshSkipped   int
	refreshRetries   int
	refreshFailures  int
	poolDisposals    int
	refreshDurations []float64
	lastGeneration   int64
	publicReads      map[string]int
	alerts           map[string]int
	startupTime      float64
}

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{
		refreshDurations: make([]float64, 0),
		publicReads:      make(map[string]int),
		alerts:           make(map[string]int),
	}
}

func (m *Mock) IncRefreshRuns() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshRuns++
}

func (m *Mock) IncRefreshSkipped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshSkipped++
}

func (m *Mock) IncRefreshRetries() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshRetries++
}

func (m *Mock) IncRefreshFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshFailures++
}

func (m *Mock) IncPoolDisposals() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.poolDisposals++
}

func (m *Mock) ObserveRefreshDuration(seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshDurations = append(m.refreshDurations, seconds)
}

func (m *Mock) SetPublished(generatedAtMs int64, _, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastGeneration = generatedAtMs
}

func (m *Mock) IncPublicReads(endpoint, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publicReads[endpoint+":"+outcome]++
}

func (m *Mock) IncAlerts(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts[outcome]++
}

func (m *Mock) SetStartupTime(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startupTime = duration
}

// RefreshRuns returns the number of times IncRefreshRuns was called.
func (m *Mock) RefreshRuns() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshRuns
}

// RefreshSkipped returns the number of times IncRefreshSkipped was called.
func (m *Mock) RefreshSkipped() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshSkipped
}

// RefreshRetries returns the number of times IncRefreshRetries was called.
func (m *Mock) RefreshRetries() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshRetries
}

// RefreshFailures returns the number of times IncRefreshFailures was called.
func (m *Mock) RefreshFailures() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshFailures
}

// PoolDisposals returns the number of times IncPoolDisposals was called.
func (m *Mock) PoolDisposals() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.poolDisposals
}

// LastGeneration returns the generation recorded by SetPublished.
func (m *Mock) LastGeneration() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastGeneration
}

// PublicReads returns how often endpoint was read with outcome.
func (m *Mock) PublicReads(endpoint, outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.publicReads[endpoint+":"+outcome]
}

// Alerts returns how often an alert ended with outcome.
func (m *Mock) Alerts(outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.alerts[outcome]
}
