package notifier

import (
	"context"
	"sync"
)

// Mock is a mock implementation of the Notifier interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu sync.Mutex

	SendRefreshFailureFunc func(failure RefreshFailure) error
	SendRecoveredFunc      func(recovery Recovery) error

	// Call records
	SendRefreshFailureCalls []RefreshFailure
	SendRecoveredCalls      []Recovery
}

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) SendRefreshFailure(_ context.Context, failure RefreshFailure) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendRefreshFailureCalls = append(m.SendRefreshFailureCalls, failure)
	if m.SendRefreshFailureFunc != nil {
		return m.SendRefreshFailureFunc(failure)
	}
	return nil
}

func (m *Mock) SendRecovered(_ context.Context, recovery Recovery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendRecoveredCalls = append(m.SendRecoveredCalls, recovery)
	if m.SendRecoveredFunc != nil {
		return m.SendRecoveredFunc(recovery)
	}
	return nil
}

// Failures returns a copy of the recorded failure alerts.
func (m *Mock) Failures() []RefreshFailure {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RefreshFailure(nil), m.SendRefreshFailureCalls...)
}

// Recoveries returns a copy of the recorded recovery alerts.
func (m *Mock) Recoveries() []Recovery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Recovery(nil), m.SendRecoveredCalls...)
}
