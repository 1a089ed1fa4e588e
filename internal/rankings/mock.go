package rankings

import (
	"context"
	"sync"
)

// MockStore is a mock implementation of the RankingStore interface for testing.
// It is safe for concurrent use.
type MockStore struct {
	mu sync.Mutex

	FetchPageFunc              func(ctx context.Context, params QueryParams, atMs *int64) (Page, error)
	FetchDangerFunc            func(ctx context.Context, params QueryParams, atMs *int64) (DangerPage, error)
	FetchPlayerEventsFunc      func(ctx context.Context, ids []string) (map[string]PlayerEvent, error)
	FirstScoresAfterEventsFunc func(ctx context.Context, events map[string]int64, cutoffMs *int64) (map[string]float64, error)
	PreviousCalcTsBeforeFunc   func(ctx context.Context, currentTs *int64) (*int64, error)
	LatestCalcTsAtOrBeforeFunc func(ctx context.Context, cutoffMs int64) (*int64, error)
	DisposeFunc                func(ctx context.Context) error

	// Call records
	FetchPageCalls []struct {
		Params QueryParams
		AtMs   *int64
	}
	FetchDangerCalls []struct {
		Params QueryParams
		AtMs   *int64
	}
	FetchPlayerEventsCalls      [][]string
	FirstScoresAfterEventsCalls []struct {
		Events   map[string]int64
		CutoffMs *int64
	}
	PreviousCalcTsBeforeCalls   []*int64
	LatestCalcTsAtOrBeforeCalls []int64
	DisposeCalls                int
	CloseCalls                  int
}

// NewMock creates a new mock instance that returns empty results.
func NewMock() *MockStore {
	return &MockStore{}
}

// Reads reports how many read calls have been recorded.
func (m *MockStore) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.FetchPageCalls) + len(m.FetchDangerCalls) + len(m.FetchPlayerEventsCalls) +
		len(m.FirstScoresAfterEventsCalls) + len(m.PreviousCalcTsBeforeCalls) + len(m.LatestCalcTsAtOrBeforeCalls)
}

func (m *MockStore) FetchPage(ctx context.Context, params QueryParams, atMs *int64) (Page, error) {
	m.mu.Lock()
	m.FetchPageCalls = append(m.FetchPageCalls, struct {
		Params QueryParams
		AtMs   *int64
	}{params, atMs})
	fn := m.FetchPageFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, params, atMs)
	}
	return Page{Rows: []Row{}}, nil
}

func (m *MockStore) FetchDanger(ctx context.Context, params QueryParams, atMs *int64) (DangerPage, error) {
	m.mu.Lock()
	m.FetchDangerCalls = append(m.FetchDangerCalls, struct {
		Params QueryParams
		AtMs   *int64
	}{params, atMs})
	fn := m.FetchDangerFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, params, atMs)
	}
	return DangerPage{Rows: []DangerRow{}}, nil
}

func (m *MockStore) FetchPlayerEvents(ctx context.Context, ids []string) (map[string]PlayerEvent, error) {
	m.mu.Lock()
	m.FetchPlayerEventsCalls = append(m.FetchPlayerEventsCalls, ids)
	fn := m.FetchPlayerEventsFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, ids)
	}
	return map[string]PlayerEvent{}, nil
}

func (m *MockStore) FirstScoresAfterEvents(ctx context.Context, events map[string]int64, cutoffMs *int64) (map[string]float64, error) {
	m.mu.Lock()
	m.FirstScoresAfterEventsCalls = append(m.FirstScoresAfterEventsCalls, struct {
		Events   map[string]int64
		CutoffMs *int64
	}{events, cutoffMs})
	fn := m.FirstScoresAfterEventsFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, events, cutoffMs)
	}
	return map[string]float64{}, nil
}

func (m *MockStore) PreviousCalcTsBefore(ctx context.Context, currentTs *int64) (*int64, error) {
	m.mu.Lock()
	m.PreviousCalcTsBeforeCalls = append(m.PreviousCalcTsBeforeCalls, currentTs)
	fn := m.PreviousCalcTsBeforeFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, currentTs)
	}
	return nil, nil
}

func (m *MockStore) LatestCalcTsAtOrBefore(ctx context.Context, cutoffMs int64) (*int64, error) {
	m.mu.Lock()
	m.LatestCalcTsAtOrBeforeCalls = append(m.LatestCalcTsAtOrBeforeCalls, cutoffMs)
	fn := m.LatestCalcTsAtOrBeforeFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, cutoffMs)
	}
	return nil, nil
}

func (m *MockStore) Dispose(ctx context.Context) error {
	m.mu.Lock()
	m.DisposeCalls++
	fn := m.DisposeFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}
	return nil
}

func (m *MockStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CloseCalls++
	return nil
}
