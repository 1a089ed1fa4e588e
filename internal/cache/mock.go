package cache

import (
	"context"
	"sync"
	"time"
)

type lockEntry struct {
	token     string
	expiresAt time.Time
}

// Mock is an in-memory Cache for tests. Locks honour their TTL against Now.
// It is safe for concurrent use.
type Mock struct {
	mu    sync.Mutex
	data  map[string][]byte
	locks map[string]lockEntry

	Now func() time.Time

	GetFunc func(ctx context.Context, key string) ([]byte, error)
	SetFunc func(ctx context.Context, key string, value []byte) error

	// Call records
	GetCalls         []string
	SetCalls         []string
	AcquireLockCalls []string
	ReleaseLockCalls []string
}

// NewMock creates an empty mock cache.
func NewMock() *Mock {
	return &Mock{
		data:  make(map[string][]byte),
		locks: make(map[string]lockEntry),
		Now:   time.Now,
	}
}

// Put stores a value without recording a call.
func (m *Mock) Put(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

// Value returns the stored value without recording a call.
func (m *Mock) Value(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

// LockHolder returns the token holding key, if the lock is live.
func (m *Mock) LockHolder(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[key]
	if !ok || !m.Now().Before(l.expiresAt) {
		return "", false
	}
	return l.token, true
}

// Writes returns the keys written so far, in order.
func (m *Mock) Writes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.SetCalls...)
}

func (m *Mock) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	m.GetCalls = append(m.GetCalls, key)
	fn := m.GetFunc
	v, ok := m.data[key]
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, key)
	}
	if !ok {
		return nil, ErrMiss
	}
	return v, nil
}

func (m *Mock) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	m.SetCalls = append(m.SetCalls, key)
	fn := m.SetFunc
	m.mu.Unlock()
	if fn != nil {
		if err := fn(ctx, key, value); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.data[key] = value
	m.mu.Unlock()
	return nil
}

func (m *Mock) AcquireLock(_ context.Context, key, token string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AcquireLockCalls = append(m.AcquireLockCalls, key)
	now := m.Now()
	if l, ok := m.locks[key]; ok && now.Before(l.expiresAt) {
		return false, nil
	}
	m.locks[key] = lockEntry{token: token, expiresAt: now.Add(ttl)}
	return true, nil
}

func (m *Mock) ReleaseLock(_ context.Context, key, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReleaseLockCalls = append(m.ReleaseLockCalls, key)
	l, ok := m.locks[key]
	if !ok || l.token != token || !m.Now().Before(l.expiresAt) {
		return false, nil
	}
	delete(m.locks, key)
	return true, nil
}

func (m *Mock) Close() error {
	return nil
}
