package idempotency

import (
	"context"
	"sync"
)

// MemoryStore is the single-process stand-in for RedisStore used in development mode.
type MemoryStore struct {
	mu     sync.Mutex
	events map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{events: make(map[string]struct{})}
}

func (m *MemoryStore) Claim(ctx context.Context, eventID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.events[eventID]; ok {
		return false, nil
	}

	m.events[eventID] = struct{}{}

	return true, nil
}

func (m *MemoryStore) Release(ctx context.Context, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.events, eventID)

	return nil
}
