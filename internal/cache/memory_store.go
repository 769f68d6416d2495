package cache

import (
	"context"
	"sync"
)

// MemoryStore is a map-backed Store used in tests and for ephemeral runs.
type MemoryStore struct {
	mu      sync.RWMutex
	data    map[string][]byte
	failure error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// FailWith makes every subsequent Put and Get return err; pass nil to heal.
func (s *MemoryStore) FailWith(err error) *MemoryStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failure = err
	return s
}

func (s *MemoryStore) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failure != nil {
		return s.failure
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	s.data[key] = cp
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failure != nil {
		return nil, false, s.failure
	}
	value, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	return cp, true, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// Len reports the number of stored keys.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
