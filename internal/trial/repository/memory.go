package repository

import (
	"context"
	"sync"
)

type usageKey struct {
	userID  string
	service string
}

// MemoryStore is an in-process Store. Counts are lost on restart; use it for development and tests.
type MemoryStore struct {
	mu     sync.Mutex
	counts map[usageKey]int
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counts: make(map[usageKey]int)}
}

// Count returns the recorded uses for the pair.
func (s *MemoryStore) Count(ctx context.Context, userID, service string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[usageKey{userID, service}], nil
}

// IncrementWithCeiling adds one use unless the pair is already at limit.
func (s *MemoryStore) IncrementWithCeiling(ctx context.Context, userID, service string, limit int) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := usageKey{userID, service}
	n := s.counts[k]
	if n >= limit {
		return n, false, nil
	}
	n++
	s.counts[k] = n
	return n, true, nil
}

// Reset clears the record for the pair.
func (s *MemoryStore) Reset(ctx context.Context, userID, service string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.counts, usageKey{userID, service})
	return nil
}
