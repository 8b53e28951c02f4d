package store

import (
	"math"
	"sync"

	"github.com/efreitasn/knightsmarket/internal/domain"
)

// SequenceStore holds one counter per listing type. Each counter is the
// last id issued for that type; zero means none issued yet.
type SequenceStore struct {
	mu       sync.Mutex
	counters map[domain.ListingType]uint64
}

// NewSequenceStore creates a SequenceStore with every counter unset.
func NewSequenceStore() *SequenceStore {
	return &SequenceStore{
		counters: make(map[domain.ListingType]uint64),
	}
}

// Next issues the next id for t: 1 for the first call, then strictly
// increasing by one. It never wraps; once the counter reaches
// math.MaxUint64 it returns domain.ErrSequenceExhausted.
func (s *SequenceStore) Next(t domain.ListingType) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	last := s.counters[t]
	if last == math.MaxUint64 {
		return 0, domain.ErrSequenceExhausted
	}
	s.counters[t] = last + 1
	return last + 1, nil
}

// Last returns the last id issued for t.
func (s *SequenceStore) Last(t domain.ListingType) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[t]
}

// Restore sets the counter for t back to last. It exists for rolling back
// an allocation that was never committed.
func (s *SequenceStore) Restore(t domain.ListingType, last uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[t] = last
}

// Load seeds counters restored from durable storage.
func (s *SequenceStore) Load(counters map[domain.ListingType]uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for t, last := range counters {
		s.counters[t] = last
	}
}
