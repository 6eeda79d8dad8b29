package tracker

// SeenStore is the bounded deduplication ledger keyed by event
// identity. Purely in-memory; its only hazard is unbounded growth,
// mitigated by time-based eviction on a slow background cadence.

import (
	"sync"
	"time"
)

type SeenStore struct {
	mu    sync.Mutex
	seen  map[string]time.Time
	clock func() time.Time
}

func NewSeenStore() *SeenStore {
	return &SeenStore{
		seen:  make(map[string]time.Time),
		clock: time.Now,
	}
}

// MarkAndCheck atomically inserts eventID if absent and reports
// whether it was new. This is the single synchronization point that
// prevents duplicate alerts when two ticks or two workers examine the
// same event concurrently.
func (s *SeenStore) MarkAndCheck(eventID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[eventID]; ok {
		return false
	}
	s.seen[eventID] = s.clock()
	return true
}

// Evict removes entries first seen before olderThan. Invoked from the
// scheduler's eviction ticker, never inline with the hot path.
func (s *SeenStore) Evict(olderThan time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, firstSeen := range s.seen {
		if firstSeen.Before(olderThan) {
			delete(s.seen, id)
			removed++
		}
	}
	return removed
}

// Len reports the current ledger size.
func (s *SeenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
