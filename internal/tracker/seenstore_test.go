package tracker

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestSeenStoreMarkAndCheck(t *testing.T) {
	s := NewSeenStore()

	if !s.MarkAndCheck("sig1:in") {
		t.Fatal("first MarkAndCheck should report new")
	}
	if s.MarkAndCheck("sig1:in") {
		t.Fatal("second MarkAndCheck of same id should report seen")
	}
	// Same signature, different direction is a distinct event.
	if !s.MarkAndCheck("sig1:out") {
		t.Fatal("different direction suffix should be a new id")
	}
	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}
}

func TestSeenStoreConcurrentMarkAndCheck(t *testing.T) {
	s := NewSeenStore()

	const goroutines = 16
	var wg sync.WaitGroup
	newCount := make([]int, goroutines)
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				if s.MarkAndCheck(fmt.Sprintf("event-%d", i)) {
					newCount[g]++
				}
			}
		}(g)
	}
	wg.Wait()

	total := 0
	for _, n := range newCount {
		total += n
	}
	if total != 100 {
		t.Fatalf("exactly one goroutine should win each id: got %d wins, want 100", total)
	}
}

func TestSeenStoreEvict(t *testing.T) {
	s := NewSeenStore()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.clock = func() time.Time { return now }

	s.MarkAndCheck("old1")
	s.MarkAndCheck("old2")
	now = now.Add(48 * time.Hour)
	s.MarkAndCheck("fresh")

	removed := s.Evict(now.Add(-24 * time.Hour))
	if removed != 2 {
		t.Fatalf("Evict removed %d, want 2", removed)
	}
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}
	// Evicted ids become markable again.
	if !s.MarkAndCheck("old1") {
		t.Fatal("evicted id should be markable again")
	}
	if s.MarkAndCheck("fresh") {
		t.Fatal("retained id should still be deduplicated")
	}
}
