package routing

import (
	"sync"
	"sync/atomic"
	"time"
)

// AtomicStats implements thread-safe lookup statistics using atomic operations.
type AtomicStats struct {
	totalLookups atomic.Int64

	// matchesPerService maps service name to *atomic.Int64.
	matchesPerService sync.Map

	notFound atomic.Int64

	// mu protects lastResetTime
	mu            sync.RWMutex
	lastResetTime time.Time
}

// NewAtomicStats creates an empty statistics tracker.
func NewAtomicStats() *AtomicStats {
	return &AtomicStats{
		lastResetTime: time.Now(),
	}
}

// IncrementLookup increments the total lookup counter.
func (s *AtomicStats) IncrementLookup() {
	s.totalLookups.Add(1)
}

// IncrementService increments the match counter for a service.
func (s *AtomicStats) IncrementService(service string) {
	val, _ := s.matchesPerService.LoadOrStore(service, &atomic.Int64{})
	val.(*atomic.Int64).Add(1)
}

// IncrementNotFound increments the unmatched lookup counter.
func (s *AtomicStats) IncrementNotFound() {
	s.notFound.Add(1)
}

// Snapshot returns a point-in-time copy of the statistics.
func (s *AtomicStats) Snapshot() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	perService := make(map[string]int64)
	s.matchesPerService.Range(func(key, value any) bool {
		perService[key.(string)] = value.(*atomic.Int64).Load()
		return true
	})

	return Stats{
		TotalLookups:      s.totalLookups.Load(),
		MatchesPerService: perService,
		NotFound:          s.notFound.Load(),
		LastResetTime:     s.lastResetTime,
	}
}

// Reset sets all counters to zero.
func (s *AtomicStats) Reset() {
	s.totalLookups.Store(0)
	s.notFound.Store(0)
	s.matchesPerService.Range(func(key, _ any) bool {
		s.matchesPerService.Delete(key)
		return true
	})

	s.mu.Lock()
	s.lastResetTime = time.Now()
	s.mu.Unlock()
}
