package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore counts requests in process memory. It is suitable for tests
// and single-instance deployments; counts are not shared between gateway
// instances and are lost on restart.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
}

type memoryEntry struct {
	index int64
	count int64
	reset time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
	}
}

// Increment implements Store.
func (s *MemoryStore) Increment(_ context.Context, key string, window time.Duration, now time.Time) (Window, error) {
	index, start, reset := windowBounds(now, window)

	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[key]
	if !ok || ent.index != index {
		ent = &memoryEntry{index: index, reset: reset}
		s.entries[key] = ent
	}
	ent.count++

	return Window{Count: ent.count, Start: start, Reset: reset}, nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

// Len returns the number of tracked keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Cleanup removes keys whose window ended before now.
func (s *MemoryStore) Cleanup(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, ent := range s.entries {
		if !ent.reset.After(now) {
			delete(s.entries, k)
		}
	}
}

// StartJanitor removes expired keys every interval until ctx is cancelled.
func (s *MemoryStore) StartJanitor(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}

	t := time.NewTicker(every)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				s.Cleanup(now)
			}
		}
	}()
}
