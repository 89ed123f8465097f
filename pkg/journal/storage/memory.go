package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"mercator-hq/aegis/pkg/journal"
)

// MemoryStorage implements journal.Storage in memory. Used for tests and
// deployments that do not need the journal to survive a restart.
type MemoryStorage struct {
	mu      sync.RWMutex
	entries []*journal.Entry
	closed  bool
}

// NewMemoryStorage creates an empty in-memory backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Store appends a copy of e.
func (m *MemoryStorage) Store(_ context.Context, e *journal.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return journal.NewStorageError("memory", "store", journal.ErrRecorderClosed)
	}

	// Store a copy so callers can reuse the entry
	cp := *e
	m.entries = append(m.entries, &cp)
	return nil
}

// Query returns entries matching q, newest first.
func (m *MemoryStorage) Query(_ context.Context, q *journal.Query) ([]*journal.Entry, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	// Filter, then sort newest first
	matched := m.match(q)
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Time.After(matched[j].Time)
	})

	// Apply pagination
	if q.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[q.Offset:]
	if limit := q.EffectiveLimit(); len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// Count returns the number of entries matching q.
func (m *MemoryStorage) Count(_ context.Context, q *journal.Query) (int64, error) {
	if err := q.Validate(); err != nil {
		return 0, err
	}
	return int64(len(m.match(q))), nil
}

// DeleteBefore removes entries recorded before cutoff.
func (m *MemoryStorage) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Filter in place
	kept := m.entries[:0]
	var deleted int64
	for _, e := range m.entries {
		if e.Time.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	m.entries = kept
	return deleted, nil
}

// Ping always succeeds until Close.
func (m *MemoryStorage) Ping(context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return journal.NewStorageError("memory", "ping", journal.ErrRecorderClosed)
	}
	return nil
}

// Close marks the storage closed.
func (m *MemoryStorage) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// match returns copies of the entries satisfying q's filters.
func (m *MemoryStorage) match(q *journal.Query) []*journal.Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*journal.Entry
	for _, e := range m.entries {
		if q.Matches(e) {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out
}
