package audit

import (
	"context"
	"sync"
)

// InMemoryStore implements Store for tests and local development. Entries
// are kept in insertion order; List walks backwards, which matches the
// created_at DESC, id DESC contract because ids are monotonic.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []Entry

	// FailAppends makes Append return an error. Test hook for the
	// best-effort append policy.
	FailAppends error
}

var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(ctx context.Context, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAppends != nil {
		return s.FailAppends
	}
	s.entries = append(s.entries, *e)
	return nil
}

func (s *InMemoryStore) List(ctx context.Context, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.entries)
	if limit > n {
		limit = n
	}
	out := make([]Entry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.entries[i])
	}
	return out, nil
}

// Len reports the number of stored entries. Test helper.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
