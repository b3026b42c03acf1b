package report

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore implements Store with in-process concurrency safety. Used by
// tests and local development.
type InMemoryStore struct {
	mu      sync.RWMutex
	reports map[string]*Report
	order   []string // insertion order of ids, oldest first
}

var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{reports: make(map[string]*Report)}
}

func (s *InMemoryStore) Create(ctx context.Context, r *Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.reports[r.ID] = &cp
	s.order = append(s.order, r.ID)
	return nil
}

func (s *InMemoryStore) Find(ctx context.Context, id string) (*Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *InMemoryStore) List(ctx context.Context, f Filter) ([]Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Report
	for i := len(s.order) - 1; i >= 0; i-- {
		r, ok := s.reports[s.order[i]]
		if !ok {
			continue
		}
		if f.Location != "" && r.Location != f.Location {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

func (s *InMemoryStore) UpdateStatus(ctx context.Context, id string, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return ErrNotFound
	}
	r.Status = status
	r.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[id]; !ok {
		return ErrNotFound
	}
	delete(s.reports, id)
	return nil
}

func (s *InMemoryStore) Counts(ctx context.Context) (Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var c Counts
	for _, r := range s.reports {
		switch r.Status {
		case StatusPending:
			c.Pending++
		case StatusInProgress:
			c.InProgress++
		case StatusCompleted:
			c.Completed++
		}
	}
	return c, nil
}
