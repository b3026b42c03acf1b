package auth

import (
	"context"
	"strings"
	"sync"
	"time"
)

// InMemoryStore implements Store with in-process concurrency safety. Used by
// tests and local development; production wiring uses the Postgres store.
type InMemoryStore struct {
	mu     sync.RWMutex
	users  map[string]*User
	emails map[string]string              // email -> user id
	grants map[string]map[string]struct{} // user id -> roles
}

var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		users:  make(map[string]*User),
		emails: make(map[string]string),
		grants: make(map[string]map[string]struct{}),
	}
}

func (s *InMemoryStore) CreateUserWithRole(ctx context.Context, u *User, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(u.Email)
	if _, ok := s.emails[email]; ok {
		return ErrEmailExists
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	cp := *u
	s.users[u.ID] = &cp
	s.emails[email] = u.ID
	if role != "" {
		s.grantLocked(u.ID, role)
	}
	return nil
}

func (s *InMemoryStore) FindUser(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *InMemoryStore) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s.users[id]
	return &cp, nil
}

func (s *InMemoryStore) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (s *InMemoryStore) GrantRole(ctx context.Context, userID, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return ErrNotFound
	}
	s.grantLocked(userID, role)
	return nil
}

func (s *InMemoryStore) RevokeRole(ctx context.Context, userID, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if roles, ok := s.grants[userID]; ok {
		delete(roles, role)
	}
	return nil
}

func (s *InMemoryStore) HasRole(ctx context.Context, userID, role string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	roles, ok := s.grants[userID]
	if !ok {
		return false, nil
	}
	_, ok = roles[role]
	return ok, nil
}

func (s *InMemoryStore) ListUsersWithRole(ctx context.Context, role string) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*User
	for id, roles := range s.grants {
		if _, ok := roles[role]; !ok {
			continue
		}
		if u, exists := s.users[id]; exists {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

// GrantCount reports the number of grants an account holds. Test helper.
func (s *InMemoryStore) GrantCount(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.grants[userID])
}

func (s *InMemoryStore) grantLocked(userID, role string) {
	roles, ok := s.grants[userID]
	if !ok {
		roles = make(map[string]struct{})
		s.grants[userID] = roles
	}
	roles[role] = struct{}{}
}
