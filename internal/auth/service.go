package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"laporfasilitas.org/internal/ids"
)

const defaultAccessTTL = 15 * time.Minute

// Service provides identity lookups, credential verification, and the
// privileged-action gate. It holds no session state: both VerifyCaller and
// RequireRole are pure guards evaluated per call.
type Service struct {
	store     Store
	accessTTL time.Duration
	now       func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithAccessTTL overrides the access token lifetime.
func WithAccessTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.accessTTL = ttl
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the auth service over the given store.
func NewService(store Store, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth store is required")
	}
	svc := &Service{
		store:     store,
		accessTTL: defaultAccessTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Token is an issued access token with its expiration.
type Token struct {
	AccessToken string    `json:"token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Login verifies email/password credentials and issues an access token.
// Any failure that is not an internal error collapses to ErrUnauthorized so
// the response does not reveal whether the email is registered.
func (s *Service) Login(ctx context.Context, email, password string) (Token, *User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return Token{}, nil, ErrUnauthorized
	}
	user, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Token{}, nil, ErrUnauthorized
		}
		return Token{}, nil, err
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return Token{}, nil, ErrUnauthorized
	}
	signed, err := GenerateToken(user.ID, s.accessTTL)
	if err != nil {
		return Token{}, nil, err
	}
	return Token{
		AccessToken: signed,
		ExpiresAt:   s.now().UTC().Add(s.accessTTL),
	}, user, nil
}

// VerifyCaller validates a bearer token and returns the subject account id.
func (s *Service) VerifyCaller(token string) (string, error) {
	claims, err := ParseAndValidate(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return claims.Subject, nil
}

// RequireRole confirms the account currently holds the role. The check runs
// against the role store on every call so revocations take effect
// immediately; stale token claims cannot satisfy it.
func (s *Service) RequireRole(ctx context.Context, userID, role string) error {
	userID = strings.TrimSpace(userID)
	role = strings.TrimSpace(role)
	if userID == "" || role == "" {
		return fmt.Errorf("%w: user and role are required", ErrForbidden)
	}
	ok, err := s.store.HasRole(ctx, userID, role)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: role %s required", ErrForbidden, role)
	}
	return nil
}

// Profile looks up the identity directory entry for an account.
func (s *Service) Profile(ctx context.Context, userID string) (*User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.store.FindUser(ctx, userID)
}

// CreateAdminAccount provisions a new account and grants it the admin role
// atomically. This is the privileged account-creation capability: it bypasses
// self-signup and must only be reached through an authorized handler.
func (s *Service) CreateAdminAccount(ctx context.Context, email, password, fullName string) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &User{
		ID:           ids.New(),
		Email:        email,
		FullName:     strings.TrimSpace(fullName),
		PasswordHash: hash,
	}
	if err := s.store.CreateUserWithRole(ctx, user, RoleAdmin); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdatePassword overwrites the target's credential synchronously. This is
// the privileged credential-update capability; authorization happens in the
// admin service before the call.
func (s *Service) UpdatePassword(ctx context.Context, userID, newPassword string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if newPassword == "" {
		return fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.store.UpdatePassword(ctx, userID, hash)
}

// HasRole reports role membership without failing the caller.
func (s *Service) HasRole(ctx context.Context, userID, role string) (bool, error) {
	return s.store.HasRole(ctx, userID, role)
}

// RevokeRole removes a role grant. Revoking an absent grant is a no-op.
func (s *Service) RevokeRole(ctx context.Context, userID, role string) error {
	return s.store.RevokeRole(ctx, userID, role)
}

// ListAdmins returns the accounts currently holding the admin role.
func (s *Service) ListAdmins(ctx context.Context) ([]*User, error) {
	return s.store.ListUsersWithRole(ctx, RoleAdmin)
}
