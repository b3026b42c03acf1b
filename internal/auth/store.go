package auth

import "context"

// Store describes persistence operations required by the auth subsystem.
// Every privileged check re-reads current state through this interface; role
// grants are never cached across calls.
type Store interface {
	// CreateUserWithRole inserts the account and its role grant in one
	// transaction, closing the window where an account could exist without
	// the role it was created for. Returns ErrEmailExists when the email is
	// already registered.
	CreateUserWithRole(ctx context.Context, u *User, role string) error

	FindUser(ctx context.Context, id string) (*User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error

	// GrantRole is idempotent: granting an existing (user, role) pair is a
	// no-op. RevokeRole likewise treats an absent grant as a no-op.
	GrantRole(ctx context.Context, userID, role string) error
	RevokeRole(ctx context.Context, userID, role string) error
	HasRole(ctx context.Context, userID, role string) (bool, error)
	ListUsersWithRole(ctx context.Context, role string) ([]*User, error)
}
