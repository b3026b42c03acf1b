package auth

import "time"

// RoleAdmin is the only built-in role. The role store is an open (user, role)
// relation so further roles can be added without schema changes.
const RoleAdmin = "admin"

// User is an account with its directory profile. Email and FullName are the
// identity-directory fields the audit log snapshots actor names from.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// RoleGrant links an account to a role. At most one grant per (user, role)
// pair is meaningful; duplicates are a no-op.
type RoleGrant struct {
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
