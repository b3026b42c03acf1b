package pg

import (
	"context"
	"database/sql"
	"errors"

	"laporfasilitas.org/internal/auth"
)

var _ auth.Store = (*Store)(nil)

func (s *Store) CreateUserWithRole(ctx context.Context, u *auth.User, role string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowContext(ctx, `
		insert into users (id, email, full_name, password_hash)
		values ($1, $2, $3, $4)
		returning created_at
	`, u.ID, u.Email, u.FullName, u.PasswordHash).Scan(&u.CreatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return auth.ErrEmailExists
		}
		return err
	}

	if role != "" {
		if _, err := tx.ExecContext(ctx, `
			insert into user_roles (user_id, role)
			values ($1, $2)
			on conflict (user_id, role) do nothing
		`, u.ID, role); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) FindUser(ctx context.Context, id string) (*auth.User, error) {
	var u auth.User
	err := s.db.QueryRowContext(ctx, `
		select id, email, full_name, password_hash, created_at
		from users
		where id = $1
	`, id).Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	var u auth.User
	err := s.db.QueryRowContext(ctx, `
		select id, email, full_name, password_hash, created_at
		from users
		where lower(email) = lower($1)
	`, email).Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	res, err := s.db.ExecContext(ctx, `
		update users set password_hash = $2 where id = $1
	`, userID, passwordHash)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func (s *Store) GrantRole(ctx context.Context, userID, role string) error {
	_, err := s.db.ExecContext(ctx, `
		insert into user_roles (user_id, role)
		values ($1, $2)
		on conflict (user_id, role) do nothing
	`, userID, role)
	return err
}

func (s *Store) RevokeRole(ctx context.Context, userID, role string) error {
	// Deleting an absent grant is a no-op, which also makes concurrent
	// revocations of the same target idempotent.
	_, err := s.db.ExecContext(ctx, `
		delete from user_roles where user_id = $1 and role = $2
	`, userID, role)
	return err
}

func (s *Store) HasRole(ctx context.Context, userID, role string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		select exists(select 1 from user_roles where user_id = $1 and role = $2)
	`, userID, role).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (s *Store) ListUsersWithRole(ctx context.Context, role string) ([]*auth.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		select u.id, u.email, u.full_name, u.password_hash, u.created_at
		from users u
		join user_roles r on r.user_id = u.id
		where r.role = $1
		order by u.created_at asc
	`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*auth.User
	for rows.Next() {
		var u auth.User
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &u)
	}
	return out, rows.Err()
}
