// Package admin implements the privileged administrative workflows. Every
// operation follows the same sequence: authorize the caller against the role
// store, perform the mutation, then append an audit entry. Authorization
// failures stop before the mutation, mutation failures stop before the log,
// and log failures never propagate back to the caller.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"laporfasilitas.org/internal/audit"
	"laporfasilitas.org/internal/auth"
)

var (
	// ErrSelfDeletion: an admin may never revoke their own admin role.
	ErrSelfDeletion = errors.New("admin: cannot delete own admin role")
	// ErrTargetNotAdmin: password resets are restricted to admin accounts.
	ErrTargetNotAdmin = errors.New("admin: target is not an admin")
)

const (
	minNameLen     = 2
	maxNameLen     = 100
	maxEmailLen    = 255
	minPasswordLen = 6
	maxPasswordLen = 100
)

// Service wires the authorizer, the account capabilities, and the audit log.
type Service struct {
	auth *auth.Service
	log  *audit.Log
}

// NewService constructs the admin service.
func NewService(authSvc *auth.Service, log *audit.Log) (*Service, error) {
	if authSvc == nil {
		return nil, errors.New("auth service is required")
	}
	if log == nil {
		return nil, errors.New("audit log is required")
	}
	return &Service{auth: authSvc, log: log}, nil
}

// CreateAdminInput is the validated input for CreateAdmin.
type CreateAdminInput struct {
	FullName        string `json:"full_name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// CreateAdmin provisions a new admin account. The account insert and the
// role grant run in one storage transaction, so a duplicate email leaves no
// partial state behind. Audited as add_admin.
func (s *Service) CreateAdmin(ctx context.Context, actorID string, in CreateAdminInput) (*auth.User, error) {
	if err := validateCreateAdmin(&in); err != nil {
		return nil, err
	}
	if err := s.auth.RequireRole(ctx, actorID, auth.RoleAdmin); err != nil {
		return nil, err
	}

	user, err := s.auth.CreateAdminAccount(ctx, in.Email, in.Password, in.FullName)
	if err != nil {
		return nil, err
	}

	s.log.BestEffort(ctx, audit.Draft{
		ActorID:    actorID,
		Action:     audit.ActionAddAdmin,
		TargetType: audit.TargetAdmin,
		TargetID:   user.ID,
		Details:    audit.AdminDetails{Email: user.Email, Name: user.FullName},
	})
	return user, nil
}

// DeleteAdmin revokes the target's admin role. The underlying account is
// kept. Audited as delete_admin with the profile captured before revocation.
func (s *Service) DeleteAdmin(ctx context.Context, actorID, targetID string) error {
	targetID = strings.TrimSpace(targetID)
	if targetID == "" {
		return fmt.Errorf("%w: target id is required", auth.ErrInvalidInput)
	}
	if err := s.auth.RequireRole(ctx, actorID, auth.RoleAdmin); err != nil {
		return err
	}
	if targetID == actorID {
		return ErrSelfDeletion
	}

	// Snapshot the profile before the grant disappears so the log keeps the
	// identity even if the account is later renamed.
	details := audit.AdminDetails{}
	if target, err := s.auth.Profile(ctx, targetID); err == nil {
		details.Email = target.Email
		details.Name = target.FullName
	}

	if err := s.auth.RevokeRole(ctx, targetID, auth.RoleAdmin); err != nil {
		return err
	}

	s.log.BestEffort(ctx, audit.Draft{
		ActorID:    actorID,
		Action:     audit.ActionDeleteAdmin,
		TargetType: audit.TargetAdmin,
		TargetID:   targetID,
		Details:    details,
	})
	return nil
}

// ResetPasswordInput is the validated input for ResetPassword.
type ResetPasswordInput struct {
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// ResetPassword overwrites the target admin's credential synchronously. The
// target must itself hold the admin role: this path is admin-on-admin only,
// distinct from a self-service reset-link flow. Audited as reset_password
// with the email captured before the reset.
func (s *Service) ResetPassword(ctx context.Context, actorID, targetID string, in ResetPasswordInput) error {
	targetID = strings.TrimSpace(targetID)
	if targetID == "" {
		return fmt.Errorf("%w: target id is required", auth.ErrInvalidInput)
	}
	if err := validatePassword(in.NewPassword, in.ConfirmPassword); err != nil {
		return err
	}
	if err := s.auth.RequireRole(ctx, actorID, auth.RoleAdmin); err != nil {
		return err
	}

	isAdmin, err := s.auth.HasRole(ctx, targetID, auth.RoleAdmin)
	if err != nil {
		return err
	}
	if !isAdmin {
		return ErrTargetNotAdmin
	}

	target, err := s.auth.Profile(ctx, targetID)
	if err != nil {
		return err
	}

	if err := s.auth.UpdatePassword(ctx, targetID, in.NewPassword); err != nil {
		return err
	}

	s.log.BestEffort(ctx, audit.Draft{
		ActorID:    actorID,
		Action:     audit.ActionResetPassword,
		TargetType: audit.TargetAdmin,
		TargetID:   targetID,
		Details:    audit.AdminDetails{Email: target.Email, Name: target.FullName},
	})
	return nil
}

// ListAdmins returns all accounts holding the admin role.
func (s *Service) ListAdmins(ctx context.Context, actorID string) ([]*auth.User, error) {
	if err := s.auth.RequireRole(ctx, actorID, auth.RoleAdmin); err != nil {
		return nil, err
	}
	return s.auth.ListAdmins(ctx)
}

func validateCreateAdmin(in *CreateAdminInput) error {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))

	if n := utf8.RuneCountInString(in.FullName); n < minNameLen || n > maxNameLen {
		return fmt.Errorf("%w: full name must be %d-%d characters", auth.ErrInvalidInput, minNameLen, maxNameLen)
	}
	if in.Email == "" || len(in.Email) > maxEmailLen {
		return fmt.Errorf("%w: email must be at most %d characters", auth.ErrInvalidInput, maxEmailLen)
	}
	at := strings.Index(in.Email, "@")
	if at <= 0 || at == len(in.Email)-1 {
		return fmt.Errorf("%w: valid email is required", auth.ErrInvalidInput)
	}
	return validatePassword(in.Password, in.ConfirmPassword)
}

func validatePassword(password, confirm string) error {
	if n := len(password); n < minPasswordLen || n > maxPasswordLen {
		return fmt.Errorf("%w: password must be %d-%d characters", auth.ErrInvalidInput, minPasswordLen, maxPasswordLen)
	}
	if password != confirm {
		return fmt.Errorf("%w: password confirmation does not match", auth.ErrInvalidInput)
	}
	return nil
}
