package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func setTestSecret(t *testing.T) {
	t.Helper()
	t.Setenv(secretEnvVariable, "test-secret")
	ResetSecretForTests()
	t.Cleanup(ResetSecretForTests)
}

func TestGenerateAndParseToken(t *testing.T) {
	setTestSecret(t)

	token, err := GenerateToken("user-42", 30*time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := ParseAndValidate(token)
	if err != nil {
		t.Fatalf("ParseAndValidate: %v", err)
	}
	if claims.Subject != "user-42" {
		t.Fatalf("unexpected subject: %s", claims.Subject)
	}
	if claims.Issuer != issuer {
		t.Fatalf("unexpected issuer: %s", claims.Issuer)
	}
}

func TestParseRejectsTamperedToken(t *testing.T) {
	setTestSecret(t)

	token, err := GenerateToken("user-42", 30*time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape")
	}
	tampered := parts[0] + "." + parts[1] + ".AAAA" + parts[2][4:]
	if _, err := ParseAndValidate(tampered); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	setTestSecret(t)

	token, err := GenerateToken("user-42", 1*time.Millisecond)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, err := ParseAndValidate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestGenerateTokenWithoutSecret(t *testing.T) {
	t.Setenv(secretEnvVariable, "")
	ResetSecretForTests()
	t.Cleanup(ResetSecretForTests)

	if _, err := GenerateToken("user-42", time.Minute); err == nil {
		t.Fatalf("expected error when secret is missing")
	}
}

func TestLoginAndVerifyCaller(t *testing.T) {
	setTestSecret(t)
	ctx := context.Background()

	store := NewInMemoryStore()
	svc, err := NewService(store)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	user, err := svc.CreateAdminAccount(ctx, "Admin@Kampus.ac.id", "rahasia123", "Admin Satu")
	if err != nil {
		t.Fatalf("CreateAdminAccount: %v", err)
	}
	if user.Email != "admin@kampus.ac.id" {
		t.Fatalf("email was not normalized: %s", user.Email)
	}

	token, logged, err := svc.Login(ctx, "admin@kampus.ac.id", "rahasia123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if logged.ID != user.ID {
		t.Fatalf("unexpected user: %s", logged.ID)
	}

	subject, err := svc.VerifyCaller(token.AccessToken)
	if err != nil {
		t.Fatalf("VerifyCaller: %v", err)
	}
	if subject != user.ID {
		t.Fatalf("unexpected subject: %s", subject)
	}

	if _, _, err := svc.Login(ctx, "admin@kampus.ac.id", "salah"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for wrong password, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "tidak-ada@kampus.ac.id", "rahasia123"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for unknown email, got %v", err)
	}
}

func TestRequireRoleReadsStoreNotToken(t *testing.T) {
	setTestSecret(t)
	ctx := context.Background()

	store := NewInMemoryStore()
	svc, err := NewService(store)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	user, err := svc.CreateAdminAccount(ctx, "admin@kampus.ac.id", "rahasia123", "Admin Satu")
	if err != nil {
		t.Fatalf("CreateAdminAccount: %v", err)
	}

	token, _, err := svc.Login(ctx, user.Email, "rahasia123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := svc.RequireRole(ctx, user.ID, RoleAdmin); err != nil {
		t.Fatalf("RequireRole while granted: %v", err)
	}

	// Revoking the role must invalidate the caller immediately, even though
	// the token issued earlier is still cryptographically valid.
	if err := svc.RevokeRole(ctx, user.ID, RoleAdmin); err != nil {
		t.Fatalf("RevokeRole: %v", err)
	}
	subject, err := svc.VerifyCaller(token.AccessToken)
	if err != nil {
		t.Fatalf("VerifyCaller after revocation: %v", err)
	}
	if err := svc.RequireRole(ctx, subject, RoleAdmin); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden after revocation, got %v", err)
	}
}

func TestCreateAdminAccountDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	svc, err := NewService(store)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	if _, err := svc.CreateAdminAccount(ctx, "admin@kampus.ac.id", "rahasia123", "Admin Satu"); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err = svc.CreateAdminAccount(ctx, "ADMIN@kampus.ac.id", "rahasia456", "Admin Dua")
	if !errors.Is(err, ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("rahasia123")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "rahasia123" {
		t.Fatalf("password stored in clear")
	}
	if err := VerifyPassword(hash, "rahasia123"); err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if err := VerifyPassword(hash, "salah"); err == nil {
		t.Fatalf("expected mismatch error")
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	if _, ok := UserIDFromContext(ctx); ok {
		t.Fatalf("unexpected user in empty context")
	}
	ctx = ContextWithUser(ctx, "user-7")
	id, ok := UserIDFromContext(ctx)
	if !ok || id != "user-7" {
		t.Fatalf("unexpected user id: %s, ok=%v", id, ok)
	}
}
