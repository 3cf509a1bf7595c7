package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/authcore/internal/common"
	"github.com/dmitrijs2005/authcore/internal/server/auth"
)

func newTestAuthService(t *testing.T) (*AuthService, *memoryRepoManager, sqlmock.Sqlmock) {
	t.Helper()

	db, mock := newMockDB(t)
	m := newMemoryRepoManager()
	tokens := NewTokenService(db, m, auth.NewDenylist(), testSigningKey,
		15*time.Minute, 24*time.Hour, nopLogger{})
	lockout := NewLockoutService(m.lockouts)
	svc := NewAuthService(db, m, testHasher(t), tokens, lockout, nopLogger{})

	return svc, m, mock
}

func TestRegisterAndLogin(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice", "correct horse battery staple")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if user.ID == "" {
		t.Fatalf("expected generated user ID")
	}
	if user.PasswordHash == "correct horse battery staple" {
		t.Fatalf("password must not be stored in the clear")
	}

	pair, err := svc.Login(ctx, "alice", "correct horse battery staple")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}

	claims, err := svc.tokens.VerifyAccess(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccess error: %v", err)
	}
	if claims.Subject != user.ID {
		t.Fatalf("token subject %q does not match user %q", claims.Subject, user.ID)
	}
}

func TestLogin_UnknownUser(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestAuthService(t)

	_, err := svc.Login(context.Background(), "nobody", "whatever")
	if !errors.Is(err, common.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin_WrongPasswordCountsFailure(t *testing.T) {
	t.Parallel()

	svc, m, _ := newTestAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "bob", "right password")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}

	if _, err := svc.Login(ctx, "bob", "wrong password"); !errors.Is(err, common.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	state, err := m.lockouts.Get(ctx, user.ID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if state.FailedCount != 1 {
		t.Fatalf("expected 1 recorded failure, got %d", state.FailedCount)
	}
}

func TestLogin_LockedAccountRejectsRightPassword(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "carol", "right password"); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	for i := 0; i < LockoutThreshold; i++ {
		if _, err := svc.Login(ctx, "carol", "wrong password"); !errors.Is(err, common.ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
		}
	}

	// The correct password gets the same generic rejection while the window
	// is open.
	if _, err := svc.Login(ctx, "carol", "right password"); !errors.Is(err, common.ErrInvalidCredentials) {
		t.Fatalf("locked account: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin_SuccessResetsFailures(t *testing.T) {
	t.Parallel()

	svc, m, _ := newTestAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "dave", "right password")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}

	for i := 0; i < LockoutThreshold-1; i++ {
		if _, err := svc.Login(ctx, "dave", "wrong password"); !errors.Is(err, common.ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
		}
	}

	if _, err := svc.Login(ctx, "dave", "right password"); err != nil {
		t.Fatalf("Login error: %v", err)
	}

	state, err := m.lockouts.Get(ctx, user.ID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if state.FailedCount != 0 || state.LockedUntil != nil {
		t.Fatalf("expected cleared lockout state, got %+v", state)
	}
}

func TestRefresh_RotatesPair(t *testing.T) {
	t.Parallel()

	svc, _, mock := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "erin", "password1234"); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	pair, err := svc.Login(ctx, "erin", "password1234")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}

	mock.ExpectBegin()
	mock.ExpectCommit()

	fresh, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh error: %v", err)
	}
	if fresh.RefreshToken == pair.RefreshToken {
		t.Fatalf("expected a new refresh token")
	}

	// The burned token now gets the generic unauthorized answer.
	if _, err := svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, common.ErrorUnauthorized) {
		t.Fatalf("expected ErrorUnauthorized, got %v", err)
	}
}

func TestLogout_InvalidatesPair(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "frank", "password1234"); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	pair, err := svc.Login(ctx, "frank", "password1234")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}

	if err := svc.Logout(ctx, pair.AccessToken, pair.RefreshToken); err != nil {
		t.Fatalf("Logout error: %v", err)
	}

	if _, err := svc.tokens.VerifyAccess(ctx, pair.AccessToken); !errors.Is(err, common.ErrTokenRevoked) {
		t.Fatalf("access after logout: expected ErrTokenRevoked, got %v", err)
	}
	if _, err := svc.tokens.VerifyRefresh(ctx, pair.RefreshToken); !errors.Is(err, common.ErrTokenRevoked) {
		t.Fatalf("refresh after logout: expected ErrTokenRevoked, got %v", err)
	}

	// Idempotent: the second logout sees tokens that no longer verify and
	// still succeeds.
	if err := svc.Logout(ctx, pair.AccessToken, pair.RefreshToken); err != nil {
		t.Fatalf("second Logout error: %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "grace", "old password")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	pair, err := svc.Login(ctx, "grace", "old password")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}

	if err := svc.ChangePassword(ctx, user.ID, "wrong old", "new password"); !errors.Is(err, common.ErrInvalidCredentials) {
		t.Fatalf("wrong old password: expected ErrInvalidCredentials, got %v", err)
	}

	if err := svc.ChangePassword(ctx, user.ID, "old password", "new password"); err != nil {
		t.Fatalf("ChangePassword error: %v", err)
	}

	// Every outstanding session is revoked.
	if _, err := svc.tokens.VerifyRefresh(ctx, pair.RefreshToken); !errors.Is(err, common.ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked after password change, got %v", err)
	}

	if _, err := svc.Login(ctx, "grace", "old password"); !errors.Is(err, common.ErrInvalidCredentials) {
		t.Fatalf("old password must no longer log in")
	}
	if _, err := svc.Login(ctx, "grace", "new password"); err != nil {
		t.Fatalf("new password must log in, got %v", err)
	}
}
