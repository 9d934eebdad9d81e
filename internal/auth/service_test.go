package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/galynx-chat/galynx-server/internal/audit"
	"github.com/galynx-chat/galynx-server/internal/auth"
	"github.com/galynx-chat/galynx-server/internal/identitytime"
	"github.com/galynx-chat/galynx-server/internal/storage"
	"github.com/galynx-chat/galynx-server/internal/storage/memstore"
)

type stepClock struct{ ms uint64 }

func (c *stepClock) NowMS() uint64 { return c.ms }

func newTestService(t *testing.T, clock identitytime.Clock) (*auth.Service, storage.Store, storage.User, uuid.UUID) {
	t.Helper()
	store := memstore.New()
	gen := identitytime.UUIDv7Generator{}
	rec := audit.New(store, gen, clock, zerolog.Nop())

	cfg := auth.Config{
		JWTSecret:  "test-secret-at-least-32-bytes-long!",
		Issuer:     "galynx-test",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 30 * 24 * time.Hour,
		Argon2:     auth.Argon2Params{Memory: 19 * 1024, Iterations: 2, Parallelism: 1, SaltLength: 16, KeyLength: 32},
	}
	svc := auth.New(store, gen, clock, cfg, rec, zerolog.Nop())

	hash, err := auth.HashPassword("correct horse battery staple", cfg.Argon2)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	userID := uuid.Must(uuid.NewV7())
	user := storage.User{ID: userID, Email: "alice@example.com", Name: "Alice", PasswordHash: hash, Status: storage.UserActive, CreatedAt: 1}
	if _, err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	wsID := uuid.Must(uuid.NewV7())
	if _, err := store.CreateWorkspace(context.Background(), storage.Workspace{ID: wsID, Name: "acme", CreatedAt: 1}); err != nil {
		t.Fatalf("create workspace: %v", err)
	}
	if _, err := store.CreateMembership(context.Background(), storage.WorkspaceMember{WorkspaceID: wsID, UserID: userID, Role: storage.RoleOwner, CreatedAt: 1}); err != nil {
		t.Fatalf("create membership: %v", err)
	}

	return svc, store, user, wsID
}

func TestLogin_WrongPassword(t *testing.T) {
	clock := &stepClock{ms: 1000}
	svc, _, user, _ := newTestService(t, clock)

	_, err := svc.Login(context.Background(), user.Email, "wrong password", nil)
	if err != auth.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	clock := &stepClock{ms: 1000}
	svc, _, _, _ := newTestService(t, clock)

	_, err := svc.Login(context.Background(), "nobody@example.com", "whatever", nil)
	if err != auth.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestRefresh_RotatesAndRevokesPredecessor(t *testing.T) {
	clock := &stepClock{ms: 1000}
	svc, _, user, _ := newTestService(t, clock)

	pair1, err := svc.Login(context.Background(), user.Email, "correct horse battery staple", nil)
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	clock.ms = 2000
	pair2, err := svc.Refresh(context.Background(), pair1.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if pair2.RefreshToken == pair1.RefreshToken {
		t.Fatalf("expected a new refresh token")
	}

	// The rotated-out session is now revoked: reusing it is reuse detection.
	clock.ms = 3000
	if _, err := svc.Refresh(context.Background(), pair1.RefreshToken); err != auth.ErrRefreshReused {
		t.Fatalf("expected ErrRefreshReused on reuse of rotated-out token, got %v", err)
	}
}

func TestRefresh_ReuseRevokesWholeChain(t *testing.T) {
	clock := &stepClock{ms: 1000}
	svc, _, user, _ := newTestService(t, clock)

	pair1, err := svc.Login(context.Background(), user.Email, "correct horse battery staple", nil)
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	clock.ms = 2000
	pair2, err := svc.Refresh(context.Background(), pair1.RefreshToken)
	if err != nil {
		t.Fatalf("first refresh: %v", err)
	}

	// Reusing the already-rotated R1 must fail and revoke the chain.
	clock.ms = 3000
	if _, err := svc.Refresh(context.Background(), pair1.RefreshToken); err != auth.ErrRefreshReused {
		t.Fatalf("expected ErrRefreshReused, got %v", err)
	}

	// R2, descended from the now-fully-revoked chain, must also fail.
	clock.ms = 4000
	if _, err := svc.Refresh(context.Background(), pair2.RefreshToken); err == nil {
		t.Fatalf("expected R2 to be revoked as part of the chain")
	}
}

func TestLogout_IsIdempotent(t *testing.T) {
	clock := &stepClock{ms: 1000}
	svc, _, user, _ := newTestService(t, clock)

	pair, err := svc.Login(context.Background(), user.Email, "correct horse battery staple", nil)
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := svc.Logout(context.Background(), pair.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if err := svc.Logout(context.Background(), pair.RefreshToken); err != nil {
		t.Fatalf("second logout should be idempotent, got %v", err)
	}

	if _, err := svc.Refresh(context.Background(), pair.RefreshToken); err != auth.ErrRefreshReused {
		t.Fatalf("refreshing a revoked-by-logout session should read as reuse, got %v", err)
	}
}
