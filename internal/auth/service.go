// Package auth implements password verification, access-token mint/parse,
// and stateful refresh-session rotation with reuse detection.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/galynx-chat/galynx-server/internal/audit"
	"github.com/galynx-chat/galynx-server/internal/identitytime"
	"github.com/galynx-chat/galynx-server/internal/storage"
)

// Config holds the tunables a Service needs, populated from internal/config.
type Config struct {
	JWTSecret  string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Argon2     Argon2Params
}

// TokenPair is the pair minted on login and on every refresh rotation. The
// raw refresh token is surfaced to the caller exactly once; only its hash is
// persisted.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  uint64
	RefreshExpiresAt uint64
}

// Service implements AuthEngine.
type Service struct {
	store storage.Store
	gen   identitytime.Generator
	clock identitytime.Clock
	cfg   Config
	audit *audit.Recorder
	log   zerolog.Logger
}

// New creates an auth Service.
func New(store storage.Store, gen identitytime.Generator, clock identitytime.Clock, cfg Config, recorder *audit.Recorder, log zerolog.Logger) *Service {
	return &Service{store: store, gen: gen, clock: clock, cfg: cfg, audit: recorder, log: log.With().Str("component", "auth").Logger()}
}

// Login verifies credentials and mints a token pair. If the user belongs to
// more than one workspace, workspaceID must be supplied; if they belong to
// exactly one, it is inferred.
func (s *Service) Login(ctx context.Context, email, password string, workspaceID *uuid.UUID) (TokenPair, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		// Run the comparison against a dummy hash so a non-existent email
		// takes the same time as a wrong password for a real one.
		_, _ = verifyPassword(password, dummyHash)
		return TokenPair{}, ErrInvalidCredentials
	}

	match, err := verifyPassword(password, user.PasswordHash)
	if err != nil {
		return TokenPair{}, fmt.Errorf("verify password: %w", err)
	}
	if !match {
		return TokenPair{}, ErrInvalidCredentials
	}
	if user.Status != storage.UserActive {
		return TokenPair{}, ErrUserDisabled
	}

	membership, err := s.resolveMembership(ctx, user.ID, workspaceID)
	if err != nil {
		return TokenPair{}, err
	}

	pair, err := s.issueTokens(ctx, user.ID, membership.WorkspaceID, membership.Role, nil)
	if err != nil {
		return TokenPair{}, err
	}

	s.audit.Record(ctx, membership.WorkspaceID, user.ID, storage.ActionLogin, "user", user.ID.String(), nil)
	return pair, nil
}

// Refresh rotates a refresh session: the presented token is revoked and a
// new session is created with rotated_from pointing at it. Presenting an
// already-revoked token is treated as reuse and revokes the whole chain.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	hash := hashRefreshToken(refreshToken)

	session, err := s.store.GetRefreshSessionByHash(ctx, hash)
	if err != nil {
		return TokenPair{}, ErrRefreshInvalid
	}

	now := s.clock.NowMS()
	if session.RevokedAt != nil {
		s.log.Error().Str("session_id", session.ID.String()).Str("user_id", session.UserID.String()).
			Msg("refresh token reuse detected; revoking rotation chain")
		if revokeErr := s.store.RevokeChain(ctx, session.ID, now); revokeErr != nil {
			s.log.Warn().Err(revokeErr).Msg("failed to revoke rotation chain")
		}
		s.audit.Record(ctx, session.WorkspaceID, session.UserID, storage.ActionRefreshReuseDetected, "refresh_session", session.ID.String(), nil)
		return TokenPair{}, ErrRefreshReused
	}
	if now > session.ExpiresAt {
		return TokenPair{}, ErrRefreshInvalid
	}

	if err := s.store.RevokeRefreshSession(ctx, session.ID, now); err != nil {
		return TokenPair{}, fmt.Errorf("revoke superseded session: %w", err)
	}

	member, err := s.store.GetMembership(ctx, session.WorkspaceID, session.UserID)
	if err != nil {
		return TokenPair{}, ErrNotAMember
	}

	parent := session.ID
	return s.issueTokens(ctx, session.UserID, session.WorkspaceID, member.Role, &parent)
}

// Logout revokes the presented refresh session. Revoking an already-revoked
// session is a success (idempotent).
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	hash := hashRefreshToken(refreshToken)

	session, err := s.store.GetRefreshSessionByHash(ctx, hash)
	if err != nil {
		return nil
	}
	if session.RevokedAt != nil {
		return nil
	}
	if err := s.store.RevokeRefreshSession(ctx, session.ID, s.clock.NowMS()); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	s.audit.Record(ctx, session.WorkspaceID, session.UserID, storage.ActionLogout, "refresh_session", session.ID.String(), nil)
	return nil
}

func (s *Service) resolveMembership(ctx context.Context, userID uuid.UUID, workspaceID *uuid.UUID) (storage.WorkspaceMember, error) {
	if workspaceID != nil {
		member, err := s.store.GetMembership(ctx, *workspaceID, userID)
		if err != nil {
			return storage.WorkspaceMember{}, ErrNotAMember
		}
		return member, nil
	}

	memberships, err := s.store.ListMemberships(ctx, userID)
	if err != nil {
		return storage.WorkspaceMember{}, fmt.Errorf("list memberships: %w", err)
	}
	switch len(memberships) {
	case 0:
		return storage.WorkspaceMember{}, ErrNotAMember
	case 1:
		return memberships[0], nil
	default:
		return storage.WorkspaceMember{}, ErrAmbiguousWorkspace
	}
}

func (s *Service) issueTokens(ctx context.Context, userID, workspaceID uuid.UUID, role storage.Role, rotatedFrom *uuid.UUID) (TokenPair, error) {
	access, err := newAccessToken(userID, workspaceID, role, s.cfg.JWTSecret, s.cfg.AccessTTL, s.cfg.Issuer)
	if err != nil {
		return TokenPair{}, fmt.Errorf("mint access token: %w", err)
	}

	rawRefresh, err := generateRefreshToken()
	if err != nil {
		return TokenPair{}, fmt.Errorf("generate refresh token: %w", err)
	}

	sessionID, err := s.gen.New()
	if err != nil {
		return TokenPair{}, fmt.Errorf("allocate session id: %w", err)
	}

	now := s.clock.NowMS()
	refreshExpiresAt := now + uint64(s.cfg.RefreshTTL.Milliseconds())

	session := storage.RefreshSession{
		ID:          sessionID,
		UserID:      userID,
		WorkspaceID: workspaceID,
		TokenHash:   hashRefreshToken(rawRefresh),
		IssuedAt:    now,
		ExpiresAt:   refreshExpiresAt,
		RotatedFrom: rotatedFrom,
	}
	if _, err := s.store.CreateRefreshSession(ctx, session); err != nil {
		return TokenPair{}, fmt.Errorf("create refresh session: %w", err)
	}

	return TokenPair{
		AccessToken:      access,
		RefreshToken:     rawRefresh,
		AccessExpiresAt:  now + uint64(s.cfg.AccessTTL.Milliseconds()),
		RefreshExpiresAt: refreshExpiresAt,
	}, nil
}

// generateRefreshToken returns a raw, hex-encoded 256-bit random value. It is
// returned to the caller exactly once; only its hash is ever persisted.
func generateRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func hashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
