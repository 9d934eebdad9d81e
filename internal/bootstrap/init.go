// Package bootstrap seeds the first workspace, owner account, and a default
// channel on an empty store, grounded in the prior internal/bootstrap
// package (same "is this the first run, then seed owner/roles/channels in
// one place" shape), adapted from the prior single Postgres transaction
// to storage.Store's plain create calls — galynx's backends have no
// cross-entity transaction primitive to mirror, so a seed failure partway
// through is logged and surfaced rather than rolled back.
package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/galynx-chat/galynx-server/internal/auth"
	"github.com/galynx-chat/galynx-server/internal/config"
	"github.com/galynx-chat/galynx-server/internal/identitytime"
	"github.com/galynx-chat/galynx-server/internal/storage"
)

// DefaultChannelName is the channel created alongside the first workspace.
const DefaultChannelName = "general"

// Run seeds an owner user, a workspace, the owner's membership, and a
// default public channel, using BOOTSTRAP_WORKSPACE_NAME/EMAIL/PASSWORD.
// It is a no-op returning nil if the bootstrap email already has an account,
// so restarts of an already-seeded deployment are safe to call this on
// again.
func Run(ctx context.Context, store storage.Store, gen identitytime.Generator, clock identitytime.Clock, cfg *config.Config, log zerolog.Logger) error {
	if cfg.BootstrapEmail == "" || cfg.BootstrapPassword == "" {
		log.Info().Msg("bootstrap: BOOTSTRAP_EMAIL/BOOTSTRAP_PASSWORD not set, skipping first-run seed")
		return nil
	}

	email := strings.ToLower(strings.TrimSpace(cfg.BootstrapEmail))
	if _, err := store.GetUserByEmail(ctx, email); err == nil {
		log.Info().Str("email", email).Msg("bootstrap: owner already exists, skipping seed")
		return nil
	} else if err != storage.ErrNotFound {
		return fmt.Errorf("bootstrap: check existing owner: %w", err)
	}

	hash, err := auth.HashPassword(cfg.BootstrapPassword, auth.Argon2Params{
		Memory:      cfg.Argon2Memory,
		Iterations:  cfg.Argon2Iterations,
		Parallelism: cfg.Argon2Parallelism,
		SaltLength:  cfg.Argon2SaltLength,
		KeyLength:   cfg.Argon2KeyLength,
	})
	if err != nil {
		return fmt.Errorf("bootstrap: hash owner password: %w", err)
	}

	now := clock.NowMS()

	ownerID, err := gen.New()
	if err != nil {
		return fmt.Errorf("bootstrap: allocate owner id: %w", err)
	}
	owner, err := store.CreateUser(ctx, storage.User{
		ID:           ownerID,
		Email:        email,
		Name:         ownerDisplayName(email),
		PasswordHash: hash,
		Status:       storage.UserActive,
		CreatedAt:    now,
	})
	if err != nil {
		return fmt.Errorf("bootstrap: create owner user: %w", err)
	}

	workspaceName := cfg.BootstrapWorkspaceName
	if workspaceName == "" {
		workspaceName = "Default Workspace"
	}
	workspaceID, err := gen.New()
	if err != nil {
		return fmt.Errorf("bootstrap: allocate workspace id: %w", err)
	}
	workspace, err := store.CreateWorkspace(ctx, storage.Workspace{
		ID:        workspaceID,
		Name:      workspaceName,
		CreatedAt: now,
	})
	if err != nil {
		return fmt.Errorf("bootstrap: create workspace: %w", err)
	}

	if _, err := store.CreateMembership(ctx, storage.WorkspaceMember{
		WorkspaceID: workspace.ID,
		UserID:      owner.ID,
		Role:        storage.RoleOwner,
		CreatedAt:   now,
	}); err != nil {
		return fmt.Errorf("bootstrap: create owner membership: %w", err)
	}

	channelID, err := gen.New()
	if err != nil {
		return fmt.Errorf("bootstrap: allocate channel id: %w", err)
	}
	if _, err := store.CreateChannel(ctx, storage.Channel{
		ID:          channelID,
		WorkspaceID: workspace.ID,
		Name:        DefaultChannelName,
		IsPrivate:   false,
		CreatedBy:   owner.ID,
		CreatedAt:   now,
	}); err != nil {
		return fmt.Errorf("bootstrap: create default channel: %w", err)
	}

	log.Info().
		Str("workspace_id", workspace.ID.String()).
		Str("owner_email", owner.Email).
		Msg("bootstrap: seeded first-run workspace and owner")
	return nil
}

func ownerDisplayName(email string) string {
	if idx := strings.Index(email, "@"); idx > 0 {
		return email[:idx]
	}
	return email
}
