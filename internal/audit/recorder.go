// Package audit records sensitive actions as an append-only side effect.
// Recording is always fire-and-forget: a storage failure here must never
// fail the primary operation that triggered it, it is only ever surfaced
// through logging.
package audit

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/galynx-chat/galynx-server/internal/identitytime"
	"github.com/galynx-chat/galynx-server/internal/storage"
)

// Recorder appends AuditEntry records on behalf of every other component.
type Recorder struct {
	store storage.Audit
	gen   identitytime.Generator
	clock identitytime.Clock
	log   zerolog.Logger
}

// New creates a Recorder backed by the given Storage audit capability.
func New(store storage.Audit, gen identitytime.Generator, clock identitytime.Clock, log zerolog.Logger) *Recorder {
	return &Recorder{store: store, gen: gen, clock: clock, log: log}
}

// Record appends an audit entry. Errors are logged at warn level and never
// returned; callers invoke this after their primary operation has already
// committed and must not branch on its outcome.
func (r *Recorder) Record(ctx context.Context, workspaceID, actorID uuid.UUID, action storage.AuditAction, targetType, targetID string, metadata map[string]any) {
	id, err := r.gen.New()
	if err != nil {
		r.log.Warn().Err(err).Str("action", string(action)).Msg("audit: failed to allocate entry id")
		return
	}

	entry := storage.AuditEntry{
		ID:          id,
		WorkspaceID: workspaceID,
		ActorID:     actorID,
		Action:      action,
		TargetType:  targetType,
		TargetID:    targetID,
		Metadata:    metadata,
		CreatedAt:   r.clock.NowMS(),
	}

	if err := r.store.AppendAuditEntry(ctx, entry); err != nil {
		r.log.Warn().Err(err).
			Str("action", string(action)).
			Str("target_type", targetType).
			Str("target_id", targetID).
			Msg("audit: append failed")
	}
}

// List returns a cursor page of audit entries for a workspace, newest first.
func (r *Recorder) List(ctx context.Context, workspaceID uuid.UUID, cursor *storage.Cursor, limit int) (storage.Page[storage.AuditEntry], error) {
	return r.store.ListAuditEntries(ctx, workspaceID, cursor, limit)
}
