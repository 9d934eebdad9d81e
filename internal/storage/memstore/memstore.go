// Package memstore is the in-memory Storage backend: sorted/guarded maps
// keyed by composite index tuples, satisfying the same semantics as
// mongostore. It is the default backend (PERSISTENCE_BACKEND=memory) and the
// backend every package's tests run against.
package memstore

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/galynx-chat/galynx-server/internal/storage"
)

type membershipKey struct {
	workspaceID uuid.UUID
	userID      uuid.UUID
}

type channelNameKey struct {
	workspaceID uuid.UUID
	name        string
}

type reactionKey struct {
	messageID uuid.UUID
	emoji     string
	userID    uuid.UUID
}

// Store is an in-memory implementation of storage.Store. All state is
// guarded by a single mutex; this is a deliberate simplification of the
// "per-index lock held only during the mutation" model described for the
// concurrency model, acceptable because mutations are never long-running.
type Store struct {
	mu sync.RWMutex

	users        map[uuid.UUID]storage.User
	usersByEmail map[string]uuid.UUID

	workspaces map[uuid.UUID]storage.Workspace

	memberships map[membershipKey]storage.WorkspaceMember

	channels       map[uuid.UUID]storage.Channel
	channelsByName map[channelNameKey]uuid.UUID
	channelMembers map[uuid.UUID]map[uuid.UUID]struct{}

	messages map[uuid.UUID]storage.Message

	reactions map[reactionKey]storage.Reaction

	attachments    map[uuid.UUID]storage.Attachment
	pendingUploads map[uuid.UUID]storage.PendingUpload

	refreshSessions    map[uuid.UUID]storage.RefreshSession
	refreshSessionsIdx map[string]uuid.UUID

	audit map[uuid.UUID]storage.AuditEntry

	idempotent map[storage.IdempotencyKey]idempotentEntry
}

type idempotentEntry struct {
	record    storage.IdempotencyRecord
	expiresAt uint64
}

// Ping always succeeds: there is no separate process to be unreachable from.
func (s *Store) Ping(ctx context.Context) error {
	return nil
}

// New creates an empty in-memory Store.
func New() *Store {
	return &Store{
		users:              make(map[uuid.UUID]storage.User),
		usersByEmail:       make(map[string]uuid.UUID),
		workspaces:         make(map[uuid.UUID]storage.Workspace),
		memberships:        make(map[membershipKey]storage.WorkspaceMember),
		channels:           make(map[uuid.UUID]storage.Channel),
		channelsByName:     make(map[channelNameKey]uuid.UUID),
		channelMembers:     make(map[uuid.UUID]map[uuid.UUID]struct{}),
		messages:           make(map[uuid.UUID]storage.Message),
		reactions:          make(map[reactionKey]storage.Reaction),
		attachments:        make(map[uuid.UUID]storage.Attachment),
		pendingUploads:     make(map[uuid.UUID]storage.PendingUpload),
		refreshSessions:    make(map[uuid.UUID]storage.RefreshSession),
		refreshSessionsIdx: make(map[string]uuid.UUID),
		audit:              make(map[uuid.UUID]storage.AuditEntry),
		idempotent:         make(map[storage.IdempotencyKey]idempotentEntry),
	}
}

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var _ storage.Store = (*Store)(nil)
