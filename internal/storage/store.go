// Package storage defines the capability interface every persistence backend
// satisfies, plus the two implementations (memstore, mongostore) that back
// it. Storage exclusively owns all persistent records; every other component
// holds only identifiers and talks to Storage through this interface.
package storage

import (
	"context"

	"github.com/google/uuid"
)

// Page is a cursor-paginated result. NextCursor is nil unless the page was
// full and a probe confirmed at least one older item remains.
type Page[T any] struct {
	Items      []T     `json:"items"`
	NextCursor *Cursor `json:"next_cursor,omitempty"`
}

// Store is the full capability set required by galynx's components. Both
// memstore and mongostore satisfy it with identical observable semantics.
type Store interface {
	Users
	Workspaces
	Channels
	Messages
	Reactions
	Attachments
	RefreshSessions
	Audit
	Idempotency

	// Ping reports whether the backend is reachable, used by the readiness
	// probe. memstore always succeeds; mongostore round-trips to the server.
	Ping(ctx context.Context) error
}

// Users covers User CRUD and WorkspaceMember lookups.
type Users interface {
	CreateUser(ctx context.Context, u User) (User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context, workspaceID uuid.UUID) ([]User, error)

	CreateMembership(ctx context.Context, m WorkspaceMember) (WorkspaceMember, error)
	GetMembership(ctx context.Context, workspaceID, userID uuid.UUID) (WorkspaceMember, error)
	ListMemberships(ctx context.Context, userID uuid.UUID) ([]WorkspaceMember, error)
	ListMembers(ctx context.Context, workspaceID uuid.UUID) ([]WorkspaceMember, error)
}

// Workspaces covers Workspace CRUD.
type Workspaces interface {
	CreateWorkspace(ctx context.Context, w Workspace) (Workspace, error)
	GetWorkspaceByID(ctx context.Context, id uuid.UUID) (Workspace, error)
}

// Channels covers Channel CRUD and ChannelMember membership.
type Channels interface {
	CreateChannel(ctx context.Context, c Channel) (Channel, error)
	GetChannelByID(ctx context.Context, id uuid.UUID) (Channel, error)
	ListChannels(ctx context.Context, workspaceID uuid.UUID) ([]Channel, error)
	DeleteChannel(ctx context.Context, id uuid.UUID) error

	AddChannelMember(ctx context.Context, m ChannelMember) error
	RemoveChannelMember(ctx context.Context, channelID, userID uuid.UUID) error
	IsChannelMember(ctx context.Context, channelID, userID uuid.UUID) (bool, error)
	ListChannelMembers(ctx context.Context, channelID uuid.UUID) ([]uuid.UUID, error)
}

// Messages covers Message CRUD and the two cursor-paginated listings
// (channel timeline, thread replies).
type Messages interface {
	CreateMessage(ctx context.Context, m Message) (Message, error)
	GetMessageByID(ctx context.Context, id uuid.UUID) (Message, error)
	UpdateMessageBody(ctx context.Context, id uuid.UUID, bodyMD string, editedAt uint64) (Message, error)
	SoftDeleteMessage(ctx context.Context, id uuid.UUID, deletedAt uint64) (Message, error)

	ListChannelMessages(ctx context.Context, channelID uuid.UUID, cursor *Cursor, limit int) (Page[Message], error)
	ListThreadReplies(ctx context.Context, rootID uuid.UUID, cursor *Cursor, limit int) (Page[Message], error)
	GetThreadSummary(ctx context.Context, rootID uuid.UUID) (ThreadSummary, error)
}

// Reactions covers reaction add/remove, unique on (message, emoji, user).
type Reactions interface {
	AddReaction(ctx context.Context, r Reaction) (added bool, err error)
	RemoveReaction(ctx context.Context, messageID uuid.UUID, emoji string, userID uuid.UUID) (removed bool, err error)
	CountReactions(ctx context.Context, messageID uuid.UUID) (map[string]int, error)
}

// Attachments covers the PendingUpload / Attachment state machine.
type Attachments interface {
	CreatePendingUpload(ctx context.Context, p PendingUpload) (PendingUpload, error)
	ConsumePendingUpload(ctx context.Context, uploadID uuid.UUID, now uint64) (PendingUpload, error)
	CreateAttachment(ctx context.Context, a Attachment) (Attachment, error)
	GetAttachmentByID(ctx context.Context, id uuid.UUID) (Attachment, error)
	LinkAttachmentToMessage(ctx context.Context, id, messageID uuid.UUID) error
	PurgeExpiredUploads(ctx context.Context, now uint64) (int, error)
}

// RefreshSessions covers the refresh-token rotation chain.
type RefreshSessions interface {
	CreateRefreshSession(ctx context.Context, s RefreshSession) (RefreshSession, error)
	GetRefreshSessionByHash(ctx context.Context, tokenHash string) (RefreshSession, error)
	RevokeRefreshSession(ctx context.Context, id uuid.UUID, revokedAt uint64) error
	// RevokeChain follows rotated_from links in both directions from id,
	// revoking every session in the chain, used on reuse detection.
	RevokeChain(ctx context.Context, id uuid.UUID, revokedAt uint64) error
}

// Audit covers append-only audit recording and listing.
type Audit interface {
	AppendAuditEntry(ctx context.Context, e AuditEntry) error
	ListAuditEntries(ctx context.Context, workspaceID uuid.UUID, cursor *Cursor, limit int) (Page[AuditEntry], error)
}

// Idempotency covers the durable idempotency cache used for SEND_MESSAGE
// across restarts, as recommended by the design notes.
type Idempotency interface {
	GetIdempotent(ctx context.Context, key IdempotencyKey) (IdempotencyRecord, bool, error)
	PutIdempotent(ctx context.Context, rec IdempotencyRecord, ttlMS uint64) error
}
