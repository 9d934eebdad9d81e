package storage

import "github.com/google/uuid"

// UserStatus is the lifecycle state of a User.
type UserStatus string

const (
	UserActive   UserStatus = "active"
	UserDisabled UserStatus = "disabled"
)

// Role is a WorkspaceMember's role within a workspace.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// User is an account. Mutated only by admin onboarding (bootstrap or a
// owner/admin-issued create-user call) — there is no self-serve signup.
type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	PasswordHash string     `json:"-"`
	Status       UserStatus `json:"status"`
	CreatedAt    uint64     `json:"created_at"`
}

// Workspace is the top-level tenant.
type Workspace struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt uint64    `json:"created_at"`
}

// WorkspaceMember links a User to a Workspace with a Role. Unique on
// (WorkspaceID, UserID).
type WorkspaceMember struct {
	WorkspaceID uuid.UUID `json:"workspace_id"`
	UserID      uuid.UUID `json:"user_id"`
	Role        Role      `json:"role"`
	CreatedAt   uint64    `json:"created_at"`
}

// Channel is a named conversation within a Workspace. Unique on
// (WorkspaceID, Name).
type Channel struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	Name        string    `json:"name"`
	IsPrivate   bool      `json:"is_private"`
	CreatedBy   uuid.UUID `json:"created_by"`
	CreatedAt   uint64    `json:"created_at"`
}

// ChannelMember grants explicit access to a private Channel. Unique on
// (ChannelID, UserID).
type ChannelMember struct {
	ChannelID uuid.UUID `json:"channel_id"`
	UserID    uuid.UUID `json:"user_id"`
}

// Message is a single channel post, optionally a thread reply.
type Message struct {
	ID           uuid.UUID  `json:"id"`
	WorkspaceID  uuid.UUID  `json:"workspace_id"`
	ChannelID    uuid.UUID  `json:"channel_id"`
	SenderID     uuid.UUID  `json:"sender_id"`
	BodyMD       string     `json:"body_md"`
	ThreadRootID *uuid.UUID `json:"thread_root_id,omitempty"`
	CreatedAt    uint64     `json:"created_at"`
	EditedAt     *uint64    `json:"edited_at,omitempty"`
	DeletedAt    *uint64    `json:"deleted_at,omitempty"`
}

// Reaction is a single (message, emoji, user) tuple. Unique on
// (MessageID, Emoji, UserID).
type Reaction struct {
	MessageID uuid.UUID `json:"message_id"`
	Emoji     string    `json:"emoji"`
	UserID    uuid.UUID `json:"user_id"`
	CreatedAt uint64    `json:"created_at"`
}

// ThreadSummary is derived from Messages sharing a ThreadRootID.
type ThreadSummary struct {
	RootID       uuid.UUID   `json:"root_id"`
	ReplyCount   int         `json:"reply_count"`
	LastReplyAt  *uint64     `json:"last_reply_at,omitempty"`
	Participants []uuid.UUID `json:"participants"`
}

// Attachment is a durable record of a committed upload.
type Attachment struct {
	ID            uuid.UUID  `json:"id"`
	WorkspaceID   uuid.UUID  `json:"workspace_id"`
	ChannelID     uuid.UUID  `json:"channel_id"`
	MessageID     *uuid.UUID `json:"message_id,omitempty"`
	UploaderID    uuid.UUID  `json:"uploader_id"`
	Filename      string     `json:"filename"`
	ContentType   string     `json:"content_type"`
	SizeBytes     int64      `json:"size_bytes"`
	StorageBucket string     `json:"storage_bucket"`
	StorageKey    string     `json:"storage_key"`
	StorageRegion string     `json:"storage_region"`
	CreatedAt     uint64     `json:"created_at"`
}

// PendingUpload is the transient record created by a presign and consumed
// (or expired) by a commit.
type PendingUpload struct {
	UploadID      uuid.UUID `json:"upload_id"`
	WorkspaceID   uuid.UUID `json:"workspace_id"`
	ChannelID     uuid.UUID `json:"channel_id"`
	UploaderID    uuid.UUID `json:"uploader_id"`
	Filename      string    `json:"filename"`
	ContentType   string    `json:"content_type"`
	SizeBytes     int64     `json:"size_bytes"`
	StorageBucket string    `json:"storage_bucket"`
	StorageKey    string    `json:"storage_key"`
	StorageRegion string    `json:"storage_region"`
	ExpiresAt     uint64    `json:"expires_at"`
}

// RefreshSession is a single link in a refresh-token rotation chain.
type RefreshSession struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	WorkspaceID uuid.UUID  `json:"workspace_id"`
	TokenHash   string     `json:"-"`
	IssuedAt    uint64     `json:"issued_at"`
	ExpiresAt   uint64     `json:"expires_at"`
	RotatedFrom *uuid.UUID `json:"rotated_from,omitempty"`
	RevokedAt   *uint64    `json:"revoked_at,omitempty"`
}

// AuditAction enumerates the events the Audit component records.
type AuditAction string

const (
	ActionMessageCreated       AuditAction = "MESSAGE_CREATED"
	ActionMessageUpdated       AuditAction = "MESSAGE_UPDATED"
	ActionMessageDeleted       AuditAction = "MESSAGE_DELETED"
	ActionChannelCreated       AuditAction = "CHANNEL_CREATED"
	ActionChannelDeleted       AuditAction = "CHANNEL_DELETED"
	ActionAttachmentCommitted  AuditAction = "ATTACHMENT_COMMITTED"
	ActionLogin                AuditAction = "LOGIN"
	ActionLogout               AuditAction = "LOGOUT"
	ActionRefreshReuseDetected AuditAction = "REFRESH_REUSE_DETECTED"
	ActionUserCreated          AuditAction = "USER_CREATED"
)

// AuditEntry is an append-only record of a sensitive action.
type AuditEntry struct {
	ID          uuid.UUID      `json:"id"`
	WorkspaceID uuid.UUID      `json:"workspace_id"`
	ActorID     uuid.UUID      `json:"actor_id"`
	Action      AuditAction    `json:"action"`
	TargetType  string         `json:"target_type"`
	TargetID    string         `json:"target_id"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   uint64         `json:"created_at"`
}

// IdempotencyRecord caches the result of a realtime mutating command keyed by
// (workspace, user, channel, command, client_msg_id).
type IdempotencyRecord struct {
	Key      IdempotencyKey
	Result   []byte
	StoredAt uint64
}

// IdempotencyKey identifies a previously executed mutating command.
type IdempotencyKey struct {
	WorkspaceID uuid.UUID
	UserID      uuid.UUID
	ChannelID   uuid.UUID
	Command     string
	ClientMsgID string
}
