package mongostore

import (
	"github.com/google/uuid"

	"github.com/galynx-chat/galynx-server/internal/storage"
)

// BSON mirror structs. UUIDs are stored as their canonical string form so
// documents remain readable and indexable without a custom codec; google/uuid
// has no native bson.Marshaler.

type userDoc struct {
	ID           string `bson:"_id"`
	Email        string `bson:"email"`
	Name         string `bson:"name"`
	PasswordHash string `bson:"password_hash"`
	Status       string `bson:"status"`
	CreatedAt    uint64 `bson:"created_at"`
}

func toUserDoc(u storage.User) userDoc {
	return userDoc{ID: u.ID.String(), Email: u.Email, Name: u.Name, PasswordHash: u.PasswordHash, Status: string(u.Status), CreatedAt: u.CreatedAt}
}

func (d userDoc) toDomain() storage.User {
	return storage.User{ID: uuid.MustParse(d.ID), Email: d.Email, Name: d.Name, PasswordHash: d.PasswordHash, Status: storage.UserStatus(d.Status), CreatedAt: d.CreatedAt}
}

type workspaceDoc struct {
	ID        string `bson:"_id"`
	Name      string `bson:"name"`
	CreatedAt uint64 `bson:"created_at"`
}

func toWorkspaceDoc(w storage.Workspace) workspaceDoc {
	return workspaceDoc{ID: w.ID.String(), Name: w.Name, CreatedAt: w.CreatedAt}
}

func (d workspaceDoc) toDomain() storage.Workspace {
	return storage.Workspace{ID: uuid.MustParse(d.ID), Name: d.Name, CreatedAt: d.CreatedAt}
}

type membershipDoc struct {
	WorkspaceID string `bson:"workspace_id"`
	UserID      string `bson:"user_id"`
	Role        string `bson:"role"`
	CreatedAt   uint64 `bson:"created_at"`
}

func toMembershipDoc(m storage.WorkspaceMember) membershipDoc {
	return membershipDoc{WorkspaceID: m.WorkspaceID.String(), UserID: m.UserID.String(), Role: string(m.Role), CreatedAt: m.CreatedAt}
}

func (d membershipDoc) toDomain() storage.WorkspaceMember {
	return storage.WorkspaceMember{WorkspaceID: uuid.MustParse(d.WorkspaceID), UserID: uuid.MustParse(d.UserID), Role: storage.Role(d.Role), CreatedAt: d.CreatedAt}
}

type channelDoc struct {
	ID          string `bson:"_id"`
	WorkspaceID string `bson:"workspace_id"`
	Name        string `bson:"name"`
	IsPrivate   bool   `bson:"is_private"`
	CreatedBy   string `bson:"created_by"`
	CreatedAt   uint64 `bson:"created_at"`
}

func toChannelDoc(c storage.Channel) channelDoc {
	return channelDoc{ID: c.ID.String(), WorkspaceID: c.WorkspaceID.String(), Name: c.Name, IsPrivate: c.IsPrivate, CreatedBy: c.CreatedBy.String(), CreatedAt: c.CreatedAt}
}

func (d channelDoc) toDomain() storage.Channel {
	return storage.Channel{ID: uuid.MustParse(d.ID), WorkspaceID: uuid.MustParse(d.WorkspaceID), Name: d.Name, IsPrivate: d.IsPrivate, CreatedBy: uuid.MustParse(d.CreatedBy), CreatedAt: d.CreatedAt}
}

type channelMemberDoc struct {
	ChannelID string `bson:"channel_id"`
	UserID    string `bson:"user_id"`
}

type messageDoc struct {
	ID           string  `bson:"_id"`
	WorkspaceID  string  `bson:"workspace_id"`
	ChannelID    string  `bson:"channel_id"`
	SenderID     string  `bson:"sender_id"`
	BodyMD       string  `bson:"body_md"`
	ThreadRootID *string `bson:"thread_root_id,omitempty"`
	CreatedAt    uint64  `bson:"created_at"`
	EditedAt     *uint64 `bson:"edited_at,omitempty"`
	DeletedAt    *uint64 `bson:"deleted_at,omitempty"`
}

func toMessageDoc(m storage.Message) messageDoc {
	d := messageDoc{ID: m.ID.String(), WorkspaceID: m.WorkspaceID.String(), ChannelID: m.ChannelID.String(), SenderID: m.SenderID.String(), BodyMD: m.BodyMD, CreatedAt: m.CreatedAt, EditedAt: m.EditedAt, DeletedAt: m.DeletedAt}
	if m.ThreadRootID != nil {
		s := m.ThreadRootID.String()
		d.ThreadRootID = &s
	}
	return d
}

func (d messageDoc) toDomain() storage.Message {
	m := storage.Message{ID: uuid.MustParse(d.ID), WorkspaceID: uuid.MustParse(d.WorkspaceID), ChannelID: uuid.MustParse(d.ChannelID), SenderID: uuid.MustParse(d.SenderID), BodyMD: d.BodyMD, CreatedAt: d.CreatedAt, EditedAt: d.EditedAt, DeletedAt: d.DeletedAt}
	if d.ThreadRootID != nil {
		id := uuid.MustParse(*d.ThreadRootID)
		m.ThreadRootID = &id
	}
	if m.DeletedAt != nil {
		m.BodyMD = ""
	}
	return m
}

type reactionDoc struct {
	MessageID string `bson:"message_id"`
	Emoji     string `bson:"emoji"`
	UserID    string `bson:"user_id"`
	CreatedAt uint64 `bson:"created_at"`
}

func toReactionDoc(r storage.Reaction) reactionDoc {
	return reactionDoc{MessageID: r.MessageID.String(), Emoji: r.Emoji, UserID: r.UserID.String(), CreatedAt: r.CreatedAt}
}

type attachmentDoc struct {
	ID            string  `bson:"_id"`
	WorkspaceID   string  `bson:"workspace_id"`
	ChannelID     string  `bson:"channel_id"`
	MessageID     *string `bson:"message_id,omitempty"`
	UploaderID    string  `bson:"uploader_id"`
	Filename      string  `bson:"filename"`
	ContentType   string  `bson:"content_type"`
	SizeBytes     int64   `bson:"size_bytes"`
	StorageBucket string  `bson:"storage_bucket"`
	StorageKey    string  `bson:"storage_key"`
	StorageRegion string  `bson:"storage_region"`
	CreatedAt     uint64  `bson:"created_at"`
}

func toAttachmentDoc(a storage.Attachment) attachmentDoc {
	d := attachmentDoc{ID: a.ID.String(), WorkspaceID: a.WorkspaceID.String(), ChannelID: a.ChannelID.String(), UploaderID: a.UploaderID.String(), Filename: a.Filename, ContentType: a.ContentType, SizeBytes: a.SizeBytes, StorageBucket: a.StorageBucket, StorageKey: a.StorageKey, StorageRegion: a.StorageRegion, CreatedAt: a.CreatedAt}
	if a.MessageID != nil {
		s := a.MessageID.String()
		d.MessageID = &s
	}
	return d
}

func (d attachmentDoc) toDomain() storage.Attachment {
	a := storage.Attachment{ID: uuid.MustParse(d.ID), WorkspaceID: uuid.MustParse(d.WorkspaceID), ChannelID: uuid.MustParse(d.ChannelID), UploaderID: uuid.MustParse(d.UploaderID), Filename: d.Filename, ContentType: d.ContentType, SizeBytes: d.SizeBytes, StorageBucket: d.StorageBucket, StorageKey: d.StorageKey, StorageRegion: d.StorageRegion, CreatedAt: d.CreatedAt}
	if d.MessageID != nil {
		id := uuid.MustParse(*d.MessageID)
		a.MessageID = &id
	}
	return a
}

type pendingUploadDoc struct {
	UploadID      string `bson:"_id"`
	WorkspaceID   string `bson:"workspace_id"`
	ChannelID     string `bson:"channel_id"`
	UploaderID    string `bson:"uploader_id"`
	Filename      string `bson:"filename"`
	ContentType   string `bson:"content_type"`
	SizeBytes     int64  `bson:"size_bytes"`
	StorageBucket string `bson:"storage_bucket"`
	StorageKey    string `bson:"storage_key"`
	StorageRegion string `bson:"storage_region"`
	ExpiresAt     uint64 `bson:"expires_at"`
}

func toPendingUploadDoc(p storage.PendingUpload) pendingUploadDoc {
	return pendingUploadDoc{UploadID: p.UploadID.String(), WorkspaceID: p.WorkspaceID.String(), ChannelID: p.ChannelID.String(), UploaderID: p.UploaderID.String(), Filename: p.Filename, ContentType: p.ContentType, SizeBytes: p.SizeBytes, StorageBucket: p.StorageBucket, StorageKey: p.StorageKey, StorageRegion: p.StorageRegion, ExpiresAt: p.ExpiresAt}
}

func (d pendingUploadDoc) toDomain() storage.PendingUpload {
	return storage.PendingUpload{UploadID: uuid.MustParse(d.UploadID), WorkspaceID: uuid.MustParse(d.WorkspaceID), ChannelID: uuid.MustParse(d.ChannelID), UploaderID: uuid.MustParse(d.UploaderID), Filename: d.Filename, ContentType: d.ContentType, SizeBytes: d.SizeBytes, StorageBucket: d.StorageBucket, StorageKey: d.StorageKey, StorageRegion: d.StorageRegion, ExpiresAt: d.ExpiresAt}
}

type refreshSessionDoc struct {
	ID          string  `bson:"_id"`
	UserID      string  `bson:"user_id"`
	WorkspaceID string  `bson:"workspace_id"`
	TokenHash   string  `bson:"token_hash"`
	IssuedAt    uint64  `bson:"issued_at"`
	ExpiresAt   uint64  `bson:"expires_at"`
	RotatedFrom *string `bson:"rotated_from,omitempty"`
	RevokedAt   *uint64 `bson:"revoked_at,omitempty"`
}

func toRefreshSessionDoc(rs storage.RefreshSession) refreshSessionDoc {
	d := refreshSessionDoc{ID: rs.ID.String(), UserID: rs.UserID.String(), WorkspaceID: rs.WorkspaceID.String(), TokenHash: rs.TokenHash, IssuedAt: rs.IssuedAt, ExpiresAt: rs.ExpiresAt, RevokedAt: rs.RevokedAt}
	if rs.RotatedFrom != nil {
		s := rs.RotatedFrom.String()
		d.RotatedFrom = &s
	}
	return d
}

func (d refreshSessionDoc) toDomain() storage.RefreshSession {
	rs := storage.RefreshSession{ID: uuid.MustParse(d.ID), UserID: uuid.MustParse(d.UserID), WorkspaceID: uuid.MustParse(d.WorkspaceID), TokenHash: d.TokenHash, IssuedAt: d.IssuedAt, ExpiresAt: d.ExpiresAt, RevokedAt: d.RevokedAt}
	if d.RotatedFrom != nil {
		id := uuid.MustParse(*d.RotatedFrom)
		rs.RotatedFrom = &id
	}
	return rs
}

type auditEntryDoc struct {
	ID          string         `bson:"_id"`
	WorkspaceID string         `bson:"workspace_id"`
	ActorID     string         `bson:"actor_id"`
	Action      string         `bson:"action"`
	TargetType  string         `bson:"target_type"`
	TargetID    string         `bson:"target_id"`
	Metadata    map[string]any `bson:"metadata,omitempty"`
	CreatedAt   uint64         `bson:"created_at"`
}

func toAuditEntryDoc(e storage.AuditEntry) auditEntryDoc {
	return auditEntryDoc{ID: e.ID.String(), WorkspaceID: e.WorkspaceID.String(), ActorID: e.ActorID.String(), Action: string(e.Action), TargetType: e.TargetType, TargetID: e.TargetID, Metadata: e.Metadata, CreatedAt: e.CreatedAt}
}

func (d auditEntryDoc) toDomain() storage.AuditEntry {
	return storage.AuditEntry{ID: uuid.MustParse(d.ID), WorkspaceID: uuid.MustParse(d.WorkspaceID), ActorID: uuid.MustParse(d.ActorID), Action: storage.AuditAction(d.Action), TargetType: d.TargetType, TargetID: d.TargetID, Metadata: d.Metadata, CreatedAt: d.CreatedAt}
}

type idempotencyDoc struct {
	ID          string `bson:"_id"`
	WorkspaceID string `bson:"workspace_id"`
	UserID      string `bson:"user_id"`
	ChannelID   string `bson:"channel_id"`
	Command     string `bson:"command"`
	ClientMsgID string `bson:"client_msg_id"`
	Result      []byte `bson:"result"`
	StoredAt    uint64 `bson:"stored_at"`
	ExpiresAt   uint64 `bson:"expires_at"`
}

func idempotencyDocID(key storage.IdempotencyKey) string {
	return key.WorkspaceID.String() + ":" + key.UserID.String() + ":" + key.ChannelID.String() + ":" + key.Command + ":" + key.ClientMsgID
}

func toIdempotencyDoc(rec storage.IdempotencyRecord, ttlMS uint64) idempotencyDoc {
	return idempotencyDoc{
		ID:          idempotencyDocID(rec.Key),
		WorkspaceID: rec.Key.WorkspaceID.String(),
		UserID:      rec.Key.UserID.String(),
		ChannelID:   rec.Key.ChannelID.String(),
		Command:     rec.Key.Command,
		ClientMsgID: rec.Key.ClientMsgID,
		Result:      rec.Result,
		StoredAt:    rec.StoredAt,
		ExpiresAt:   rec.StoredAt + ttlMS,
	}
}

func (d idempotencyDoc) toDomain() storage.IdempotencyRecord {
	return storage.IdempotencyRecord{
		Key: storage.IdempotencyKey{
			WorkspaceID: uuid.MustParse(d.WorkspaceID),
			UserID:      uuid.MustParse(d.UserID),
			ChannelID:   uuid.MustParse(d.ChannelID),
			Command:     d.Command,
			ClientMsgID: d.ClientMsgID,
		},
		Result:   d.Result,
		StoredAt: d.StoredAt,
	}
}
