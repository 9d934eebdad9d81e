package attachment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/galynx-chat/galynx-server/internal/access"
	"github.com/galynx-chat/galynx-server/internal/apierrors"
	"github.com/galynx-chat/galynx-server/internal/audit"
	"github.com/galynx-chat/galynx-server/internal/eventbus"
	"github.com/galynx-chat/galynx-server/internal/identitytime"
	"github.com/galynx-chat/galynx-server/internal/storage"
)

// PresignResult is what callers hand back to a client starting an upload.
type PresignResult struct {
	UploadID  uuid.UUID
	UploadURL string
	ExpiresAt uint64
}

// DownloadResult pairs an attachment record with a freshly minted GET URL.
type DownloadResult struct {
	Attachment  storage.Attachment
	DownloadURL string
}

// Flow implements the Presigned -> Committed | Expired attachment upload
// state machine, grounded in the prior media package for the
// storage-provider split and on gateway/auth packages for the
// authorize-then-persist-then-publish pipeline shape.
type Flow struct {
	store    storage.Store
	access   *access.Control
	gen      identitytime.Generator
	clock    identitytime.Clock
	bus      *eventbus.Bus
	provider Provider
	audit    *audit.Recorder
	log      zerolog.Logger

	bucket string
	region string
}

// Config names the object-store coordinates attachments are written under,
// whichever Provider is configured (LocalProvider included).
type Config struct {
	Bucket string
	Region string
}

// New creates a Flow. provider may be a LocalProvider when no S3-compatible
// store is configured.
func New(store storage.Store, ctl *access.Control, gen identitytime.Generator, clock identitytime.Clock, bus *eventbus.Bus, provider Provider, recorder *audit.Recorder, cfg Config, log zerolog.Logger) *Flow {
	return &Flow{
		store: store, access: ctl, gen: gen, clock: clock, bus: bus,
		provider: provider, audit: recorder, log: log,
		bucket: cfg.Bucket, region: cfg.Region,
	}
}

// Presign validates the actor may post in the channel and that the upload
// enforces the size/content-type rules, then allocates a PendingUpload
// and a 15-minute presigned PUT URL.
func (f *Flow) Presign(ctx context.Context, actor access.Actor, channel storage.Channel, filename, contentType string, sizeBytes int64) (PresignResult, error) {
	if err := f.access.CheckChannelAccess(ctx, actor, channel); err != nil {
		return PresignResult{}, err
	}
	if contentType == "" {
		return PresignResult{}, apierrors.New(apierrors.KindInvalidInput, ErrUnsupportedContentType.Error())
	}
	if sizeBytes <= 0 || sizeBytes > MaxSizeBytes {
		return PresignResult{}, apierrors.New(apierrors.KindInvalidInput, ErrFileTooLarge.Error())
	}

	uploadID, err := f.gen.New()
	if err != nil {
		return PresignResult{}, fmt.Errorf("attachment: allocate upload id: %w", err)
	}
	now := f.clock.NowMS()
	expiresAt := now + 900_000

	key := objectKey(channel.WorkspaceID.String(), channel.ID.String(), uploadID.String(), filename)

	pending := storage.PendingUpload{
		UploadID:      uploadID,
		WorkspaceID:   channel.WorkspaceID,
		ChannelID:     channel.ID,
		UploaderID:    actor.UserID,
		Filename:      sanitizeFilename(filename),
		ContentType:   contentType,
		SizeBytes:     sizeBytes,
		StorageBucket: f.bucket,
		StorageKey:    key,
		StorageRegion: f.region,
		ExpiresAt:     expiresAt,
	}
	if _, err := f.store.CreatePendingUpload(ctx, pending); err != nil {
		return PresignResult{}, fmt.Errorf("attachment: create pending upload: %w", err)
	}

	uploadURL, err := f.provider.PresignPut(ctx, f.bucket, key, contentType, presignTTL)
	if err != nil {
		return PresignResult{}, fmt.Errorf("attachment: presign put: %w", err)
	}

	return PresignResult{UploadID: uploadID, UploadURL: uploadURL, ExpiresAt: expiresAt}, nil
}

// Commit resolves a PendingUpload into a durable Attachment, optionally
// linking it to a message in the same workspace/channel, and publishes
// MESSAGE_UPDATED when linked.
func (f *Flow) Commit(ctx context.Context, actor access.Actor, uploadID uuid.UUID, messageID *uuid.UUID) (storage.Attachment, error) {
	now := f.clock.NowMS()
	pending, err := f.store.ConsumePendingUpload(ctx, uploadID, now)
	if err != nil {
		if err == storage.ErrNotFound {
			return storage.Attachment{}, apierrors.New(apierrors.KindNotFound, "upload not found or expired")
		}
		return storage.Attachment{}, fmt.Errorf("attachment: consume pending upload: %w", err)
	}
	if pending.WorkspaceID != actor.WorkspaceID {
		return storage.Attachment{}, apierrors.New(apierrors.KindNotFound, "upload not found or expired")
	}

	attachmentID, err := f.gen.New()
	if err != nil {
		return storage.Attachment{}, fmt.Errorf("attachment: allocate attachment id: %w", err)
	}

	record := storage.Attachment{
		ID:            attachmentID,
		WorkspaceID:   pending.WorkspaceID,
		ChannelID:     pending.ChannelID,
		MessageID:     nil,
		UploaderID:    pending.UploaderID,
		Filename:      pending.Filename,
		ContentType:   pending.ContentType,
		SizeBytes:     pending.SizeBytes,
		StorageBucket: pending.StorageBucket,
		StorageKey:    pending.StorageKey,
		StorageRegion: pending.StorageRegion,
		CreatedAt:     now,
	}

	if messageID != nil {
		msg, err := f.store.GetMessageByID(ctx, *messageID)
		if err != nil {
			if err == storage.ErrNotFound {
				return storage.Attachment{}, apierrors.New(apierrors.KindNotFound, "message not found")
			}
			return storage.Attachment{}, fmt.Errorf("attachment: lookup message: %w", err)
		}
		if msg.WorkspaceID != pending.WorkspaceID || msg.ChannelID != pending.ChannelID {
			return storage.Attachment{}, apierrors.New(apierrors.KindInvalidInput, "message is not in the upload's workspace/channel")
		}
		record.MessageID = messageID
	}

	created, err := f.store.CreateAttachment(ctx, record)
	if err != nil {
		return storage.Attachment{}, fmt.Errorf("attachment: create attachment: %w", err)
	}

	if messageID != nil {
		if err := f.store.LinkAttachmentToMessage(ctx, created.ID, *messageID); err != nil {
			return storage.Attachment{}, fmt.Errorf("attachment: link to message: %w", err)
		}
		f.bus.Publish(ctx, eventbus.Event{
			Type:        eventbus.EventMessageUpdated,
			WorkspaceID: created.WorkspaceID,
			ChannelID:   &created.ChannelID,
			ServerTS:    now,
			Payload:     messageUpdatedPayload(*messageID, created.ID),
		})
	}

	f.audit.Record(ctx, actor.WorkspaceID, actor.UserID, storage.ActionAttachmentCommitted, "attachment", created.ID.String(), map[string]any{
		"filename": created.Filename,
		"size":     created.SizeBytes,
	})

	return created, nil
}

// Get returns the attachment plus a freshly minted 600s download URL.
func (f *Flow) Get(ctx context.Context, actor access.Actor, attachmentID uuid.UUID) (DownloadResult, error) {
	a, err := f.store.GetAttachmentByID(ctx, attachmentID)
	if err != nil {
		if err == storage.ErrNotFound {
			return DownloadResult{}, apierrors.New(apierrors.KindNotFound, "attachment not found")
		}
		return DownloadResult{}, fmt.Errorf("attachment: lookup: %w", err)
	}
	if a.WorkspaceID != actor.WorkspaceID {
		return DownloadResult{}, apierrors.New(apierrors.KindNotFound, "attachment not found")
	}

	url, err := f.provider.PresignGet(ctx, a.StorageBucket, a.StorageKey, downloadTTL)
	if err != nil {
		return DownloadResult{}, fmt.Errorf("attachment: presign get: %w", err)
	}
	return DownloadResult{Attachment: a, DownloadURL: url}, nil
}
