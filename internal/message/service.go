// Package message implements create/edit/delete and the channel/thread
// listing and reaction operations, grounded in the prior separation of
// a sanitizing create path from a thin read/list path, generalised from
// uncord's text-channel messages to galynx's threaded messages and
// reactions.
package message

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/galynx-chat/galynx-server/internal/access"
	"github.com/galynx-chat/galynx-server/internal/apierrors"
	"github.com/galynx-chat/galynx-server/internal/audit"
	"github.com/galynx-chat/galynx-server/internal/eventbus"
	"github.com/galynx-chat/galynx-server/internal/identitytime"
	"github.com/galynx-chat/galynx-server/internal/storage"
)

// MaxBodyBytes is the hard cap on a message body.
const MaxBodyBytes = 32 * 1024

// idempotencyTTLMS is how long a client_msg_id dedup record is retained,
// the minimum idempotency record retention.
const idempotencyTTLMS = 5 * 60 * 1000

// Service implements MessageService.
type Service struct {
	store  storage.Store
	access *access.Control
	gen    identitytime.Generator
	clock  identitytime.Clock
	bus    *eventbus.Bus
	audit  *audit.Recorder
	log    zerolog.Logger
	policy *bluemonday.Policy
}

// New creates a Service. It builds bluemonday's UGCPolicy to sanitize
// body_md as user-generated content, matching the established reliance on bluemonday for any text
// that is echoed back to other users' clients.
func New(store storage.Store, ctl *access.Control, gen identitytime.Generator, clock identitytime.Clock, bus *eventbus.Bus, recorder *audit.Recorder, log zerolog.Logger) *Service {
	return &Service{
		store: store, access: ctl, gen: gen, clock: clock, bus: bus,
		audit: recorder, log: log, policy: bluemonday.UGCPolicy(),
	}
}

// CreatedMessage is returned by Create, distinguishing a fresh persist from
// a replayed idempotent hit.
type CreatedMessage struct {
	Message storage.Message
	Deduped bool
}

// Create persists a new message, optionally as a thread reply, with
// client_msg_id idempotency. channel must already have been access-checked
// by the caller via access.Control.CheckChannelAccess (RealtimeEngine and
// the HTTP handlers both do this before dispatching here).
func (s *Service) Create(ctx context.Context, actor access.Actor, channel storage.Channel, bodyMD string, threadRootID *uuid.UUID, clientMsgID string) (CreatedMessage, error) {
	bodyMD = strings.TrimSpace(bodyMD)
	if bodyMD == "" {
		return CreatedMessage{}, apierrors.New(apierrors.KindInvalidInput, "body_md must not be empty")
	}
	if len(bodyMD) > MaxBodyBytes {
		return CreatedMessage{}, apierrors.New(apierrors.KindInvalidInput, "body_md exceeds 32 KiB")
	}
	bodyMD = s.policy.Sanitize(bodyMD)

	var idemKey storage.IdempotencyKey
	hasIdem := clientMsgID != ""
	if hasIdem {
		idemKey = storage.IdempotencyKey{
			WorkspaceID: actor.WorkspaceID,
			UserID:      actor.UserID,
			ChannelID:   channel.ID,
			Command:     "create_message",
			ClientMsgID: clientMsgID,
		}
		if rec, ok, err := s.store.GetIdempotent(ctx, idemKey); err != nil {
			return CreatedMessage{}, fmt.Errorf("message: check idempotency: %w", err)
		} else if ok {
			var cached storage.Message
			if err := json.Unmarshal(rec.Result, &cached); err != nil {
				return CreatedMessage{}, fmt.Errorf("message: decode cached result: %w", err)
			}
			return CreatedMessage{Message: cached, Deduped: true}, nil
		}
	}

	if threadRootID != nil {
		root, err := s.store.GetMessageByID(ctx, *threadRootID)
		if err != nil {
			if err == storage.ErrNotFound {
				return CreatedMessage{}, apierrors.New(apierrors.KindInvalidInput, "thread_root_id does not exist")
			}
			return CreatedMessage{}, fmt.Errorf("message: lookup thread root: %w", err)
		}
		if root.ChannelID != channel.ID || root.WorkspaceID != channel.WorkspaceID || root.ThreadRootID != nil {
			return CreatedMessage{}, apierrors.New(apierrors.KindInvalidInput, "thread_root_id is not a top-level message in this channel")
		}
	}

	id, err := s.gen.New()
	if err != nil {
		return CreatedMessage{}, fmt.Errorf("message: allocate id: %w", err)
	}
	now := s.clock.NowMS()

	msg := storage.Message{
		ID:           id,
		WorkspaceID:  channel.WorkspaceID,
		ChannelID:    channel.ID,
		SenderID:     actor.UserID,
		BodyMD:       bodyMD,
		ThreadRootID: threadRootID,
		CreatedAt:    now,
	}
	created, err := s.store.CreateMessage(ctx, msg)
	if err != nil {
		return CreatedMessage{}, fmt.Errorf("message: create: %w", err)
	}

	if hasIdem {
		payload, _ := json.Marshal(created)
		if err := s.store.PutIdempotent(ctx, storage.IdempotencyRecord{Key: idemKey, Result: payload, StoredAt: now}, idempotencyTTLMS); err != nil {
			s.log.Warn().Err(err).Msg("message: failed to persist idempotency record")
		}
	}

	s.audit.Record(ctx, actor.WorkspaceID, actor.UserID, storage.ActionMessageCreated, "message", created.ID.String(), nil)

	s.bus.Publish(ctx, eventbus.Event{
		Type:        eventbus.EventMessageCreated,
		WorkspaceID: created.WorkspaceID,
		ChannelID:   &created.ChannelID,
		ServerTS:    now,
		Payload:     marshalMessage(created),
	})
	if threadRootID != nil {
		s.publishThreadUpdated(ctx, created.WorkspaceID, created.ChannelID, *threadRootID, now)
	}

	return CreatedMessage{Message: created}, nil
}

// Edit updates a message's body; only the author may edit, and a deleted
// message cannot be edited.
func (s *Service) Edit(ctx context.Context, actor access.Actor, id uuid.UUID, newBody string) (storage.Message, error) {
	msg, err := s.store.GetMessageByID(ctx, id)
	if err != nil {
		if err == storage.ErrNotFound {
			return storage.Message{}, apierrors.New(apierrors.KindNotFound, "message not found")
		}
		return storage.Message{}, fmt.Errorf("message: lookup: %w", err)
	}
	if err := s.access.CheckEditMessage(actor, msg); err != nil {
		return storage.Message{}, err
	}
	if msg.DeletedAt != nil {
		return storage.Message{}, apierrors.New(apierrors.KindInvalidInput, "cannot edit a deleted message")
	}

	newBody = strings.TrimSpace(newBody)
	if newBody == "" {
		return storage.Message{}, apierrors.New(apierrors.KindInvalidInput, "body_md must not be empty")
	}
	if len(newBody) > MaxBodyBytes {
		return storage.Message{}, apierrors.New(apierrors.KindInvalidInput, "body_md exceeds 32 KiB")
	}
	newBody = s.policy.Sanitize(newBody)

	now := s.clock.NowMS()
	updated, err := s.store.UpdateMessageBody(ctx, id, newBody, now)
	if err != nil {
		return storage.Message{}, fmt.Errorf("message: update body: %w", err)
	}

	s.audit.Record(ctx, actor.WorkspaceID, actor.UserID, storage.ActionMessageUpdated, "message", updated.ID.String(), nil)

	s.bus.Publish(ctx, eventbus.Event{
		Type:        eventbus.EventMessageUpdated,
		WorkspaceID: updated.WorkspaceID,
		ChannelID:   &updated.ChannelID,
		ServerTS:    now,
		Payload:     marshalMessage(updated),
	})
	return updated, nil
}

// SoftDelete blanks a message's body and sets deleted_at; the author or
// any owner/admin may delete.
func (s *Service) SoftDelete(ctx context.Context, actor access.Actor, id uuid.UUID) (storage.Message, error) {
	msg, err := s.store.GetMessageByID(ctx, id)
	if err != nil {
		if err == storage.ErrNotFound {
			return storage.Message{}, apierrors.New(apierrors.KindNotFound, "message not found")
		}
		return storage.Message{}, fmt.Errorf("message: lookup: %w", err)
	}
	if err := s.access.CheckDeleteMessage(actor, msg); err != nil {
		return storage.Message{}, err
	}

	now := s.clock.NowMS()
	deleted, err := s.store.SoftDeleteMessage(ctx, id, now)
	if err != nil {
		return storage.Message{}, fmt.Errorf("message: soft delete: %w", err)
	}

	s.audit.Record(ctx, actor.WorkspaceID, actor.UserID, storage.ActionMessageDeleted, "message", id.String(), nil)

	s.bus.Publish(ctx, eventbus.Event{
		Type:        eventbus.EventMessageDeleted,
		WorkspaceID: deleted.WorkspaceID,
		ChannelID:   &deleted.ChannelID,
		ServerTS:    now,
		Payload:     marshalMessage(deleted),
	})
	return deleted, nil
}

// ListChannelMessages returns a cursor page of a channel's top-level and
// threaded messages, newest first.
func (s *Service) ListChannelMessages(ctx context.Context, channelID uuid.UUID, cursor *storage.Cursor, limit int) (storage.Page[storage.Message], error) {
	return s.store.ListChannelMessages(ctx, channelID, cursor, limit)
}

// ListThreadReplies returns a cursor page of replies to rootID.
func (s *Service) ListThreadReplies(ctx context.Context, rootID uuid.UUID, cursor *storage.Cursor, limit int) (storage.Page[storage.Message], error) {
	return s.store.ListThreadReplies(ctx, rootID, cursor, limit)
}

// GetThreadSummary returns the derived reply_count/last_reply_at/participants
// for a thread root.
func (s *Service) GetThreadSummary(ctx context.Context, rootID uuid.UUID) (storage.ThreadSummary, error) {
	return s.store.GetThreadSummary(ctx, rootID)
}

// ReplyInThread is Create scoped to an existing thread root, matching
// the distinct reply_in_thread operation name.
func (s *Service) ReplyInThread(ctx context.Context, actor access.Actor, channel storage.Channel, rootID uuid.UUID, bodyMD, clientMsgID string) (CreatedMessage, error) {
	return s.Create(ctx, actor, channel, bodyMD, &rootID, clientMsgID)
}

func (s *Service) publishThreadUpdated(ctx context.Context, workspaceID, channelID, rootID uuid.UUID, now uint64) {
	summary, err := s.store.GetThreadSummary(ctx, rootID)
	if err != nil {
		s.log.Warn().Err(err).Msg("message: failed to compute thread summary for THREAD_UPDATED")
		return
	}
	payload, _ := json.Marshal(summary)
	s.bus.Publish(ctx, eventbus.Event{
		Type:        eventbus.EventThreadUpdated,
		WorkspaceID: workspaceID,
		ChannelID:   &channelID,
		ServerTS:    now,
		Payload:     payload,
	})
}

func marshalMessage(m storage.Message) []byte {
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(m)
	return bytes.TrimRight(buf.Bytes(), "\n")
}
