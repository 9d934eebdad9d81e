package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/galynx-chat/galynx-server/internal/apierrors"
	"github.com/galynx-chat/galynx-server/internal/ratelimit"
	"github.com/galynx-chat/galynx-server/internal/storage"
)

// fetchPayload is the shared shape of FETCH_MORE and FETCH_THREAD.
type fetchPayload struct {
	ChannelID *uuid.UUID `json:"channel_id,omitempty"`
	RootID    *uuid.UUID `json:"root_id,omitempty"`
	Cursor    string     `json:"cursor,omitempty"`
	Limit     int        `json:"limit,omitempty"`
}

type sendMessagePayload struct {
	ChannelID    uuid.UUID  `json:"channel_id"`
	BodyMD       string     `json:"body_md"`
	ThreadRootID *uuid.UUID `json:"thread_root_id,omitempty"`
}

type editMessagePayload struct {
	MessageID uuid.UUID `json:"message_id"`
	BodyMD    string    `json:"body_md"`
}

type messageIDPayload struct {
	MessageID uuid.UUID `json:"message_id"`
}

type reactionPayload struct {
	MessageID uuid.UUID `json:"message_id"`
	Emoji     string    `json:"emoji"`
}

type sendMessageResult struct {
	Message storage.Message `json:"message"`
	Deduped bool            `json:"deduped"`
}

type threadFetchResult struct {
	Summary storage.ThreadSummary   `json:"summary"`
	Replies storage.Page[storage.Message] `json:"replies"`
}

// dispatch is the single entry point readPump calls for every decoded
// command frame. It rate-limits, replays cached ACKs for repeated
// client_msg_ids, runs the command, and always sends exactly one ACK or
// ERROR envelope back to the session.
func (e *Engine) dispatch(ctx context.Context, s *Session, cmd InboundCommand) {
	if cmd.ClientMsgID == "" {
		s.reply(cmd.ClientMsgID, nil, apierrors.New(apierrors.KindInvalidInput, "client_msg_id is required"))
		return
	}

	key := rateLimitKey("ws-command", s.actor.UserID.String())
	allowed, err := e.limiter.Allow(ctx, key, ratelimit.WSCommandPolicy.Limit, ratelimit.WSCommandPolicy.Window)
	if err != nil {
		e.log.Warn().Err(err).Msg("realtime: rate limiter unavailable, allowing command")
	} else if !allowed {
		s.reply(cmd.ClientMsgID, nil, apierrors.New(apierrors.KindRateLimited, "too many commands"))
		return
	}

	mutating := isMutatingCommand(cmd.Command)
	var idemKey storage.IdempotencyKey
	if mutating {
		idemKey = storage.IdempotencyKey{
			WorkspaceID: s.actor.WorkspaceID,
			UserID:      s.actor.UserID,
			Command:     cmd.Command,
			ClientMsgID: cmd.ClientMsgID,
		}
		if cached, ok := e.ack.get(idemKey); ok {
			s.reply(cmd.ClientMsgID, annotateDeduped(cached), nil)
			return
		}
	}

	payload, err := e.runCommand(ctx, s, cmd)
	if err != nil {
		s.reply(cmd.ClientMsgID, nil, err)
		return
	}

	if mutating && payload != nil {
		e.ack.put(idemKey, payload)
	}
	s.reply(cmd.ClientMsgID, payload, nil)
}

// annotateDeduped marks a replayed ACK payload as deduped so the client can
// tell a cached reply from a fresh execution.
func annotateDeduped(payload json.RawMessage) json.RawMessage {
	var m map[string]any
	if err := json.Unmarshal(payload, &m); err != nil {
		return payload
	}
	m["deduped"] = true
	annotated, err := json.Marshal(m)
	if err != nil {
		return payload
	}
	return annotated
}

func isMutatingCommand(command string) bool {
	switch command {
	case CmdSendMessage, CmdEditMessage, CmdDeleteMessage, CmdAddReaction, CmdRemoveReaction:
		return true
	default:
		return false
	}
}

func (e *Engine) runCommand(ctx context.Context, s *Session, cmd InboundCommand) (json.RawMessage, error) {
	switch cmd.Command {
	case CmdSendMessage:
		return e.handleSendMessage(ctx, s, cmd)
	case CmdEditMessage:
		return e.handleEditMessage(ctx, s, cmd)
	case CmdDeleteMessage:
		return e.handleDeleteMessage(ctx, s, cmd)
	case CmdAddReaction:
		return e.handleAddReaction(ctx, s, cmd)
	case CmdRemoveReaction:
		return e.handleRemoveReaction(ctx, s, cmd)
	case CmdFetchMore:
		return e.handleFetchMore(ctx, s, cmd)
	case CmdFetchThread:
		return e.handleFetchThread(ctx, s, cmd)
	default:
		return nil, apierrors.New(apierrors.KindInvalidInput, fmt.Sprintf("unknown command %q", cmd.Command))
	}
}

func (e *Engine) handleSendMessage(ctx context.Context, s *Session, cmd InboundCommand) (json.RawMessage, error) {
	var p sendMessagePayload
	if err := json.Unmarshal(cmd.Payload, &p); err != nil {
		return nil, apierrors.New(apierrors.KindInvalidInput, "malformed send_message payload")
	}

	channel, err := e.store.GetChannelByID(ctx, p.ChannelID)
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, apierrors.New(apierrors.KindNotFound, "channel not found")
		}
		return nil, fmt.Errorf("realtime: lookup channel: %w", err)
	}
	if err := e.access.CheckChannelAccess(ctx, s.actor, channel); err != nil {
		return nil, err
	}

	created, err := e.messages.Create(ctx, s.actor, channel, p.BodyMD, p.ThreadRootID, cmd.ClientMsgID)
	if err != nil {
		return nil, err
	}
	return json.Marshal(sendMessageResult{Message: created.Message, Deduped: created.Deduped})
}

func (e *Engine) handleEditMessage(ctx context.Context, s *Session, cmd InboundCommand) (json.RawMessage, error) {
	var p editMessagePayload
	if err := json.Unmarshal(cmd.Payload, &p); err != nil {
		return nil, apierrors.New(apierrors.KindInvalidInput, "malformed edit_message payload")
	}

	updated, err := e.messages.Edit(ctx, s.actor, p.MessageID, p.BodyMD)
	if err != nil {
		return nil, err
	}
	return json.Marshal(updated)
}

func (e *Engine) handleDeleteMessage(ctx context.Context, s *Session, cmd InboundCommand) (json.RawMessage, error) {
	var p messageIDPayload
	if err := json.Unmarshal(cmd.Payload, &p); err != nil {
		return nil, apierrors.New(apierrors.KindInvalidInput, "malformed delete_message payload")
	}

	deleted, err := e.messages.SoftDelete(ctx, s.actor, p.MessageID)
	if err != nil {
		return nil, err
	}
	return json.Marshal(deleted)
}

func (e *Engine) handleAddReaction(ctx context.Context, s *Session, cmd InboundCommand) (json.RawMessage, error) {
	var p reactionPayload
	if err := json.Unmarshal(cmd.Payload, &p); err != nil {
		return nil, apierrors.New(apierrors.KindInvalidInput, "malformed add_reaction payload")
	}
	if err := e.messages.AddReaction(ctx, s.actor, p.MessageID, p.Emoji); err != nil {
		return nil, err
	}
	return json.Marshal(p)
}

func (e *Engine) handleRemoveReaction(ctx context.Context, s *Session, cmd InboundCommand) (json.RawMessage, error) {
	var p reactionPayload
	if err := json.Unmarshal(cmd.Payload, &p); err != nil {
		return nil, apierrors.New(apierrors.KindInvalidInput, "malformed remove_reaction payload")
	}
	if err := e.messages.RemoveReaction(ctx, s.actor, p.MessageID, p.Emoji); err != nil {
		return nil, err
	}
	return json.Marshal(p)
}

func (e *Engine) handleFetchMore(ctx context.Context, s *Session, cmd InboundCommand) (json.RawMessage, error) {
	var p fetchPayload
	if err := json.Unmarshal(cmd.Payload, &p); err != nil {
		return nil, apierrors.New(apierrors.KindInvalidInput, "malformed fetch_more payload")
	}
	if p.ChannelID == nil {
		return nil, apierrors.New(apierrors.KindInvalidInput, "channel_id is required")
	}

	channel, err := e.store.GetChannelByID(ctx, *p.ChannelID)
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, apierrors.New(apierrors.KindNotFound, "channel not found")
		}
		return nil, fmt.Errorf("realtime: lookup channel: %w", err)
	}
	if err := e.access.CheckChannelAccess(ctx, s.actor, channel); err != nil {
		return nil, err
	}

	cursor, err := parseOptionalCursor(p.Cursor)
	if err != nil {
		return nil, err
	}

	page, err := e.messages.ListChannelMessages(ctx, *p.ChannelID, cursor, storage.ClampLimit(p.Limit))
	if err != nil {
		return nil, fmt.Errorf("realtime: list channel messages: %w", err)
	}
	return json.Marshal(page)
}

func (e *Engine) handleFetchThread(ctx context.Context, s *Session, cmd InboundCommand) (json.RawMessage, error) {
	var p fetchPayload
	if err := json.Unmarshal(cmd.Payload, &p); err != nil {
		return nil, apierrors.New(apierrors.KindInvalidInput, "malformed fetch_thread payload")
	}
	if p.RootID == nil {
		return nil, apierrors.New(apierrors.KindInvalidInput, "root_id is required")
	}

	root, err := e.store.GetMessageByID(ctx, *p.RootID)
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, apierrors.New(apierrors.KindNotFound, "thread root not found")
		}
		return nil, fmt.Errorf("realtime: lookup thread root: %w", err)
	}
	if root.WorkspaceID != s.actor.WorkspaceID {
		return nil, apierrors.New(apierrors.KindNotFound, "thread root not found")
	}
	channel, err := e.store.GetChannelByID(ctx, root.ChannelID)
	if err != nil {
		return nil, fmt.Errorf("realtime: lookup channel: %w", err)
	}
	if err := e.access.CheckChannelAccess(ctx, s.actor, channel); err != nil {
		return nil, err
	}

	cursor, err := parseOptionalCursor(p.Cursor)
	if err != nil {
		return nil, err
	}

	replies, err := e.messages.ListThreadReplies(ctx, *p.RootID, cursor, storage.ClampLimit(p.Limit))
	if err != nil {
		return nil, fmt.Errorf("realtime: list thread replies: %w", err)
	}
	summary, err := e.messages.GetThreadSummary(ctx, *p.RootID)
	if err != nil {
		return nil, fmt.Errorf("realtime: thread summary: %w", err)
	}
	return json.Marshal(threadFetchResult{Summary: summary, Replies: replies})
}

func parseOptionalCursor(s string) (*storage.Cursor, error) {
	if s == "" {
		return nil, nil
	}
	c, err := storage.ParseCursor(s)
	if err != nil {
		return nil, apierrors.New(apierrors.KindInvalidInput, "malformed cursor")
	}
	return &c, nil
}
