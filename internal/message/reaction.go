package message

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/galynx-chat/galynx-server/internal/access"
	"github.com/galynx-chat/galynx-server/internal/apierrors"
	"github.com/galynx-chat/galynx-server/internal/eventbus"
	"github.com/galynx-chat/galynx-server/internal/storage"
)

// reactionUpdatedPayload is what REACTION_UPDATED carries: the message it
// applies to and the aggregated per-emoji counts.
type reactionUpdatedPayload struct {
	MessageID uuid.UUID      `json:"message_id"`
	Counts    map[string]int `json:"counts"`
}

// AddReaction is idempotent: a repeat add of the same (message, emoji,
// user) returns success without creating a duplicate record.
func (s *Service) AddReaction(ctx context.Context, actor access.Actor, messageID uuid.UUID, emoji string) error {
	msg, err := s.store.GetMessageByID(ctx, messageID)
	if err != nil {
		if err == storage.ErrNotFound {
			return apierrors.New(apierrors.KindNotFound, "message not found")
		}
		return fmt.Errorf("message: lookup for reaction: %w", err)
	}
	if msg.WorkspaceID != actor.WorkspaceID {
		return apierrors.New(apierrors.KindNotFound, "message not found")
	}
	if emoji == "" {
		return apierrors.New(apierrors.KindInvalidInput, "emoji must not be empty")
	}

	now := s.clock.NowMS()
	if _, err := s.store.AddReaction(ctx, storage.Reaction{MessageID: messageID, Emoji: emoji, UserID: actor.UserID, CreatedAt: now}); err != nil {
		return fmt.Errorf("message: add reaction: %w", err)
	}

	return s.publishReactionUpdated(ctx, msg, now)
}

// RemoveReaction is idempotent: removing a reaction that doesn't exist is
// a no-op success.
func (s *Service) RemoveReaction(ctx context.Context, actor access.Actor, messageID uuid.UUID, emoji string) error {
	msg, err := s.store.GetMessageByID(ctx, messageID)
	if err != nil {
		if err == storage.ErrNotFound {
			return apierrors.New(apierrors.KindNotFound, "message not found")
		}
		return fmt.Errorf("message: lookup for reaction: %w", err)
	}
	if msg.WorkspaceID != actor.WorkspaceID {
		return apierrors.New(apierrors.KindNotFound, "message not found")
	}

	if _, err := s.store.RemoveReaction(ctx, messageID, emoji, actor.UserID); err != nil {
		return fmt.Errorf("message: remove reaction: %w", err)
	}

	return s.publishReactionUpdated(ctx, msg, s.clock.NowMS())
}

func (s *Service) publishReactionUpdated(ctx context.Context, msg storage.Message, now uint64) error {
	counts, err := s.store.CountReactions(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("message: count reactions: %w", err)
	}
	payload, _ := json.Marshal(reactionUpdatedPayload{MessageID: msg.ID, Counts: counts})

	s.bus.Publish(ctx, eventbus.Event{
		Type:        eventbus.EventReactionUpdated,
		WorkspaceID: msg.WorkspaceID,
		ChannelID:   &msg.ChannelID,
		ServerTS:    now,
		Payload:     payload,
	})
	return nil
}
