package memstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/galynx-chat/galynx-server/internal/storage"
)

func (s *Store) AddReaction(_ context.Context, r storage.Reaction) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := reactionKey{messageID: r.MessageID, emoji: r.Emoji, userID: r.UserID}
	if _, exists := s.reactions[key]; exists {
		return false, nil
	}
	s.reactions[key] = r
	return true, nil
}

func (s *Store) RemoveReaction(_ context.Context, messageID uuid.UUID, emoji string, userID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := reactionKey{messageID: messageID, emoji: emoji, userID: userID}
	if _, exists := s.reactions[key]; !exists {
		return false, nil
	}
	delete(s.reactions, key)
	return true, nil
}

func (s *Store) CountReactions(_ context.Context, messageID uuid.UUID) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for key := range s.reactions {
		if key.messageID == messageID {
			counts[key.emoji]++
		}
	}
	return counts, nil
}
