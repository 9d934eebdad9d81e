package memstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/galynx-chat/galynx-server/internal/storage"
)

func (s *Store) CreateMessage(_ context.Context, m storage.Message) (storage.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ThreadRootID != nil {
		root, ok := s.messages[*m.ThreadRootID]
		if !ok || root.ThreadRootID != nil || root.ChannelID != m.ChannelID {
			return storage.Message{}, storage.ErrNotFound
		}
	}
	s.messages[m.ID] = m
	return m, nil
}

func (s *Store) GetMessageByID(_ context.Context, id uuid.UUID) (storage.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.messages[id]
	if !ok {
		return storage.Message{}, storage.ErrNotFound
	}
	return redactDeleted(m), nil
}

func (s *Store) UpdateMessageBody(_ context.Context, id uuid.UUID, bodyMD string, editedAt uint64) (storage.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages[id]
	if !ok {
		return storage.Message{}, storage.ErrNotFound
	}
	m.BodyMD = bodyMD
	m.EditedAt = &editedAt
	s.messages[id] = m
	return m, nil
}

func (s *Store) SoftDeleteMessage(_ context.Context, id uuid.UUID, deletedAt uint64) (storage.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages[id]
	if !ok {
		return storage.Message{}, storage.ErrNotFound
	}
	m.DeletedAt = &deletedAt
	s.messages[id] = m
	return redactDeleted(m), nil
}

// redactDeleted replaces the body of a soft-deleted message with an empty
// string on read, per the soft-delete invariant. The stored record keeps
// its original body; this only affects what callers observe.
func redactDeleted(m storage.Message) storage.Message {
	if m.DeletedAt != nil {
		m.BodyMD = ""
	}
	return m
}

func (s *Store) ListChannelMessages(_ context.Context, channelID uuid.UUID, cursor *storage.Cursor, limit int) (storage.Page[storage.Message], error) {
	s.mu.RLock()
	var matched []storage.Message
	for _, m := range s.messages {
		if m.ChannelID == channelID {
			matched = append(matched, redactDeleted(m))
		}
	}
	s.mu.RUnlock()

	return paginate(matched,
		func(m storage.Message) uint64 { return m.CreatedAt },
		func(m storage.Message) uuid.UUID { return m.ID },
		cursor, limit), nil
}

func (s *Store) ListThreadReplies(_ context.Context, rootID uuid.UUID, cursor *storage.Cursor, limit int) (storage.Page[storage.Message], error) {
	s.mu.RLock()
	var matched []storage.Message
	for _, m := range s.messages {
		if m.ThreadRootID != nil && *m.ThreadRootID == rootID {
			matched = append(matched, redactDeleted(m))
		}
	}
	s.mu.RUnlock()

	return paginate(matched,
		func(m storage.Message) uint64 { return m.CreatedAt },
		func(m storage.Message) uuid.UUID { return m.ID },
		cursor, limit), nil
}

func (s *Store) GetThreadSummary(_ context.Context, rootID uuid.UUID) (storage.ThreadSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := storage.ThreadSummary{RootID: rootID}
	seen := make(map[uuid.UUID]struct{})
	var lastReply uint64
	for _, m := range s.messages {
		if m.ThreadRootID == nil || *m.ThreadRootID != rootID {
			continue
		}
		summary.ReplyCount++
		if m.CreatedAt > lastReply {
			lastReply = m.CreatedAt
		}
		// Open Question (ii)/(iii): soft-deleted replies count toward
		// reply_count but are excluded from participants.
		if m.DeletedAt == nil {
			if _, ok := seen[m.SenderID]; !ok {
				seen[m.SenderID] = struct{}{}
				summary.Participants = append(summary.Participants, m.SenderID)
			}
		}
	}
	if summary.ReplyCount > 0 {
		summary.LastReplyAt = &lastReply
	}
	return summary, nil
}
