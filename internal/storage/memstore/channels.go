package memstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/galynx-chat/galynx-server/internal/storage"
)

func (s *Store) CreateChannel(_ context.Context, c storage.Channel) (storage.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := channelNameKey{workspaceID: c.WorkspaceID, name: c.Name}
	if _, exists := s.channelsByName[key]; exists {
		return storage.Channel{}, storage.ErrUniqueViolation
	}
	s.channels[c.ID] = c
	s.channelsByName[key] = c.ID
	return c, nil
}

func (s *Store) GetChannelByID(_ context.Context, id uuid.UUID) (storage.Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.channels[id]
	if !ok {
		return storage.Channel{}, storage.ErrNotFound
	}
	return c, nil
}

func (s *Store) ListChannels(_ context.Context, workspaceID uuid.UUID) ([]storage.Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []storage.Channel
	for _, c := range s.channels {
		if c.WorkspaceID == workspaceID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) DeleteChannel(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.channels[id]
	if !ok {
		return storage.ErrNotFound
	}
	delete(s.channels, id)
	delete(s.channelsByName, channelNameKey{workspaceID: c.WorkspaceID, name: c.Name})
	delete(s.channelMembers, id)
	return nil
}

func (s *Store) AddChannelMember(_ context.Context, m storage.ChannelMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	members, ok := s.channelMembers[m.ChannelID]
	if !ok {
		members = make(map[uuid.UUID]struct{})
		s.channelMembers[m.ChannelID] = members
	}
	members[m.UserID] = struct{}{}
	return nil
}

func (s *Store) RemoveChannelMember(_ context.Context, channelID, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if members, ok := s.channelMembers[channelID]; ok {
		delete(members, userID)
	}
	return nil
}

func (s *Store) IsChannelMember(_ context.Context, channelID, userID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members, ok := s.channelMembers[channelID]
	if !ok {
		return false, nil
	}
	_, isMember := members[userID]
	return isMember, nil
}

func (s *Store) ListChannelMembers(_ context.Context, channelID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := s.channelMembers[channelID]
	out := make([]uuid.UUID, 0, len(members))
	for id := range members {
		out = append(out, id)
	}
	return out, nil
}
