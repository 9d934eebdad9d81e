package memstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/galynx-chat/galynx-server/internal/storage"
)

func (s *Store) CreateRefreshSession(_ context.Context, rs storage.RefreshSession) (storage.RefreshSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.refreshSessionsIdx[rs.TokenHash]; exists {
		return storage.RefreshSession{}, storage.ErrUniqueViolation
	}
	s.refreshSessions[rs.ID] = rs
	s.refreshSessionsIdx[rs.TokenHash] = rs.ID
	return rs, nil
}

func (s *Store) GetRefreshSessionByHash(_ context.Context, tokenHash string) (storage.RefreshSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.refreshSessionsIdx[tokenHash]
	if !ok {
		return storage.RefreshSession{}, storage.ErrNotFound
	}
	return s.refreshSessions[id], nil
}

func (s *Store) RevokeRefreshSession(_ context.Context, id uuid.UUID, revokedAt uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rs, ok := s.refreshSessions[id]
	if !ok {
		return storage.ErrNotFound
	}
	if rs.RevokedAt == nil {
		rs.RevokedAt = &revokedAt
		s.refreshSessions[id] = rs
	}
	return nil
}

// RevokeChain revokes every session reachable from id by following
// rotated_from links in either direction, so that reuse of any token in the
// chain invalidates the entire chain, not just its tail.
func (s *Store) RevokeChain(_ context.Context, id uuid.UUID, revokedAt uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.refreshSessions[id]; !ok {
		return storage.ErrNotFound
	}

	visited := make(map[uuid.UUID]struct{})
	frontier := []uuid.UUID{id}
	for len(frontier) > 0 {
		current := frontier[0]
		frontier = frontier[1:]
		if _, seen := visited[current]; seen {
			continue
		}
		visited[current] = struct{}{}

		rs, ok := s.refreshSessions[current]
		if !ok {
			continue
		}
		if rs.RotatedFrom != nil {
			frontier = append(frontier, *rs.RotatedFrom)
		}
		for _, other := range s.refreshSessions {
			if other.RotatedFrom != nil && *other.RotatedFrom == current {
				frontier = append(frontier, other.ID)
			}
		}
	}

	for sessionID := range visited {
		rs := s.refreshSessions[sessionID]
		if rs.RevokedAt == nil {
			rs.RevokedAt = &revokedAt
			s.refreshSessions[sessionID] = rs
		}
	}
	return nil
}
