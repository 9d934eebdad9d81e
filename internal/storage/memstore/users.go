package memstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/galynx-chat/galynx-server/internal/storage"
)

func (s *Store) CreateUser(_ context.Context, u storage.User) (storage.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := normaliseEmail(u.Email)
	if _, exists := s.usersByEmail[key]; exists {
		return storage.User{}, storage.ErrUniqueViolation
	}
	s.users[u.ID] = u
	s.usersByEmail[key] = u.ID
	return u, nil
}

func (s *Store) GetUserByID(_ context.Context, id uuid.UUID) (storage.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return storage.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (storage.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByEmail[normaliseEmail(email)]
	if !ok {
		return storage.User{}, storage.ErrNotFound
	}
	return s.users[id], nil
}

func (s *Store) ListUsers(_ context.Context, workspaceID uuid.UUID) ([]storage.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []storage.User
	for key, m := range s.memberships {
		if key.workspaceID != workspaceID {
			continue
		}
		if u, ok := s.users[m.UserID]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *Store) CreateMembership(_ context.Context, m storage.WorkspaceMember) (storage.WorkspaceMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := membershipKey{workspaceID: m.WorkspaceID, userID: m.UserID}
	if _, exists := s.memberships[key]; exists {
		return storage.WorkspaceMember{}, storage.ErrUniqueViolation
	}
	s.memberships[key] = m
	return m, nil
}

func (s *Store) GetMembership(_ context.Context, workspaceID, userID uuid.UUID) (storage.WorkspaceMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.memberships[membershipKey{workspaceID: workspaceID, userID: userID}]
	if !ok {
		return storage.WorkspaceMember{}, storage.ErrNotFound
	}
	return m, nil
}

func (s *Store) ListMemberships(_ context.Context, userID uuid.UUID) ([]storage.WorkspaceMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []storage.WorkspaceMember
	for key, m := range s.memberships {
		if key.userID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Store) ListMembers(_ context.Context, workspaceID uuid.UUID) ([]storage.WorkspaceMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []storage.WorkspaceMember
	for key, m := range s.memberships {
		if key.workspaceID == workspaceID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Store) CreateWorkspace(_ context.Context, w storage.Workspace) (storage.Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.workspaces[w.ID] = w
	return w, nil
}

func (s *Store) GetWorkspaceByID(_ context.Context, id uuid.UUID) (storage.Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.workspaces[id]
	if !ok {
		return storage.Workspace{}, storage.ErrNotFound
	}
	return w, nil
}
