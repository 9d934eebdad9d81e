package memstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/galynx-chat/galynx-server/internal/storage"
)

func (s *Store) AppendAuditEntry(_ context.Context, e storage.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.audit[e.ID] = e
	return nil
}

func (s *Store) ListAuditEntries(_ context.Context, workspaceID uuid.UUID, cursor *storage.Cursor, limit int) (storage.Page[storage.AuditEntry], error) {
	s.mu.RLock()
	var matched []storage.AuditEntry
	for _, e := range s.audit {
		if e.WorkspaceID == workspaceID {
			matched = append(matched, e)
		}
	}
	s.mu.RUnlock()

	return paginate(matched,
		func(e storage.AuditEntry) uint64 { return e.CreatedAt },
		func(e storage.AuditEntry) uuid.UUID { return e.ID },
		cursor, limit), nil
}
