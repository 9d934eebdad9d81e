package memstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/galynx-chat/galynx-server/internal/storage"
)

func (s *Store) CreatePendingUpload(_ context.Context, p storage.PendingUpload) (storage.PendingUpload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pendingUploads[p.UploadID] = p
	return p, nil
}

func (s *Store) ConsumePendingUpload(_ context.Context, uploadID uuid.UUID, now uint64) (storage.PendingUpload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pendingUploads[uploadID]
	if !ok {
		return storage.PendingUpload{}, storage.ErrNotFound
	}
	if now > p.ExpiresAt {
		delete(s.pendingUploads, uploadID)
		return storage.PendingUpload{}, storage.ErrNotFound
	}
	delete(s.pendingUploads, uploadID)
	return p, nil
}

func (s *Store) CreateAttachment(_ context.Context, a storage.Attachment) (storage.Attachment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attachments[a.ID] = a
	return a, nil
}

func (s *Store) GetAttachmentByID(_ context.Context, id uuid.UUID) (storage.Attachment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.attachments[id]
	if !ok {
		return storage.Attachment{}, storage.ErrNotFound
	}
	return a, nil
}

func (s *Store) LinkAttachmentToMessage(_ context.Context, id, messageID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.attachments[id]
	if !ok {
		return storage.ErrNotFound
	}
	a.MessageID = &messageID
	s.attachments[id] = a
	return nil
}

func (s *Store) PurgeExpiredUploads(_ context.Context, now uint64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for id, p := range s.pendingUploads {
		if now > p.ExpiresAt {
			delete(s.pendingUploads, id)
			purged++
		}
	}
	return purged, nil
}
