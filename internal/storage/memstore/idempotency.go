package memstore

import (
	"context"

	"github.com/galynx-chat/galynx-server/internal/storage"
)

func (s *Store) GetIdempotent(_ context.Context, key storage.IdempotencyKey) (storage.IdempotencyRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.idempotent[key]
	if !ok {
		return storage.IdempotencyRecord{}, false, nil
	}
	return entry.record, true, nil
}

func (s *Store) PutIdempotent(_ context.Context, rec storage.IdempotencyRecord, ttlMS uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.idempotent[rec.Key] = idempotentEntry{
		record:    rec,
		expiresAt: rec.StoredAt + ttlMS,
	}
	return nil
}

// Sweep removes expired idempotency records given the current time. Exposed
// for the same background-purge loop that evicts expired PendingUploads.
func (s *Store) Sweep(nowMS uint64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for k, entry := range s.idempotent {
		if entry.expiresAt < nowMS {
			delete(s.idempotent, k)
			purged++
		}
	}
	return purged
}
