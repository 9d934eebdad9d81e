package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/galynx-chat/galynx-server/internal/storage"
)

func (s *Store) GetIdempotent(ctx context.Context, key storage.IdempotencyKey) (storage.IdempotencyRecord, bool, error) {
	var doc idempotencyDoc
	err := s.db.Collection(collIdempotency).FindOne(ctx, bson.M{"_id": idempotencyDocID(key)}).Decode(&doc)
	if err != nil {
		if err := mapReadError(err); err == storage.ErrNotFound {
			return storage.IdempotencyRecord{}, false, nil
		} else {
			return storage.IdempotencyRecord{}, false, err
		}
	}
	return doc.toDomain(), true, nil
}

func (s *Store) PutIdempotent(ctx context.Context, rec storage.IdempotencyRecord, ttlMS uint64) error {
	doc := toIdempotencyDoc(rec, ttlMS)
	_, err := s.db.Collection(collIdempotency).ReplaceOne(ctx,
		bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return mapWriteError(err)
}
