package mongostore

import (
	"context"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/galynx-chat/galynx-server/internal/storage"
)

func (s *Store) CreatePendingUpload(ctx context.Context, p storage.PendingUpload) (storage.PendingUpload, error) {
	if _, err := s.db.Collection(collPendingUploads).InsertOne(ctx, toPendingUploadDoc(p)); err != nil {
		return storage.PendingUpload{}, mapWriteError(err)
	}
	return p, nil
}

func (s *Store) ConsumePendingUpload(ctx context.Context, uploadID uuid.UUID, now uint64) (storage.PendingUpload, error) {
	res := s.db.Collection(collPendingUploads).FindOneAndDelete(ctx, bson.M{"_id": uploadID.String()})
	var doc pendingUploadDoc
	if err := res.Decode(&doc); err != nil {
		return storage.PendingUpload{}, mapReadError(err)
	}
	if now > doc.ExpiresAt {
		return storage.PendingUpload{}, storage.ErrNotFound
	}
	return doc.toDomain(), nil
}

func (s *Store) CreateAttachment(ctx context.Context, a storage.Attachment) (storage.Attachment, error) {
	if _, err := s.db.Collection(collAttachments).InsertOne(ctx, toAttachmentDoc(a)); err != nil {
		return storage.Attachment{}, mapWriteError(err)
	}
	return a, nil
}

func (s *Store) GetAttachmentByID(ctx context.Context, id uuid.UUID) (storage.Attachment, error) {
	var doc attachmentDoc
	err := s.db.Collection(collAttachments).FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err != nil {
		return storage.Attachment{}, mapReadError(err)
	}
	return doc.toDomain(), nil
}

func (s *Store) LinkAttachmentToMessage(ctx context.Context, id, messageID uuid.UUID) error {
	res, err := s.db.Collection(collAttachments).UpdateOne(ctx,
		bson.M{"_id": id.String()},
		bson.M{"$set": bson.M{"message_id": messageID.String()}})
	if err != nil {
		return mapWriteError(err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) PurgeExpiredUploads(ctx context.Context, now uint64) (int, error) {
	res, err := s.db.Collection(collPendingUploads).DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": now}})
	if err != nil {
		return 0, mapWriteError(err)
	}
	return int(res.DeletedCount), nil
}
