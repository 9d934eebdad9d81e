package mongostore

import (
	"context"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/galynx-chat/galynx-server/internal/storage"
)

func (s *Store) AddReaction(ctx context.Context, r storage.Reaction) (bool, error) {
	_, err := s.db.Collection(collReactions).InsertOne(ctx, toReactionDoc(r))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, mapWriteError(err)
	}
	return true, nil
}

func (s *Store) RemoveReaction(ctx context.Context, messageID uuid.UUID, emoji string, userID uuid.UUID) (bool, error) {
	res, err := s.db.Collection(collReactions).DeleteOne(ctx, bson.M{
		"message_id": messageID.String(),
		"emoji":      emoji,
		"user_id":    userID.String(),
	})
	if err != nil {
		return false, mapWriteError(err)
	}
	return res.DeletedCount > 0, nil
}

func (s *Store) CountReactions(ctx context.Context, messageID uuid.UUID) (map[string]int, error) {
	cur, err := s.db.Collection(collReactions).Find(ctx, bson.M{"message_id": messageID.String()})
	if err != nil {
		return nil, mapReadError(err)
	}
	defer cur.Close(ctx)

	counts := make(map[string]int)
	for cur.Next(ctx) {
		var doc reactionDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, mapReadError(err)
		}
		counts[doc.Emoji]++
	}
	return counts, nil
}
