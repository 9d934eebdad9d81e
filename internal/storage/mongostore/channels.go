package mongostore

import (
	"context"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/galynx-chat/galynx-server/internal/storage"
)

func (s *Store) CreateChannel(ctx context.Context, c storage.Channel) (storage.Channel, error) {
	if _, err := s.db.Collection(collChannels).InsertOne(ctx, toChannelDoc(c)); err != nil {
		return storage.Channel{}, mapWriteError(err)
	}
	return c, nil
}

func (s *Store) GetChannelByID(ctx context.Context, id uuid.UUID) (storage.Channel, error) {
	var doc channelDoc
	err := s.db.Collection(collChannels).FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err != nil {
		return storage.Channel{}, mapReadError(err)
	}
	return doc.toDomain(), nil
}

func (s *Store) ListChannels(ctx context.Context, workspaceID uuid.UUID) ([]storage.Channel, error) {
	cur, err := s.db.Collection(collChannels).Find(ctx, bson.M{"workspace_id": workspaceID.String()})
	if err != nil {
		return nil, mapReadError(err)
	}
	defer cur.Close(ctx)

	var out []storage.Channel
	for cur.Next(ctx) {
		var doc channelDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, mapReadError(err)
		}
		out = append(out, doc.toDomain())
	}
	return out, nil
}

func (s *Store) DeleteChannel(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.Collection(collChannels).DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return mapWriteError(err)
	}
	if res.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	_, _ = s.db.Collection(collChannelMembers).DeleteMany(ctx, bson.M{"channel_id": id.String()})
	return nil
}

func (s *Store) AddChannelMember(ctx context.Context, m storage.ChannelMember) error {
	filter := bson.M{"channel_id": m.ChannelID.String(), "user_id": m.UserID.String()}
	update := bson.M{"$setOnInsert": filter}
	opts := options.Update().SetUpsert(true)
	_, err := s.db.Collection(collChannelMembers).UpdateOne(ctx, filter, update, opts)
	return mapWriteError(err)
}

func (s *Store) RemoveChannelMember(ctx context.Context, channelID, userID uuid.UUID) error {
	_, err := s.db.Collection(collChannelMembers).DeleteOne(ctx, bson.M{"channel_id": channelID.String(), "user_id": userID.String()})
	return mapWriteError(err)
}

func (s *Store) IsChannelMember(ctx context.Context, channelID, userID uuid.UUID) (bool, error) {
	count, err := s.db.Collection(collChannelMembers).CountDocuments(ctx, bson.M{"channel_id": channelID.String(), "user_id": userID.String()})
	if err != nil {
		return false, mapReadError(err)
	}
	return count > 0, nil
}

func (s *Store) ListChannelMembers(ctx context.Context, channelID uuid.UUID) ([]uuid.UUID, error) {
	cur, err := s.db.Collection(collChannelMembers).Find(ctx, bson.M{"channel_id": channelID.String()})
	if err != nil {
		return nil, mapReadError(err)
	}
	defer cur.Close(ctx)

	var out []uuid.UUID
	for cur.Next(ctx) {
		var doc channelMemberDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, mapReadError(err)
		}
		out = append(out, uuid.MustParse(doc.UserID))
	}
	return out, nil
}
