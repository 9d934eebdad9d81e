package mongostore

import (
	"context"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/galynx-chat/galynx-server/internal/storage"
)

func (s *Store) CreateMessage(ctx context.Context, m storage.Message) (storage.Message, error) {
	if m.ThreadRootID != nil {
		root, err := s.GetMessageByID(ctx, *m.ThreadRootID)
		if err != nil {
			return storage.Message{}, storage.ErrNotFound
		}
		if root.ThreadRootID != nil || root.ChannelID != m.ChannelID {
			return storage.Message{}, storage.ErrNotFound
		}
	}
	if _, err := s.db.Collection(collMessages).InsertOne(ctx, toMessageDoc(m)); err != nil {
		return storage.Message{}, mapWriteError(err)
	}
	return m, nil
}

func (s *Store) GetMessageByID(ctx context.Context, id uuid.UUID) (storage.Message, error) {
	var doc messageDoc
	err := s.db.Collection(collMessages).FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err != nil {
		return storage.Message{}, mapReadError(err)
	}
	return doc.toDomain(), nil
}

func (s *Store) UpdateMessageBody(ctx context.Context, id uuid.UUID, bodyMD string, editedAt uint64) (storage.Message, error) {
	res := s.db.Collection(collMessages).FindOneAndUpdate(ctx,
		bson.M{"_id": id.String()},
		bson.M{"$set": bson.M{"body_md": bodyMD, "edited_at": editedAt}},
		options.FindOneAndUpdate().SetReturnDocument(options.After))
	var doc messageDoc
	if err := res.Decode(&doc); err != nil {
		return storage.Message{}, mapReadError(err)
	}
	return doc.toDomain(), nil
}

func (s *Store) SoftDeleteMessage(ctx context.Context, id uuid.UUID, deletedAt uint64) (storage.Message, error) {
	res := s.db.Collection(collMessages).FindOneAndUpdate(ctx,
		bson.M{"_id": id.String()},
		bson.M{"$set": bson.M{"deleted_at": deletedAt}},
		options.FindOneAndUpdate().SetReturnDocument(options.After))
	var doc messageDoc
	if err := res.Decode(&doc); err != nil {
		return storage.Message{}, mapReadError(err)
	}
	return doc.toDomain(), nil
}

func (s *Store) ListChannelMessages(ctx context.Context, channelID uuid.UUID, cursor *storage.Cursor, limit int) (storage.Page[storage.Message], error) {
	return s.listMessagesPage(ctx, bson.M{"channel_id": channelID.String()}, cursor, limit)
}

func (s *Store) ListThreadReplies(ctx context.Context, rootID uuid.UUID, cursor *storage.Cursor, limit int) (storage.Page[storage.Message], error) {
	return s.listMessagesPage(ctx, bson.M{"thread_root_id": rootID.String()}, cursor, limit)
}

// listMessagesPage issues the compound (created_at, _id) descending query
// matching the canonical cursor contract: with a cursor, only items strictly
// older than it are returned; limit+1 is fetched to probe for a next page.
func (s *Store) listMessagesPage(ctx context.Context, filter bson.M, cursor *storage.Cursor, limit int) (storage.Page[storage.Message], error) {
	limit = storage.ClampLimit(limit)

	if cursor != nil {
		filter["$or"] = bson.A{
			bson.M{"created_at": bson.M{"$lt": cursor.CreatedAt}},
			bson.M{"created_at": cursor.CreatedAt, "_id": bson.M{"$lt": cursor.ID.String()}},
		}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit) + 1)

	cur, err := s.db.Collection(collMessages).Find(ctx, filter, opts)
	if err != nil {
		return storage.Page[storage.Message]{}, mapReadError(err)
	}
	defer cur.Close(ctx)

	var docs []messageDoc
	if err := cur.All(ctx, &docs); err != nil {
		return storage.Page[storage.Message]{}, mapReadError(err)
	}

	page := storage.Page[storage.Message]{}
	n := len(docs)
	if n > limit {
		n = limit
	}
	page.Items = make([]storage.Message, n)
	for i := 0; i < n; i++ {
		page.Items[i] = docs[i].toDomain()
	}
	if len(docs) > limit {
		last := page.Items[len(page.Items)-1]
		next := storage.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
		page.NextCursor = &next
	}
	return page, nil
}

func (s *Store) GetThreadSummary(ctx context.Context, rootID uuid.UUID) (storage.ThreadSummary, error) {
	cur, err := s.db.Collection(collMessages).Find(ctx, bson.M{"thread_root_id": rootID.String()})
	if err != nil {
		return storage.ThreadSummary{}, mapReadError(err)
	}
	defer cur.Close(ctx)

	summary := storage.ThreadSummary{RootID: rootID}
	seen := make(map[string]struct{})
	var lastReply uint64
	for cur.Next(ctx) {
		var doc messageDoc
		if err := cur.Decode(&doc); err != nil {
			return storage.ThreadSummary{}, mapReadError(err)
		}
		summary.ReplyCount++
		if doc.CreatedAt > lastReply {
			lastReply = doc.CreatedAt
		}
		if doc.DeletedAt == nil {
			if _, ok := seen[doc.SenderID]; !ok {
				seen[doc.SenderID] = struct{}{}
				summary.Participants = append(summary.Participants, uuid.MustParse(doc.SenderID))
			}
		}
	}
	if summary.ReplyCount > 0 {
		summary.LastReplyAt = &lastReply
	}
	return summary, nil
}
