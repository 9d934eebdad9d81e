package mongostore

import (
	"context"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/galynx-chat/galynx-server/internal/storage"
)

func (s *Store) AppendAuditEntry(ctx context.Context, e storage.AuditEntry) error {
	_, err := s.db.Collection(collAudit).InsertOne(ctx, toAuditEntryDoc(e))
	return mapWriteError(err)
}

func (s *Store) ListAuditEntries(ctx context.Context, workspaceID uuid.UUID, cursor *storage.Cursor, limit int) (storage.Page[storage.AuditEntry], error) {
	limit = storage.ClampLimit(limit)

	filter := bson.M{"workspace_id": workspaceID.String()}
	if cursor != nil {
		filter["$or"] = bson.A{
			bson.M{"created_at": bson.M{"$lt": cursor.CreatedAt}},
			bson.M{"created_at": cursor.CreatedAt, "_id": bson.M{"$lt": cursor.ID.String()}},
		}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit) + 1)

	cur, err := s.db.Collection(collAudit).Find(ctx, filter, opts)
	if err != nil {
		return storage.Page[storage.AuditEntry]{}, mapReadError(err)
	}
	defer cur.Close(ctx)

	var docs []auditEntryDoc
	if err := cur.All(ctx, &docs); err != nil {
		return storage.Page[storage.AuditEntry]{}, mapReadError(err)
	}

	page := storage.Page[storage.AuditEntry]{}
	n := len(docs)
	if n > limit {
		n = limit
	}
	page.Items = make([]storage.AuditEntry, n)
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
