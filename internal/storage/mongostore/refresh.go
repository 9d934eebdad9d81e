package mongostore

import (
	"context"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/galynx-chat/galynx-server/internal/storage"
)

func (s *Store) CreateRefreshSession(ctx context.Context, rs storage.RefreshSession) (storage.RefreshSession, error) {
	if _, err := s.db.Collection(collRefreshSessions).InsertOne(ctx, toRefreshSessionDoc(rs)); err != nil {
		return storage.RefreshSession{}, mapWriteError(err)
	}
	return rs, nil
}

func (s *Store) GetRefreshSessionByHash(ctx context.Context, tokenHash string) (storage.RefreshSession, error) {
	var doc refreshSessionDoc
	err := s.db.Collection(collRefreshSessions).FindOne(ctx, bson.M{"token_hash": tokenHash}).Decode(&doc)
	if err != nil {
		return storage.RefreshSession{}, mapReadError(err)
	}
	return doc.toDomain(), nil
}

func (s *Store) RevokeRefreshSession(ctx context.Context, id uuid.UUID, revokedAt uint64) error {
	res, err := s.db.Collection(collRefreshSessions).UpdateOne(ctx,
		bson.M{"_id": id.String(), "revoked_at": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"revoked_at": revokedAt}})
	if err != nil {
		return mapWriteError(err)
	}
	if res.MatchedCount == 0 {
		if err := s.db.Collection(collRefreshSessions).FindOne(ctx, bson.M{"_id": id.String()}).Err(); err != nil {
			return mapReadError(err)
		}
	}
	return nil
}

// RevokeChain walks rotated_from links in both directions starting from id
// and revokes every session reachable, so reuse of any token in a rotation
// chain invalidates the whole chain rather than just its tail.
func (s *Store) RevokeChain(ctx context.Context, id uuid.UUID, revokedAt uint64) error {
	coll := s.db.Collection(collRefreshSessions)

	var seed refreshSessionDoc
	if err := coll.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&seed); err != nil {
		return mapReadError(err)
	}

	visited := make(map[string]struct{})
	frontier := []string{id.String()}
	for len(frontier) > 0 {
		current := frontier[0]
		frontier = frontier[1:]
		if _, seen := visited[current]; seen {
			continue
		}
		visited[current] = struct{}{}

		var doc refreshSessionDoc
		if err := coll.FindOne(ctx, bson.M{"_id": current}).Decode(&doc); err != nil {
			continue
		}
		if doc.RotatedFrom != nil {
			frontier = append(frontier, *doc.RotatedFrom)
		}

		cur, err := coll.Find(ctx, bson.M{"rotated_from": current})
		if err != nil {
			return mapReadError(err)
		}
		var children []refreshSessionDoc
		decodeErr := cur.All(ctx, &children)
		cur.Close(ctx)
		if decodeErr != nil {
			return mapReadError(decodeErr)
		}
		for _, child := range children {
			frontier = append(frontier, child.ID)
		}
	}

	ids := make([]string, 0, len(visited))
	for id := range visited {
		ids = append(ids, id)
	}
	_, err := coll.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}, "revoked_at": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"revoked_at": revokedAt}})
	return mapWriteError(err)
}
