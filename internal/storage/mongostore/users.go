package mongostore

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"github.com/google/uuid"

	"github.com/galynx-chat/galynx-server/internal/storage"
)

func (s *Store) CreateUser(ctx context.Context, u storage.User) (storage.User, error) {
	doc := toUserDoc(u)
	doc.Email = strings.ToLower(strings.TrimSpace(doc.Email))
	if _, err := s.db.Collection(collUsers).InsertOne(ctx, doc); err != nil {
		return storage.User{}, mapWriteError(err)
	}
	return u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (storage.User, error) {
	var doc userDoc
	err := s.db.Collection(collUsers).FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err != nil {
		return storage.User{}, mapReadError(err)
	}
	return doc.toDomain(), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (storage.User, error) {
	var doc userDoc
	err := s.db.Collection(collUsers).FindOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))}).Decode(&doc)
	if err != nil {
		return storage.User{}, mapReadError(err)
	}
	return doc.toDomain(), nil
}

func (s *Store) ListUsers(ctx context.Context, workspaceID uuid.UUID) ([]storage.User, error) {
	cur, err := s.db.Collection(collMemberships).Find(ctx, bson.M{"workspace_id": workspaceID.String()})
	if err != nil {
		return nil, mapReadError(err)
	}
	defer cur.Close(ctx)

	var userIDs []string
	for cur.Next(ctx) {
		var m membershipDoc
		if err := cur.Decode(&m); err != nil {
			return nil, mapReadError(err)
		}
		userIDs = append(userIDs, m.UserID)
	}

	userCur, err := s.db.Collection(collUsers).Find(ctx, bson.M{"_id": bson.M{"$in": userIDs}})
	if err != nil {
		return nil, mapReadError(err)
	}
	defer userCur.Close(ctx)

	var out []storage.User
	for userCur.Next(ctx) {
		var doc userDoc
		if err := userCur.Decode(&doc); err != nil {
			return nil, mapReadError(err)
		}
		out = append(out, doc.toDomain())
	}
	return out, nil
}

func (s *Store) CreateMembership(ctx context.Context, m storage.WorkspaceMember) (storage.WorkspaceMember, error) {
	if _, err := s.db.Collection(collMemberships).InsertOne(ctx, toMembershipDoc(m)); err != nil {
		return storage.WorkspaceMember{}, mapWriteError(err)
	}
	return m, nil
}

func (s *Store) GetMembership(ctx context.Context, workspaceID, userID uuid.UUID) (storage.WorkspaceMember, error) {
	var doc membershipDoc
	err := s.db.Collection(collMemberships).FindOne(ctx, bson.M{"workspace_id": workspaceID.String(), "user_id": userID.String()}).Decode(&doc)
	if err != nil {
		return storage.WorkspaceMember{}, mapReadError(err)
	}
	return doc.toDomain(), nil
}

func (s *Store) ListMemberships(ctx context.Context, userID uuid.UUID) ([]storage.WorkspaceMember, error) {
	return s.queryMemberships(ctx, bson.M{"user_id": userID.String()})
}

func (s *Store) ListMembers(ctx context.Context, workspaceID uuid.UUID) ([]storage.WorkspaceMember, error) {
	return s.queryMemberships(ctx, bson.M{"workspace_id": workspaceID.String()})
}

func (s *Store) queryMemberships(ctx context.Context, filter bson.M) ([]storage.WorkspaceMember, error) {
	cur, err := s.db.Collection(collMemberships).Find(ctx, filter)
	if err != nil {
		return nil, mapReadError(err)
	}
	defer cur.Close(ctx)

	var out []storage.WorkspaceMember
	for cur.Next(ctx) {
		var doc membershipDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, mapReadError(err)
		}
		out = append(out, doc.toDomain())
	}
	return out, nil
}

func (s *Store) CreateWorkspace(ctx context.Context, w storage.Workspace) (storage.Workspace, error) {
	if _, err := s.db.Collection(collWorkspaces).InsertOne(ctx, toWorkspaceDoc(w)); err != nil {
		return storage.Workspace{}, mapWriteError(err)
	}
	return w, nil
}

func (s *Store) GetWorkspaceByID(ctx context.Context, id uuid.UUID) (storage.Workspace, error) {
	var doc workspaceDoc
	err := s.db.Collection(collWorkspaces).FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err != nil {
		return storage.Workspace{}, mapReadError(err)
	}
	return doc.toDomain(), nil
}
