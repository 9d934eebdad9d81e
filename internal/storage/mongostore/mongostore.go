// Package mongostore is the document-store Storage backend
// (PERSISTENCE_BACKEND=mongo), backed by go.mongodb.org/mongo-driver. It
// satisfies the same storage.Store contract as memstore, including the
// literal cursor pagination format.
package mongostore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/galynx-chat/galynx-server/internal/storage"
)

const (
	collUsers           = "users"
	collWorkspaces      = "workspaces"
	collMemberships     = "workspace_members"
	collChannels        = "channels"
	collChannelMembers  = "channel_members"
	collMessages        = "messages"
	collReactions       = "reactions"
	collAttachments     = "attachments"
	collPendingUploads  = "pending_uploads"
	collRefreshSessions = "refresh_sessions"
	collAudit           = "audit_entries"
	collIdempotency     = "idempotency_records"
)

// Store is a go.mongodb.org/mongo-driver backed implementation of
// storage.Store.
type Store struct {
	db *mongo.Database
}

// New wraps an already-connected *mongo.Database.
func New(db *mongo.Database) *Store {
	return &Store{db: db}
}

// Ping round-trips a server selection against the underlying client.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, nil)
}

// EnsureIndexes creates the unique indexes the data model requires: email,
// (workspace_id, name) on channels, (workspace_id, user_id) on memberships,
// and (message_id, emoji, user_id) on reactions. Call once at startup.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexModels := map[string][]mongo.IndexModel{
		collUsers: {{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		collMemberships: {{
			Keys:    bson.D{{Key: "workspace_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		collChannels: {{
			Keys:    bson.D{{Key: "workspace_id", Value: 1}, {Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		collReactions: {{
			Keys:    bson.D{{Key: "message_id", Value: 1}, {Key: "emoji", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		collRefreshSessions: {{
			Keys:    bson.D{{Key: "token_hash", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		collMessages: {{
			Keys: bson.D{{Key: "channel_id", Value: 1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: -1}},
		}},
	}

	for coll, models := range indexModels {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes for %s: %w", coll, err)
		}
	}
	return nil
}

func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return storage.ErrUniqueViolation
	}
	return fmt.Errorf("%w: %v", storage.ErrTransient, err)
}

func mapReadError(err error) error {
	if err == nil {
		return nil
	}
	if err == mongo.ErrNoDocuments {
		return storage.ErrNotFound
	}
	return fmt.Errorf("%w: %v", storage.ErrTransient, err)
}

var _ storage.Store = (*Store)(nil)
