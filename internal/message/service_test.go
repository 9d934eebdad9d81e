package message_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/galynx-chat/galynx-server/internal/access"
	"github.com/galynx-chat/galynx-server/internal/audit"
	"github.com/galynx-chat/galynx-server/internal/eventbus"
	"github.com/galynx-chat/galynx-server/internal/identitytime"
	"github.com/galynx-chat/galynx-server/internal/message"
	"github.com/galynx-chat/galynx-server/internal/storage"
	"github.com/galynx-chat/galynx-server/internal/storage/memstore"
)

type stepClock struct{ ms uint64 }

func (c *stepClock) NowMS() uint64 {
	c.ms++
	return c.ms
}

func newTestService(t *testing.T) (*message.Service, storage.Store, storage.Channel, access.Actor) {
	t.Helper()
	store := memstore.New()
	gen := identitytime.UUIDv7Generator{}
	clock := &stepClock{ms: 1_700_000_000_000}
	bus := eventbus.New(zerolog.Nop())
	recorder := audit.New(store, gen, clock, zerolog.Nop())
	ctl := access.New(store)
	svc := message.New(store, ctl, gen, clock, bus, recorder, zerolog.Nop())

	ws := uuid.New()
	channel := storage.Channel{ID: uuid.New(), WorkspaceID: ws, Name: "general", CreatedAt: clock.NowMS()}
	if _, err := store.CreateChannel(context.Background(), channel); err != nil {
		t.Fatalf("create channel: %v", err)
	}
	actor := access.Actor{UserID: uuid.New(), WorkspaceID: ws, Role: storage.RoleMember}
	return svc, store, channel, actor
}

func TestCreate_RejectsEmptyBody(t *testing.T) {
	svc, _, channel, actor := newTestService(t)
	_, err := svc.Create(context.Background(), actor, channel, "   ", nil, "")
	if err == nil {
		t.Fatalf("expected error for empty body")
	}
}

func TestCreate_DedupesOnClientMsgID(t *testing.T) {
	svc, _, channel, actor := newTestService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, actor, channel, "hello", nil, "client-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.Deduped {
		t.Fatalf("first create should not be deduped")
	}

	second, err := svc.Create(ctx, actor, channel, "hello again, different body", nil, "client-1")
	if err != nil {
		t.Fatalf("create (dedup): %v", err)
	}
	if !second.Deduped {
		t.Fatalf("second create with same client_msg_id should be deduped")
	}
	if second.Message.ID != first.Message.ID {
		t.Fatalf("deduped create should return the original message")
	}
}

func TestEdit_OnlyAuthorCanEdit(t *testing.T) {
	svc, _, channel, actor := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, actor, channel, "original", nil, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	other := access.Actor{UserID: uuid.New(), WorkspaceID: actor.WorkspaceID, Role: storage.RoleMember}
	if err := tryEdit(svc, other, created.Message.ID); err != access.ErrForbidden {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	if _, err := svc.Edit(ctx, actor, created.Message.ID, "updated"); err != nil {
		t.Fatalf("author edit should succeed: %v", err)
	}
}

func tryEdit(svc *message.Service, actor access.Actor, id uuid.UUID) error {
	_, err := svc.Edit(context.Background(), actor, id, "hijacked")
	return err
}

func TestSoftDelete_AuthorOrAdmin(t *testing.T) {
	svc, _, channel, actor := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, actor, channel, "to be deleted", nil, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	other := access.Actor{UserID: uuid.New(), WorkspaceID: actor.WorkspaceID, Role: storage.RoleMember}
	if _, err := svc.SoftDelete(ctx, other, created.Message.ID); err != access.ErrForbidden {
		t.Fatalf("expected ErrForbidden for unrelated member, got %v", err)
	}

	deleted, err := svc.SoftDelete(ctx, actor, created.Message.ID)
	if err != nil {
		t.Fatalf("author delete should succeed: %v", err)
	}
	if deleted.DeletedAt == nil {
		t.Fatalf("expected deleted_at to be set")
	}
}

func TestReactions_AreIdempotent(t *testing.T) {
	svc, store, channel, actor := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, actor, channel, "react to me", nil, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.AddReaction(ctx, actor, created.Message.ID, "👍"); err != nil {
		t.Fatalf("add reaction: %v", err)
	}
	if err := svc.AddReaction(ctx, actor, created.Message.ID, "👍"); err != nil {
		t.Fatalf("repeat add reaction should be idempotent: %v", err)
	}

	counts, err := store.CountReactions(ctx, created.Message.ID)
	if err != nil {
		t.Fatalf("count reactions: %v", err)
	}
	if counts["👍"] != 1 {
		t.Fatalf("expected exactly one 👍, got %d", counts["👍"])
	}

	if err := svc.RemoveReaction(ctx, actor, created.Message.ID, "👍"); err != nil {
		t.Fatalf("remove reaction: %v", err)
	}
	if err := svc.RemoveReaction(ctx, actor, created.Message.ID, "👍"); err != nil {
		t.Fatalf("repeat remove should be idempotent no-op: %v", err)
	}
}

func TestCreate_ThreadReplyPublishesThreadUpdated(t *testing.T) {
	svc, _, channel, actor := newTestService(t)
	ctx := context.Background()

	root, err := svc.Create(ctx, actor, channel, "root message", nil, "")
	if err != nil {
		t.Fatalf("create root: %v", err)
	}

	reply, err := svc.ReplyInThread(ctx, actor, channel, root.Message.ID, "a reply", "")
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if reply.Message.ThreadRootID == nil || *reply.Message.ThreadRootID != root.Message.ID {
		t.Fatalf("expected reply to reference the thread root")
	}

	summary, err := svc.GetThreadSummary(ctx, root.Message.ID)
	if err != nil {
		t.Fatalf("thread summary: %v", err)
	}
	if summary.ReplyCount != 1 {
		t.Fatalf("expected reply count 1, got %d", summary.ReplyCount)
	}
}
