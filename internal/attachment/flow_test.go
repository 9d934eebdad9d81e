package attachment_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/galynx-chat/galynx-server/internal/access"
	"github.com/galynx-chat/galynx-server/internal/apierrors"
	"github.com/galynx-chat/galynx-server/internal/attachment"
	"github.com/galynx-chat/galynx-server/internal/audit"
	"github.com/galynx-chat/galynx-server/internal/eventbus"
	"github.com/galynx-chat/galynx-server/internal/identitytime"
	"github.com/galynx-chat/galynx-server/internal/storage"
	"github.com/galynx-chat/galynx-server/internal/storage/memstore"
)

type stepClock struct{ ms uint64 }

func (c *stepClock) NowMS() uint64 { return c.ms }

// fakeProvider records the presign calls the Flow makes.
type fakeProvider struct {
	lastPutKey string
	lastGetKey string
}

func (p *fakeProvider) PresignPut(_ context.Context, bucket, key, _ string, _ time.Duration) (string, error) {
	p.lastPutKey = key
	return "https://objects.test/" + bucket + "/" + key + "?op=put", nil
}

func (p *fakeProvider) PresignGet(_ context.Context, bucket, key string, _ time.Duration) (string, error) {
	p.lastGetKey = key
	return "https://objects.test/" + bucket + "/" + key + "?op=get", nil
}

type fixture struct {
	flow    *attachment.Flow
	store   storage.Store
	bus     *eventbus.Bus
	clock   *stepClock
	prov    *fakeProvider
	actor   access.Actor
	channel storage.Channel
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()
	gen := identitytime.UUIDv7Generator{}
	clock := &stepClock{ms: 0}
	bus := eventbus.New(zerolog.Nop())
	rec := audit.New(store, gen, clock, zerolog.Nop())
	prov := &fakeProvider{}
	ctl := access.New(store)

	wsID, userID, channelID := mustV7(t), mustV7(t), mustV7(t)
	if _, err := store.CreateWorkspace(ctx, storage.Workspace{ID: wsID, Name: "acme", CreatedAt: 1}); err != nil {
		t.Fatalf("create workspace: %v", err)
	}
	if _, err := store.CreateMembership(ctx, storage.WorkspaceMember{WorkspaceID: wsID, UserID: userID, Role: storage.RoleMember, CreatedAt: 1}); err != nil {
		t.Fatalf("create membership: %v", err)
	}
	channel := storage.Channel{ID: channelID, WorkspaceID: wsID, Name: "general", CreatedAt: 1}
	if _, err := store.CreateChannel(ctx, channel); err != nil {
		t.Fatalf("create channel: %v", err)
	}

	flow := attachment.New(store, ctl, gen, clock, bus, prov, rec, attachment.Config{Bucket: "galynx", Region: "us-east-1"}, zerolog.Nop())

	return &fixture{
		flow:    flow,
		store:   store,
		bus:     bus,
		clock:   clock,
		prov:    prov,
		actor:   access.Actor{UserID: userID, WorkspaceID: wsID, Role: storage.RoleMember},
		channel: channel,
	}
}

func mustV7(t *testing.T) uuid.UUID {
	t.Helper()
	id, err := uuid.NewV7()
	if err != nil {
		t.Fatalf("uuid.NewV7: %v", err)
	}
	return id
}

func TestPresign_ReturnsUploadURLAndExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.flow.Presign(ctx, f.actor, f.channel, "report.pdf", "application/pdf", 1024)
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	if res.UploadURL == "" {
		t.Fatal("empty upload URL")
	}
	if res.ExpiresAt != 900_000 {
		t.Fatalf("ExpiresAt = %d, want 900000", res.ExpiresAt)
	}
	if !strings.Contains(f.prov.lastPutKey, "report.pdf") {
		t.Fatalf("storage key %q does not carry the sanitised filename", f.prov.lastPutKey)
	}
	wantPrefix := "workspace/" + f.channel.WorkspaceID.String() + "/channel/" + f.channel.ID.String() + "/uploads/"
	if !strings.HasPrefix(f.prov.lastPutKey, wantPrefix) {
		t.Fatalf("storage key %q, want prefix %q", f.prov.lastPutKey, wantPrefix)
	}
}

func TestPresign_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name        string
		contentType string
		size        int64
	}{
		{"empty content type", "", 1024},
		{"zero size", "application/pdf", 0},
		{"over 100MB", "application/pdf", 100*1024*1024 + 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.flow.Presign(ctx, f.actor, f.channel, "f.bin", tt.contentType, tt.size)
			var appErr *apierrors.Error
			if !errors.As(err, &appErr) || appErr.Kind != apierrors.KindInvalidInput {
				t.Fatalf("err = %v, want KindInvalidInput", err)
			}
		})
	}
}

func TestCommit_AfterExpiryIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.flow.Presign(ctx, f.actor, f.channel, "f.bin", "application/octet-stream", 1024)
	if err != nil {
		t.Fatalf("presign: %v", err)
	}

	f.clock.ms = 901_000
	_, err = f.flow.Commit(ctx, f.actor, res.UploadID, nil)
	var appErr *apierrors.Error
	if !errors.As(err, &appErr) || appErr.Kind != apierrors.KindNotFound {
		t.Fatalf("commit after expiry: err = %v, want KindNotFound", err)
	}
}

func TestCommit_LinksMessageAndPublishesUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	msg := storage.Message{ID: mustV7(t), WorkspaceID: f.channel.WorkspaceID, ChannelID: f.channel.ID, SenderID: f.actor.UserID, BodyMD: "hi", CreatedAt: 1}
	if _, err := f.store.CreateMessage(ctx, msg); err != nil {
		t.Fatalf("create message: %v", err)
	}

	sub := f.bus.Subscribe(f.channel.WorkspaceID, nil)
	defer f.bus.Unsubscribe(sub)

	res, err := f.flow.Presign(ctx, f.actor, f.channel, "pic.png", "image/png", 1024)
	if err != nil {
		t.Fatalf("presign: %v", err)
	}

	f.clock.ms = 500_000
	created, err := f.flow.Commit(ctx, f.actor, res.UploadID, &msg.ID)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if created.MessageID == nil || *created.MessageID != msg.ID {
		t.Fatalf("MessageID = %v, want %s", created.MessageID, msg.ID)
	}

	ev, err := sub.Recv(ctx)
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if ev.Type != eventbus.EventMessageUpdated {
		t.Fatalf("event type = %s, want MESSAGE_UPDATED", ev.Type)
	}

	// Committing the same upload twice is a NotFound: consume is one-shot.
	_, err = f.flow.Commit(ctx, f.actor, res.UploadID, nil)
	var appErr *apierrors.Error
	if !errors.As(err, &appErr) || appErr.Kind != apierrors.KindNotFound {
		t.Fatalf("second commit: err = %v, want KindNotFound", err)
	}
}

func TestGet_RoundTripsBucketAndKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.flow.Presign(ctx, f.actor, f.channel, "f.bin", "application/octet-stream", 2048)
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	committed, err := f.flow.Commit(ctx, f.actor, res.UploadID, nil)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	got, err := f.flow.Get(ctx, f.actor, committed.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if f.prov.lastGetKey != committed.StorageKey {
		t.Fatalf("download presigned key %q, want %q", f.prov.lastGetKey, committed.StorageKey)
	}
	if got.Attachment.StorageBucket != "galynx" {
		t.Fatalf("bucket = %q, want galynx", got.Attachment.StorageBucket)
	}

	// Cross-workspace reads are a NotFound, never a leak.
	stranger := access.Actor{UserID: mustV7(t), WorkspaceID: mustV7(t), Role: storage.RoleOwner}
	_, err = f.flow.Get(ctx, stranger, committed.ID)
	var appErr *apierrors.Error
	if !errors.As(err, &appErr) || appErr.Kind != apierrors.KindNotFound {
		t.Fatalf("cross-workspace get: err = %v, want KindNotFound", err)
	}
}
