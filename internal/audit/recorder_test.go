package audit_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/galynx-chat/galynx-server/internal/audit"
	"github.com/galynx-chat/galynx-server/internal/identitytime"
	"github.com/galynx-chat/galynx-server/internal/storage"
	"github.com/galynx-chat/galynx-server/internal/storage/memstore"
)

type fixedClock struct{ ms uint64 }

func (f fixedClock) NowMS() uint64 { return f.ms }

func TestRecorder_Record_PersistsEntry(t *testing.T) {
	store := memstore.New()
	rec := audit.New(store, identitytime.UUIDv7Generator{}, fixedClock{ms: 1000}, zerolog.Nop())

	wsID, actorID, targetID := uuid.New(), uuid.New(), uuid.New()
	ctx := context.Background()

	rec.Record(ctx, wsID, actorID, storage.ActionLogin, "user", targetID.String(), map[string]any{"ip": "1.2.3.4"})

	page, err := rec.List(ctx, wsID, nil, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(page.Items))
	}
	got := page.Items[0]
	if got.Action != storage.ActionLogin || got.ActorID != actorID || got.WorkspaceID != wsID {
		t.Fatalf("unexpected entry: %+v", got)
	}
	if got.CreatedAt != 1000 {
		t.Fatalf("expected fixed clock timestamp, got %d", got.CreatedAt)
	}
}

func TestRecorder_Record_OtherWorkspaceNotVisible(t *testing.T) {
	store := memstore.New()
	rec := audit.New(store, identitytime.UUIDv7Generator{}, fixedClock{ms: 1}, zerolog.Nop())
	ctx := context.Background()

	rec.Record(ctx, uuid.New(), uuid.New(), storage.ActionUserCreated, "user", "x", nil)

	page, err := rec.List(ctx, uuid.New(), nil, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page.Items) != 0 {
		t.Fatalf("expected no entries for unrelated workspace, got %d", len(page.Items))
	}
}
