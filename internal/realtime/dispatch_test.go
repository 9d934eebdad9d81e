package realtime

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/galynx-chat/galynx-server/internal/access"
	"github.com/galynx-chat/galynx-server/internal/audit"
	"github.com/galynx-chat/galynx-server/internal/eventbus"
	"github.com/galynx-chat/galynx-server/internal/identitytime"
	"github.com/galynx-chat/galynx-server/internal/message"
	"github.com/galynx-chat/galynx-server/internal/ratelimit"
	"github.com/galynx-chat/galynx-server/internal/storage"
	"github.com/galynx-chat/galynx-server/internal/storage/memstore"
)

func mustV7(t *testing.T) uuid.UUID {
	t.Helper()
	id, err := uuid.NewV7()
	if err != nil {
		t.Fatalf("uuid.NewV7: %v", err)
	}
	return id
}

// newTestEngine builds an Engine over memstore plus a miniredis-backed
// limiter, with one workspace, one member, and one public channel seeded.
func newTestEngine(t *testing.T) (*Engine, *eventbus.Bus, access.Actor, storage.Channel) {
	t.Helper()
	ctx := context.Background()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	limiter := ratelimit.New(rdb)

	store := memstore.New()
	gen := identitytime.UUIDv7Generator{}
	clock := identitytime.SystemClock{}
	bus := eventbus.New(zerolog.Nop())
	rec := audit.New(store, gen, clock, zerolog.Nop())
	ctl := access.New(store)
	messages := message.New(store, ctl, gen, clock, bus, rec, zerolog.Nop())

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

	engine, err := New(store, ctl, messages, bus, limiter, gen, clock, Config{
		JWTSecret: "test-secret-at-least-32-bytes-long!",
		Issuer:    "galynx-test",
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("create engine: %v", err)
	}

	actor := access.Actor{UserID: userID, WorkspaceID: wsID, Role: storage.RoleMember}
	return engine, bus, actor, channel
}

// newTestSession builds a Session whose mailbox is read directly by the
// test; no websocket connection is involved.
func newTestSession(e *Engine, actor access.Actor) *Session {
	s := newSession(e, nil)
	s.actor = actor
	s.state.Store(int32(stateAuthenticated))
	return s
}

// nextEnvelope pops the next frame off the session mailbox.
func nextEnvelope(t *testing.T, s *Session) OutboundEnvelope {
	t.Helper()
	select {
	case raw := <-s.send:
		var env OutboundEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("unmarshal envelope: %v", err)
		}
		return env
	default:
		t.Fatal("no frame on session mailbox")
		return OutboundEnvelope{}
	}
}

func sendCommand(e *Engine, s *Session, command, clientMsgID string, payload any) {
	raw, _ := json.Marshal(payload)
	e.dispatch(context.Background(), s, InboundCommand{Command: command, ClientMsgID: clientMsgID, Payload: raw})
}

func TestDispatch_SendMessageIsIdempotent(t *testing.T) {
	engine, bus, actor, channel := newTestEngine(t)
	s := newTestSession(engine, actor)

	sub := bus.Subscribe(actor.WorkspaceID, nil)
	defer bus.Unsubscribe(sub)

	payload := sendMessagePayload{ChannelID: channel.ID, BodyMD: "hi"}
	sendCommand(engine, s, CmdSendMessage, "c-1", payload)
	sendCommand(engine, s, CmdSendMessage, "c-1", payload)

	first := nextEnvelope(t, s)
	second := nextEnvelope(t, s)

	for _, env := range []OutboundEnvelope{first, second} {
		if env.EventType != eventbus.EventACK {
			t.Fatalf("event type = %s, want ACK", env.EventType)
		}
		if env.CorrelationID != "c-1" {
			t.Fatalf("correlation_id = %q, want c-1", env.CorrelationID)
		}
	}

	var firstRes, secondRes sendMessageResult
	if err := json.Unmarshal(first.Payload, &firstRes); err != nil {
		t.Fatalf("unmarshal first ACK: %v", err)
	}
	if err := json.Unmarshal(second.Payload, &secondRes); err != nil {
		t.Fatalf("unmarshal second ACK: %v", err)
	}

	if firstRes.Deduped {
		t.Fatal("first ACK marked deduped")
	}
	if !secondRes.Deduped {
		t.Fatal("second ACK not marked deduped")
	}
	if firstRes.Message.ID != secondRes.Message.ID {
		t.Fatalf("ACKs reference different messages: %s vs %s", firstRes.Message.ID, secondRes.Message.ID)
	}

	// Exactly one MESSAGE_CREATED observed.
	ctx := context.Background()
	ev, err := sub.Recv(ctx)
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if ev.Type != eventbus.EventMessageCreated {
		t.Fatalf("event type = %s, want MESSAGE_CREATED", ev.Type)
	}
	cancelCtx, cancel := context.WithCancel(ctx)
	cancel()
	if extra, err := sub.Recv(cancelCtx); err == nil {
		t.Fatalf("unexpected second event %s", extra.Type)
	}
}

func TestDispatch_MissingClientMsgIDIsRejected(t *testing.T) {
	engine, _, actor, channel := newTestEngine(t)
	s := newTestSession(engine, actor)

	sendCommand(engine, s, CmdSendMessage, "", sendMessagePayload{ChannelID: channel.ID, BodyMD: "hi"})

	env := nextEnvelope(t, s)
	if env.EventType != eventbus.EventError {
		t.Fatalf("event type = %s, want ERROR", env.EventType)
	}
}

func TestDispatch_UnknownCommandIsBadRequest(t *testing.T) {
	engine, _, actor, _ := newTestEngine(t)
	s := newTestSession(engine, actor)

	sendCommand(engine, s, "EXPLODE", "c-9", struct{}{})

	env := nextEnvelope(t, s)
	if env.EventType != eventbus.EventError {
		t.Fatalf("event type = %s, want ERROR", env.EventType)
	}
	var body struct {
		Status int `json:"status"`
	}
	if err := json.Unmarshal(env.Payload, &body); err != nil {
		t.Fatalf("unmarshal error payload: %v", err)
	}
	if body.Status != 400 {
		t.Fatalf("status = %d, want 400", body.Status)
	}
}

func TestDispatch_PrivateChannelDeniedForNonMember(t *testing.T) {
	engine, _, actor, _ := newTestEngine(t)
	s := newTestSession(engine, actor)

	private := storage.Channel{ID: mustV7(t), WorkspaceID: actor.WorkspaceID, Name: "secret", IsPrivate: true, CreatedAt: 1}
	if _, err := engine.store.CreateChannel(context.Background(), private); err != nil {
		t.Fatalf("create channel: %v", err)
	}

	sendCommand(engine, s, CmdSendMessage, "c-2", sendMessagePayload{ChannelID: private.ID, BodyMD: "hi"})

	env := nextEnvelope(t, s)
	if env.EventType != eventbus.EventError {
		t.Fatalf("event type = %s, want ERROR", env.EventType)
	}
	var body struct {
		Status int    `json:"status"`
		Code   string `json:"code"`
	}
	if err := json.Unmarshal(env.Payload, &body); err != nil {
		t.Fatalf("unmarshal error payload: %v", err)
	}
	// Denied private channels read as not_found, never forbidden.
	if body.Status != 404 {
		t.Fatalf("status = %d, want 404", body.Status)
	}
}

func TestDispatch_FetchMoreReturnsPage(t *testing.T) {
	engine, _, actor, channel := newTestEngine(t)
	s := newTestSession(engine, actor)

	for _, id := range []string{"f-1", "f-2", "f-3"} {
		sendCommand(engine, s, CmdSendMessage, id, sendMessagePayload{ChannelID: channel.ID, BodyMD: "msg"})
		_ = nextEnvelope(t, s)
	}

	sendCommand(engine, s, CmdFetchMore, "f-4", fetchPayload{ChannelID: &channel.ID, Limit: 2})
	env := nextEnvelope(t, s)
	if env.EventType != eventbus.EventACK {
		t.Fatalf("event type = %s, want ACK", env.EventType)
	}

	var page storage.Page[storage.Message]
	if err := json.Unmarshal(env.Payload, &page); err != nil {
		t.Fatalf("unmarshal page: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("got %d items, want 2", len(page.Items))
	}
	if page.NextCursor == nil {
		t.Fatal("expected a next_cursor with one message remaining")
	}
}
