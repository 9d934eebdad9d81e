package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/galynx-chat/galynx-server/internal/eventbus"
)

func TestBus_PublishDeliversToWorkspaceSubscriber(t *testing.T) {
	b := eventbus.New(zerolog.Nop())
	ws := uuid.New()
	sub := b.Subscribe(ws, nil)

	b.Publish(context.Background(), eventbus.Event{Type: eventbus.EventMessageCreated, WorkspaceID: ws})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	e, err := sub.Recv(ctx)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if e.Type != eventbus.EventMessageCreated {
		t.Fatalf("expected MESSAGE_CREATED, got %s", e.Type)
	}
}

func TestBus_OtherWorkspaceNotDelivered(t *testing.T) {
	b := eventbus.New(zerolog.Nop())
	ws := uuid.New()
	other := uuid.New()
	sub := b.Subscribe(ws, nil)

	b.Publish(context.Background(), eventbus.Event{Type: eventbus.EventMessageCreated, WorkspaceID: other})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := sub.Recv(ctx); err == nil {
		t.Fatalf("expected no delivery across workspaces")
	}
}

func TestBus_FilterExcludesChannel(t *testing.T) {
	b := eventbus.New(zerolog.Nop())
	ws := uuid.New()
	allowed := uuid.New()
	denied := uuid.New()

	sub := b.Subscribe(ws, func(channelID *uuid.UUID) bool {
		return channelID != nil && *channelID == allowed
	})

	b.Publish(context.Background(), eventbus.Event{Type: eventbus.EventMessageCreated, WorkspaceID: ws, ChannelID: &denied})
	b.Publish(context.Background(), eventbus.Event{Type: eventbus.EventMessageCreated, WorkspaceID: ws, ChannelID: &allowed})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	e, err := sub.Recv(ctx)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if e.ChannelID == nil || *e.ChannelID != allowed {
		t.Fatalf("expected only the allowed channel's event to be delivered")
	}
}

func TestBus_OverflowMarksLaggingAndInjectsSyntheticEvent(t *testing.T) {
	b := eventbus.New(zerolog.Nop())
	ws := uuid.New()
	sub := b.Subscribe(ws, nil)

	// Fill the mailbox well past capacity without draining it.
	for i := 0; i < 300; i++ {
		b.Publish(context.Background(), eventbus.Event{Type: eventbus.EventMessageCreated, WorkspaceID: ws})
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var sawLag bool
	for i := 0; i < 260; i++ {
		e, err := sub.Recv(ctx)
		if err != nil {
			t.Fatalf("Recv: %v", err)
		}
		if e.Type == eventbus.EventLag {
			sawLag = true
			break
		}
	}
	if !sawLag {
		t.Fatalf("expected a synthetic LAG event after mailbox overflow")
	}
}
