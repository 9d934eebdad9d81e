package eventbus

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Mirror relays events across replicas, matching the established
// gateway.Publisher role but generic over the broker implementation.
type Mirror interface {
	// Publish broadcasts e to every other replica.
	Publish(ctx context.Context, e Event) error
	// Run consumes events published by other replicas and hands each to
	// deliver. It blocks until ctx is cancelled.
	Run(ctx context.Context, deliver func(Event))
}

// Bus is the in-process registry of live subscribers, grouped by
// workspace. It is the galynx equivalent of the prior gateway.Hub, with
// business events in place of presence/voice dispatch events.
type Bus struct {
	mu     sync.RWMutex
	byWS   map[uuid.UUID]map[uuid.UUID]*Subscriber
	mirror Mirror
	log    zerolog.Logger
}

// New creates an empty Bus. Call SetMirror afterward to enable cross-replica
// fan-out; a Bus with no mirror is a single-process pub/sub.
func New(log zerolog.Logger) *Bus {
	return &Bus{
		byWS: make(map[uuid.UUID]map[uuid.UUID]*Subscriber),
		log:  log,
	}
}

// SetMirror attaches a cross-replica broker and starts its receive loop.
// Events arriving from the mirror are delivered to local subscribers only;
// they are never re-published, which keeps a ring of replicas from looping
// an event back to itself.
func (b *Bus) SetMirror(ctx context.Context, m Mirror) {
	b.mirror = m
	go m.Run(ctx, b.deliverLocal)
}

// Subscribe registers a new mailbox scoped to workspaceID. filter, when
// non-nil, is consulted per-event to decide whether a channel-scoped event
// should be delivered; a nil filter receives every event in the workspace.
func (b *Bus) Subscribe(workspaceID uuid.UUID, filter Filter) *Subscriber {
	sub := newSubscriber(workspaceID, filter)

	b.mu.Lock()
	defer b.mu.Unlock()
	subs, ok := b.byWS[workspaceID]
	if !ok {
		subs = make(map[uuid.UUID]*Subscriber)
		b.byWS[workspaceID] = subs
	}
	subs[sub.ID] = sub
	return sub
}

// Unsubscribe removes a mailbox. Callers must stop reading from it
// afterward; the underlying channel is left for the garbage collector.
func (b *Bus) Unsubscribe(sub *Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs, ok := b.byWS[sub.WorkspaceID]
	if !ok {
		return
	}
	delete(subs, sub.ID)
	if len(subs) == 0 {
		delete(b.byWS, sub.WorkspaceID)
	}
}

// Publish fans e out to every local subscriber of e.WorkspaceID whose
// filter accepts it, then mirrors e to other replicas if a Mirror is set.
func (b *Bus) Publish(ctx context.Context, e Event) {
	b.deliverLocal(e)

	if b.mirror != nil {
		if err := b.mirror.Publish(ctx, e); err != nil {
			b.log.Warn().Err(err).Str("event_type", e.Type).Msg("eventbus: mirror publish failed")
		}
	}
}

func (b *Bus) deliverLocal(e Event) {
	b.mu.RLock()
	subs := b.byWS[e.WorkspaceID]
	targets := make([]*Subscriber, 0, len(subs))
	for _, sub := range subs {
		if sub.filter == nil || sub.filter(e.ChannelID) {
			targets = append(targets, sub)
		}
	}
	b.mu.RUnlock()

	for _, sub := range targets {
		sub.deliver(e)
	}
}
