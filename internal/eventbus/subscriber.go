package eventbus

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
)

// mailboxSize is the per-subscriber buffered channel depth, matching the
// teacher's Client.send capacity for gateway sessions.
const mailboxSize = 256

// Filter decides whether a subscriber should receive an event for a given
// channel. A nil channelID means the event is not tied to a channel; the
// filter is consulted for it too and decides whether it is delivered.
type Filter func(channelID *uuid.UUID) bool

// Subscriber is a single RealtimeEngine session's mailbox on the bus. Unlike
// the prior gateway.Client, which disconnects a session whose send
// buffer fills up, Subscriber drops the oldest queued event and marks
// itself lagging so the next Recv surfaces a synthetic LAG event instead of
// tearing down the connection.
type Subscriber struct {
	ID          uuid.UUID
	WorkspaceID uuid.UUID

	filter  Filter
	queue   chan Event
	lagging atomic.Bool
}

func newSubscriber(workspaceID uuid.UUID, filter Filter) *Subscriber {
	return &Subscriber{
		ID:          uuid.New(),
		WorkspaceID: workspaceID,
		filter:      filter,
		queue:       make(chan Event, mailboxSize),
	}
}

// deliver enqueues e without blocking. If the mailbox is full it drops the
// oldest pending event, marks the subscriber lagging and enqueues e in its
// place, so the session always receives the most recent state once it
// catches up.
func (s *Subscriber) deliver(e Event) {
	select {
	case s.queue <- e:
		return
	default:
	}

	select {
	case <-s.queue:
	default:
	}
	s.lagging.Store(true)

	select {
	case s.queue <- e:
	default:
		// Another goroutine raced us and refilled the mailbox; the
		// lagging flag already records the loss.
	}
}

// Recv blocks until the next event is available, injecting a synthetic LAG
// event first if the mailbox has dropped anything since the last Recv.
func (s *Subscriber) Recv(ctx context.Context) (Event, error) {
	if s.lagging.CompareAndSwap(true, false) {
		return Event{Type: EventLag, WorkspaceID: s.WorkspaceID}, nil
	}

	select {
	case e := <-s.queue:
		return e, nil
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}
