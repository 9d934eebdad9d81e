package eventbus

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// eventsChannel is the single Redis Pub/Sub channel every replica's mirror
// publishes to and subscribes on, matching the established Publisher use of
// one broadcast channel for all gateway dispatch events.
const eventsChannel = "galynx.events"

// wireEvent is Event plus the publishing replica's id, carried through the
// JSON round trip through Redis so Run can discard this replica's own echoes.
type wireEvent struct {
	Event
	Origin string `json:"origin"`
}

// RedisMirror mirrors bus events across replicas over Redis/Valkey
// Pub/Sub, grounded in the prior internal/gateway.Publisher.
type RedisMirror struct {
	rdb       *redis.Client
	replicaID string
	log       zerolog.Logger
}

// NewRedisMirror creates a mirror tagging every event it publishes with
// replicaID, so its own Run loop can recognise and discard the echo.
func NewRedisMirror(rdb *redis.Client, replicaID string, log zerolog.Logger) *RedisMirror {
	return &RedisMirror{rdb: rdb, replicaID: replicaID, log: log}
}

func (m *RedisMirror) Publish(ctx context.Context, e Event) error {
	wire := wireEvent{Event: e, Origin: m.replicaID}
	payload, err := json.Marshal(wire)
	if err != nil {
		return err
	}
	return m.rdb.Publish(ctx, eventsChannel, payload).Err()
}

// Run subscribes to the broadcast channel and hands every event that did
// not originate on this replica to deliver. It blocks until ctx is
// cancelled.
func (m *RedisMirror) Run(ctx context.Context, deliver func(Event)) {
	sub := m.rdb.Subscribe(ctx, eventsChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var wire wireEvent
			if err := json.Unmarshal([]byte(msg.Payload), &wire); err != nil {
				m.log.Warn().Err(err).Msg("eventbus: discarding malformed mirrored event")
				continue
			}
			if wire.Origin == m.replicaID {
				continue
			}
			deliver(wire.Event)
		}
	}
}
