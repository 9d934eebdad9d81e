// Package eventbus implements in-process publish/subscribe fan-out for
// RealtimeEngine sessions, with an optional cross-replica mirror. It is
// grounded in the prior internal/gateway split between Hub (in-process
// registry + dispatch) and Publisher (cross-replica broker), generalised
// from Discord-style presence/dispatch events to galynx's business events.
package eventbus

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Event is the canonical outbound unit the bus carries, matching the
// WebSocket dispatch envelope: {event_type, workspace_id,
// channel_id, correlation_id, server_ts, payload}.
type Event struct {
	Type          string          `json:"event_type"`
	WorkspaceID   uuid.UUID       `json:"workspace_id"`
	ChannelID     *uuid.UUID      `json:"channel_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	ServerTS      uint64          `json:"server_ts"`
	Payload       json.RawMessage `json:"payload"`

	// origin is never serialised to clients, and no code path sets or reads
	// it; RedisMirror tags outgoing events through wireEvent.Origin instead.
	origin string
}

// Event type names.
const (
	EventWelcome         = "WELCOME"
	EventACK             = "ACK"
	EventError           = "ERROR"
	EventMessageCreated  = "MESSAGE_CREATED"
	EventMessageUpdated  = "MESSAGE_UPDATED"
	EventMessageDeleted  = "MESSAGE_DELETED"
	EventThreadUpdated   = "THREAD_UPDATED"
	EventChannelCreated  = "CHANNEL_CREATED"
	EventChannelDeleted  = "CHANNEL_DELETED"
	EventReactionUpdated = "REACTION_UPDATED"
	EventLag             = "LAG"
)
