// Package realtime implements the WebSocket session state machine, command
// dispatch, idempotency cache and EventBus fan-out for galynx's realtime
// channel. It is grounded in the prior internal/gateway package — same
// reader/writer goroutine pair over a bounded mailbox, same once-guarded
// close signal — generalised from uncord's Identify/Resume/PresenceUpdate
// opcode protocol to galynx's authenticated-at-handshake, command/ACK
// protocol.
package realtime

import (
	"encoding/json"

	"github.com/google/uuid"
)

// InboundCommand is the `{command, client_msg_id, payload}` shape every
// client frame decodes into.
type InboundCommand struct {
	Command     string          `json:"command"`
	ClientMsgID string          `json:"client_msg_id"`
	Payload     json.RawMessage `json:"payload"`
}

// Command names understood by the dispatch table.
const (
	CmdSendMessage    = "SEND_MESSAGE"
	CmdEditMessage    = "EDIT_MESSAGE"
	CmdDeleteMessage  = "DELETE_MESSAGE"
	CmdAddReaction    = "ADD_REACTION"
	CmdRemoveReaction = "REMOVE_REACTION"
	CmdFetchMore      = "FETCH_MORE"
	CmdFetchThread    = "FETCH_THREAD"
)

// OutboundEnvelope is the `{event_type, workspace_id, channel_id,
// correlation_id, server_ts, payload}` shape every server frame encodes to.
// It is the wire form of both eventbus.Event (business events) and
// session-local WELCOME/ACK/ERROR replies.
type OutboundEnvelope struct {
	EventType     string          `json:"event_type"`
	WorkspaceID   uuid.UUID       `json:"workspace_id"`
	ChannelID     *uuid.UUID      `json:"channel_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	ServerTS      uint64          `json:"server_ts"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

func mustMarshal(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("null")
	}
	return raw
}
