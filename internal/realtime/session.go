package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/galynx-chat/galynx-server/internal/access"
	"github.com/galynx-chat/galynx-server/internal/apierrors"
	"github.com/galynx-chat/galynx-server/internal/auth"
	"github.com/galynx-chat/galynx-server/internal/eventbus"
	"github.com/galynx-chat/galynx-server/internal/ratelimit"
	"github.com/galynx-chat/galynx-server/internal/storage"
)

// maxMessageSize bounds a single inbound WebSocket frame, matching the
// teacher's gateway.maxMessageSize guard against oversized client payloads.
const maxMessageSize = 8192

// writeWait is the time allowed to write a single frame to the peer.
const writeWait = 10 * time.Second

// sessionState is Handshaking -> Authenticated -> Closed.
type sessionState int32

const (
	stateHandshaking sessionState = iota
	stateAuthenticated
	stateClosed
)

// Session is one authenticated WebSocket connection's in-memory state: its
// send queue and subscribed channel filter. All fields below are touched
// only from this session's own reader/writer/event goroutines plus the
// atomics/channels explicitly designed for cross-goroutine signalling;
// there is no cross-session locking.
type Session struct {
	id     string
	engine *Engine
	conn   *websocket.Conn
	log    zerolog.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	state     atomic.Int32

	actor access.Actor
	sub   *eventbus.Subscriber

	missedPongs atomic.Int32
}

func newSession(e *Engine, conn *websocket.Conn) *Session {
	return &Session{
		id:     uuid.NewString(),
		engine: e,
		conn:   conn,
		send:   make(chan []byte, 256),
		done:   make(chan struct{}),
		log:    e.log.With().Str("session_id", "").Logger(),
	}
}

// handshake implements the Handshaking state: parse the bearer token,
// validate it, rate-limit the connection attempt, then transition to
// Authenticated and send WELCOME. Any failure here closes the connection
// without ever reaching the command loop.
func (s *Session) handshake(authHeader, remoteIP string) error {
	ctx := context.Background()

	token, ok := bearerToken(authHeader)
	if !ok {
		s.closeWithCode(websocket.ClosePolicyViolation, "missing bearer token")
		return apierrors.New(apierrors.KindUnauthorized, "missing bearer token")
	}

	claims, err := auth.ValidateAccessToken(token, s.engine.cfg.JWTSecret, s.engine.cfg.Issuer)
	if err != nil {
		s.closeWithCode(websocket.ClosePolicyViolation, "invalid access token")
		return apierrors.New(apierrors.KindUnauthorized, "invalid access token")
	}
	userID, err := claims.UserID()
	if err != nil {
		s.closeWithCode(websocket.ClosePolicyViolation, "invalid token subject")
		return apierrors.New(apierrors.KindUnauthorized, "invalid token subject")
	}
	workspaceID, err := claims.Workspace()
	if err != nil {
		s.closeWithCode(websocket.ClosePolicyViolation, "invalid token workspace")
		return apierrors.New(apierrors.KindUnauthorized, "invalid token workspace")
	}

	key := rateLimitKey("ws-connect", remoteIP, userID.String())
	allowed, err := s.engine.limiter.Allow(ctx, key, ratelimit.WSConnectPolicy.Limit, ratelimit.WSConnectPolicy.Window)
	if err != nil {
		s.log.Warn().Err(err).Msg("realtime: rate limiter unavailable, allowing connection")
	} else if !allowed {
		s.closeWithCode(websocket.ClosePolicyViolation, "rate limited")
		return errRateLimited
	}

	s.actor = access.Actor{UserID: userID, WorkspaceID: workspaceID, Role: storage.Role(claims.Role)}
	s.log = s.log.With().Str("session_id", s.id).Str("user_id", userID.String()).Logger()

	s.sub = s.engine.bus.Subscribe(workspaceID, s.channelFilter())
	s.state.Store(int32(stateAuthenticated))

	welcome, _ := json.Marshal(struct {
		UserID uuid.UUID `json:"user_id"`
		Role   string    `json:"role"`
	}{UserID: userID, Role: claims.Role})
	s.enqueue(eventbus.Event{
		Type:        eventbus.EventWelcome,
		WorkspaceID: workspaceID,
		ServerTS:    s.engine.clock.NowMS(),
		Payload:     welcome,
	})
	return nil
}

// channelFilter returns the eventbus.Filter implementing "subscriptions
// initially = all channels the user may read": public channels are always
// visible, private channels require membership or an owner/admin role,
// evaluated per event against the live channel record and the actor
// snapshotted at handshake time.
func (s *Session) channelFilter() eventbus.Filter {
	return func(channelID *uuid.UUID) bool {
		if channelID == nil {
			return true
		}
		ch, err := s.engine.store.GetChannelByID(context.Background(), *channelID)
		if err != nil {
			return false
		}
		return s.engine.access.CheckChannelAccess(context.Background(), s.actor, ch) == nil
	}
}

// readPump decodes inbound command frames and dispatches them in strict
// receipt order, replying with exactly one ACK/ERROR per command before
// moving to the next. It owns connection teardown on any read error.
func (s *Session) readPump() {
	s.conn.SetReadLimit(maxMessageSize)
	s.resetReadDeadline()
	s.conn.SetPongHandler(func(string) error {
		s.missedPongs.Store(0)
		s.resetReadDeadline()
		return nil
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		var cmd InboundCommand
		if err := json.Unmarshal(raw, &cmd); err != nil {
			s.reply(cmd.ClientMsgID, nil, apierrors.New(apierrors.KindInvalidInput, "malformed command envelope"))
			continue
		}

		s.engine.dispatch(context.Background(), s, cmd)
	}
}

func (s *Session) resetReadDeadline() {
	_ = s.conn.SetReadDeadline(time.Now().Add(s.engine.cfg.HeartbeatInterval*2 + s.engine.cfg.HeartbeatInterval/2))
}

// writePump drains the mailbox to the socket and drives the keepalive
// ping. Two consecutive missed pongs close the session.
func (s *Session) writePump() {
	ticker := time.NewTicker(s.engine.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-s.send:
			if !ok {
				return
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.closeSend()
				return
			}
		case <-ticker.C:
			if s.missedPongs.Add(1) > int32(s.engine.cfg.MissedPongLimit) {
				s.closeWithCode(websocket.CloseGoingAway, "missed heartbeat")
				return
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.closeSend()
				return
			}
		case <-s.done:
			return
		}
	}
}

// pumpEvents forwards this session's EventBus mailbox into the outbound
// queue. It is a thin bridge between eventbus.Subscriber's pull-based Recv
// and the session's push-based send channel, so the writer task still only
// ever drains a single channel.
func (s *Session) pumpEvents() {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-s.done
		cancel()
	}()

	for {
		ev, err := s.sub.Recv(ctx)
		if err != nil {
			return
		}
		s.enqueue(ev)
	}
}

// enqueue serialises an eventbus.Event as an OutboundEnvelope and places it
// on the mailbox. A full mailbox drops the new frame (logging a warning)
// rather than blocking, since a session's own dispatch loop must never stall
// on a slow client.
func (s *Session) enqueue(ev eventbus.Event) {
	env := OutboundEnvelope{
		EventType:     ev.Type,
		WorkspaceID:   ev.WorkspaceID,
		ChannelID:     ev.ChannelID,
		CorrelationID: ev.CorrelationID,
		ServerTS:      ev.ServerTS,
		Payload:       ev.Payload,
	}
	raw, err := json.Marshal(env)
	if err != nil {
		s.log.Warn().Err(err).Msg("realtime: failed to encode outbound envelope")
		return
	}
	s.push(raw)
}

// reply sends a correlated ACK (err == nil) or ERROR envelope for a single
// command.
func (s *Session) reply(correlationID string, payload json.RawMessage, err error) {
	ev := eventbus.Event{
		Type:          eventbus.EventACK,
		WorkspaceID:   s.actor.WorkspaceID,
		CorrelationID: correlationID,
		ServerTS:      s.engine.clock.NowMS(),
		Payload:       payload,
	}
	if err != nil {
		ev.Type = eventbus.EventError
		ev.Payload = errorPayload(err)
	}
	s.enqueue(ev)
}

func errorPayload(err error) json.RawMessage {
	status := apierrors.KindInternal.WSStatus()
	code := apierrors.KindInternal.Code()
	if appErr, ok := err.(*apierrors.Error); ok {
		status = appErr.Kind.WSStatus()
		code = appErr.Kind.Code()
	}
	return mustMarshal(struct {
		Status  int            `json:"status"`
		Code    apierrors.Code `json:"code"`
		Message string         `json:"message"`
	}{Status: status, Code: code, Message: err.Error()})
}

func (s *Session) push(raw []byte) {
	select {
	case <-s.done:
		return
	default:
	}

	select {
	case s.send <- raw:
	case <-s.done:
	default:
		s.log.Warn().Msg("realtime: outbound mailbox full, dropping frame")
	}
}

func (s *Session) closeSend() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *Session) closeWithCode(code int, reason string) {
	s.closeSend()
	msg := websocket.FormatCloseMessage(code, reason)
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	_ = s.conn.Close()
}

// teardown unregisters the session from the EventBus and releases the
// connection. It does not flush the mailbox; a closing session drops
// whatever was still pending.
func (s *Session) teardown() {
	s.state.Store(int32(stateClosed))
	s.closeSend()
	if s.sub != nil {
		s.engine.bus.Unsubscribe(s.sub)
	}
	_ = s.conn.Close()
}
