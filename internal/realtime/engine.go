// Package realtime implements the WebSocket session state machine, command
// dispatch, idempotency cache and EventBus fan-out for galynx's realtime
// channel. It is grounded in the prior internal/gateway package — same
// reader/writer goroutine pair over a bounded mailbox, same once-guarded
// close signal — generalised from uncord's Identify/Resume/PresenceUpdate
// opcode protocol to galynx's authenticated-at-handshake, command/ACK
// protocol.
package realtime

import (
	"fmt"
	"strings"
	"time"

	fastws "github.com/fasthttp/websocket"
	wsupgrade "github.com/gofiber/contrib/v3/websocket"
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"

	"github.com/galynx-chat/galynx-server/internal/access"
	"github.com/galynx-chat/galynx-server/internal/eventbus"
	"github.com/galynx-chat/galynx-server/internal/identitytime"
	"github.com/galynx-chat/galynx-server/internal/message"
	"github.com/galynx-chat/galynx-server/internal/ratelimit"
	"github.com/galynx-chat/galynx-server/internal/storage"
)

// Config holds the tunables an Engine needs, populated from internal/config.
type Config struct {
	JWTSecret         string
	Issuer            string
	HeartbeatInterval time.Duration // server ping cadence, ~30s
	MissedPongLimit   int           // consecutive missed pongs before close
}

// Engine is the shared, process-wide RealtimeEngine root: it owns no
// per-session state (that belongs to each Session) but wires together every
// other component a session's command dispatch needs.
type Engine struct {
	cfg      Config
	store    storage.Store
	access   *access.Control
	messages *message.Service
	bus      *eventbus.Bus
	limiter  *ratelimit.Limiter
	gen      identitytime.Generator
	clock    identitytime.Clock
	ack      *ackCache
	log      zerolog.Logger
}

// New creates an Engine.
func New(store storage.Store, ctl *access.Control, messages *message.Service, bus *eventbus.Bus, limiter *ratelimit.Limiter, gen identitytime.Generator, clock identitytime.Clock, cfg Config, log zerolog.Logger) (*Engine, error) {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 30 * time.Second
	}
	if cfg.MissedPongLimit <= 0 {
		cfg.MissedPongLimit = 2
	}

	cache, err := newAckCache()
	if err != nil {
		return nil, err
	}

	return &Engine{
		cfg: cfg, store: store, access: ctl, messages: messages, bus: bus,
		limiter: limiter, gen: gen, clock: clock, ack: cache,
		log: log.With().Str("component", "realtime").Logger(),
	}, nil
}

// HandleUpgrade is the fiber.Handler registered at GET /api/v1/ws. It
// captures the request's Authorization header and remote IP (neither of
// which survive the upgrade into the websocket connection) via closure,
// then hands the connection to the contrib websocket middleware, matching
// the prior cmd/uncord/main.go wiring of gatewayHandler.Upgrade.
func (e *Engine) HandleUpgrade(c fiber.Ctx) error {
	if !wsupgrade.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	auth := c.Get(fiber.HeaderAuthorization)
	ip := c.IP()

	return wsupgrade.New(func(conn *wsupgrade.Conn) {
		e.serve(conn.Conn, auth, ip)
	})(c)
}

// serve runs a single session's full lifecycle: handshake, then the
// Authenticated command loop, then teardown. It never returns until the
// connection is closed.
func (e *Engine) serve(conn *fastws.Conn, authHeader, remoteIP string) {
	sess := newSession(e, conn)
	defer sess.teardown()

	if err := sess.handshake(authHeader, remoteIP); err != nil {
		e.log.Debug().Err(err).Msg("realtime: handshake failed")
		return
	}

	go sess.writePump()
	go sess.pumpEvents()
	sess.readPump()
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if header == "" || !strings.HasPrefix(header, prefix) {
		return "", false
	}
	return strings.TrimPrefix(header, prefix), true
}

func rateLimitKey(parts ...string) string {
	return strings.Join(parts, ":")
}

var errRateLimited = fmt.Errorf("realtime: rate limited")
