// Package api implements galynx's HTTP handlers: thin fiber.Handler
// functions that parse the request, call into the core components
// (auth.Service, access.Control, message.Service, attachment.Flow,
// audit.Recorder, storage.Store directly for simple CRUD), and translate
// the result through httputil. Grounded in the prior internal/api package's
// per-entity handler split (NewXHandler(deps...) *XHandler with method
// receivers), generalised from uncord's richer permission-bitmask surface
// to galynx's three-role model.
package api

import (
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/galynx-chat/galynx-server/internal/access"
	"github.com/galynx-chat/galynx-server/internal/attachment"
	"github.com/galynx-chat/galynx-server/internal/audit"
	"github.com/galynx-chat/galynx-server/internal/auth"
	"github.com/galynx-chat/galynx-server/internal/eventbus"
	"github.com/galynx-chat/galynx-server/internal/identitytime"
	"github.com/galynx-chat/galynx-server/internal/message"
	"github.com/galynx-chat/galynx-server/internal/ratelimit"
	"github.com/galynx-chat/galynx-server/internal/realtime"
	"github.com/galynx-chat/galynx-server/internal/storage"
)

// BuildInfo carries version metadata surfaced by GET /health, matching the
// teacher's ldflags-injected version/commit/date triplet in cmd/uncord.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// Handler holds every dependency galynx's HTTP routes need. It is
// constructed once at startup and its methods registered directly as fiber
// handlers, matching the teacher's NewXHandler-per-entity shape collapsed
// into a single struct since galynx's data model does not need a dedicated
// service layer per entity (see DESIGN.md).
type Handler struct {
	store        storage.Store
	access       *access.Control
	authSvc      *auth.Service
	messages     *message.Service
	attach       *attachment.Flow
	audit        *audit.Recorder
	bus          *eventbus.Bus
	realtime     *realtime.Engine
	gen          identitytime.Generator
	clock        identitytime.Clock
	argon2Params auth.Argon2Params
	build        BuildInfo
	startedAt    uint64
	redisClient  *redis.Client
	limiter      *ratelimit.Limiter
	log          zerolog.Logger
}

// New creates a Handler. redisClient and limiter may both be nil when
// galynx is deployed without Redis (single-replica, no rate limiting);
// Ready then skips the Redis probe and AuthRateLimit becomes a no-op.
func New(
	store storage.Store,
	ctl *access.Control,
	authSvc *auth.Service,
	messages *message.Service,
	attach *attachment.Flow,
	recorder *audit.Recorder,
	bus *eventbus.Bus,
	rtEngine *realtime.Engine,
	gen identitytime.Generator,
	clock identitytime.Clock,
	argon2Params auth.Argon2Params,
	build BuildInfo,
	redisClient *redis.Client,
	limiter *ratelimit.Limiter,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		store: store, access: ctl, authSvc: authSvc, messages: messages,
		attach: attach, audit: recorder, bus: bus, realtime: rtEngine,
		gen: gen, clock: clock, argon2Params: argon2Params, build: build,
		redisClient: redisClient, limiter: limiter,
		startedAt: clock.NowMS(), log: log.With().Str("component", "api").Logger(),
	}
}
