package api

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/galynx-chat/galynx-server/internal/httputil"
)

// Health handles GET /api/v1/health: a liveness probe that reports process
// build/uptime metadata without touching any dependency, matching the
// prior health handler's shape collapsed to galynx's single storage.Store
// abstraction (mongostore/memstore liveness is covered by Ready, not Health).
func (h *Handler) Health(c fiber.Ctx) error {
	return httputil.Success(c, fiber.Map{
		"status":     "ok",
		"version":    h.build.Version,
		"commit":     h.build.Commit,
		"build_date": h.build.Date,
		"uptime_ms":  h.clock.NowMS() - h.startedAt,
	})
}

// Ready handles GET /api/v1/ready: pings the storage backend and, when
// configured, Redis, returning degraded (503) if either is unreachable.
func (h *Handler) Ready(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
	defer cancel()

	storeStatus := "ok"
	if err := h.store.Ping(ctx); err != nil {
		storeStatus = "unavailable"
	}

	redisStatus := "disabled"
	if h.redisClient != nil {
		redisStatus = "ok"
		if err := h.redisClient.Ping(ctx).Err(); err != nil {
			redisStatus = "unavailable"
		}
	}

	overall := "ok"
	status := fiber.StatusOK
	if storeStatus != "ok" || redisStatus == "unavailable" {
		overall = "degraded"
		status = fiber.StatusServiceUnavailable
	}

	return httputil.SuccessStatus(c, status, fiber.Map{
		"status":  overall,
		"storage": storeStatus,
		"redis":   redisStatus,
	})
}

// Metrics handles GET /api/v1/metrics: a minimal Prometheus-text-format
// export of process-level gauges. galynx's business-logic packages are
// deliberately not instrumented (metrics/tracing exporters are treated as
// an external collaborator concern). The route is always registered;
// METRICS_ENABLED is parsed into config.Config but does not gate it.
func (h *Handler) Metrics(c fiber.Ctx) error {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	c.Set(fiber.HeaderContentType, "text/plain; version=0.0.4")
	body := fmt.Sprintf(
		"galynx_uptime_ms %d\ngalynx_goroutines %d\ngalynx_heap_alloc_bytes %d\n",
		h.clock.NowMS()-h.startedAt, runtime.NumGoroutine(), mem.HeapAlloc,
	)
	return c.SendString(body)
}

// openAPIDocument is a hand-maintained summary of the HTTP surface; galynx
// does not generate this from struct tags.
var openAPIDocument = fiber.Map{
	"openapi": "3.0.3",
	"info": fiber.Map{
		"title":   "galynx",
		"version": "1",
	},
	"paths": []string{
		"/api/v1/auth/login", "/api/v1/auth/refresh", "/api/v1/auth/logout",
		"/api/v1/me",
		"/api/v1/workspaces", "/api/v1/workspaces/{id}/members",
		"/api/v1/users",
		"/api/v1/channels", "/api/v1/channels/{id}",
		"/api/v1/channels/{id}/members", "/api/v1/channels/{id}/members/{uid}",
		"/api/v1/channels/{id}/messages",
		"/api/v1/messages/{id}", "/api/v1/messages/{id}/reactions", "/api/v1/messages/{id}/reactions/{emoji}",
		"/api/v1/threads/{root_id}", "/api/v1/threads/{root_id}/replies",
		"/api/v1/attachments/presign", "/api/v1/attachments/commit", "/api/v1/attachments/{id}",
		"/api/v1/audit",
		"/api/v1/health", "/api/v1/ready", "/api/v1/metrics", "/api/v1/openapi.json",
		"/api/v1/ws",
	},
}

// OpenAPI handles GET /api/v1/openapi.json.
func (h *Handler) OpenAPI(c fiber.Ctx) error {
	return c.JSON(openAPIDocument)
}
