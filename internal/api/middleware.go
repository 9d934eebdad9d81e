package api

import (
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/galynx-chat/galynx-server/internal/apierrors"
	"github.com/galynx-chat/galynx-server/internal/httputil"
	"github.com/galynx-chat/galynx-server/internal/ratelimit"
)

// AuthRateLimit enforces ratelimit.AuthPolicy per (client IP, email) across
// /api/v1/auth/*, the one surface an unauthenticated caller can hammer. The
// email is peeked from the JSON body without consuming it; requests with no
// email field (refresh, logout) share the per-IP bucket. A Handler built
// with a nil limiter (no Redis configured) skips the check rather than
// failing closed, matching a single-replica deployment's tradeoff of
// availability over brute-force protection.
func (h *Handler) AuthRateLimit(c fiber.Ctx) error {
	if h.limiter == nil {
		return c.Next()
	}

	var probe struct {
		Email string `json:"email"`
	}
	_ = json.Unmarshal(c.Body(), &probe)

	key := "auth:" + c.IP() + ":" + strings.ToLower(strings.TrimSpace(probe.Email))
	allowed, err := h.limiter.Allow(c.Context(), key, ratelimit.AuthPolicy.Limit, ratelimit.AuthPolicy.Window)
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}
	if !allowed {
		return httputil.HandleError(c, h.log, apierrors.New(apierrors.KindRateLimited, "too many authentication attempts"))
	}
	return c.Next()
}
