package httputil

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"
)

// RequestLogger returns Fiber middleware that logs every request through the
// given zerolog logger. Register it after requestid so the request id is
// available in locals. Paths in skip are logged at debug instead of the
// usual status-derived level, for noisy liveness/readiness probes.
func RequestLogger(logger zerolog.Logger, skip ...string) fiber.Handler {
	skipSet := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipSet[p] = struct{}{}
	}

	return func(c fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		var event *zerolog.Event
		if _, ok := skipSet[c.Path()]; ok {
			event = logger.Debug()
		} else {
			event = levelForStatus(logger, status)
		}

		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			event.Str("request_id", rid)
		}

		event.
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Str("latency", strings.ReplaceAll(time.Since(start).String(), "µ", "u")).
			Str("ip", c.IP()).
			Msg("request")

		return err
	}
}

// levelForStatus selects the log level by HTTP status: Error for 5xx, Warn
// for 4xx, Info otherwise.
func levelForStatus(logger zerolog.Logger, status int) *zerolog.Event {
	switch {
	case status >= 500:
		return logger.Error()
	case status >= 400:
		return logger.Warn()
	default:
		return logger.Info()
	}
}
