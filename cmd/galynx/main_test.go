package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"

	"github.com/galynx-chat/galynx-server/internal/apierrors"
	"github.com/galynx-chat/galynx-server/internal/httputil"
)

// TestUnknownRouteReturns404 verifies that requests to undefined paths
// receive a 404 JSON response. Fiber v3 treats app.Use() middleware as route
// matches, so without the catch-all handler at the end of run() the router
// would return 200 with an empty body for unmatched paths.
func TestUnknownRouteReturns404(t *testing.T) {
	t.Parallel()

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return httputil.Fail(c, e.Code, fiberStatusToAPICode(e.Code), e.Message)
			}
			return httputil.Fail(c, fiber.StatusInternalServerError, apierrors.CodeInternal, "An internal error occurred")
		},
	})

	app.Use(func(c fiber.Ctx) error {
		return c.Next()
	})

	app.Get("/known", func(c fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	// Catch-all: mirrors the handler at the end of run().
	app.Use(func(_ fiber.Ctx) error {
		return fiber.ErrNotFound
	})

	tests := []struct {
		name string
		path string
		want int
	}{
		{"unknown path", "/no-such-route", fiber.StatusNotFound},
		{"favicon", "/favicon.ico", fiber.StatusNotFound},
		{"known path", "/known", fiber.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.path, nil))
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			defer func() { _ = resp.Body.Close() }()

			if resp.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.want)
			}

			if tt.want == fiber.StatusNotFound {
				body, err := io.ReadAll(resp.Body)
				if err != nil {
					t.Fatalf("read body: %v", err)
				}
				var env httputil.ErrorResponse
				if err := json.Unmarshal(body, &env); err != nil {
					t.Fatalf("unmarshal error response: %v", err)
				}
				if env.Error != apierrors.CodeNotFound {
					t.Errorf("error code = %q, want %q", env.Error, apierrors.CodeNotFound)
				}
			}
		})
	}
}

func TestFiberStatusToAPICode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		want   apierrors.Code
	}{
		{"unauthorized", fiber.StatusUnauthorized, apierrors.CodeUnauthorized},
		{"not found", fiber.StatusNotFound, apierrors.CodeNotFound},
		{"too many requests", fiber.StatusTooManyRequests, apierrors.CodeRateLimited},
		{"generic 4xx falls back to bad request", fiber.StatusConflict, apierrors.CodeInvalidInput},
		{"another 4xx", fiber.StatusGone, apierrors.CodeInvalidInput},
		{"5xx falls back to internal error", fiber.StatusInternalServerError, apierrors.CodeInternal},
		{"502 falls back to internal error", fiber.StatusBadGateway, apierrors.CodeInternal},
		{"unknown status falls back to internal error", 600, apierrors.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := fiberStatusToAPICode(tt.status)
			if got != tt.want {
				t.Errorf("fiberStatusToAPICode(%d) = %q, want %q", tt.status, got, tt.want)
			}
		})
	}
}
