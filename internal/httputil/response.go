// Package httputil holds the uniform JSON response envelope galynx's HTTP
// handlers write through, adapted from the prior internal/httputil
// package to fiber v3's fiber.Ctx interface and galynx's own apierrors
// package in place of the prior external uncord-protocol module.
package httputil

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"

	"github.com/galynx-chat/galynx-server/internal/apierrors"
)

// SuccessResponse wraps successful API responses.
type SuccessResponse struct {
	Data any `json:"data"`
}

// ErrorResponse is the wire error envelope: {"error": <code>, "message": <string>}.
type ErrorResponse struct {
	Error   apierrors.Code `json:"error"`
	Message string         `json:"message"`
}

// Success sends a 200 JSON response with the given data.
func Success(c fiber.Ctx, data any) error {
	return c.JSON(SuccessResponse{Data: data})
}

// SuccessStatus sends a JSON response with a custom status code.
func SuccessStatus(c fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(SuccessResponse{Data: data})
}

// Fail sends a JSON error response with the given status, code, and message.
func Fail(c fiber.Ctx, status int, code apierrors.Code, message string) error {
	return c.Status(status).JSON(ErrorResponse{Error: code, Message: message})
}

// HandleError maps any error returned by a handler to the uniform error
// envelope: an *apierrors.Error maps by Kind, anything else is logged and
// surfaced as an opaque internal_error so handler internals never leak to a
// client response.
func HandleError(c fiber.Ctx, log zerolog.Logger, err error) error {
	var appErr *apierrors.Error
	if errors.As(err, &appErr) {
		return Fail(c, appErr.Kind.HTTPStatus(), appErr.Kind.Code(), appErr.Message)
	}
	log.Error().Err(err).Str("path", c.Path()).Msg("httputil: unhandled handler error")
	return Fail(c, fiber.StatusInternalServerError, apierrors.CodeInternal, "internal error")
}
