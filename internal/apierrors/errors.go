// Package apierrors defines the small set of error kinds that cross every
// boundary in galynx: HTTP responses, WebSocket ERROR envelopes, and audit
// logging all speak this vocabulary.
package apierrors

import "github.com/gofiber/fiber/v3"

// Code is a stable, wire-visible error code.
type Code string

const (
	CodeInvalidInput    Code = "bad_request"
	CodeUnauthorized    Code = "unauthorized"
	CodeForbidden       Code = "forbidden"
	CodeNotFound        Code = "not_found"
	CodeRateLimited     Code = "too_many_requests"
	CodeUniqueViolation Code = "bad_request"
	CodeInternal        Code = "internal_error"
)

// Kind is the internal tag carried by a Galynx error. It maps deterministically
// to an HTTP status, a WebSocket ERROR status, and a wire Code.
type Kind int

const (
	KindInvalidInput Kind = iota
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindRateLimited
	KindUniqueViolation
	KindTransient
	KindInternal
)

// Error is a tagged application error carrying a Kind and a human-readable
// message. Package-level *Error values are shared pointers and may be
// compared with ==; errors.As recovers an *Error from a wrapped chain.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs an *Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an *Error of the given kind, retaining cause for %w chains.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// HTTPStatus returns the HTTP status code for the error kind.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindInvalidInput, KindUniqueViolation:
		return fiber.StatusBadRequest
	case KindUnauthorized:
		return fiber.StatusUnauthorized
	case KindForbidden:
		return fiber.StatusForbidden
	case KindNotFound:
		return fiber.StatusNotFound
	case KindRateLimited:
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusInternalServerError
	}
}

// WSStatus returns the WebSocket ERROR envelope status for the error kind.
// It returns the same status as HTTPStatus for every kind; Transient is 500
// on both, and no storage retry is attempted before it is reported.
func (k Kind) WSStatus() int {
	if k == KindTransient {
		return fiber.StatusInternalServerError
	}
	return k.HTTPStatus()
}

// Code returns the wire-visible error code for the error kind.
func (k Kind) Code() Code {
	switch k {
	case KindInvalidInput, KindUniqueViolation:
		return CodeInvalidInput
	case KindUnauthorized:
		return CodeUnauthorized
	case KindForbidden:
		return CodeForbidden
	case KindNotFound:
		return CodeNotFound
	case KindRateLimited:
		return CodeRateLimited
	default:
		return CodeInternal
	}
}
