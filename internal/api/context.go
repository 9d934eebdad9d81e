package api

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/galynx-chat/galynx-server/internal/access"
	"github.com/galynx-chat/galynx-server/internal/apierrors"
	"github.com/galynx-chat/galynx-server/internal/auth"
	"github.com/galynx-chat/galynx-server/internal/eventbus"
	"github.com/galynx-chat/galynx-server/internal/storage"
)

// channel event type names, reused by handlers that mutate a channel
// directly against storage.Store rather than through a dedicated service.
const (
	eventTypeChannelCreated = eventbus.EventChannelCreated
	eventTypeChannelDeleted = eventbus.EventChannelDeleted
)

// channelEvent builds the bus event a channel create/delete emits.
func channelEvent(eventType string, ch storage.Channel, now uint64) eventbus.Event {
	payload, _ := json.Marshal(ch)
	return eventbus.Event{
		Type:        eventType,
		WorkspaceID: ch.WorkspaceID,
		ChannelID:   &ch.ID,
		ServerTS:    now,
		Payload:     payload,
	}
}

// actorFromContext builds an access.Actor from the identity auth.RequireAuth
// stored in request locals. It is only ever called on routes mounted behind
// that middleware, so a missing local is an internal wiring bug, not a
// client-facing error.
func actorFromContext(c fiber.Ctx) (access.Actor, error) {
	userID, ok := auth.UserID(c)
	if !ok {
		return access.Actor{}, apierrors.New(apierrors.KindUnauthorized, "missing authenticated identity")
	}
	workspaceID, ok := auth.WorkspaceID(c)
	if !ok {
		return access.Actor{}, apierrors.New(apierrors.KindUnauthorized, "missing authenticated workspace")
	}
	role, ok := auth.RoleFromContext(c)
	if !ok {
		return access.Actor{}, apierrors.New(apierrors.KindUnauthorized, "missing authenticated role")
	}
	return access.Actor{UserID: userID, WorkspaceID: workspaceID, Role: storage.Role(role)}, nil
}

// paramUUID parses a path parameter as a UUID, surfacing a bad_request on
// failure rather than letting a malformed id reach a store lookup.
func paramUUID(c fiber.Ctx, name string) (uuid.UUID, error) {
	raw := c.Params(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.UUID{}, apierrors.New(apierrors.KindInvalidInput, "malformed "+name)
	}
	return id, nil
}

// uuidParse parses a caller-supplied id from a JSON body. It returns
// uuid.Parse's plain error; callers wrap it into an apierrors value.
func uuidParse(raw string) (uuid.UUID, error) {
	return uuid.Parse(raw)
}

// queryCursor reads the optional ?cursor= query parameter.
func queryCursor(c fiber.Ctx) (*storage.Cursor, error) {
	raw := c.Query("cursor")
	if raw == "" {
		return nil, nil
	}
	cur, err := storage.ParseCursor(raw)
	if err != nil {
		return nil, apierrors.New(apierrors.KindInvalidInput, "malformed cursor")
	}
	return &cur, nil
}

// queryLimit reads the optional ?limit= query parameter, clamped to [1,100].
func queryLimit(c fiber.Ctx) int {
	rawLimit, _ := strconv.Atoi(c.Query("limit"))
	return storage.ClampLimit(rawLimit)
}

// mapAuthError translates the auth package's plain sentinel errors into the
// apierrors vocabulary every handler response speaks.
func mapAuthError(err error) error {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return apierrors.New(apierrors.KindUnauthorized, "invalid email or password")
	case errors.Is(err, auth.ErrUserDisabled):
		return apierrors.New(apierrors.KindForbidden, "user account is disabled")
	case errors.Is(err, auth.ErrAmbiguousWorkspace):
		return apierrors.New(apierrors.KindInvalidInput, "workspace_id is required")
	case errors.Is(err, auth.ErrNotAMember):
		return apierrors.New(apierrors.KindUnauthorized, "not a member of the requested workspace")
	case errors.Is(err, auth.ErrRefreshInvalid), errors.Is(err, auth.ErrRefreshReused):
		return apierrors.New(apierrors.KindUnauthorized, "refresh token is invalid")
	default:
		return err
	}
}

// mapStoreError translates a storage sentinel into apierrors for handlers
// that talk to Store directly (simple CRUD with no dedicated service).
func mapStoreError(err error, notFoundMsg string) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return apierrors.New(apierrors.KindNotFound, notFoundMsg)
	case errors.Is(err, storage.ErrUniqueViolation):
		return apierrors.New(apierrors.KindUniqueViolation, "resource already exists")
	default:
		return err
	}
}
