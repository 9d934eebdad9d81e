package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/galynx-chat/galynx-server/internal/apierrors"
)

// Context keys populated by RequireAuth for downstream handlers.
const (
	LocalUserID      = "auth.user_id"
	LocalWorkspaceID = "auth.workspace_id"
	LocalRole        = "auth.role"
)

// RequireAuth returns Fiber middleware that validates a JWT Bearer token and
// stores the authenticated identity in request locals.
func RequireAuth(secret, issuer string) fiber.Handler {
	return func(c fiber.Ctx) error {
		header := c.Get("Authorization")
		const prefix = "Bearer "
		if header == "" || !strings.HasPrefix(header, prefix) {
			return apierrors.New(apierrors.KindUnauthorized, "missing or malformed authorization header")
		}
		tokenStr := strings.TrimPrefix(header, prefix)

		claims, err := ValidateAccessToken(tokenStr, secret, issuer)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return apierrors.New(apierrors.KindUnauthorized, "token has expired")
			}
			return apierrors.New(apierrors.KindUnauthorized, "invalid token")
		}

		userID, err := claims.UserID()
		if err != nil {
			return apierrors.New(apierrors.KindUnauthorized, "invalid token subject")
		}
		workspaceID, err := claims.Workspace()
		if err != nil {
			return apierrors.New(apierrors.KindUnauthorized, "invalid token workspace")
		}

		c.Locals(LocalUserID, userID)
		c.Locals(LocalWorkspaceID, workspaceID)
		c.Locals(LocalRole, claims.Role)
		return c.Next()
	}
}

// UserID extracts the authenticated user id set by RequireAuth.
func UserID(c fiber.Ctx) (uuid.UUID, bool) {
	id, ok := c.Locals(LocalUserID).(uuid.UUID)
	return id, ok
}

// WorkspaceID extracts the authenticated workspace id set by RequireAuth.
func WorkspaceID(c fiber.Ctx) (uuid.UUID, bool) {
	id, ok := c.Locals(LocalWorkspaceID).(uuid.UUID)
	return id, ok
}

// RoleFromContext extracts the authenticated role set by RequireAuth.
func RoleFromContext(c fiber.Ctx) (string, bool) {
	role, ok := c.Locals(LocalRole).(string)
	return role, ok
}
