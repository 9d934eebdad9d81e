package api

import (
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/galynx-chat/galynx-server/internal/access"
	"github.com/galynx-chat/galynx-server/internal/apierrors"
	"github.com/galynx-chat/galynx-server/internal/auth"
	"github.com/galynx-chat/galynx-server/internal/httputil"
	"github.com/galynx-chat/galynx-server/internal/storage"
)

// ListUsers handles GET /api/v1/users: owner/admin only, scoped to the
// actor's own workspace membership roster.
func (h *Handler) ListUsers(c fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}
	if err := h.access.CheckWorkspaceScoped(actor, access.ActionListUsers, actor.WorkspaceID); err != nil {
		return httputil.HandleError(c, h.log, err)
	}

	users, err := h.store.ListUsers(c.Context(), actor.WorkspaceID)
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}
	return httputil.Success(c, users)
}

type createUserRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// CreateUser handles POST /api/v1/users: admin onboarding is the only way
// an account is created — there is no self-serve signup. The caller must be
// an owner/admin of the workspace the new user is onboarded into.
func (h *Handler) CreateUser(c fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}
	if err := h.access.CheckWorkspaceScoped(actor, access.ActionCreateUser, actor.WorkspaceID); err != nil {
		return httputil.HandleError(c, h.log, err)
	}

	var req createUserRequest
	if err := c.Bind().Body(&req); err != nil {
		return httputil.HandleError(c, h.log, apierrors.New(apierrors.KindInvalidInput, "malformed request body"))
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || req.Name == "" || req.Password == "" {
		return httputil.HandleError(c, h.log, apierrors.New(apierrors.KindInvalidInput, "email, name and password are required"))
	}
	role := storage.Role(req.Role)
	switch role {
	case storage.RoleAdmin, storage.RoleMember:
	case "":
		role = storage.RoleMember
	default:
		return httputil.HandleError(c, h.log, apierrors.New(apierrors.KindInvalidInput, "role must be admin or member"))
	}

	hash, err := auth.HashPassword(req.Password, h.argon2Params)
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}

	id, err := h.gen.New()
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}
	now := h.clock.NowMS()

	user, err := h.store.CreateUser(c.Context(), storage.User{
		ID:           id,
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
		Status:       storage.UserActive,
		CreatedAt:    now,
	})
	if err != nil {
		return httputil.HandleError(c, h.log, mapStoreError(err, "user not found"))
	}

	if _, err := h.store.CreateMembership(c.Context(), storage.WorkspaceMember{
		WorkspaceID: actor.WorkspaceID,
		UserID:      user.ID,
		Role:        role,
		CreatedAt:   now,
	}); err != nil {
		return httputil.HandleError(c, h.log, err)
	}

	h.audit.Record(c.Context(), actor.WorkspaceID, actor.UserID, storage.ActionUserCreated, "user", user.ID.String(), map[string]any{
		"email": user.Email,
	})

	return httputil.SuccessStatus(c, fiber.StatusCreated, user)
}
