package api

import (
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/galynx-chat/galynx-server/internal/apierrors"
	"github.com/galynx-chat/galynx-server/internal/httputil"
)

type loginRequest struct {
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	WorkspaceID *string `json:"workspace_id,omitempty"`
}

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	AccessExpiresAt  uint64 `json:"access_expires_at"`
	RefreshExpiresAt uint64 `json:"refresh_expires_at"`
}

// Login handles POST /api/v1/auth/login.
func (h *Handler) Login(c fiber.Ctx) error {
	var req loginRequest
	if err := c.Bind().Body(&req); err != nil {
		return httputil.HandleError(c, h.log, apierrors.New(apierrors.KindInvalidInput, "malformed request body"))
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		return httputil.HandleError(c, h.log, apierrors.New(apierrors.KindInvalidInput, "email and password are required"))
	}

	var workspaceID *uuid.UUID
	if req.WorkspaceID != nil && *req.WorkspaceID != "" {
		id, err := uuid.Parse(*req.WorkspaceID)
		if err != nil {
			return httputil.HandleError(c, h.log, apierrors.New(apierrors.KindInvalidInput, "malformed workspace_id"))
		}
		workspaceID = &id
	}

	pair, err := h.authSvc.Login(c.Context(), req.Email, req.Password, workspaceID)
	if err != nil {
		return httputil.HandleError(c, h.log, mapAuthError(err))
	}
	return httputil.Success(c, tokenResponse{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh handles POST /api/v1/auth/refresh.
func (h *Handler) Refresh(c fiber.Ctx) error {
	var req refreshRequest
	if err := c.Bind().Body(&req); err != nil || req.RefreshToken == "" {
		return httputil.HandleError(c, h.log, apierrors.New(apierrors.KindInvalidInput, "refresh_token is required"))
	}

	pair, err := h.authSvc.Refresh(c.Context(), req.RefreshToken)
	if err != nil {
		return httputil.HandleError(c, h.log, mapAuthError(err))
	}
	return httputil.Success(c, tokenResponse{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	})
}

// Logout handles POST /api/v1/auth/logout. Idempotent: revoking an
// already-revoked or unknown refresh token is still a success.
func (h *Handler) Logout(c fiber.Ctx) error {
	var req refreshRequest
	if err := c.Bind().Body(&req); err != nil || req.RefreshToken == "" {
		return httputil.HandleError(c, h.log, apierrors.New(apierrors.KindInvalidInput, "refresh_token is required"))
	}
	if err := h.authSvc.Logout(c.Context(), req.RefreshToken); err != nil {
		return httputil.HandleError(c, h.log, err)
	}
	return httputil.SuccessStatus(c, fiber.StatusOK, fiber.Map{"logged_out": true})
}

// Me handles GET /api/v1/me: the identity the caller's access token encodes.
func (h *Handler) Me(c fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}
	user, err := h.store.GetUserByID(c.Context(), actor.UserID)
	if err != nil {
		return httputil.HandleError(c, h.log, mapStoreError(err, "user not found"))
	}
	return httputil.Success(c, fiber.Map{
		"user":         user,
		"workspace_id": actor.WorkspaceID,
		"role":         actor.Role,
	})
}
