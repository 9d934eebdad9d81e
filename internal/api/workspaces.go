package api

import (
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/galynx-chat/galynx-server/internal/access"
	"github.com/galynx-chat/galynx-server/internal/apierrors"
	"github.com/galynx-chat/galynx-server/internal/httputil"
	"github.com/galynx-chat/galynx-server/internal/storage"
)

// ListWorkspaces handles GET /api/v1/workspaces: unlike every other
// workspace-scoped listing, this enumerates only the actor's own
// memberships, since there is no single workspace to scope it to yet.
func (h *Handler) ListWorkspaces(c fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}

	memberships, err := h.store.ListMemberships(c.Context(), actor.UserID)
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}

	workspaces := make([]storage.Workspace, 0, len(memberships))
	for _, m := range memberships {
		ws, err := h.store.GetWorkspaceByID(c.Context(), m.WorkspaceID)
		if err != nil {
			continue
		}
		workspaces = append(workspaces, ws)
	}
	return httputil.Success(c, workspaces)
}

type createWorkspaceRequest struct {
	Name string `json:"name"`
}

// CreateWorkspace handles POST /api/v1/workspaces: any authenticated user
// may create a workspace and becomes its owner.
func (h *Handler) CreateWorkspace(c fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}

	var req createWorkspaceRequest
	if err := c.Bind().Body(&req); err != nil {
		return httputil.HandleError(c, h.log, apierrors.New(apierrors.KindInvalidInput, "malformed request body"))
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return httputil.HandleError(c, h.log, apierrors.New(apierrors.KindInvalidInput, "name is required"))
	}

	id, err := h.gen.New()
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}
	now := h.clock.NowMS()

	ws, err := h.store.CreateWorkspace(c.Context(), storage.Workspace{ID: id, Name: req.Name, CreatedAt: now})
	if err != nil {
		return httputil.HandleError(c, h.log, mapStoreError(err, "workspace not found"))
	}

	if _, err := h.store.CreateMembership(c.Context(), storage.WorkspaceMember{
		WorkspaceID: ws.ID,
		UserID:      actor.UserID,
		Role:        storage.RoleOwner,
		CreatedAt:   now,
	}); err != nil {
		return httputil.HandleError(c, h.log, err)
	}

	return httputil.SuccessStatus(c, fiber.StatusCreated, ws)
}

// ListWorkspaceMembers handles GET /api/v1/workspaces/:id/members.
func (h *Handler) ListWorkspaceMembers(c fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}
	workspaceID, err := paramUUID(c, "id")
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}
	if err := h.access.CheckWorkspaceScoped(actor, access.ActionListChannelMembers, workspaceID); err != nil {
		return httputil.HandleError(c, h.log, err)
	}

	members, err := h.store.ListMembers(c.Context(), workspaceID)
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}
	return httputil.Success(c, members)
}

type addWorkspaceMemberRequest struct {
	UserID string       `json:"user_id"`
	Role   storage.Role `json:"role"`
}

// AddWorkspaceMember handles POST /api/v1/workspaces/:id/members: only an
// owner/admin may add a member, and never as owner (there is exactly one
// owner, fixed at bootstrap).
func (h *Handler) AddWorkspaceMember(c fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}
	workspaceID, err := paramUUID(c, "id")
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}
	if err := h.access.CheckWorkspaceScoped(actor, access.ActionCreateUser, workspaceID); err != nil {
		return httputil.HandleError(c, h.log, err)
	}

	var req addWorkspaceMemberRequest
	if err := c.Bind().Body(&req); err != nil {
		return httputil.HandleError(c, h.log, apierrors.New(apierrors.KindInvalidInput, "malformed request body"))
	}
	userID, err := uuidParse(req.UserID)
	if err != nil {
		return httputil.HandleError(c, h.log, apierrors.New(apierrors.KindInvalidInput, "malformed user_id"))
	}
	switch req.Role {
	case storage.RoleAdmin, storage.RoleMember:
	default:
		return httputil.HandleError(c, h.log, apierrors.New(apierrors.KindInvalidInput, "role must be admin or member"))
	}

	if _, err := h.store.GetUserByID(c.Context(), userID); err != nil {
		return httputil.HandleError(c, h.log, mapStoreError(err, "user not found"))
	}

	member, err := h.store.CreateMembership(c.Context(), storage.WorkspaceMember{
		WorkspaceID: workspaceID,
		UserID:      userID,
		Role:        req.Role,
		CreatedAt:   h.clock.NowMS(),
	})
	if err != nil {
		return httputil.HandleError(c, h.log, mapStoreError(err, "workspace not found"))
	}
	return httputil.SuccessStatus(c, fiber.StatusCreated, member)
}
