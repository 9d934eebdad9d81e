package api

import (
	"github.com/gofiber/fiber/v3"

	"github.com/galynx-chat/galynx-server/internal/access"
	"github.com/galynx-chat/galynx-server/internal/httputil"
)

// ListAudit handles GET /api/v1/audit: owner/admin only, scoped to the
// actor's own workspace.
func (h *Handler) ListAudit(c fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}
	if err := h.access.CheckWorkspaceScoped(actor, access.ActionListAudit, actor.WorkspaceID); err != nil {
		return httputil.HandleError(c, h.log, err)
	}

	cursor, err := queryCursor(c)
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}
	page, err := h.store.ListAuditEntries(c.Context(), actor.WorkspaceID, cursor, queryLimit(c))
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}
	return httputil.Success(c, page)
}
