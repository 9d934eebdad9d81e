package api

import (
	"github.com/gofiber/fiber/v3"

	"github.com/galynx-chat/galynx-server/internal/apierrors"
	"github.com/galynx-chat/galynx-server/internal/httputil"
)

// GetThreadSummary handles GET /api/v1/threads/:root_id.
func (h *Handler) GetThreadSummary(c fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}
	rootID, err := paramUUID(c, "root_id")
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}

	root, err := h.store.GetMessageByID(c.Context(), rootID)
	if err != nil {
		return httputil.HandleError(c, h.log, mapStoreError(err, "thread not found"))
	}
	if root.WorkspaceID != actor.WorkspaceID {
		return httputil.HandleError(c, h.log, apierrors.New(apierrors.KindNotFound, "thread not found"))
	}
	channel, err := h.store.GetChannelByID(c.Context(), root.ChannelID)
	if err != nil {
		return httputil.HandleError(c, h.log, mapStoreError(err, "thread not found"))
	}
	if err := h.access.CheckChannelAccess(c.Context(), actor, channel); err != nil {
		return httputil.HandleError(c, h.log, err)
	}

	summary, err := h.messages.GetThreadSummary(c.Context(), rootID)
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}
	return httputil.Success(c, summary)
}

// ListThreadReplies handles GET /api/v1/threads/:root_id/replies.
func (h *Handler) ListThreadReplies(c fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}
	rootID, err := paramUUID(c, "root_id")
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}

	root, err := h.store.GetMessageByID(c.Context(), rootID)
	if err != nil {
		return httputil.HandleError(c, h.log, mapStoreError(err, "thread not found"))
	}
	if root.WorkspaceID != actor.WorkspaceID {
		return httputil.HandleError(c, h.log, apierrors.New(apierrors.KindNotFound, "thread not found"))
	}
	channel, err := h.store.GetChannelByID(c.Context(), root.ChannelID)
	if err != nil {
		return httputil.HandleError(c, h.log, mapStoreError(err, "thread not found"))
	}
	if err := h.access.CheckChannelAccess(c.Context(), actor, channel); err != nil {
		return httputil.HandleError(c, h.log, err)
	}

	cursor, err := queryCursor(c)
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}
	page, err := h.messages.ListThreadReplies(c.Context(), rootID, cursor, queryLimit(c))
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}
	return httputil.Success(c, page)
}

type replyInThreadRequest struct {
	BodyMD      string `json:"body_md"`
	ClientMsgID string `json:"client_msg_id,omitempty"`
}

// ReplyInThread handles POST /api/v1/threads/:root_id/replies.
func (h *Handler) ReplyInThread(c fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}
	rootID, err := paramUUID(c, "root_id")
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}

	root, err := h.store.GetMessageByID(c.Context(), rootID)
	if err != nil {
		return httputil.HandleError(c, h.log, mapStoreError(err, "thread not found"))
	}
	if root.WorkspaceID != actor.WorkspaceID {
		return httputil.HandleError(c, h.log, apierrors.New(apierrors.KindNotFound, "thread not found"))
	}
	channel, err := h.store.GetChannelByID(c.Context(), root.ChannelID)
	if err != nil {
		return httputil.HandleError(c, h.log, mapStoreError(err, "thread not found"))
	}
	if err := h.access.CheckChannelAccess(c.Context(), actor, channel); err != nil {
		return httputil.HandleError(c, h.log, err)
	}

	var req replyInThreadRequest
	if err := c.Bind().Body(&req); err != nil {
		return httputil.HandleError(c, h.log, apierrors.New(apierrors.KindInvalidInput, "malformed request body"))
	}

	created, err := h.messages.ReplyInThread(c.Context(), actor, channel, rootID, req.BodyMD, req.ClientMsgID)
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}
	return httputil.SuccessStatus(c, fiber.StatusCreated, created.Message)
}
