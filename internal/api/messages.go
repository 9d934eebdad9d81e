package api

import (
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/galynx-chat/galynx-server/internal/apierrors"
	"github.com/galynx-chat/galynx-server/internal/httputil"
)

// ListChannelMessages handles GET /api/v1/channels/:id/messages.
func (h *Handler) ListChannelMessages(c fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}
	channelID, err := paramUUID(c, "id")
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}

	channel, err := h.store.GetChannelByID(c.Context(), channelID)
	if err != nil {
		return httputil.HandleError(c, h.log, mapStoreError(err, "channel not found"))
	}
	if err := h.access.CheckChannelAccess(c.Context(), actor, channel); err != nil {
		return httputil.HandleError(c, h.log, err)
	}

	cursor, err := queryCursor(c)
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}
	page, err := h.messages.ListChannelMessages(c.Context(), channelID, cursor, queryLimit(c))
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}
	return httputil.Success(c, page)
}

type createMessageRequest struct {
	BodyMD       string  `json:"body_md"`
	ThreadRootID *string `json:"thread_root_id,omitempty"`
	ClientMsgID  string  `json:"client_msg_id,omitempty"`
}

// CreateChannelMessage handles POST /api/v1/channels/:id/messages.
func (h *Handler) CreateChannelMessage(c fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}
	channelID, err := paramUUID(c, "id")
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}

	channel, err := h.store.GetChannelByID(c.Context(), channelID)
	if err != nil {
		return httputil.HandleError(c, h.log, mapStoreError(err, "channel not found"))
	}
	if err := h.access.CheckChannelAccess(c.Context(), actor, channel); err != nil {
		return httputil.HandleError(c, h.log, err)
	}

	var req createMessageRequest
	if err := c.Bind().Body(&req); err != nil {
		return httputil.HandleError(c, h.log, apierrors.New(apierrors.KindInvalidInput, "malformed request body"))
	}
	var threadRootID *uuid.UUID
	if req.ThreadRootID != nil {
		id, err := uuidParse(*req.ThreadRootID)
		if err != nil {
			return httputil.HandleError(c, h.log, apierrors.New(apierrors.KindInvalidInput, "malformed thread_root_id"))
		}
		threadRootID = &id
	}

	created, err := h.messages.Create(c.Context(), actor, channel, req.BodyMD, threadRootID, req.ClientMsgID)
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}
	return httputil.SuccessStatus(c, fiber.StatusCreated, created.Message)
}

type editMessageRequest struct {
	BodyMD string `json:"body_md"`
}

// EditMessage handles PATCH /api/v1/messages/:id.
func (h *Handler) EditMessage(c fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}

	var req editMessageRequest
	if err := c.Bind().Body(&req); err != nil {
		return httputil.HandleError(c, h.log, apierrors.New(apierrors.KindInvalidInput, "malformed request body"))
	}

	updated, err := h.messages.Edit(c.Context(), actor, id, req.BodyMD)
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}
	return httputil.Success(c, updated)
}

// DeleteMessage handles DELETE /api/v1/messages/:id.
func (h *Handler) DeleteMessage(c fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}

	deleted, err := h.messages.SoftDelete(c.Context(), actor, id)
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}
	return httputil.Success(c, deleted)
}

type reactionRequest struct {
	Emoji string `json:"emoji"`
}

// AddMessageReaction handles POST /api/v1/messages/:id/reactions.
func (h *Handler) AddMessageReaction(c fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}
	var req reactionRequest
	if err := c.Bind().Body(&req); err != nil {
		return httputil.HandleError(c, h.log, apierrors.New(apierrors.KindInvalidInput, "malformed request body"))
	}
	if err := h.messages.AddReaction(c.Context(), actor, id, req.Emoji); err != nil {
		return httputil.HandleError(c, h.log, err)
	}
	return httputil.SuccessStatus(c, fiber.StatusCreated, fiber.Map{"added": true})
}

// RemoveMessageReaction handles DELETE /api/v1/messages/:id/reactions/:emoji.
func (h *Handler) RemoveMessageReaction(c fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}
	emoji := c.Params("emoji")
	if emoji == "" {
		return httputil.HandleError(c, h.log, apierrors.New(apierrors.KindInvalidInput, "emoji is required"))
	}
	if err := h.messages.RemoveReaction(c.Context(), actor, id, emoji); err != nil {
		return httputil.HandleError(c, h.log, err)
	}
	return httputil.Success(c, fiber.Map{"removed": true})
}
