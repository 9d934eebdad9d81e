package api

import (
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/galynx-chat/galynx-server/internal/apierrors"
	"github.com/galynx-chat/galynx-server/internal/httputil"
)

type presignAttachmentRequest struct {
	ChannelID   string `json:"channel_id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

// PresignAttachment handles POST /api/v1/attachments/presign.
func (h *Handler) PresignAttachment(c fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}

	var req presignAttachmentRequest
	if err := c.Bind().Body(&req); err != nil {
		return httputil.HandleError(c, h.log, apierrors.New(apierrors.KindInvalidInput, "malformed request body"))
	}
	channelID, err := uuidParse(req.ChannelID)
	if err != nil {
		return httputil.HandleError(c, h.log, apierrors.New(apierrors.KindInvalidInput, "malformed channel_id"))
	}

	channel, err := h.store.GetChannelByID(c.Context(), channelID)
	if err != nil {
		return httputil.HandleError(c, h.log, mapStoreError(err, "channel not found"))
	}

	result, err := h.attach.Presign(c.Context(), actor, channel, req.Filename, req.ContentType, req.SizeBytes)
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}
	return httputil.SuccessStatus(c, fiber.StatusCreated, result)
}

type commitAttachmentRequest struct {
	UploadID  string  `json:"upload_id"`
	MessageID *string `json:"message_id,omitempty"`
}

// CommitAttachment handles POST /api/v1/attachments/commit.
func (h *Handler) CommitAttachment(c fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}

	var req commitAttachmentRequest
	if err := c.Bind().Body(&req); err != nil {
		return httputil.HandleError(c, h.log, apierrors.New(apierrors.KindInvalidInput, "malformed request body"))
	}
	uploadID, err := uuidParse(req.UploadID)
	if err != nil {
		return httputil.HandleError(c, h.log, apierrors.New(apierrors.KindInvalidInput, "malformed upload_id"))
	}

	var messageID *uuid.UUID
	if req.MessageID != nil {
		id, err := uuidParse(*req.MessageID)
		if err != nil {
			return httputil.HandleError(c, h.log, apierrors.New(apierrors.KindInvalidInput, "malformed message_id"))
		}
		messageID = &id
	}

	attachment, err := h.attach.Commit(c.Context(), actor, uploadID, messageID)
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}
	return httputil.SuccessStatus(c, fiber.StatusCreated, attachment)
}

// GetAttachment handles GET /api/v1/attachments/:id.
func (h *Handler) GetAttachment(c fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}

	result, err := h.attach.Get(c.Context(), actor, id)
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}
	return httputil.Success(c, result)
}
