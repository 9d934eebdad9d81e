package api

import (
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/galynx-chat/galynx-server/internal/access"
	"github.com/galynx-chat/galynx-server/internal/apierrors"
	"github.com/galynx-chat/galynx-server/internal/httputil"
	"github.com/galynx-chat/galynx-server/internal/storage"
)

// ListChannels handles GET /api/v1/channels: returns the workspace's
// channels that pass CheckChannelAccess for the actor, so a private channel
// the actor cannot open is left out rather than having its existence leaked
// by this listing.
func (h *Handler) ListChannels(c fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}

	channels, err := h.store.ListChannels(c.Context(), actor.WorkspaceID)
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}

	visible := make([]storage.Channel, 0, len(channels))
	for _, ch := range channels {
		if h.access.CheckChannelAccess(c.Context(), actor, ch) == nil {
			visible = append(visible, ch)
		}
	}
	return httputil.Success(c, visible)
}

type createChannelRequest struct {
	Name      string `json:"name"`
	IsPrivate bool   `json:"is_private"`
}

// CreateChannel handles POST /api/v1/channels: owner/admin only.
func (h *Handler) CreateChannel(c fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}
	if err := h.access.CheckWorkspaceScoped(actor, access.ActionCreateChannel, actor.WorkspaceID); err != nil {
		return httputil.HandleError(c, h.log, err)
	}

	var req createChannelRequest
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

	channel, err := h.store.CreateChannel(c.Context(), storage.Channel{
		ID:          id,
		WorkspaceID: actor.WorkspaceID,
		Name:        req.Name,
		IsPrivate:   req.IsPrivate,
		CreatedBy:   actor.UserID,
		CreatedAt:   now,
	})
	if err != nil {
		return httputil.HandleError(c, h.log, mapStoreError(err, "workspace not found"))
	}

	h.bus.Publish(c.Context(), channelEvent(eventTypeChannelCreated, channel, now))
	h.audit.Record(c.Context(), actor.WorkspaceID, actor.UserID, storage.ActionChannelCreated, "channel", channel.ID.String(), nil)

	return httputil.SuccessStatus(c, fiber.StatusCreated, channel)
}

// DeleteChannel handles DELETE /api/v1/channels/:id: owner/admin only.
func (h *Handler) DeleteChannel(c fiber.Ctx) error {
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
	if err := h.access.CheckWorkspaceScoped(actor, access.ActionDeleteChannel, channel.WorkspaceID); err != nil {
		return httputil.HandleError(c, h.log, err)
	}

	if err := h.store.DeleteChannel(c.Context(), channelID); err != nil {
		return httputil.HandleError(c, h.log, mapStoreError(err, "channel not found"))
	}

	now := h.clock.NowMS()
	h.bus.Publish(c.Context(), channelEvent(eventTypeChannelDeleted, channel, now))
	h.audit.Record(c.Context(), actor.WorkspaceID, actor.UserID, storage.ActionChannelDeleted, "channel", channel.ID.String(), nil)

	return httputil.SuccessStatus(c, fiber.StatusOK, fiber.Map{"deleted": true})
}

// ListChannelMembers handles GET /api/v1/channels/:id/members.
func (h *Handler) ListChannelMembers(c fiber.Ctx) error {
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
	if err := h.access.CheckWorkspaceScoped(actor, access.ActionListChannelMembers, channel.WorkspaceID); err != nil {
		return httputil.HandleError(c, h.log, err)
	}

	members, err := h.store.ListChannelMembers(c.Context(), channelID)
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}
	return httputil.Success(c, members)
}

type addChannelMemberRequest struct {
	UserID string `json:"user_id"`
}

// AddChannelMember handles POST /api/v1/channels/:id/members: owner/admin
// only, grants explicit membership to a private channel.
func (h *Handler) AddChannelMember(c fiber.Ctx) error {
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
	if err := h.access.CheckWorkspaceScoped(actor, access.ActionListChannelMembers, channel.WorkspaceID); err != nil {
		return httputil.HandleError(c, h.log, err)
	}

	var req addChannelMemberRequest
	if err := c.Bind().Body(&req); err != nil {
		return httputil.HandleError(c, h.log, apierrors.New(apierrors.KindInvalidInput, "malformed request body"))
	}
	userID, err := uuidParse(req.UserID)
	if err != nil {
		return httputil.HandleError(c, h.log, apierrors.New(apierrors.KindInvalidInput, "malformed user_id"))
	}

	if _, err := h.store.GetUserByID(c.Context(), userID); err != nil {
		return httputil.HandleError(c, h.log, mapStoreError(err, "user not found"))
	}
	if err := h.store.AddChannelMember(c.Context(), storage.ChannelMember{ChannelID: channelID, UserID: userID}); err != nil {
		return httputil.HandleError(c, h.log, mapStoreError(err, "channel not found"))
	}
	return httputil.SuccessStatus(c, fiber.StatusCreated, fiber.Map{"channel_id": channelID, "user_id": userID})
}

// RemoveChannelMember handles DELETE /api/v1/channels/:id/members/:uid.
func (h *Handler) RemoveChannelMember(c fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}
	channelID, err := paramUUID(c, "id")
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}
	userID, err := paramUUID(c, "uid")
	if err != nil {
		return httputil.HandleError(c, h.log, err)
	}

	channel, err := h.store.GetChannelByID(c.Context(), channelID)
	if err != nil {
		return httputil.HandleError(c, h.log, mapStoreError(err, "channel not found"))
	}
	if err := h.access.CheckWorkspaceScoped(actor, access.ActionListChannelMembers, channel.WorkspaceID); err != nil {
		return httputil.HandleError(c, h.log, err)
	}

	if err := h.store.RemoveChannelMember(c.Context(), channelID, userID); err != nil {
		return httputil.HandleError(c, h.log, mapStoreError(err, "membership not found"))
	}
	return httputil.SuccessStatus(c, fiber.StatusOK, fiber.Map{"removed": true})
}
