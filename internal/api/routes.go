package api

import (
	"github.com/gofiber/fiber/v3"

	"github.com/galynx-chat/galynx-server/internal/auth"
)

// RegisterRoutes wires every HTTP and WebSocket route onto app. jwtSecret
// and jwtIssuer parameterize the auth.RequireAuth middleware identically to
// how auth.Service validates the same tokens it mints.
func (h *Handler) RegisterRoutes(app *fiber.App, jwtSecret, jwtIssuer string) {
	requireAuth := auth.RequireAuth(jwtSecret, jwtIssuer)

	app.Get("/api/v1/health", h.Health)
	app.Get("/api/v1/ready", h.Ready)
	app.Get("/api/v1/metrics", h.Metrics)
	app.Get("/api/v1/openapi.json", h.OpenAPI)

	app.Get("/api/v1/ws", h.realtime.HandleUpgrade)

	authGroup := app.Group("/api/v1/auth", h.AuthRateLimit)
	authGroup.Post("/login", h.Login)
	authGroup.Post("/refresh", h.Refresh)
	authGroup.Post("/logout", h.Logout)

	app.Get("/api/v1/me", requireAuth, h.Me)

	workspaceGroup := app.Group("/api/v1/workspaces", requireAuth)
	workspaceGroup.Get("/", h.ListWorkspaces)
	workspaceGroup.Post("/", h.CreateWorkspace)
	workspaceGroup.Get("/:id/members", h.ListWorkspaceMembers)
	workspaceGroup.Post("/:id/members", h.AddWorkspaceMember)

	userGroup := app.Group("/api/v1/users", requireAuth)
	userGroup.Get("/", h.ListUsers)
	userGroup.Post("/", h.CreateUser)

	channelGroup := app.Group("/api/v1/channels", requireAuth)
	channelGroup.Get("/", h.ListChannels)
	channelGroup.Post("/", h.CreateChannel)
	channelGroup.Delete("/:id", h.DeleteChannel)
	channelGroup.Get("/:id/members", h.ListChannelMembers)
	channelGroup.Post("/:id/members", h.AddChannelMember)
	channelGroup.Delete("/:id/members/:uid", h.RemoveChannelMember)
	channelGroup.Get("/:id/messages", h.ListChannelMessages)
	channelGroup.Post("/:id/messages", h.CreateChannelMessage)

	messageGroup := app.Group("/api/v1/messages", requireAuth)
	messageGroup.Patch("/:id", h.EditMessage)
	messageGroup.Delete("/:id", h.DeleteMessage)
	messageGroup.Post("/:id/reactions", h.AddMessageReaction)
	messageGroup.Delete("/:id/reactions/:emoji", h.RemoveMessageReaction)

	threadGroup := app.Group("/api/v1/threads", requireAuth)
	threadGroup.Get("/:root_id", h.GetThreadSummary)
	threadGroup.Get("/:root_id/replies", h.ListThreadReplies)
	threadGroup.Post("/:root_id/replies", h.ReplyInThread)

	attachmentGroup := app.Group("/api/v1/attachments", requireAuth)
	attachmentGroup.Post("/presign", h.PresignAttachment)
	attachmentGroup.Post("/commit", h.CommitAttachment)
	attachmentGroup.Get("/:id", h.GetAttachment)

	app.Get("/api/v1/audit", requireAuth, h.ListAudit)
}
