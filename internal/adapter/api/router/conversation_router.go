package router

import (
	"github.com/labstack/echo/v4"

	"socialdm/internal/adapter/api/handler"
	"socialdm/internal/adapter/api/middleware"
	"socialdm/internal/infrastructure/ratelimit"
)

func SetupConversationRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimiter *ratelimit.RateLimiter) {
	conversationHandler := handler.GetConversationHandler()
	messageHandler := handler.GetMessageHandler()
	groupHandler := handler.GetGroupHandler()

	conversations := e.Group("/v1/conversations")
	if rateLimiter != nil {
		conversations.Use(middleware.RateLimitByIP(rateLimiter))
	}
	conversations.Use(authMiddleware.Authenticate)

	conversations.GET("", conversationHandler.List)
	conversations.POST("/direct", conversationHandler.StartDirect)
	conversations.POST("/groups", conversationHandler.CreateGroup)
	conversations.PUT("/profile", conversationHandler.RefreshProfile)
	conversations.GET("/:id", conversationHandler.Get)
	conversations.DELETE("/:id", conversationHandler.Delete)
	conversations.PUT("/:id/archive", conversationHandler.Archive)
	conversations.DELETE("/:id/archive", conversationHandler.Unarchive)

	conversations.GET("/:id/messages", messageHandler.List)
	conversations.POST("/:id/messages", messageHandler.Send)
	conversations.PUT("/:id/messages/read", messageHandler.MarkAllRead)
	conversations.DELETE("/:id/messages/:messageId", messageHandler.Delete)
	conversations.POST("/:id/images", messageHandler.UploadImage)

	conversations.POST("/:id/participants", groupHandler.AddParticipant)
	conversations.DELETE("/:id/participants/:userId", groupHandler.RemoveParticipant)
	conversations.POST("/:id/join", groupHandler.Join)
	conversations.POST("/:id/leave", groupHandler.Leave)
	conversations.POST("/:id/requests/:userId/approve", groupHandler.ApproveRequest)
	conversations.POST("/:id/requests/:userId/reject", groupHandler.RejectRequest)
	conversations.POST("/:id/admins", groupHandler.MakeAdmin)
	conversations.DELETE("/:id/admins/:userId", groupHandler.RemoveAdmin)
	conversations.PUT("/:id/approval", groupHandler.SetRequireApproval)
	conversations.PATCH("/:id", groupHandler.UpdateDetails)
}
