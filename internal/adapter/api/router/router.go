package router

import (
	"github.com/labstack/echo/v4"

	"socialdm/internal/adapter/api/middleware"
	"socialdm/internal/infrastructure/ratelimit"
)

func Setup(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimiter *ratelimit.RateLimiter, environment string) {
	SetupHealthRouter(e)
	SetupConversationRouter(e, authMiddleware, rateLimiter)
	SetupWebSocketRouter(e, authMiddleware)
	SetupDevRouter(e, environment)
}
