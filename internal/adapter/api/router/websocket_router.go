package router

import (
	"github.com/labstack/echo/v4"

	"socialdm/internal/adapter/api/handler"
	"socialdm/internal/adapter/api/middleware"
)

// SetupWebSocketRouter mounts the realtime endpoint. Browsers cannot set
// headers on the upgrade request, so the token may come as ?token=.
func SetupWebSocketRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware) {
	wsHandler := handler.GetWebSocketHandler()
	e.GET("/ws", wsHandler.HandleWebSocket, authMiddleware.AuthenticateWS)
}
