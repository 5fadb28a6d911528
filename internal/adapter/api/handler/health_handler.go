package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	ws "socialdm/internal/infrastructure/websocket"
)

type HealthHandler struct {
	wsManager   *ws.Manager
	environment string
	startedAt   time.Time
}

func NewHealthHandler(wsManager *ws.Manager, environment string) *HealthHandler {
	return &HealthHandler{
		wsManager:   wsManager,
		environment: environment,
		startedAt:   time.Now(),
	}
}

func (h *HealthHandler) CheckHealth(c echo.Context) error {
	body := map[string]interface{}{
		"status":      "Server is running",
		"environment": h.environment,
		"time":        time.Now().Format(time.RFC3339),
		"uptime":      time.Since(h.startedAt).Round(time.Second).String(),
	}
	if h.wsManager != nil {
		body["websocket_clients"] = h.wsManager.ConnectedCount()
	}
	return c.JSON(http.StatusOK, body)
}
