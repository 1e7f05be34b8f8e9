// Package api provides the HTTP handlers for astrochat.
package api

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/astrialabs/astrochat/config"
	"github.com/astrialabs/astrochat/internal/cache"
	"github.com/astrialabs/astrochat/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	svc      *service.Service
	backend  cache.Backend
	config   *config.Config
	upgrader websocket.Upgrader
}

// NewHandler creates a new handler.
func NewHandler(svc *service.Service, backend cache.Backend, cfg *config.Config) *Handler {
	return &Handler{
		svc:     svc,
		backend: backend,
		config:  cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	v1 := e.Group("/v1", h.RequireAuth, h.RateLimit)

	v1.POST("/chat", h.PostChat)
	v1.GET("/chat/ws", h.ChatWS)

	v1.POST("/sessions", h.CreateSession)
	v1.GET("/sessions", h.ListSessions)
	v1.GET("/sessions/:session_id", h.GetSession)
	v1.GET("/sessions/:session_id/messages", h.GetSessionMessages)
	v1.PATCH("/sessions/:session_id", h.UpdateSession)
	v1.POST("/sessions/:session_id/persist", h.PersistSession)
	v1.DELETE("/sessions/:session_id", h.DeleteSession)

	v1.GET("/users/me", h.GetMe)
	v1.PATCH("/users/me", h.UpdateMe)
	v1.POST("/users/me/logout", h.Logout)

	v1.POST("/charts", h.CreateChart)
	v1.GET("/charts", h.ListCharts)
	v1.GET("/charts/:chart_id", h.GetChart)
	v1.DELETE("/charts/:chart_id", h.DeleteChart)

	admin := v1.Group("/admin")
	admin.GET("/users", h.AdminListUsers)
	admin.POST("/users/:user_id/deactivate", h.AdminDeactivateUser)
	admin.POST("/users/:user_id/role", h.AdminGrantRole)
	admin.POST("/cleanup", h.AdminRunCleanup)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	status := "healthy"
	if err := h.backend.Ping(c.Request().Context()); err != nil {
		status = "degraded"
	}
	if err := h.svc.Ping(c.Request().Context()); err != nil {
		status = "degraded"
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":  status,
		"version": "0.1.0",
	})
}
