package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints (no auth required)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.GET("/version", s.handleVersion)

	// Validator socket (limits enforced inside the handler)
	s.echo.GET("/ws/validator", s.handleValidatorSocket)

	// SSE notification stream
	s.echo.GET("/notifications/stream/:validator_id", s.handleNotificationStream)

	// Producer side: queue submission and task announcement
	s.echo.POST("/queue/publish", s.handleQueuePublish)
	s.echo.POST("/notify", s.handleNotify, s.requireSession)

	// Notification records
	s.echo.GET("/notifications/:validator_id", s.handleListNotifications)
	s.echo.POST("/notifications", s.handleCreateNotification, s.requireSession)
	s.echo.POST("/notifications/read/:validator_id", s.handleMarkNotificationsRead)
}
