package server

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/metrics"
	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleValidatorSocket upgrades a validator connection and runs its
// session until the socket dies. The session does its own registration
// handshake; unregistered sockets never see broadcasts.
func (s *Server) handleValidatorSocket(c echo.Context) error {
	ip := c.RealIP()

	ok, reason := s.limits.Acquire(ip)
	if !ok {
		metrics.ConnectionsRejected.WithLabelValues(string(reason)).Inc()
		s.log.Warn("Socket rejected", "ip", ip, "reason", reason)
		if reason == RejectRateLimit {
			return c.NoContent(http.StatusTooManyRequests)
		}
		return c.NoContent(http.StatusServiceUnavailable)
	}
	defer s.limits.Release(ip)

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the failure response.
		s.log.Warn("Socket upgrade failed", "ip", ip, "error", err)
		return nil
	}

	sess := session.New(conn, s.registry, s.bus, s.forwarder)
	sess.Run(c.Request().Context())
	return nil
}
