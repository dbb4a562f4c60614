package server

import (
	"strings"

	"github.com/labstack/echo/v4"

	apperrors "github.com/Freakycoder/decentralized-uptime-monitoring/internal/errors"
)

const sessionContextKey = "session"

// requireSession resolves the bearer token and stashes the session on the
// request context. Endpoints without a verifier configured stay open.
func (s *Server) requireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.sessions == nil {
			return next(c)
		}

		header := c.Request().Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return apperrors.UnauthorizedError("missing bearer token")
		}

		sess, err := s.sessions.Verify(c.Request().Context(), token)
		if err != nil {
			return err
		}

		c.Set(sessionContextKey, sess)
		return next(c)
	}
}
