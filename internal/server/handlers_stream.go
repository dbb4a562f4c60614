package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/bridge"
	apperrors "github.com/Freakycoder/decentralized-uptime-monitoring/internal/errors"
	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/metrics"
)

const streamKeepAliveInterval = 30 * time.Second

// streamErrorPayload is the body of a notification_error SSE event.
type streamErrorPayload struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// handleNotificationStream serves the SSE feed of task announcements.
// Malformed pub/sub payloads degrade to notification_error events; the
// stream itself only ends when the client goes away.
func (s *Server) handleNotificationStream(c echo.Context) error {
	validatorID, err := uuid.Parse(c.Param("validator_id"))
	if err != nil {
		return apperrors.ValidationError("invalid validator id")
	}

	if s.validators != nil {
		exists, err := s.validators.Exists(c.Request().Context(), validatorID)
		if err != nil {
			return err
		}
		if !exists {
			return apperrors.NotFoundError("validator not found")
		}
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	ctx := c.Request().Context()
	stream := s.streams.OpenStream(ctx)
	defer stream.Close()

	metrics.StreamSubscribers.Inc()
	defer metrics.StreamSubscribers.Dec()
	s.log.Info("Stream subscriber connected", "validator_id", validatorID)

	ticker := s.clock.NewTicker(streamKeepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Stream subscriber disconnected", "validator_id", validatorID)
			return nil

		case <-ticker.Chan():
			if _, err := fmt.Fprint(res, ": keep-alive\n\n"); err != nil {
				return nil
			}
			res.Flush()

		case event, ok := <-stream.Events():
			if !ok {
				return nil
			}
			if err := s.writeStreamEvent(res, event); err != nil {
				return nil
			}
		}
	}
}

func (s *Server) writeStreamEvent(res *echo.Response, event bridge.Event) error {
	name := "notification"
	var payload any

	if event.Err != nil {
		name = "notification_error"
		payload = streamErrorPayload{
			Error:     "decode_failure",
			Message:   event.Err.Error(),
			Timestamp: s.clock.Now(),
		}
	} else {
		payload = event.Message
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	res.Flush()
	metrics.StreamEventsSent.WithLabelValues(name).Inc()
	return nil
}
