package server

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/domain"
	apperrors "github.com/Freakycoder/decentralized-uptime-monitoring/internal/errors"
	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/metrics"
)

// queuePublishResponse mirrors what producers expect back from a queue
// submission.
type queuePublishResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	QueueLength *int64 `json:"queue_length,omitempty"`
}

// handleQueuePublish accepts one delivery job and appends it to the
// delivery queue. The single worker picks it up later.
func (s *Server) handleQueuePublish(c echo.Context) error {
	var job domain.PendingDeliveryJob
	if err := c.Bind(&job); err != nil {
		return apperrors.ValidationError("invalid job payload")
	}
	if job.ValidatorID == uuid.Nil {
		return apperrors.ValidationError("validator_id is required")
	}
	if job.WebsiteID == uuid.Nil {
		return apperrors.ValidationError("website_id is required")
	}
	if job.JobID == uuid.Nil {
		job.JobID = uuid.New()
	}

	length, err := s.queue.Enqueue(c.Request().Context(), s.config.QueueName, job)
	if err != nil {
		return err
	}

	metrics.QueueJobsEnqueued.Inc()
	metrics.QueueDepth.Set(float64(length))

	return c.JSON(http.StatusOK, queuePublishResponse{
		Success:     true,
		Message:     "job queued",
		QueueLength: &length,
	})
}

type notifyRequest struct {
	URL    string `json:"url"`
	TaskID string `json:"id"`
}

type notifyResponse struct {
	Success          bool  `json:"success"`
	Receivers        int64 `json:"receivers"`
	LocalSubscribers int   `json:"local_subscribers"`
}

// handleNotify announces a new monitoring task. The announcement goes out
// on both fan-out legs: redis pub/sub for other instances and their SSE
// subscribers, and the in-process bus for sockets on this instance.
func (s *Server) handleNotify(c echo.Context) error {
	var req notifyRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid notify payload")
	}
	if req.URL == "" {
		return apperrors.ValidationError("url is required")
	}
	if req.TaskID == "" {
		return apperrors.ValidationError("id is required")
	}

	msg := domain.BroadcastMessage{URL: req.URL, TaskID: req.TaskID}

	receivers, err := s.publisher.Publish(c.Request().Context(), msg)
	if err != nil {
		return err
	}
	delivered := s.bus.Publish(msg)

	return c.JSON(http.StatusOK, notifyResponse{
		Success:          true,
		Receivers:        receivers,
		LocalSubscribers: delivered,
	})
}
