package server

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/domain"
	apperrors "github.com/Freakycoder/decentralized-uptime-monitoring/internal/errors"
)

type listNotificationsResponse struct {
	Notifications []domain.Notification `json:"notifications"`
	UnreadCount   int                   `json:"unread_count"`
}

func (s *Server) handleListNotifications(c echo.Context) error {
	validatorID, err := uuid.Parse(c.Param("validator_id"))
	if err != nil {
		return apperrors.ValidationError("invalid validator id")
	}

	notifications, unread, err := s.notifications.ListByValidator(c.Request().Context(), validatorID, 50)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, listNotificationsResponse{
		Notifications: notifications,
		UnreadCount:   unread,
	})
}

type createNotificationRequest struct {
	ValidatorID      uuid.UUID `json:"validator_id"`
	Title            string    `json:"title"`
	Message          string    `json:"message"`
	NotificationType string    `json:"notification_type"`
}

func (s *Server) handleCreateNotification(c echo.Context) error {
	var req createNotificationRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid notification payload")
	}
	if req.ValidatorID == uuid.Nil {
		return apperrors.ValidationError("validator_id is required")
	}
	if req.Title == "" || req.Message == "" {
		return apperrors.ValidationError("title and message are required")
	}
	if req.NotificationType == "" {
		req.NotificationType = "info"
	}

	created, err := s.notifications.Create(c.Request().Context(), domain.Notification{
		ValidatorID:      req.ValidatorID,
		Title:            req.Title,
		Message:          req.Message,
		NotificationType: req.NotificationType,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, created)
}

type markReadResponse struct {
	Updated int64 `json:"updated"`
}

func (s *Server) handleMarkNotificationsRead(c echo.Context) error {
	validatorID, err := uuid.Parse(c.Param("validator_id"))
	if err != nil {
		return apperrors.ValidationError("invalid validator id")
	}

	updated, err := s.notifications.MarkAllRead(c.Request().Context(), validatorID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, markReadResponse{Updated: updated})
}
