// Package alert turns failed uptime checks into validator notifications.
package alert

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/domain"
)

// NotificationCreator persists a notification row.
type NotificationCreator interface {
	Create(ctx context.Context, n domain.Notification) (domain.Notification, error)
}

// Notifier records a website-down notification for the owning validator
// whenever a check comes back with a non-success status. Email delivery is
// not wired up yet; the notification row is the durable record.
type Notifier struct {
	notifications NotificationCreator
	log           *slog.Logger
}

func NewNotifier(notifications NotificationCreator, log *slog.Logger) *Notifier {
	return &Notifier{
		notifications: notifications,
		log:           log.With("component", "alert"),
	}
}

func (n *Notifier) NotifyFailure(ctx context.Context, job domain.PendingDeliveryJob) {
	createCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	notification := domain.Notification{
		ValidatorID:      job.ValidatorID,
		Title:            "Website check failed",
		Message:          fmt.Sprintf("Website %s returned status %d", job.WebsiteID, job.Data.StatusCode),
		NotificationType: "website_down",
	}

	created, err := n.notifications.Create(createCtx, notification)
	if err != nil {
		n.log.Error("failed to record failure notification",
			"website_id", job.WebsiteID,
			"validator_id", job.ValidatorID,
			"error", err)
		return
	}

	// TODO: send the email once an SMTP provider is configured.
	n.log.Warn("website check failed",
		"notification_id", created.ID,
		"website_id", job.WebsiteID,
		"validator_id", job.ValidatorID,
		"status_code", job.Data.StatusCode)
}
