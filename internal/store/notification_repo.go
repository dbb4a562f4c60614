package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/domain"
	apperrors "github.com/Freakycoder/decentralized-uptime-monitoring/internal/errors"
)

type NotificationRepo struct {
	pool *pgxpool.Pool
}

func NewNotificationRepo(pool *pgxpool.Pool) *NotificationRepo {
	return &NotificationRepo{pool: pool}
}

// Create inserts one notification row and returns it with generated fields.
func (r *NotificationRepo) Create(ctx context.Context, n domain.Notification) (domain.Notification, error) {
	const query = `
		INSERT INTO notifications (id, validator_id, title, message, notification_type, read)
		VALUES ($1, $2, $3, $4, $5, false)
		RETURNING created_at`

	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, query,
		n.ID, n.ValidatorID, n.Title, n.Message, n.NotificationType,
	).Scan(&n.CreatedAt)
	if err != nil {
		return domain.Notification{}, apperrors.InternalError("failed to create notification", err)
	}
	return n, nil
}

// ListByValidator returns the newest notifications for a validator, plus
// the unread count.
func (r *NotificationRepo) ListByValidator(ctx context.Context, validatorID uuid.UUID, limit int) ([]domain.Notification, int, error) {
	if limit <= 0 {
		limit = 50
	}

	const query = `
		SELECT id, validator_id, title, message, notification_type, read, action_taken, created_at
		FROM notifications
		WHERE validator_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, validatorID, limit)
	if err != nil {
		return nil, 0, apperrors.InternalError("failed to list notifications", err)
	}
	defer rows.Close()

	notifications := []domain.Notification{}
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.ValidatorID, &n.Title, &n.Message,
			&n.NotificationType, &n.Read, &n.ActionTaken, &n.CreatedAt); err != nil {
			return nil, 0, apperrors.InternalError("failed to scan notification", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperrors.InternalError("failed to read notifications", err)
	}

	const countQuery = `SELECT COUNT(*) FROM notifications WHERE validator_id = $1 AND read = false`
	var unread int
	if err := r.pool.QueryRow(ctx, countQuery, validatorID).Scan(&unread); err != nil {
		return nil, 0, apperrors.InternalError("failed to count unread notifications", err)
	}

	return notifications, unread, nil
}

// MarkAllRead flips every unread notification for a validator and returns
// how many rows changed.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, validatorID uuid.UUID) (int64, error) {
	const query = `UPDATE notifications SET read = true WHERE validator_id = $1 AND read = false`

	tag, err := r.pool.Exec(ctx, query, validatorID)
	if err != nil {
		return 0, apperrors.InternalError("failed to mark notifications read", err)
	}
	return tag.RowsAffected(), nil
}
