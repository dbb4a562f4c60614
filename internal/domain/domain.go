package domain

import (
	"time"

	"github.com/google/uuid"
)

// BroadcastMessage is the task-available event delivered to every currently
// registered validator. There is no backlog: subscribers only see messages
// published after they subscribed.
type BroadcastMessage struct {
	URL    string `json:"url"`
	TaskID string `json:"id"`
}

// Location is the optional position a validator declares at registration.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ValidatorConnection is a live socket tracked by the connection registry.
// Entries are keyed by ConnectionID, not ValidatorID: a validator that
// reconnects gets a fresh entry and the stale one is only cleaned up on
// disconnect.
type ValidatorConnection struct {
	ConnectionID string
	ValidatorID  string
	Location     *Location
	ConnectedAt  time.Time
	LastActive   time.Time
}

// Measurement is the timing breakdown a validator reports for one check.
// All durations are milliseconds; absent phases stay nil.
type Measurement struct {
	StatusCode        int      `json:"status_code"`
	DNSLookupMs       *float64 `json:"dns_lookup,omitempty"`
	TCPConnectionMs   *float64 `json:"tcp_connection,omitempty"`
	TLSHandshakeMs    *float64 `json:"tls_handshake,omitempty"`
	TTFBMs            *float64 `json:"ttfb,omitempty"`
	ContentDownloadMs *float64 `json:"content_download,omitempty"`
	TotalDurationMs   *float64 `json:"total_duration,omitempty"`
}

// Success reports whether the measured status code counts as a healthy
// check. Anything outside 2xx fires the alert side-channel in the worker.
func (m Measurement) Success() bool {
	return m.StatusCode >= 200 && m.StatusCode < 300
}

// PendingDeliveryJob is one queued result-forwarding job. It lives in the
// delivery queue until the worker pops it; a popped job is never re-enqueued.
type PendingDeliveryJob struct {
	JobID       uuid.UUID   `json:"job_id"`
	ValidatorID uuid.UUID   `json:"validator_id"`
	WebsiteID   uuid.UUID   `json:"website_id"`
	SessionID   string      `json:"session_id"`
	RunNumber   int         `json:"run_number"`
	TotalRuns   *int        `json:"total_runs,omitempty"`
	Timestamp   time.Time   `json:"timestamp"`
	Data        Measurement `json:"data"`
}

// Notification is a persisted side-channel alert row.
type Notification struct {
	ID               uuid.UUID  `json:"id"`
	ValidatorID      uuid.UUID  `json:"validator_id"`
	Title            string     `json:"title"`
	Message          string     `json:"message"`
	NotificationType string     `json:"notification_type"`
	Read             bool       `json:"read"`
	ActionTaken      *string    `json:"action_taken,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Session is the identity carried by an opaque bearer credential.
type Session struct {
	UserID      uuid.UUID  `json:"user_id"`
	ValidatorID *uuid.UUID `json:"validator_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
}

// Validator is the persisted record for a registered validator.
type Validator struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Location  *Location
	CreatedAt time.Time
}
