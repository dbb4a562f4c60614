// Package forwarder is the HTTP client for the results-ingestion endpoint.
// Every delivery path (socket receive duty, delivery worker) converges on
// this one call.
package forwarder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/domain"
	apperrors "github.com/Freakycoder/decentralized-uptime-monitoring/internal/errors"
	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/metrics"
)

const (
	requestTimeout          = 10 * time.Second
	breakerFailureThreshold = 5
	breakerOpenDuration     = 30 * time.Second
)

// payload is the wire shape the results endpoint expects.
type payload struct {
	ValidatorID       string   `json:"validator_id"`
	WebsiteID         string   `json:"website_id"`
	Timestamp         string   `json:"timestamp"`
	HTTPStatusCode    *float64 `json:"http_status_code,omitempty"`
	DNSResolutionMs   *float64 `json:"dns_resolution_ms,omitempty"`
	ConnectionTimeMs  *float64 `json:"connection_time_ms,omitempty"`
	TLSHandshakeMs    *float64 `json:"tls_handshake_ms,omitempty"`
	TimeToFirstByteMs *float64 `json:"time_to_first_byte_ms,omitempty"`
	ContentDownloadMs *float64 `json:"content_download_ms,omitempty"`
	TotalTimeMs       *float64 `json:"total_time_ms,omitempty"`
}

// Client posts check results to the results-ingestion endpoint. A circuit
// breaker fails calls fast while the endpoint is down; it never re-attempts
// a failed forward, which keeps the at-most-once delivery policy intact.
type Client struct {
	endpoint   string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

func New(endpoint string) *Client {
	settings := gobreaker.Settings{
		Name:    "results-forward",
		Timeout: breakerOpenDuration,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Forward circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String())
		},
	}

	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: requestTimeout},
		breaker:    gobreaker.NewCircuitBreaker(settings),
	}
}

// ForwardStatus pushes a result reported directly over a validator socket.
func (c *Client) ForwardStatus(ctx context.Context, status domain.WebsiteStatus) error {
	p := payload{
		ValidatorID: status.ValidatorID,
		WebsiteID:   status.WebsiteID,
		Timestamp:   status.Timestamp.UTC().Format(time.RFC3339),
	}
	if status.Details != nil {
		fillMeasurement(&p, *status.Details)
	}
	return c.post(ctx, p)
}

// ForwardJob pushes a result popped from the delivery queue.
func (c *Client) ForwardJob(ctx context.Context, job domain.PendingDeliveryJob) error {
	p := payload{
		ValidatorID: job.ValidatorID.String(),
		WebsiteID:   job.WebsiteID.String(),
		Timestamp:   job.Timestamp.UTC().Format(time.RFC3339),
	}
	fillMeasurement(&p, job.Data)
	return c.post(ctx, p)
}

func fillMeasurement(p *payload, m domain.Measurement) {
	code := float64(m.StatusCode)
	p.HTTPStatusCode = &code
	p.DNSResolutionMs = m.DNSLookupMs
	p.ConnectionTimeMs = m.TCPConnectionMs
	p.TLSHandshakeMs = m.TLSHandshakeMs
	p.TimeToFirstByteMs = m.TTFBMs
	p.ContentDownloadMs = m.ContentDownloadMs
	p.TotalTimeMs = m.TotalDurationMs
}

func (c *Client) post(ctx context.Context, p payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return apperrors.InternalError("failed to marshal forward payload", err)
	}

	start := time.Now()
	_, err = c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("results endpoint returned %d", resp.StatusCode)
		}
		return nil, nil
	})
	metrics.ForwardDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.ForwardRequests.WithLabelValues(forwardStatusLabel(err)).Inc()
		return apperrors.ExternalError("failed to forward result", err)
	}

	metrics.ForwardRequests.WithLabelValues("ok").Inc()
	return nil
}

func forwardStatusLabel(err error) string {
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return "breaker_open"
	}
	return "error"
}
