package forwarder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/domain"
	apperrors "github.com/Freakycoder/decentralized-uptime-monitoring/internal/errors"
)

type capture struct {
	mu       sync.Mutex
	payloads []map[string]any
	status   int
}

func testEndpoint(t *testing.T, c *capture) *Client {
	t.Helper()
	if c.status == 0 {
		c.status = http.StatusOK
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		c.mu.Lock()
		c.payloads = append(c.payloads, body)
		status := c.status
		c.mu.Unlock()

		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)

	return New(server.URL)
}

func TestForwardJob_PostsExpectedPayload(t *testing.T) {
	c := &capture{}
	client := testEndpoint(t, c)

	ttfb := 120.5
	job := domain.PendingDeliveryJob{
		JobID:       uuid.New(),
		ValidatorID: uuid.New(),
		WebsiteID:   uuid.New(),
		Timestamp:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Data: domain.Measurement{
			StatusCode: 503,
			TTFBMs:     &ttfb,
		},
	}

	require.NoError(t, client.ForwardJob(context.Background(), job))

	c.mu.Lock()
	defer c.mu.Unlock()
	require.Len(t, c.payloads, 1)
	got := c.payloads[0]
	assert.Equal(t, job.ValidatorID.String(), got["validator_id"])
	assert.Equal(t, job.WebsiteID.String(), got["website_id"])
	assert.Equal(t, "2025-06-01T12:00:00Z", got["timestamp"])
	assert.Equal(t, 503.0, got["http_status_code"])
	assert.Equal(t, 120.5, got["time_to_first_byte_ms"])
	_, hasDNS := got["dns_resolution_ms"]
	assert.False(t, hasDNS, "absent phases must not be serialized")
}

func TestForwardStatus_WithoutDetails(t *testing.T) {
	c := &capture{}
	client := testEndpoint(t, c)

	status := domain.WebsiteStatus{
		WebsiteID:   "site-1",
		ValidatorID: "val-1",
		Timestamp:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	require.NoError(t, client.ForwardStatus(context.Background(), status))

	c.mu.Lock()
	defer c.mu.Unlock()
	require.Len(t, c.payloads, 1)
	assert.Equal(t, "site-1", c.payloads[0]["website_id"])
	_, hasCode := c.payloads[0]["http_status_code"]
	assert.False(t, hasCode)
}

func TestForward_NonSuccessResponseIsError(t *testing.T) {
	c := &capture{status: http.StatusBadGateway}
	client := testEndpoint(t, c)

	err := client.ForwardJob(context.Background(), domain.PendingDeliveryJob{
		ValidatorID: uuid.New(),
		WebsiteID:   uuid.New(),
		Timestamp:   time.Now(),
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.TypeExternal, apperrors.AsStructuredError(err).Type)
}

func TestForward_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	client := New("http://127.0.0.1:1") // nothing listening

	ctx := context.Background()
	job := domain.PendingDeliveryJob{ValidatorID: uuid.New(), WebsiteID: uuid.New(), Timestamp: time.Now()}

	for range breakerFailureThreshold {
		assert.Error(t, client.ForwardJob(ctx, job))
	}

	// The breaker now fails fast without dialing.
	start := time.Now()
	err := client.ForwardJob(ctx, job)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}
