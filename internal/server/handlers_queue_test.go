package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/domain"
)

func postJSON(srv *Server, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}

func TestQueuePublish_AppendsJob(t *testing.T) {
	srv := newTestServer(t)
	q := srv.queue.(*fakeQueue)

	validatorID := uuid.New()
	websiteID := uuid.New()
	body := `{
		"validator_id": "` + validatorID.String() + `",
		"website_id": "` + websiteID.String() + `",
		"session_id": "sess-1",
		"run_number": 2,
		"data": {"status_code": 200, "total_duration": 120.5}
	}`

	rec := postJSON(srv, "/queue/publish", body, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":true`)
	assert.Contains(t, rec.Body.String(), `"queue_length":1`)

	require.Len(t, q.jobs, 1)
	job := q.jobs[0]
	assert.Equal(t, validatorID, job.ValidatorID)
	assert.Equal(t, websiteID, job.WebsiteID)
	assert.NotEqual(t, uuid.Nil, job.JobID)
	assert.Equal(t, 200, job.Data.StatusCode)
}

func TestQueuePublish_RejectsMissingValidatorID(t *testing.T) {
	srv := newTestServer(t)

	body := `{"website_id": "` + uuid.New().String() + `"}`
	rec := postJSON(srv, "/queue/publish", body, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "validator_id is required")
}

func TestQueuePublish_RejectsMalformedBody(t *testing.T) {
	srv := newTestServer(t)

	rec := postJSON(srv, "/queue/publish", `{broken`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNotify_PublishesBothLegs(t *testing.T) {
	srv := newTestServer(t)
	pub := srv.publisher.(*fakePublisher)

	sub := srv.bus.Subscribe()
	defer sub.Close()

	rec := postJSON(srv, "/notify", `{"url": "https://example.com", "id": "task-7"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"local_subscribers":1`)

	require.Len(t, pub.published, 1)
	assert.Equal(t, domain.BroadcastMessage{URL: "https://example.com", TaskID: "task-7"}, pub.published[0])

	select {
	case msg := <-sub.C():
		assert.Equal(t, "task-7", msg.TaskID)
	default:
		t.Fatal("expected broadcast on local bus")
	}
}

func TestNotify_RequiresURLAndID(t *testing.T) {
	srv := newTestServer(t)

	rec := postJSON(srv, "/notify", `{"id": "task-7"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(srv, "/notify", `{"url": "https://example.com"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNotify_RequiresBearerTokenWhenVerifierConfigured(t *testing.T) {
	srv := newTestServer(t)
	verifier := &fakeVerifier{session: domain.Session{UserID: uuid.New()}}
	srv.sessions = verifier

	rec := postJSON(srv, "/notify", `{"url": "https://example.com", "id": "t"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postJSON(srv, "/notify", `{"url": "https://example.com", "id": "t"}`,
		map[string]string{"Authorization": "Bearer tok-1"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"tok-1"}, verifier.tokens)
}
