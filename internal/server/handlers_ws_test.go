package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/domain"
)

func dialValidator(t *testing.T, baseURL string) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(baseURL, "http") + "/ws/validator"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestValidatorSocket_RegisterAndReceiveBroadcast(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.echo)
	defer ts.Close()

	conn := dialValidator(t, ts.URL)

	validatorID := uuid.New().String()
	register := `{"register_validator": {"validator_id": "` + validatorID + `"}}`
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(register)))

	waitFor(t, func() bool { return srv.registry.Count() == 1 },
		"validator never appeared in the registry")

	srv.bus.Publish(domain.BroadcastMessage{URL: "https://example.com", TaskID: "task-1"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg domain.BroadcastMessage
	require.NoError(t, json.Unmarshal(payload, &msg))
	assert.Equal(t, "task-1", msg.TaskID)
}

func TestValidatorSocket_DisconnectReleasesSlot(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.echo)
	defer ts.Close()

	conn := dialValidator(t, ts.URL)
	waitFor(t, func() bool { return srv.limits.Active() == 1 },
		"socket never claimed a limit slot")

	require.NoError(t, conn.Close())
	waitFor(t, func() bool { return srv.limits.Active() == 0 },
		"limit slot never released after disconnect")
}

func TestValidatorSocket_RejectedWhenGlobalLimitReached(t *testing.T) {
	srv := newTestServer(t)
	srv.limits = NewSocketLimits(0, 10, 1000, 1000)

	ts := httptest.NewServer(srv.echo)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/validator"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestValidatorSocket_RateLimited(t *testing.T) {
	srv := newTestServer(t)
	srv.limits = NewSocketLimits(100, 100, 0.001, 1)

	ts := httptest.NewServer(srv.echo)
	defer ts.Close()

	dialValidator(t, ts.URL)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/validator"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}
