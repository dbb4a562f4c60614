package server

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/bridge"
	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/bus"
	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/config"
	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/domain"
	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/registry"
)

// --- fakes shared across handler tests ---

type fakeQueue struct {
	jobs       []domain.PendingDeliveryJob
	enqueueErr error
}

func (f *fakeQueue) Enqueue(_ context.Context, _ string, job domain.PendingDeliveryJob) (int64, error) {
	if f.enqueueErr != nil {
		return 0, f.enqueueErr
	}
	f.jobs = append(f.jobs, job)
	return int64(len(f.jobs)), nil
}

func (f *fakeQueue) Length(_ context.Context, _ string) (int64, error) {
	return int64(len(f.jobs)), nil
}

type fakePublisher struct {
	published []domain.BroadcastMessage
	receivers int64
	err       error
}

func (f *fakePublisher) Publish(_ context.Context, msg domain.BroadcastMessage) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.published = append(f.published, msg)
	return f.receivers, nil
}

type fakeNotificationStore struct {
	created   []domain.Notification
	list      []domain.Notification
	unread    int
	marked    []uuid.UUID
	markCount int64
	err       error
}

func (f *fakeNotificationStore) Create(_ context.Context, n domain.Notification) (domain.Notification, error) {
	if f.err != nil {
		return domain.Notification{}, f.err
	}
	n.ID = uuid.New()
	f.created = append(f.created, n)
	return n, nil
}

func (f *fakeNotificationStore) ListByValidator(_ context.Context, _ uuid.UUID, _ int) ([]domain.Notification, int, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.list, f.unread, nil
}

func (f *fakeNotificationStore) MarkAllRead(_ context.Context, validatorID uuid.UUID) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.marked = append(f.marked, validatorID)
	return f.markCount, nil
}

type fakeValidatorStore struct {
	exists bool
	err    error
}

func (f *fakeValidatorStore) Exists(_ context.Context, _ uuid.UUID) (bool, error) {
	return f.exists, f.err
}

type fakeVerifier struct {
	session domain.Session
	err     error
	tokens  []string
}

func (f *fakeVerifier) Verify(_ context.Context, token string) (domain.Session, error) {
	f.tokens = append(f.tokens, token)
	if f.err != nil {
		return domain.Session{}, f.err
	}
	return f.session, nil
}

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(context.Context) error {
	return f.err
}

type fakeStream struct {
	ch chan bridge.Event
}

func (f *fakeStream) Events() <-chan bridge.Event { return f.ch }

func (f *fakeStream) Close() {}

type fakeStreamOpener struct {
	stream *fakeStream
}

func (f fakeStreamOpener) OpenStream(context.Context) eventStream { return f.stream }

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:               "test",
		Port:                 "0",
		QueueName:            "performance_queue",
		MaxConnections:       100,
		MaxConnectionsPerIP:  10,
		ConnectionsPerSecond: 1000,
		ConnectionBurst:      1000,
	}
}

// newTestServer wires a server against in-memory fakes. Tests overwrite
// individual collaborators as needed.
func newTestServer(t *testing.T) *Server {
	t.Helper()

	clock := clockwork.NewRealClock()
	srv := NewServer(testConfig(), Dependencies{
		Registry:      registry.New(clock),
		Bus:           bus.New(bus.DefaultDepth),
		Queue:         &fakeQueue{},
		Notifications: &fakeNotificationStore{},
		Validators:    &fakeValidatorStore{exists: true},
		Clock:         clock,
	})
	srv.publisher = &fakePublisher{receivers: 1}
	return srv
}
