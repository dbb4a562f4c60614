package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/bridge"
	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/bus"
	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/config"
	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/domain"
	apperrors "github.com/Freakycoder/decentralized-uptime-monitoring/internal/errors"
	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/registry"
	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/session"
)

// eventPublisher is the redis-side fan-out leg of a task announcement.
type eventPublisher interface {
	Publish(ctx context.Context, msg domain.BroadcastMessage) (int64, error)
}

// eventStream is one open pub/sub subscription, consumed by the SSE handler.
type eventStream interface {
	Events() <-chan bridge.Event
	Close()
}

// streamOpener hands out pub/sub subscriptions.
type streamOpener interface {
	OpenStream(ctx context.Context) eventStream
}

// bridgeStreams adapts the concrete pub/sub bridge to streamOpener.
type bridgeStreams struct {
	bridge *bridge.Bridge
}

func (b bridgeStreams) OpenStream(ctx context.Context) eventStream {
	return b.bridge.SubscribeStream(ctx)
}

// jobQueue is the delivery queue as seen from the HTTP surface.
type jobQueue interface {
	Enqueue(ctx context.Context, queueName string, job domain.PendingDeliveryJob) (int64, error)
	Length(ctx context.Context, queueName string) (int64, error)
}

type notificationStore interface {
	Create(ctx context.Context, n domain.Notification) (domain.Notification, error)
	ListByValidator(ctx context.Context, validatorID uuid.UUID, limit int) ([]domain.Notification, int, error)
	MarkAllRead(ctx context.Context, validatorID uuid.UUID) (int64, error)
}

type validatorStore interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type sessionVerifier interface {
	Verify(ctx context.Context, token string) (domain.Session, error)
}

// pinger is the minimal health-check surface shared by redis and postgres.
type pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies collects everything the HTTP surface is wired to.
type Dependencies struct {
	Registry       *registry.Registry
	Bus            *bus.Bus
	Bridge         *bridge.Bridge
	Queue          jobQueue
	Forwarder      session.StatusForwarder
	Notifications  notificationStore
	Validators     validatorStore
	Sessions       sessionVerifier
	RedisHealth    pinger
	PostgresHealth pinger
	Clock          clockwork.Clock
}

type Server struct {
	echo           *echo.Echo
	config         *config.Config
	registry       *registry.Registry
	bus            *bus.Bus
	publisher      eventPublisher
	streams        streamOpener
	queue          jobQueue
	forwarder      session.StatusForwarder
	notifications  notificationStore
	validators     validatorStore
	sessions       sessionVerifier
	redisHealth    pinger
	postgresHealth pinger
	limits         *SocketLimits
	clock          clockwork.Clock
	log            *slog.Logger
	startTime      time.Time
}

func NewServer(cfg *config.Config, deps Dependencies) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.HTTPErrorHandler = errorHandler

	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	srv := &Server{
		echo:           e,
		config:         cfg,
		registry:       deps.Registry,
		bus:            deps.Bus,
		publisher:      deps.Bridge,
		queue:          deps.Queue,
		forwarder:      deps.Forwarder,
		notifications:  deps.Notifications,
		validators:     deps.Validators,
		sessions:       deps.Sessions,
		redisHealth:    deps.RedisHealth,
		postgresHealth: deps.PostgresHealth,
		limits: NewSocketLimits(cfg.MaxConnections, cfg.MaxConnectionsPerIP,
			cfg.ConnectionsPerSecond, cfg.ConnectionBurst),
		clock:     clock,
		log:       slog.Default().With("component", "server"),
		startTime: time.Now(),
	}
	if deps.Bridge != nil {
		srv.streams = bridgeStreams{bridge: deps.Bridge}
	}

	srv.registerRoutes()
	return srv
}

func (s *Server) Start() error {
	s.log.Info("Starting server", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// errorHandler renders structured errors as the shared JSON error shape
// and leaves echo's own HTTP errors alone.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		msg := fmt.Sprintf("%v", httpErr.Message)
		_ = c.JSON(httpErr.Code, apperrors.ErrorResponse{
			StatusCode: httpErr.Code,
			Message:    msg,
		})
		return
	}

	structured := apperrors.AsStructuredError(err)
	if structured.HTTPStatus() == http.StatusInternalServerError {
		slog.Error("request failed", "path", c.Path(), "error", err)
	}
	_ = c.JSON(structured.HTTPStatus(), structured.ToResponse())
}
