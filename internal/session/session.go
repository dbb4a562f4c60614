// Package session drives one validator socket: a receive duty interpreting
// tagged frames, a send duty draining the outbound buffer, and a relay duty
// bridging the broadcast bus into the socket once registration has fired.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/bus"
	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/domain"
	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/metrics"
	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/registry"
)

const (
	outboundBufferSize = 100
	writeTimeout       = 5 * time.Second
	forwardTimeout     = 10 * time.Second
)

// ErrOutboundFull ends a session whose socket cannot keep up with relayed
// broadcasts. There is no graceful degrade for the per-connection buffer.
var ErrOutboundFull = errors.New("outbound buffer full")

// StatusForwarder pushes a reported check result to the results-ingestion
// endpoint.
type StatusForwarder interface {
	ForwardStatus(ctx context.Context, status domain.WebsiteStatus) error
}

// State is the session lifecycle position.
type State int32

const (
	StateConnected State = iota
	StateAwaitingRegistration
	StateRegistered
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateAwaitingRegistration:
		return "awaiting_registration"
	case StateRegistered:
		return "registered"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session owns one validator socket for its whole lifetime. Three duties
// run concurrently; the first one to finish, for any reason, tears the
// whole session down.
type Session struct {
	id        string
	conn      *websocket.Conn
	registry  *registry.Registry
	bus       *bus.Bus
	forwarder StatusForwarder
	gate      *Gate
	outbound  chan []byte
	state     State
	log       *slog.Logger
}

// New wraps an upgraded socket into a session. The bus handle is injected
// so tests can run isolated buses.
func New(conn *websocket.Conn, reg *registry.Registry, b *bus.Bus, forwarder StatusForwarder) *Session {
	id := uuid.New().String()
	return &Session{
		id:        id,
		conn:      conn,
		registry:  reg,
		bus:       b,
		forwarder: forwarder,
		gate:      NewGate(),
		outbound:  make(chan []byte, outboundBufferSize),
		state:     StateConnected,
		log:       slog.Default().With("connection_id", id),
	}
}

// ID returns the generated connection id.
func (s *Session) ID() string {
	return s.id
}

// Gate exposes the registration latch, mainly for tests.
func (s *Session) Gate() *Gate {
	return s.gate
}

// Run blocks until the session ends. Teardown always removes the registry
// entry, even when the receive duty already did.
func (s *Session) Run(ctx context.Context) {
	metrics.ConnectionsActive.Inc()
	defer metrics.ConnectionsActive.Dec()

	s.state = StateAwaitingRegistration
	s.log.Info("Validator connected")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Closing the transport is the only way to unblock a pending read.
	stop := context.AfterFunc(runCtx, func() { _ = s.conn.Close() })
	defer stop()

	var g errgroup.Group
	g.Go(func() error { defer cancel(); return s.receiveLoop(runCtx) })
	g.Go(func() error { defer cancel(); return s.sendLoop(runCtx) })
	g.Go(func() error { defer cancel(); return s.relayLoop(runCtx) })
	err := g.Wait()

	s.registry.Remove(s.id)
	s.state = StateClosed

	if err != nil && !errors.Is(err, context.Canceled) {
		s.log.Info("Session ended", "error", err)
	} else {
		s.log.Info("Session ended")
	}
}

// receiveLoop reads and interprets inbound frames until the transport
// fails or closes. Its exit removes the registry entry; Run removes it
// again unconditionally, which is fine because removal is idempotent.
func (s *Session) receiveLoop(ctx context.Context) error {
	defer s.registry.Remove(s.id)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		s.handleFrame(ctx, data)
	}
}

func (s *Session) handleFrame(ctx context.Context, data []byte) {
	frame, err := domain.ParseClientFrame(data)
	if err != nil {
		// Malformed frames are dropped, never fatal.
		metrics.FramesReceived.WithLabelValues("malformed").Inc()
		s.log.Warn("Ignoring malformed frame", "error", err)
		return
	}

	switch frame.Kind {
	case domain.FrameRegisterValidator:
		metrics.FramesReceived.WithLabelValues("register").Inc()
		s.handleRegister(frame.Register)
	case domain.FrameWebsiteStatus:
		metrics.FramesReceived.WithLabelValues("status").Inc()
		s.registry.Touch(s.id)
		s.handleStatus(frame.Status)
	default:
		metrics.FramesReceived.WithLabelValues("unrecognized").Inc()
		s.log.Debug("Ignoring unrecognized frame")
	}
}

func (s *Session) handleRegister(reg *domain.RegisterValidator) {
	s.registry.Register(s.id, reg.ValidatorID, reg.Location)

	if !s.gate.IsFired() {
		s.state = StateRegistered
		s.log.Info("Validator registered", "validator_id", reg.ValidatorID)
	}
	// Later register frames are state updates only; the gate fires once.
	s.gate.Fire()
}

// handleStatus forwards a reported result fire-and-forget. The forward gets
// its own deadline so session teardown cannot cancel an in-flight call.
func (s *Session) handleStatus(status *domain.WebsiteStatus) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), forwardTimeout)
		defer cancel()

		if err := s.forwarder.ForwardStatus(ctx, *status); err != nil {
			s.log.Warn("Failed to forward website status",
				"website_id", status.WebsiteID,
				"error", err)
		}
	}()
}

// sendLoop drains the outbound buffer onto the wire.
func (s *Session) sendLoop(ctx context.Context) error {
	for {
		select {
		case data, ok := <-s.outbound:
			if !ok {
				return nil
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// relayLoop waits for the registration gate, then bridges the broadcast bus
// into the outbound buffer. An unregistered socket never subscribes and
// never receives a broadcast.
func (s *Session) relayLoop(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.gate.Fired():
	}

	sub := s.bus.Subscribe()
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-sub.C():
			if !ok {
				return nil
			}
			data, err := json.Marshal(msg)
			if err != nil {
				s.log.Warn("Failed to marshal broadcast", "task_id", msg.TaskID, "error", err)
				continue
			}
			select {
			case s.outbound <- data:
			default:
				return ErrOutboundFull
			}
		}
	}
}
