// Package bus implements the in-process broadcast fan-out between the task
// producer and connected validator sessions.
//
// Producers never block: each subscriber owns an independent bounded buffer
// and messages are dropped for subscribers that lag behind. There is no
// backlog or replay, so a late subscriber only sees messages published after
// it subscribed.
package bus

import (
	"log/slog"
	"sync"

	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/domain"
	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/metrics"
)

// DefaultDepth is the per-subscriber buffer capacity.
const DefaultDepth = 1000

// Bus is a multi-producer, multi-subscriber broadcast primitive. It is an
// explicit dependency: construct one per process (or per test) and pass it
// around, there is no package-level instance.
type Bus struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	depth  int
	closed bool
}

// Subscription is one subscriber's independent cursor into the bus.
type Subscription struct {
	bus     *Bus
	ch      chan domain.BroadcastMessage
	dropped int
	once    sync.Once
}

// New creates a bus whose subscribers buffer up to depth messages.
// A depth <= 0 falls back to DefaultDepth.
func New(depth int) *Bus {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Bus{
		subs:  make(map[*Subscription]struct{}),
		depth: depth,
	}
}

// Subscribe registers a new independent subscriber. The returned
// subscription must be closed when the consumer is done.
func (b *Bus) Subscribe() *Subscription {
	sub := &Subscription{
		ch: make(chan domain.BroadcastMessage, b.depth),
	}
	sub.bus = b

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(sub.ch)
		return sub
	}
	b.subs[sub] = struct{}{}
	return sub
}

// Publish hands msg to every current subscriber without blocking and
// returns the number of subscribers that accepted it. A subscriber whose
// buffer is full has the message dropped.
func (b *Bus) Publish(msg domain.BroadcastMessage) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0
	}

	delivered := 0
	for sub := range b.subs {
		select {
		case sub.ch <- msg:
			delivered++
		default:
			sub.dropped++
			metrics.BroadcastsDropped.Inc()
			slog.Debug("Dropping broadcast for lagged subscriber",
				"task_id", msg.TaskID,
				"dropped_so_far", sub.dropped)
		}
	}
	metrics.BroadcastsPublished.Inc()
	return delivered
}

// SubscriberCount returns the number of active subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close shuts the bus down and closes every subscriber channel.
// Subsequent publishes are no-ops.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		close(sub.ch)
		delete(b.subs, sub)
	}
}

// C returns the subscriber's receive channel. It is closed when either the
// subscription or the whole bus closes.
func (s *Subscription) C() <-chan domain.BroadcastMessage {
	return s.ch
}

// Dropped returns how many messages this subscriber has missed by lagging.
func (s *Subscription) Dropped() int {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	return s.dropped
}

// Close detaches the subscription from the bus and closes its channel.
// Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		defer s.bus.mu.Unlock()
		if _, ok := s.bus.subs[s]; ok {
			delete(s.bus.subs, s)
			close(s.ch)
		}
	})
}
