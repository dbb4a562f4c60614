// Package bridge publishes task-available events into the Redis
// distribution channel and exposes subscription streams for per-recipient
// delivery pipelines (sockets and SSE).
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/domain"
	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/metrics"
)

// Channel is the Redis pub/sub channel carrying validator notifications.
const Channel = "validator_notification"

// Event is one element of a subscription stream. Either Message is set, or
// Err carries a decode failure. Malformed payloads become error-shaped
// events instead of terminating the stream, so a consuming HTTP stream can
// surface them to the client without dying.
type Event struct {
	Message *domain.BroadcastMessage
	Err     error
}

// Bridge decouples task producers from connected consumers via Redis
// pub/sub. Delivery is best-effort: Redis reports how many subscribers a
// publish reached, nothing more.
type Bridge struct {
	rdb *goredis.Client
}

func New(rdb *goredis.Client) *Bridge {
	return &Bridge{rdb: rdb}
}

// Publish sends one event to the distribution channel and returns the
// number of subscribers that received it. The count is not a delivery
// guarantee.
func (b *Bridge) Publish(ctx context.Context, msg domain.BroadcastMessage) (int64, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal notification: %w", err)
	}

	receivers, err := b.rdb.Publish(ctx, Channel, data).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to publish notification: %w", err)
	}

	slog.Debug("Published notification", "task_id", msg.TaskID, "receivers", receivers)
	return receivers, nil
}

// Stream is one independent, non-restartable subscription. Close it when
// the consumer is done; the Events channel closes afterwards.
type Stream struct {
	sub    *goredis.PubSub
	ch     chan Event
	cancel context.CancelFunc
}

// Events returns the stream's receive channel.
func (s *Stream) Events() <-chan Event {
	return s.ch
}

// Close unsubscribes and releases the stream.
func (s *Stream) Close() {
	s.cancel()
	_ = s.sub.Close()
}

// SubscribeStream opens a new subscription on the distribution channel.
// The stream only carries events published after this call.
func (b *Bridge) SubscribeStream(ctx context.Context) *Stream {
	sub := b.rdb.Subscribe(ctx, Channel)

	streamCtx, cancel := context.WithCancel(ctx)
	ch := make(chan Event, 16)

	go func() {
		defer close(ch)
		msgCh := sub.Channel()
		for {
			select {
			case msg, ok := <-msgCh:
				if !ok {
					return
				}
				metrics.PubSubMessagesReceived.WithLabelValues(Channel).Inc()
				select {
				case ch <- decodeEvent(msg.Payload):
				case <-streamCtx.Done():
					return
				}
			case <-streamCtx.Done():
				return
			}
		}
	}()

	return &Stream{sub: sub, ch: ch, cancel: cancel}
}

// decodeEvent turns a raw payload into a stream event. Decode failures are
// represented, not swallowed.
func decodeEvent(payload string) Event {
	var msg domain.BroadcastMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		slog.Warn("Malformed notification payload", "error", err)
		return Event{Err: fmt.Errorf("malformed notification payload: %w", err)}
	}
	return Event{Message: &msg}
}
