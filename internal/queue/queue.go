// Package queue implements the durable delivery queue of pending
// result-forwarding jobs on a Redis list, plus the single worker that
// drains it.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/domain"
	apperrors "github.com/Freakycoder/decentralized-uptime-monitoring/internal/errors"
	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/metrics"
)

// Queue is a named Redis-list delivery queue. Jobs are pushed at the head
// (LPUSH) and popped at the tail (RPOP), so a single worker observes strict
// FIFO order. Push and pop are each one Redis command; atomicity comes from
// the store, not from any transaction.
type Queue struct {
	rdb *goredis.Client
}

func New(rdb *goredis.Client) *Queue {
	return &Queue{rdb: rdb}
}

// Enqueue appends job to the named queue and returns the new queue length.
func (q *Queue) Enqueue(ctx context.Context, queueName string, job domain.PendingDeliveryJob) (int64, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return 0, apperrors.InternalError("failed to serialize delivery job", err)
	}

	length, err := q.rdb.LPush(ctx, queueName, data).Result()
	if err != nil {
		return 0, apperrors.UnavailableError("queue backend unreachable", err)
	}

	metrics.QueueJobsEnqueued.Inc()
	metrics.QueueDepth.Set(float64(length))
	slog.Debug("Enqueued delivery job", "queue", queueName, "job_id", job.JobID, "length", length)
	return length, nil
}

// Dequeue pops the oldest job. An empty queue returns (nil, nil). A stored
// payload that no longer parses is logged and dropped; the queue keeps
// moving.
func (q *Queue) Dequeue(ctx context.Context, queueName string) (*domain.PendingDeliveryJob, error) {
	payload, err := q.rdb.RPop(ctx, queueName).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.UnavailableError("queue backend unreachable", err)
	}

	var job domain.PendingDeliveryJob
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		slog.Warn("Dropping unparseable delivery job", "queue", queueName, "error", err)
		metrics.QueueJobsProcessed.WithLabelValues("dropped").Inc()
		return nil, nil
	}
	return &job, nil
}

// Length returns the current length of the named queue.
func (q *Queue) Length(ctx context.Context, queueName string) (int64, error) {
	length, err := q.rdb.LLen(ctx, queueName).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read queue length: %w", err)
	}
	return length, nil
}
