package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/domain"
	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/metrics"
)

const (
	defaultIdleDelay    = 50 * time.Millisecond
	defaultErrorBackoff = time.Second
	forwardTimeout      = 10 * time.Second
)

// JobSource yields pending delivery jobs. Satisfied by *Queue.
type JobSource interface {
	Dequeue(ctx context.Context, queueName string) (*domain.PendingDeliveryJob, error)
}

// JobForwarder pushes a finished job to the results-ingestion endpoint.
type JobForwarder interface {
	ForwardJob(ctx context.Context, job domain.PendingDeliveryJob) error
}

// Notifier is the side-channel alert fired for non-success results.
type Notifier interface {
	NotifyFailure(ctx context.Context, job domain.PendingDeliveryJob)
}

// Worker is the single consumer of a delivery queue. Every popped job is
// forwarded exactly one time; a failed forward is logged and the job is
// gone (at-most-once, never re-enqueued). Jobs with a non-success status
// code additionally fire the notifier before the forward.
type Worker struct {
	source    JobSource
	forwarder JobForwarder
	notifier  Notifier
	queueName string
	clock     clockwork.Clock
	log       *slog.Logger

	idleDelay    time.Duration
	errorBackoff time.Duration
}

func NewWorker(source JobSource, forwarder JobForwarder, notifier Notifier, queueName string, clock clockwork.Clock) *Worker {
	return &Worker{
		source:       source,
		forwarder:    forwarder,
		notifier:     notifier,
		queueName:    queueName,
		clock:        clock,
		log:          slog.Default().With("queue", queueName),
		idleDelay:    defaultIdleDelay,
		errorBackoff: defaultErrorBackoff,
	}
}

// Run blocks until ctx is cancelled. Queue-access errors are transient:
// the worker backs off and keeps polling.
func (w *Worker) Run(ctx context.Context) {
	w.log.Info("Delivery worker started")

	for {
		if ctx.Err() != nil {
			w.log.Info("Delivery worker stopped")
			return
		}

		job, err := w.source.Dequeue(ctx, w.queueName)
		if err != nil {
			w.log.Warn("Queue access failed, backing off", "error", err)
			if !w.sleep(ctx, w.errorBackoff) {
				return
			}
			continue
		}
		if job == nil {
			if !w.sleep(ctx, w.idleDelay) {
				return
			}
			continue
		}

		w.process(ctx, *job)
	}
}

// process forwards one job. Success and failure status codes converge on
// the same forward call; the only difference is whether an alert fires too.
func (w *Worker) process(ctx context.Context, job domain.PendingDeliveryJob) {
	if !job.Data.Success() {
		w.log.Info("Check reported non-success status",
			"job_id", job.JobID,
			"website_id", job.WebsiteID,
			"status_code", job.Data.StatusCode)
		metrics.AlertsFired.Inc()
		w.notifier.NotifyFailure(ctx, job)
	}

	fwdCtx, cancel := context.WithTimeout(ctx, forwardTimeout)
	defer cancel()

	if err := w.forwarder.ForwardJob(fwdCtx, job); err != nil {
		// At-most-once: log and move on, the job is not re-enqueued.
		w.log.Warn("Failed to forward delivery job",
			"job_id", job.JobID,
			"website_id", job.WebsiteID,
			"error", err)
		metrics.QueueJobsProcessed.WithLabelValues("forward_failed").Inc()
		return
	}

	metrics.QueueJobsProcessed.WithLabelValues("forwarded").Inc()
}

// sleep waits for d or until ctx is cancelled; false means cancelled.
func (w *Worker) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-w.clock.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
