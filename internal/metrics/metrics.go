package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Connection metrics
var (
	// ConnectionsActive tracks currently open validator sockets
	ConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "validator_connections_active",
			Help: "Currently open validator socket connections",
		},
	)

	// ConnectionsRegistered tracks sockets that completed registration
	ConnectionsRegistered = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "validator_connections_registered",
			Help: "Validator connections that completed registration",
		},
	)

	// ConnectionsRejected tracks sockets rejected by the connection limits
	ConnectionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "validator_connections_rejected_total",
			Help: "Socket connections rejected by connection limits, by reason",
		},
		[]string{"reason"},
	)

	// FramesReceived tracks inbound socket frames by kind
	FramesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "validator_frames_received_total",
			Help: "Inbound socket frames by kind (register/status/unrecognized/malformed)",
		},
		[]string{"kind"},
	)
)

// Broadcast metrics
var (
	// BroadcastsPublished tracks messages handed to the fan-out bus
	BroadcastsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broadcast_messages_published_total",
			Help: "Messages published to the broadcast bus",
		},
	)

	// BroadcastsDropped tracks messages dropped for lagging subscribers
	BroadcastsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broadcast_messages_dropped_total",
			Help: "Messages dropped because a subscriber lagged behind",
		},
	)

	// PubSubMessagesReceived tracks messages received from the distribution channel
	PubSubMessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pubsub_messages_received_total",
			Help: "Messages received from the pub/sub distribution channel",
		},
		[]string{"channel"},
	)
)

// Delivery queue metrics
var (
	// QueueJobsEnqueued tracks jobs appended to the delivery queue
	QueueJobsEnqueued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "delivery_queue_jobs_enqueued_total",
			Help: "Jobs appended to the delivery queue",
		},
	)

	// QueueJobsProcessed tracks jobs the worker finished, by outcome
	QueueJobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_queue_jobs_processed_total",
			Help: "Jobs processed by the delivery worker, by outcome (forwarded/forward_failed/dropped)",
		},
		[]string{"outcome"},
	)

	// QueueDepth tracks the queue length observed at the last enqueue
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "delivery_queue_depth",
			Help: "Delivery queue length after the most recent enqueue",
		},
	)

	// AlertsFired tracks side-channel alerts for non-success results
	AlertsFired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "delivery_alerts_fired_total",
			Help: "Side-channel alerts fired for non-success status codes",
		},
	)
)

// Forwarder metrics
var (
	// ForwardRequests tracks results-endpoint forwards by status
	ForwardRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "results_forward_requests_total",
			Help: "Forward calls to the results-ingestion endpoint, by status",
		},
		[]string{"status"},
	)

	// ForwardDuration tracks forward call latency in seconds
	ForwardDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "results_forward_duration_seconds",
			Help:    "Forward call duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
	)
)

// SSE metrics
var (
	// StreamSubscribers tracks currently open notification streams
	StreamSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notification_stream_subscribers",
			Help: "Currently open server-sent-event notification streams",
		},
	)

	// StreamEventsSent tracks events written to notification streams by type
	StreamEventsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_stream_events_total",
			Help: "Events written to notification streams, by event type",
		},
		[]string{"event"},
	)
)
