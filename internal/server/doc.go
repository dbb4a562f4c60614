// Package server implements the HTTP surface using Echo framework.
//
// Routes: validator socket (WebSocket), notification stream (SSE), queue
// submission, task announcement, notification records, health/metrics.
// Handlers split by domain: handlers_ws.go, handlers_stream.go,
// handlers_queue.go, handlers_notifications.go, handlers_health.go.
package server
