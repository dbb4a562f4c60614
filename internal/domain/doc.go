// Package domain holds the shared types of the notification core: the
// broadcast event fanned out to validators, the pending delivery job carried
// through the delivery queue, and the tagged frames validators send over
// their sockets.
package domain
