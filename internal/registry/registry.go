// Package registry tracks live validator connections keyed by connection id.
package registry

import (
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/domain"
	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/metrics"
)

// Registry is the concurrent map of live validator connections. Entries are
// keyed by connection id: a validator reconnecting under a new connection id
// gets a second entry until the old socket's teardown removes it.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*domain.ValidatorConnection
	clock clockwork.Clock
}

func New(clock clockwork.Clock) *Registry {
	return &Registry{
		conns: make(map[string]*domain.ValidatorConnection),
		clock: clock,
	}
}

// Register inserts or replaces the entry for connectionID. Re-registration
// on a live connection updates identity, location and last-active; the
// original connect time is kept.
func (r *Registry) Register(connectionID, validatorID string, location *domain.Location) {
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.conns[connectionID]; ok {
		existing.ValidatorID = validatorID
		existing.Location = location
		existing.LastActive = now
		return
	}

	r.conns[connectionID] = &domain.ValidatorConnection{
		ConnectionID: connectionID,
		ValidatorID:  validatorID,
		Location:     location,
		ConnectedAt:  now,
		LastActive:   now,
	}
	metrics.ConnectionsRegistered.Set(float64(len(r.conns)))
}

// Touch updates last-active for connectionID. No-op for unknown ids.
func (r *Registry) Touch(connectionID string) {
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if conn, ok := r.conns[connectionID]; ok {
		conn.LastActive = now
	}
}

// Remove deletes the entry for connectionID. Idempotent: removing twice or
// removing a never-registered id is fine. Every session teardown path calls
// this unconditionally.
func (r *Registry) Remove(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.conns, connectionID)
	metrics.ConnectionsRegistered.Set(float64(len(r.conns)))
}

// Get returns a copy of the entry for connectionID.
func (r *Registry) Get(connectionID string) (domain.ValidatorConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[connectionID]
	if !ok {
		return domain.ValidatorConnection{}, false
	}
	return *conn, true
}

// Count returns the number of registered connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Snapshot returns a copy of all registered connections.
func (r *Registry) Snapshot() []domain.ValidatorConnection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.ValidatorConnection, 0, len(r.conns))
	for _, conn := range r.conns {
		out = append(out, *conn)
	}
	return out
}
