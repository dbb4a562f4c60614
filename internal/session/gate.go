package session

import "sync"

// Gate is the one-shot registration latch. Fire is idempotent: only the
// first call signals waiters, later calls are no-ops. A session's relay
// duty blocks on Fired() and therefore relays nothing to sockets that never
// register.
type Gate struct {
	once sync.Once
	ch   chan struct{}
}

func NewGate() *Gate {
	return &Gate{ch: make(chan struct{})}
}

// Fire signals the gate. Safe to call any number of times.
func (g *Gate) Fire() {
	g.once.Do(func() { close(g.ch) })
}

// Fired returns a channel that is closed once the gate has fired.
func (g *Gate) Fired() <-chan struct{} {
	return g.ch
}

// IsFired reports whether the gate has fired without blocking.
func (g *Gate) IsFired() bool {
	select {
	case <-g.ch:
		return true
	default:
		return false
	}
}
