package server

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// RejectReason labels why a socket was turned away. The values double as
// the reason label on the rejection counter metric.
type RejectReason string

const (
	RejectGlobalLimit RejectReason = "global_limit"
	RejectPerIPLimit  RejectReason = "per_ip_limit"
	RejectRateLimit   RejectReason = "rate_limit"
)

// SocketLimits guards the validator socket endpoint with three layers:
// a global concurrent-connection cap, a per-IP concurrent cap, and a
// per-IP token-bucket rate on new connections.
type SocketLimits struct {
	current   atomic.Int64
	globalMax int64

	mu       sync.Mutex
	perIP    map[string]int
	perIPMax int

	buckets   map[string]*ipBucket
	rate      rate.Limit
	burst     int
	cleanupAt time.Time
}

type ipBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const bucketCleanupInterval = 5 * time.Minute

func NewSocketLimits(globalMax int64, perIPMax int, connectionsPerSecond float64, burst int) *SocketLimits {
	return &SocketLimits{
		globalMax: globalMax,
		perIP:     make(map[string]int),
		perIPMax:  perIPMax,
		buckets:   make(map[string]*ipBucket),
		rate:      rate.Limit(connectionsPerSecond),
		burst:     burst,
		cleanupAt: time.Now().Add(bucketCleanupInterval),
	}
}

// Acquire claims a slot for one new socket from ip. On rejection no state
// is retained, so callers must not Release.
func (l *SocketLimits) Acquire(ip string) (bool, RejectReason) {
	if !l.allowRate(ip) {
		return false, RejectRateLimit
	}

	for {
		n := l.current.Load()
		if n >= l.globalMax {
			return false, RejectGlobalLimit
		}
		if l.current.CompareAndSwap(n, n+1) {
			break
		}
	}

	l.mu.Lock()
	if l.perIP[ip] >= l.perIPMax {
		l.mu.Unlock()
		l.current.Add(-1)
		return false, RejectPerIPLimit
	}
	l.perIP[ip]++
	l.mu.Unlock()

	return true, ""
}

// Release gives back a slot claimed by a successful Acquire.
func (l *SocketLimits) Release(ip string) {
	l.mu.Lock()
	if n := l.perIP[ip]; n > 1 {
		l.perIP[ip] = n - 1
	} else if n == 1 {
		delete(l.perIP, ip)
	}
	l.mu.Unlock()

	l.current.Add(-1)
}

// Active returns the number of sockets currently holding a slot.
func (l *SocketLimits) Active() int64 {
	return l.current.Load()
}

// CountForIP returns the concurrent socket count for one IP.
func (l *SocketLimits) CountForIP(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.perIP[ip]
}

func (l *SocketLimits) allowRate(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.After(l.cleanupAt) {
		cutoff := now.Add(-2 * bucketCleanupInterval)
		for key, b := range l.buckets {
			if b.lastSeen.Before(cutoff) {
				delete(l.buckets, key)
			}
		}
		l.cleanupAt = now.Add(bucketCleanupInterval)
	}

	b, ok := l.buckets[ip]
	if !ok {
		b = &ipBucket{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.buckets[ip] = b
	}
	b.lastSeen = now
	return b.limiter.Allow()
}
