package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSocketLimits_GlobalCap(t *testing.T) {
	l := NewSocketLimits(2, 10, 1000, 1000)

	ok, _ := l.Acquire("1.1.1.1")
	require.True(t, ok)
	ok, _ = l.Acquire("2.2.2.2")
	require.True(t, ok)

	ok, reason := l.Acquire("3.3.3.3")
	assert.False(t, ok)
	assert.Equal(t, RejectGlobalLimit, reason)

	l.Release("1.1.1.1")
	ok, _ = l.Acquire("3.3.3.3")
	assert.True(t, ok)
}

func TestSocketLimits_PerIPCap(t *testing.T) {
	l := NewSocketLimits(100, 2, 1000, 1000)

	ok, _ := l.Acquire("1.1.1.1")
	require.True(t, ok)
	ok, _ = l.Acquire("1.1.1.1")
	require.True(t, ok)

	ok, reason := l.Acquire("1.1.1.1")
	assert.False(t, ok)
	assert.Equal(t, RejectPerIPLimit, reason)

	// Other IPs are unaffected.
	ok, _ = l.Acquire("2.2.2.2")
	assert.True(t, ok)

	// A rejected acquire must not leak a global slot.
	assert.Equal(t, int64(3), l.Active())
}

func TestSocketLimits_RateLimit(t *testing.T) {
	l := NewSocketLimits(100, 100, 0.001, 2)

	ok, _ := l.Acquire("1.1.1.1")
	require.True(t, ok)
	ok, _ = l.Acquire("1.1.1.1")
	require.True(t, ok)

	ok, reason := l.Acquire("1.1.1.1")
	assert.False(t, ok)
	assert.Equal(t, RejectRateLimit, reason)

	// Each IP gets its own bucket.
	ok, _ = l.Acquire("2.2.2.2")
	assert.True(t, ok)
}

func TestSocketLimits_ReleaseCleansUpIPEntry(t *testing.T) {
	l := NewSocketLimits(100, 10, 1000, 1000)

	ok, _ := l.Acquire("1.1.1.1")
	require.True(t, ok)
	assert.Equal(t, 1, l.CountForIP("1.1.1.1"))

	l.Release("1.1.1.1")
	assert.Equal(t, 0, l.CountForIP("1.1.1.1"))
	assert.Equal(t, int64(0), l.Active())
}
