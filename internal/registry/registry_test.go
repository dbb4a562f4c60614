package registry

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/domain"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := New(clockwork.NewFakeClock())

	loc := &domain.Location{Latitude: 48.1, Longitude: 11.6}
	r.Register("conn-1", "val-1", loc)

	conn, ok := r.Get("conn-1")
	require.True(t, ok)
	assert.Equal(t, "conn-1", conn.ConnectionID)
	assert.Equal(t, "val-1", conn.ValidatorID)
	assert.Equal(t, loc, conn.Location)
	assert.Equal(t, 1, r.Count())
}

func TestRegistry_ReRegisterKeepsSingleEntry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := New(clock)

	r.Register("conn-1", "val-1", nil)
	first, _ := r.Get("conn-1")

	clock.Advance(5 * time.Second)
	r.Register("conn-1", "val-other", nil)

	require.Equal(t, 1, r.Count())
	conn, ok := r.Get("conn-1")
	require.True(t, ok)
	assert.Equal(t, "val-other", conn.ValidatorID)
	assert.Equal(t, first.ConnectedAt, conn.ConnectedAt)
	assert.True(t, conn.LastActive.After(first.LastActive))
}

func TestRegistry_RemoveIsIdempotent(t *testing.T) {
	r := New(clockwork.NewFakeClock())

	r.Register("conn-1", "val-1", nil)
	r.Remove("conn-1")
	r.Remove("conn-1")
	r.Remove("never-registered")

	assert.Equal(t, 0, r.Count())
	_, ok := r.Get("conn-1")
	assert.False(t, ok)
}

func TestRegistry_Snapshot(t *testing.T) {
	r := New(clockwork.NewFakeClock())

	r.Register("conn-1", "val-1", nil)
	r.Register("conn-2", "val-2", nil)

	snap := r.Snapshot()
	require.Len(t, snap, 2)

	ids := []string{snap[0].ConnectionID, snap[1].ConnectionID}
	assert.ElementsMatch(t, []string{"conn-1", "conn-2"}, ids)
}

func TestRegistry_ConcurrentRegisterRemove(t *testing.T) {
	r := New(clockwork.NewRealClock())

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := fmt.Sprintf("conn-%d", i)
			r.Register(id, "val", nil)
			r.Touch(id)
			r.Remove(id)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, r.Count())
}
