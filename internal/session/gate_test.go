package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGate_FireSignalsWaiters(t *testing.T) {
	g := NewGate()
	assert.False(t, g.IsFired())

	done := make(chan struct{})
	go func() {
		<-g.Fired()
		close(done)
	}()

	g.Fire()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waiter was not released")
	}
	assert.True(t, g.IsFired())
}

func TestGate_FireIsIdempotent(t *testing.T) {
	g := NewGate()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.Fire()
		}()
	}
	wg.Wait()

	assert.True(t, g.IsFired())
	// A second explicit fire must not panic on the closed channel.
	g.Fire()
}

func TestGate_NotFiredBlocks(t *testing.T) {
	g := NewGate()

	select {
	case <-g.Fired():
		t.Fatal("gate fired without Fire()")
	default:
	}
}
