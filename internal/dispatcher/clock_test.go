package dispatcher

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClockLayers(t *testing.T) {
	c := NewClock(time.Second)
	var ticks, saves, reports []uint64
	c.OnTick = func(tick uint64) { ticks = append(ticks, tick) }
	c.Every(3, func(tick uint64) { saves = append(saves, tick) })
	c.Every(0, func(tick uint64) { reports = append(reports, tick) })

	for range 6 {
		c.step()
	}
	assert.Equal(t, []uint64{1, 2, 3, 4, 5, 6}, ticks)
	assert.Equal(t, []uint64{3, 6}, saves)
	assert.Len(t, reports, 6, "a zero period runs every tick")
}

func TestClockRunStopsWithContext(t *testing.T) {
	c := NewClock(time.Millisecond)
	var n atomic.Int64
	c.OnTick = func(uint64) { n.Add(1) }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	assert.Eventually(t, func() bool { return n.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("clock did not stop")
	}
}

func TestDisabledClockReturns(t *testing.T) {
	c := NewClock(0)
	c.Run(context.Background())
	assert.Zero(t, c.Tick)
}
