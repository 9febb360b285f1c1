package dispatcher

import (
	"context"
	"log/slog"
	"time"
)

// Clock drives periodic housekeeping such as autosaves. Game time does not
// depend on it; rounds advance only through orders.
type Clock struct {
	Tick     uint64        // Monotonic, never resets
	Interval time.Duration // Wall time between ticks

	// OnTick runs every tick.
	OnTick func(tick uint64)

	layers []layer
}

type layer struct {
	every uint64
	fn    func(tick uint64)
}

// NewClock creates a clock with the given tick interval.
func NewClock(interval time.Duration) *Clock {
	return &Clock{Interval: interval}
}

// Every registers fn to run on each nth tick.
func (c *Clock) Every(n uint64, fn func(tick uint64)) {
	if n == 0 {
		n = 1
	}
	c.layers = append(c.layers, layer{every: n, fn: fn})
}

// Run ticks until ctx is cancelled.
func (c *Clock) Run(ctx context.Context) {
	if c.Interval <= 0 {
		slog.Warn("clock disabled", "interval", c.Interval)
		return
	}
	slog.Info("clock started", "tick", c.Tick, "interval", c.Interval)

	t := time.NewTicker(c.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("clock stopped", "tick", c.Tick)
			return
		case <-t.C:
			c.step()
		}
	}
}

// step advances the clock by one tick.
func (c *Clock) step() {
	c.Tick++

	if c.OnTick != nil {
		c.OnTick(c.Tick)
	}
	for _, l := range c.layers {
		if c.Tick%l.every == 0 {
			l.fn(c.Tick)
		}
	}
}
