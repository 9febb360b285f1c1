package dispatcher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/ironhex/internal/engine"
	"github.com/talgya/ironhex/internal/rules"
	"github.com/talgya/ironhex/internal/world"
)

func newSession(t *testing.T) *engine.Session {
	t.Helper()
	s, err := engine.NewSession(engine.Config{Board: world.NewBoard(6, 6), Options: rules.DefaultOptions(), Seed: 3})
	require.NoError(t, err)
	_, err = s.AddPlayer(1, "alice", 0)
	require.NoError(t, err)
	_, err = s.AddPlayer(2, "bob", 0)
	require.NoError(t, err)
	return s
}

func start(t *testing.T, d *Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		d.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})
}

func TestOrdersAreAppliedInOrder(t *testing.T) {
	var (
		mu     sync.Mutex
		phases []engine.Phase
	)
	s := newSession(t)
	d, err := New(s, Buffered(8), OnAttach(func(s *engine.Session) {
		s.OnPhase = func(p engine.Phase) {
			mu.Lock()
			phases = append(phases, p)
			mu.Unlock()
		}
	}))
	require.NoError(t, err)
	start(t, d)

	require.NoError(t, d.Submit(engine.Order{Kind: engine.OrderReady, Player: 1}))
	require.NoError(t, d.Order(context.Background(), engine.Order{Kind: engine.OrderReady, Player: 2}))

	phase, err := d.Do(context.Background(), func(s *engine.Session) (any, error) {
		return s.Phase, nil
	})
	require.NoError(t, err)
	assert.NotEqual(t, engine.PhaseLounge, phase)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, phases, "attach hook still sees phase changes")
	assert.Equal(t, engine.PhaseExchange, phases[0])
}

func TestRejectedOrderReturnsRejection(t *testing.T) {
	d, err := New(newSession(t))
	require.NoError(t, err)
	start(t, d)

	err = d.Order(context.Background(), engine.Order{Kind: engine.OrderReady, Player: 9})
	var rej *engine.RejectionError
	require.ErrorAs(t, err, &rej)
	assert.ErrorIs(t, err, engine.ErrMalformedOrder)
}

func TestSubmitDropsWhenFull(t *testing.T) {
	d, err := New(newSession(t), Buffered(1))
	require.NoError(t, err)

	require.NoError(t, d.Submit(engine.Order{Kind: engine.OrderReady, Player: 1}))
	assert.ErrorIs(t, d.Submit(engine.Order{Kind: engine.OrderReady, Player: 2}), ErrQueueFull)
	assert.Equal(t, 1, d.Len())
}

func TestDoHonoursContext(t *testing.T) {
	d, err := New(newSession(t), Buffered(1))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = d.Do(ctx, func(*engine.Session) (any, error) { return nil, nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDoAfterStop(t *testing.T) {
	d, err := New(newSession(t))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Run(ctx)

	_, err = d.Do(context.Background(), func(*engine.Session) (any, error) { return 1, nil })
	assert.ErrorIs(t, err, ErrStopped)
}

func TestSwapReattaches(t *testing.T) {
	attached := 0
	first := newSession(t)
	d, err := New(first, OnAttach(func(*engine.Session) { attached++ }))
	require.NoError(t, err)
	start(t, d)

	second := newSession(t)
	old, err := d.Swap(context.Background(), second)
	require.NoError(t, err)
	assert.Same(t, first, old)
	assert.NotNil(t, second.OnPhase)

	id, err := d.Do(context.Background(), func(s *engine.Session) (any, error) { return s.ID, nil })
	require.NoError(t, err)
	assert.Equal(t, second.ID, id)
	assert.Equal(t, 2, attached)
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
	_, err = New(newSession(t), Buffered(0))
	assert.Error(t, err)
}
