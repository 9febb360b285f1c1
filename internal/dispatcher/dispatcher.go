// Package dispatcher serializes all access to the game session through a
// single consumer goroutine.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/talgya/ironhex/internal/engine"
)

// ErrQueueFull is returned by Submit when the order queue has no room.
var ErrQueueFull = errors.New("order queue full")

// ErrStopped is returned for work submitted after Run has returned.
var ErrStopped = errors.New("dispatcher stopped")

// Job runs on the consumer goroutine with exclusive access to the session.
type Job func(s *engine.Session) (any, error)

type result struct {
	value any
	err   error
}

type request struct {
	job   Job
	reply chan result // nil for fire-and-forget orders
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// Buffered sets the queue size.
func Buffered(size int) Option {
	return func(d *Dispatcher) {
		d.buffer = size
	}
}

// OnAttach registers a hook run whenever a session becomes current, at
// creation and after Swap. It wires transports and callbacks.
func OnAttach(fn func(s *engine.Session)) Option {
	return func(d *Dispatcher) {
		d.attach = fn
	}
}

// Dispatcher owns the current session. Orders and jobs are applied one at a
// time in arrival order.
type Dispatcher struct {
	session *engine.Session
	buffer  int
	attach  func(s *engine.Session)
	queue   chan request
	done    chan struct{}

	// OTEL metrics
	queueDepth metric.Int64ObservableGauge
	processed  metric.Int64Counter
	rejected   metric.Int64Counter
	dropped    metric.Int64Counter
	phases     metric.Int64Counter
}

// New creates a dispatcher for s. Metrics use the global OTel meter, which is
// a no-op unless a provider is installed.
func New(s *engine.Session, opts ...Option) (*Dispatcher, error) {
	if s == nil {
		return nil, fmt.Errorf("new dispatcher: no session")
	}
	d := &Dispatcher{buffer: 256, done: make(chan struct{})}
	for _, opt := range opts {
		opt(d)
	}
	if d.buffer < 1 {
		return nil, fmt.Errorf("new dispatcher: buffer must be positive, got %d", d.buffer)
	}
	d.queue = make(chan request, d.buffer)

	m := meter()
	var err error

	d.queueDepth, err = m.Int64ObservableGauge(
		"ironhex.orders.queue_depth",
		metric.WithDescription("Current number of queued orders and jobs"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue depth gauge: %w", err)
	}
	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(d.queueDepth, int64(len(d.queue)))
			return nil
		},
		d.queueDepth,
	)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	d.processed, err = m.Int64Counter(
		"ironhex.orders.processed",
		metric.WithDescription("Total orders applied"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}
	d.rejected, err = m.Int64Counter(
		"ironhex.orders.rejected",
		metric.WithDescription("Total orders rejected by the rules"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating rejected counter: %w", err)
	}
	d.dropped, err = m.Int64Counter(
		"ironhex.orders.dropped",
		metric.WithDescription("Total orders dropped due to full queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}
	d.phases, err = m.Int64Counter(
		"ironhex.phases.entered",
		metric.WithDescription("Total phases entered"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating phase counter: %w", err)
	}

	d.install(s)
	return d, nil
}

// install makes s current. Only called before Run starts or from the
// consumer goroutine.
func (d *Dispatcher) install(s *engine.Session) {
	if d.attach != nil {
		d.attach(s)
	}
	next := s.OnPhase
	s.OnPhase = func(p engine.Phase) {
		d.phases.Add(context.Background(), 1, metric.WithAttributes(attribute.String("phase", p.String())))
		if next != nil {
			next(p)
		}
	}
	d.session = s
}

// Run consumes the queue until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	slog.Info("dispatcher started", "session", d.session.ID, "buffer", d.buffer)
	defer close(d.done)
	for {
		select {
		case <-ctx.Done():
			slog.Info("dispatcher stopped", "pending", len(d.queue))
			return
		case req := <-d.queue:
			value, err := req.job(d.session)
			if req.reply != nil {
				req.reply <- result{value: value, err: err}
			}
		}
	}
}

// Submit queues an order without waiting for it. The outcome reaches the
// player through the session transport.
func (d *Dispatcher) Submit(o engine.Order) error {
	kind := attribute.String("kind", o.Kind.String())
	select {
	case d.queue <- request{job: d.orderJob(o)}:
		return nil
	default:
		d.dropped.Add(context.Background(), 1, metric.WithAttributes(kind))
		slog.Warn("order dropped", "player", o.Player, "kind", o.Kind, "queue", len(d.queue))
		return ErrQueueFull
	}
}

func (d *Dispatcher) orderJob(o engine.Order) Job {
	kind := attribute.String("kind", o.Kind.String())
	return func(s *engine.Session) (any, error) {
		start := time.Now()
		err := s.Handle(o)
		d.processed.Add(context.Background(), 1, metric.WithAttributes(kind))

		var rej *engine.RejectionError
		switch {
		case errors.As(err, &rej):
			d.rejected.Add(context.Background(), 1, metric.WithAttributes(kind))
		case err != nil:
			slog.Error("order failed", "player", o.Player, "kind", o.Kind, "error", err)
		default:
			slog.Debug("order applied", "player", o.Player, "kind", o.Kind, "unit", o.Unit,
				"phase", s.Phase, "duration", time.Since(start))
		}
		return nil, err
	}
}

// Do runs job on the consumer goroutine and waits for its result. It blocks
// while the queue is full.
func (d *Dispatcher) Do(ctx context.Context, job Job) (any, error) {
	reply := make(chan result, 1)
	select {
	case d.queue <- request{job: job, reply: reply}:
	case <-d.done:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case r := <-reply:
		return r.value, r.err
	case <-d.done:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Order applies o and waits for the outcome.
func (d *Dispatcher) Order(ctx context.Context, o engine.Order) error {
	_, err := d.Do(ctx, d.orderJob(o))
	return err
}

// Swap replaces the current session, for loading snapshots. The old session
// is returned.
func (d *Dispatcher) Swap(ctx context.Context, s *engine.Session) (*engine.Session, error) {
	old, err := d.Do(ctx, func(cur *engine.Session) (any, error) {
		d.install(s)
		slog.Info("session swapped", "old", cur.ID, "new", s.ID, "round", s.Round, "phase", s.Phase)
		return cur, nil
	})
	if err != nil {
		return nil, err
	}
	return old.(*engine.Session), nil
}

// Len is the number of queued requests.
func (d *Dispatcher) Len() int {
	return len(d.queue)
}

// Session returns the current session. Only safe while Run is not running,
// for example for the final save after shutdown.
func (d *Dispatcher) Session() *engine.Session {
	return d.session
}
