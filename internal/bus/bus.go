// Package bus provides a single-consumer, strictly ordered event queue.
//
// Producers call Publish from any goroutine. One consumer function, set with
// SetConsumer, receives every event exactly once and in publish order from
// the loop run by Start. A failing or panicking consumer call is logged and
// the loop moves on to the next event; only Stop or context cancellation end
// the loop.
//
// The queue is unbounded by default so Publish never blocks the caller. A
// positive capacity bounds it, in which case Publish blocks while the queue
// is full.
package bus

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	infinity "github.com/Code-Hex/go-infinity-channel"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/panics"

	"github.com/seedarr/seedarr/internal/metrics"
	"github.com/seedarr/seedarr/pkg/errors"
	"github.com/seedarr/seedarr/pkg/logging"
)

// Consumer handles one event. A returned error is logged, not propagated.
type Consumer[T any] func(ctx context.Context, event T) error

// envelope wraps queued events so Stop can enqueue a poison value that no
// real event can be mistaken for.
type envelope[T any] struct {
	event  T
	poison bool
}

// Bus is an ordered single-consumer queue. The zero value is not usable;
// construct with New.
type Bus[T any] struct {
	name string
	log  *zerolog.Logger

	// unbounded queue (capacity == 0)
	inf *infinity.Channel[envelope[T]]
	// bounded queue (capacity > 0)
	ch   chan envelope[T]
	done chan struct{}

	mu       sync.RWMutex
	consumer Consumer[T]
	stopped  bool

	running atomic.Bool
	started atomic.Bool
}

type config struct {
	name     string
	capacity int
	logger   *zerolog.Logger
}

// Option configures a Bus.
type Option func(*config)

// WithName labels the bus in logs and metrics.
func WithName(name string) Option {
	return func(c *config) { c.name = name }
}

// WithCapacity bounds the queue. Zero or less keeps it unbounded.
func WithCapacity(n int) Option {
	return func(c *config) { c.capacity = n }
}

// WithLogger sets the logger.
func WithLogger(l *zerolog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// New creates a bus ready for SetConsumer and Start.
func New[T any](opts ...Option) *Bus[T] {
	cfg := &config{name: "events"}
	for _, opt := range opts {
		opt(cfg)
	}

	b := &Bus[T]{
		name: cfg.name,
		log:  logging.Component(cfg.logger, "bus"),
		done: make(chan struct{}),
	}
	if cfg.capacity > 0 {
		b.ch = make(chan envelope[T], cfg.capacity)
	} else {
		b.inf = infinity.NewChannel[envelope[T]]()
	}
	return b
}

func (b *Bus[T]) ready() bool {
	return b != nil && (b.inf != nil || b.ch != nil)
}

// SetConsumer registers fn as the sole consumer. It fails with
// errors.ErrConsumerSet if one is already registered.
func (b *Bus[T]) SetConsumer(fn Consumer[T]) error {
	if !b.ready() {
		return errors.ErrNotInitialized
	}
	if fn == nil {
		return errors.NewValidationError("consumer", nil, "consumer must not be nil")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.consumer != nil {
		return errors.ErrConsumerSet
	}
	b.consumer = fn
	return nil
}

// ClearConsumer removes the registered consumer so another may be set.
func (b *Bus[T]) ClearConsumer() {
	if !b.ready() {
		return
	}
	b.mu.Lock()
	b.consumer = nil
	b.mu.Unlock()
}

// Publish enqueues event. On an unbounded bus it never blocks; on a bounded
// bus it blocks until there is room, ctx is done, or the bus is stopped.
func (b *Bus[T]) Publish(ctx context.Context, event T) error {
	if !b.ready() {
		return errors.ErrNotInitialized
	}

	env := envelope[T]{event: event}

	if b.inf != nil {
		b.mu.RLock()
		defer b.mu.RUnlock()
		if b.stopped {
			return errors.ErrClosed
		}
		b.inf.In() <- env
		metrics.BusEvents.WithLabelValues(b.name, "published").Inc()
		return nil
	}

	b.mu.RLock()
	stopped := b.stopped
	b.mu.RUnlock()
	if stopped {
		return errors.ErrClosed
	}
	select {
	case b.ch <- env:
		metrics.BusEvents.WithLabelValues(b.name, "published").Inc()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-b.done:
		return errors.ErrClosed
	}
}

// Start runs the consume loop on the calling goroutine until Stop is called
// or ctx is done. It fails immediately if no consumer is registered, if the
// loop is already running, or if the bus has been stopped.
func (b *Bus[T]) Start(ctx context.Context) error {
	if !b.ready() {
		return errors.ErrNotInitialized
	}
	b.mu.RLock()
	hasConsumer, stopped := b.consumer != nil, b.stopped
	b.mu.RUnlock()
	if stopped {
		return errors.ErrClosed
	}
	if !hasConsumer {
		return errors.ErrNoConsumer
	}
	if !b.started.CompareAndSwap(false, true) {
		return errors.ErrAlreadyExists
	}

	b.running.Store(true)
	defer b.running.Store(false)
	b.log.Debug().Str("bus", b.name).Msg("Consumer loop started")

	out := b.out()
	// The bounded queue has no poison value; Stop closes done and the loop
	// drains what is queued.
	var done <-chan struct{}
	if b.inf == nil {
		done = b.done
	}
	for {
		select {
		case env, ok := <-out:
			if !ok || env.poison {
				b.log.Debug().Str("bus", b.name).Msg("Consumer loop stopped")
				return nil
			}
			b.dispatch(ctx, env.event)
		case <-done:
			b.drain(ctx)
			b.log.Debug().Str("bus", b.name).Msg("Consumer loop stopped")
			return nil
		case <-ctx.Done():
			b.log.Debug().Str("bus", b.name).Msg("Consumer loop canceled")
			return nil
		}
	}
}

// drain delivers whatever is left in the bounded queue.
func (b *Bus[T]) drain(ctx context.Context) {
	for {
		select {
		case env := <-b.ch:
			b.dispatch(ctx, env.event)
		default:
			return
		}
	}
}

func (b *Bus[T]) out() <-chan envelope[T] {
	if b.inf != nil {
		return b.inf.Out()
	}
	return b.ch
}

func (b *Bus[T]) dispatch(ctx context.Context, event T) {
	b.mu.RLock()
	fn := b.consumer
	b.mu.RUnlock()
	if fn == nil {
		b.log.Warn().Str("bus", b.name).Msg("Event dropped, no consumer registered")
		metrics.BusEvents.WithLabelValues(b.name, "dropped").Inc()
		return
	}

	var (
		pc  panics.Catcher
		err error
	)
	pc.Try(func() { err = fn(ctx, event) })

	if r := pc.Recovered(); r != nil {
		b.log.Error().
			Str("bus", b.name).
			Str("panic", fmt.Sprint(r.Value)).
			Bytes("stack", r.Stack).
			Msg("Consumer panicked")
		metrics.BusEvents.WithLabelValues(b.name, "failed").Inc()
		return
	}
	if err != nil {
		b.log.Error().Err(err).Str("bus", b.name).Msg("Consumer failed")
		metrics.BusEvents.WithLabelValues(b.name, "failed").Inc()
		return
	}
	metrics.BusEvents.WithLabelValues(b.name, "consumed").Inc()
}

// Stop marks the bus stopped and wakes the consume loop so it returns once
// the queue is empty. Events published before Stop are delivered
// first. Further Publish and Start calls fail with errors.ErrClosed.
func (b *Bus[T]) Stop() {
	if !b.ready() {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return
	}
	b.stopped = true
	b.running.Store(false)
	close(b.done)

	if b.inf != nil {
		b.inf.In() <- envelope[T]{poison: true}
		b.inf.Close()
	}
}

// Running reports whether the consume loop is active.
func (b *Bus[T]) Running() bool {
	return b.ready() && b.running.Load()
}

// Len returns the number of queued events.
func (b *Bus[T]) Len() int {
	switch {
	case !b.ready():
		return 0
	case b.inf != nil:
		return b.inf.Len()
	default:
		return len(b.ch)
	}
}
