// Package store provides a keyed map whose entries expire after a fixed
// window, running a cleanup hook for each entry that expires.
//
// Reads are inert: Get never extends an entry's lifetime. Refreshing an
// entry means calling Set again, which replaces both value and timer.
//
// Delete, Take and Clear remove entries without running cleanup; the caller
// has taken responsibility for the value. Cleanup runs at most once per Set,
// and never after the entry was removed by any other path. While an expired
// entry's cleanup runs, a Set on the same key waits for it to return, so a
// cleanup never overlaps a newer value. Cleanup must not Set its own key.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/panics"

	"github.com/seedarr/seedarr/internal/metrics"
	"github.com/seedarr/seedarr/pkg/errors"
	"github.com/seedarr/seedarr/pkg/logging"
)

// Cleanup releases whatever an expired value held. Errors and panics are
// logged and swallowed.
type Cleanup[T any] func(ctx context.Context, key string, value T) error

// Validator checks a value before it is stored.
type Validator[T any] func(value T) error

type entry[T any] struct {
	value     T
	timer     *time.Timer
	gen       uint64
	expiresAt time.Time
}

// Store is a TTL-keyed map. Construct with New.
type Store[T any] struct {
	name     string
	ttl      time.Duration
	cleanup  Cleanup[T]
	validate Validator[T]
	baseCtx  context.Context
	log      *zerolog.Logger

	// mu serializes Set, Delete, Take, Clear and timer fires.
	mu      sync.Mutex
	entries map[string]*entry[T]
	gen     uint64
	closed  bool

	// expiring holds a channel per key whose cleanup is running. It is
	// closed when the cleanup returns.
	expiring map[string]chan struct{}

	inflight sync.WaitGroup
}

// Option configures a Store.
type Option[T any] func(*Store[T])

// WithName labels the store in logs and metrics.
func WithName[T any](name string) Option[T] {
	return func(s *Store[T]) { s.name = name }
}

// WithCleanup sets the hook run when an entry expires.
func WithCleanup[T any](fn Cleanup[T]) Option[T] {
	return func(s *Store[T]) { s.cleanup = fn }
}

// WithValidator sets a check every value must pass before it is stored.
func WithValidator[T any](fn Validator[T]) Option[T] {
	return func(s *Store[T]) { s.validate = fn }
}

// WithLogger sets the logger.
func WithLogger[T any](l *zerolog.Logger) Option[T] {
	return func(s *Store[T]) { s.log = l }
}

// WithContext sets the context passed to cleanup calls.
func WithContext[T any](ctx context.Context) Option[T] {
	return func(s *Store[T]) { s.baseCtx = ctx }
}

// New creates a store whose entries live for ttl unless overridden per Set.
func New[T any](ttl time.Duration, opts ...Option[T]) (*Store[T], error) {
	if ttl <= 0 {
		return nil, errors.NewValidationError("ttl", ttl, "must be positive")
	}
	s := &Store[T]{
		name:    "default",
		ttl:     ttl,
		baseCtx: context.Background(),
		entries:  make(map[string]*entry[T]),
		expiring: make(map[string]chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logging.Component(s.log, "store")
	return s, nil
}

// SetOption adjusts a single Set call.
type SetOption func(*setConfig)

type setConfig struct {
	ttl time.Duration
}

// WithTTL overrides the store default for one entry.
func WithTTL(d time.Duration) SetOption {
	return func(c *setConfig) { c.ttl = d }
}

// Set stores value under key, replacing any existing entry and cancelling
// its timer, then starts a fresh expiry timer. If a previous value for key
// is being cleaned up, Set blocks until that cleanup returns.
func (s *Store[T]) Set(key string, value T, opts ...SetOption) error {
	cfg := setConfig{ttl: s.ttl}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.ttl <= 0 {
		return errors.NewValidationError("ttl", cfg.ttl, "must be positive")
	}
	if key == "" {
		return errors.NewValidationError("key", key, "must not be empty")
	}
	if s.validate != nil {
		if err := s.validate(value); err != nil {
			return errors.WrapValidation("value", err)
		}
	}

	s.mu.Lock()
	for {
		done, busy := s.expiring[key]
		if !busy {
			break
		}
		s.mu.Unlock()
		<-done
		s.mu.Lock()
	}
	defer s.mu.Unlock()
	if s.closed {
		return errors.ErrClosed
	}

	if old, ok := s.entries[key]; ok {
		old.timer.Stop()
	}

	s.gen++
	gen := s.gen
	s.entries[key] = &entry[T]{
		value:     value,
		gen:       gen,
		expiresAt: time.Now().Add(cfg.ttl),
		timer:     time.AfterFunc(cfg.ttl, func() { s.expire(key, gen) }),
	}
	s.gauge()
	return nil
}

// SetAny stores a value of unknown static type. It fails with a TypeError
// when value is not a T.
func (s *Store[T]) SetAny(key string, value any, opts ...SetOption) error {
	v, ok := value.(T)
	if !ok {
		var zero T
		return errors.NewTypeError(zero, value)
	}
	return s.Set(key, v, opts...)
}

// Get returns the value for key without touching its timer.
func (s *Store[T]) Get(key string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		var zero T
		return zero, false
	}
	return e.value, true
}

// ExpiresAt returns when the entry for key will expire.
func (s *Store[T]) ExpiresAt(key string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return time.Time{}, false
	}
	return e.expiresAt, true
}

// Delete removes key and cancels its timer without running cleanup.
// It reports whether key was present.
func (s *Store[T]) Delete(key string) bool {
	_, ok := s.Take(key)
	return ok
}

// Take removes key and returns its value without running cleanup. The
// caller owns the value from then on.
func (s *Store[T]) Take(key string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		var zero T
		return zero, false
	}
	e.timer.Stop()
	delete(s.entries, key)
	s.gauge()
	return e.value, true
}

// Keys returns the live keys in sorted order.
func (s *Store[T]) Keys() []string {
	s.mu.Lock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	s.mu.Unlock()
	sort.Strings(keys)
	return keys
}

// Len returns the number of live entries.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Clear removes every entry without running cleanup.
func (s *Store[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, e := range s.entries {
		e.timer.Stop()
		delete(s.entries, key)
	}
	s.gauge()
}

// Close clears the store, rejects further Sets, and waits for cleanup calls
// already in flight to return or for ctx to be done.
func (s *Store[T]) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.Clear()

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// expire runs on the timer goroutine. A fire for a generation that has since
// been replaced or removed does nothing.
func (s *Store[T]) expire(key string, gen uint64) {
	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok || e.gen != gen {
		s.mu.Unlock()
		return
	}
	delete(s.entries, key)
	s.gauge()
	done := make(chan struct{})
	s.expiring[key] = done
	s.inflight.Add(1)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.expiring, key)
		s.mu.Unlock()
		close(done)
		s.inflight.Done()
	}()
	s.log.Debug().Str("store", s.name).Str("key", key).Msg("Entry expired")
	if s.cleanup == nil {
		metrics.StoreExpirations.WithLabelValues(s.name, "ok").Inc()
		return
	}

	var (
		pc  panics.Catcher
		err error
	)
	pc.Try(func() { err = s.cleanup(s.baseCtx, key, e.value) })

	switch r := pc.Recovered(); {
	case r != nil:
		s.log.Error().
			Str("store", s.name).
			Str("key", key).
			Str("panic", fmt.Sprint(r.Value)).
			Bytes("stack", r.Stack).
			Msg("Cleanup panicked")
		metrics.StoreExpirations.WithLabelValues(s.name, "panic").Inc()
	case err != nil:
		s.log.Error().Err(err).Str("store", s.name).Str("key", key).Msg("Cleanup failed")
		metrics.StoreExpirations.WithLabelValues(s.name, "error").Inc()
	default:
		metrics.StoreExpirations.WithLabelValues(s.name, "ok").Inc()
	}
}

// gauge must be called with mu held.
func (s *Store[T]) gauge() {
	metrics.StoreEntries.WithLabelValues(s.name).Set(float64(len(s.entries)))
}
