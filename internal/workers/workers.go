// Package workers runs blocking engine calls on a bounded goroutine pool so
// the poller, the bus loop and request handlers never wait behind each
// other's engine I/O.
package workers

import (
	"context"
	"fmt"
	"sync"

	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"

	"github.com/seedarr/seedarr/pkg/constants"
	"github.com/seedarr/seedarr/pkg/errors"
)

// Pool is a bounded worker pool.
type Pool struct {
	mu     sync.RWMutex
	closed bool
	p      *pool.Pool
}

// New creates a pool running at most n calls at once.
func New(n int) *Pool {
	if n <= 0 {
		n = constants.DefaultWorkers
	}
	return &Pool{p: pool.New().WithMaxGoroutines(n)}
}

// Do runs fn on the pool and waits for it. If ctx is done first Do returns
// ctx.Err() while fn keeps running to completion in the background. A panic
// in fn is returned as an error.
func (p *Pool) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	res := make(chan error, 1)

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return errors.ErrClosed
	}
	p.p.Go(func() {
		var (
			pc  panics.Catcher
			err error
		)
		pc.Try(func() { err = fn(ctx) })
		if r := pc.Recovered(); r != nil {
			err = fmt.Errorf("worker panic: %v", r.Value)
		}
		res <- err
	})
	p.mu.RUnlock()

	select {
	case err := <-res:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Call runs fn on p and returns its result.
func Call[T any](ctx context.Context, p *Pool, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := p.Do(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// Close rejects new calls and waits for running ones to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()
	p.p.Wait()
}
