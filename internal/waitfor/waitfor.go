// Package waitfor polls a condition with growing delays until it holds or a
// deadline passes.
package waitfor

import (
	"context"
	"time"

	"github.com/seedarr/seedarr/pkg/constants"
	"github.com/seedarr/seedarr/pkg/errors"
)

// Backoff computes the delay before attempt n (starting at 0).
type Backoff func(n int, base time.Duration) time.Duration

// Exponential doubles the delay every attempt.
func Exponential(n int, base time.Duration) time.Duration {
	return base << uint(min(n, 30))
}

// Fibonacci grows the delay along the Fibonacci sequence.
func Fibonacci(n int, base time.Duration) time.Duration {
	a, b := 1, 1
	for i := 0; i < n && b < 1<<30; i++ {
		a, b = b, a+b
	}
	return base * time.Duration(a)
}

// Options tune a wait.
type Options struct {
	// Operation names the wait in timeout errors.
	Operation string
	Timeout   time.Duration
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Backoff   Backoff
}

func (o *Options) defaults() {
	if o.Operation == "" {
		o.Operation = "wait"
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = constants.WaitBaseDelay
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = constants.WaitMaxDelay
	}
	if o.Backoff == nil {
		o.Backoff = Exponential
	}
}

// Until calls cond until it reports true, returns an error, or the timeout
// elapses. Delays between calls follow opts.Backoff capped at MaxDelay.
// A timeout yields an *errors.TimeoutError; cancellation of ctx yields
// ctx.Err().
func Until(ctx context.Context, opts Options, cond func(ctx context.Context) (bool, error)) error {
	opts.defaults()
	deadline := time.Now().Add(opts.Timeout)

	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for attempt := 0; ; attempt++ {
		ok, err := cond(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return errors.NewTimeoutError(opts.Operation, opts.Timeout.String(), "condition not met")
		}
		delay := min(opts.Backoff(attempt, opts.BaseDelay), opts.MaxDelay, remaining)

		timer.Reset(delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
}
