package waitfor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/seedarr/seedarr/pkg/errors"
)

func TestBackoffSequences(t *testing.T) {
	base := 100 * time.Millisecond

	var exp, fib []time.Duration
	for n := 0; n < 5; n++ {
		exp = append(exp, Exponential(n, base))
		fib = append(fib, Fibonacci(n, base))
	}

	assert.Equal(t, []time.Duration{100, 200, 400, 800, 1600}, scale(exp))
	assert.Equal(t, []time.Duration{100, 100, 200, 300, 500}, scale(fib))
}

func scale(ds []time.Duration) []time.Duration {
	out := make([]time.Duration, len(ds))
	for i, d := range ds {
		out[i] = d / time.Millisecond
	}
	return out
}

func TestUntilSucceeds(t *testing.T) {
	calls := 0
	err := Until(context.Background(), Options{BaseDelay: time.Millisecond}, func(context.Context) (bool, error) {
		calls++
		return calls == 3, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestUntilTimesOut(t *testing.T) {
	start := time.Now()
	err := Until(context.Background(), Options{
		Operation: "metadata",
		Timeout:   50 * time.Millisecond,
		BaseDelay: 5 * time.Millisecond,
		MaxDelay:  10 * time.Millisecond,
	}, func(context.Context) (bool, error) { return false, nil })

	assert.True(t, pkgerrors.IsTimeout(err))
	assert.Contains(t, err.Error(), "metadata")
	assert.Less(t, time.Since(start), time.Second)
}

func TestUntilPropagatesConditionError(t *testing.T) {
	boom := errors.New("engine gone")
	err := Until(context.Background(), Options{}, func(context.Context) (bool, error) {
		return false, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestUntilHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Until(ctx, Options{BaseDelay: time.Second}, func(context.Context) (bool, error) {
		return false, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
