package workers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/seedarr/seedarr/pkg/errors"
)

func TestDoReturnsResult(t *testing.T) {
	p := New(2)
	defer p.Close()

	n, err := Call(context.Background(), p, func(context.Context) (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	boom := errors.New("boom")
	_, err = Call(context.Background(), p, func(context.Context) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
}

func TestDoRecoversPanic(t *testing.T) {
	p := New(1)
	defer p.Close()

	err := p.Do(context.Background(), func(context.Context) error { panic("engine crashed") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "engine crashed")

	assert.NoError(t, p.Do(context.Background(), func(context.Context) error { return nil }))
}

func TestDoBoundsConcurrency(t *testing.T) {
	p := New(2)
	defer p.Close()

	var running, peak atomic.Int64
	done := make(chan struct{})
	for i := 0; i < 6; i++ {
		go func() {
			_ = p.Do(context.Background(), func(context.Context) error {
				cur := running.Add(1)
				for {
					old := peak.Load()
					if cur <= old || peak.CompareAndSwap(old, cur) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				running.Add(-1)
				return nil
			})
			done <- struct{}{}
		}()
	}
	for i := 0; i < 6; i++ {
		<-done
	}
	assert.LessOrEqual(t, peak.Load(), int64(2))
}

func TestDoHonorsContext(t *testing.T) {
	p := New(1)
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := p.Do(ctx, func(context.Context) error {
		time.Sleep(50 * time.Millisecond)
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClosedPoolRejects(t *testing.T) {
	p := New(0)
	p.Close()
	p.Close()
	assert.ErrorIs(t, p.Do(context.Background(), func(context.Context) error { return nil }), pkgerrors.ErrClosed)
}
