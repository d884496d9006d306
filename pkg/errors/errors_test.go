package errors_test

import (
	"errors"
	"fmt"
	"testing"

	pkgerrors "github.com/seedarr/seedarr/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := pkgerrors.New("test error")
	assert.NotNil(t, err)
	assert.Equal(t, "test error", err.Error())
}

func TestNotFoundError(t *testing.T) {
	t.Run("basic error", func(t *testing.T) {
		err := &pkgerrors.NotFoundError{
			Resource: "torrent",
			ID:       "abc123",
		}
		assert.Equal(t, "torrent with ID abc123 not found", err.Error())
		assert.True(t, errors.Is(err, pkgerrors.ErrNotFound))
	})

	t.Run("constructor", func(t *testing.T) {
		err := pkgerrors.NewNotFoundError("pending", "deadbeef")
		assert.Equal(t, "pending with ID deadbeef not found", err.Error())
		assert.True(t, pkgerrors.IsNotFound(err))
	})

	t.Run("wrapped error", func(t *testing.T) {
		base := pkgerrors.NewNotFoundError("torrent", "test")
		wrapped := errors.Join(errors.New("failed"), base)
		assert.True(t, pkgerrors.IsNotFound(wrapped))
	})
}

func TestValidationError(t *testing.T) {
	t.Run("with field", func(t *testing.T) {
		err := &pkgerrors.ValidationError{
			Field:   "magnet",
			Message: "cannot be empty",
		}
		assert.Equal(t, "validation failed for field magnet: cannot be empty", err.Error())
		assert.True(t, errors.Is(err, pkgerrors.ErrInvalidInput))
	})

	t.Run("without field", func(t *testing.T) {
		err := &pkgerrors.ValidationError{
			Message: "invalid configuration",
		}
		assert.Equal(t, "validation failed: invalid configuration", err.Error())
		assert.True(t, pkgerrors.IsValidationError(err))
	})

	t.Run("wrap nil", func(t *testing.T) {
		assert.NoError(t, pkgerrors.WrapValidation("ttl", nil))
	})
}

func TestTypeError(t *testing.T) {
	err := pkgerrors.NewTypeError("", 42)
	assert.Equal(t, "type mismatch: expected string, got int", err.Error())
	assert.True(t, pkgerrors.IsValidationError(err))
}

func TestResourceError(t *testing.T) {
	base := errors.New("engine offline")
	err := pkgerrors.WrapResource("pause", "torrent", "abc", base)
	require.Error(t, err)
	assert.Equal(t, "failed to pause torrent abc: engine offline", err.Error())
	assert.ErrorIs(t, err, base)

	var re *pkgerrors.ResourceError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "abc", re.ID)

	assert.NoError(t, pkgerrors.WrapResource("pause", "torrent", "abc", nil))
}

func TestTimeoutError(t *testing.T) {
	err := pkgerrors.NewTimeoutError("fetch_metadata", "20s", "metadata not received")
	assert.Contains(t, err.Error(), "fetch_metadata")
	assert.Contains(t, err.Error(), "20s")
	assert.True(t, pkgerrors.IsTimeout(fmt.Errorf("outer: %w", err)))

	short := &pkgerrors.TimeoutError{Operation: "wait", Message: "gave up"}
	assert.Equal(t, "operation wait timed out: gave up", short.Error())
}

func TestConfigError(t *testing.T) {
	base := errors.New("bad duration")
	err := pkgerrors.NewConfigError("pipeline", "poll interval must be positive", base)
	assert.Equal(t, "configuration error in pipeline: poll interval must be positive", err.Error())
	assert.ErrorIs(t, err, base)
}

func TestSentinels(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"not initialized", pkgerrors.ErrNotInitialized},
		{"consumer set", pkgerrors.ErrConsumerSet},
		{"no consumer", pkgerrors.ErrNoConsumer},
		{"closed", pkgerrors.ErrClosed},
		{"canceled", pkgerrors.ErrCanceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("ctx: %w", tt.err)
			assert.True(t, pkgerrors.Is(wrapped, tt.err))
		})
	}
	assert.True(t, pkgerrors.IsCanceled(pkgerrors.ErrCanceled))
	assert.True(t, pkgerrors.IsAlreadyExists(pkgerrors.ErrAlreadyExists))
}
