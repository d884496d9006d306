package logging_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seedarr/seedarr/pkg/logging"
)

func TestComponentLogger(t *testing.T) {
	tl := logging.NewTestLogger(t)

	busLog := logging.Component(tl.Logger, "bus")
	busLog.Info().Msg("started")

	tl.AssertContains(t, `"component":"bus"`)
	tl.AssertContains(t, "started")
	assert.Equal(t, 1, tl.Count())
}

func TestComponentNilParent(t *testing.T) {
	l := logging.Component(nil, "store")
	require.NotNil(t, l)
	assert.Same(t, logging.Default(), logging.OrDefault(nil))
}

func TestContextLogger(t *testing.T) {
	tl := logging.NewTestLogger(t)

	ctx := logging.WithLogger(context.Background(), tl.Logger)
	ctx = logging.WithClient(ctx, "client-a")
	ctx = logging.WithTorrent(ctx, "abcdef")
	ctx = logging.WithRequestID(ctx, "req-1")

	logging.FromContext(ctx).Info().Msg("emit")

	assert.True(t, tl.ContainsAll("client-a", "abcdef", "req-1", "emit"))
	assert.Equal(t, "req-1", logging.RequestID(ctx))
}

func TestFromContextFallsBack(t *testing.T) {
	//nolint:staticcheck // nil context is exercised on purpose
	assert.Same(t, logging.Default(), logging.FromContext(nil))
	assert.Same(t, logging.Default(), logging.Ctx(context.Background()))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"off", zerolog.Disabled},
		{"", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, logging.ParseLevel(tt.in))
		})
	}
}

func TestNewLoggerFromConfig(t *testing.T) {
	originalLevel := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(originalLevel) })

	path := t.TempDir() + "/seedarr.log"
	logger := logging.NewLoggerFromConfig(&logging.Config{
		Level:  "debug",
		Format: "json",
		Output: path,
		Fields: map[string]any{"service": "seedarr", "err": errors.New("boom")},
	})
	logger.Debug().Msg("configured")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"service":"seedarr"`)
	assert.Contains(t, string(content), "configured")
	assert.Contains(t, string(content), "boom")
}

func TestCaptureLoggingForTest(t *testing.T) {
	tl := logging.CaptureLoggingForTest(t)
	logging.Warn().Str("info_hash", "ff").Msg("captured")
	tl.AssertContains(t, "captured")
	tl.AssertNotContains(t, "missing")
}
