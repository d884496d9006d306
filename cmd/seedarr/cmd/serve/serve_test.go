package serve

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seedarr/seedarr/internal/cmd/application"
	"github.com/seedarr/seedarr/internal/config"
	"github.com/seedarr/seedarr/pkg/errors"
	"github.com/seedarr/seedarr/pkg/logging"
	"github.com/seedarr/seedarr/pkg/transport"
)

func testConfig() *config.Config {
	return &config.Config{
		Engine:             config.EngineSim,
		Host:               "127.0.0.1",
		Port:               9000,
		SavePath:           "/tmp/seedarr",
		PollActiveInterval: 10 * time.Millisecond,
		PollIdleInterval:   20 * time.Millisecond,
		PendingTTL:         time.Minute,
		MetadataTimeout:    time.Second,
		Workers:            2,
	}
}

func TestParseConfigDefaultsFromConfig(t *testing.T) {
	cmd := NewCommand(&application.Mock{})
	require.NoError(t, cmd.ParseFlags(nil))

	sc, err := parseConfig(cmd, testConfig())
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", sc.Host)
	assert.Equal(t, 9000, sc.Port)
	assert.False(t, sc.AuthEnabled)
	assert.True(t, sc.MetricsEnabled)
	assert.Equal(t, "/api/v1", sc.PathPrefix)
}

func TestParseConfigFlagsWin(t *testing.T) {
	cmd := NewCommand(&application.Mock{})
	require.NoError(t, cmd.ParseFlags([]string{
		"--port", "7000",
		"--host", "0.0.0.0",
		"--cors-origins", "http://a.example,http://b.example",
		"--rate-limit", "0",
		"--cache-ttl", "5s",
		"--metrics=false",
	}))

	sc, err := parseConfig(cmd, testConfig())
	require.NoError(t, err)
	assert.Equal(t, 7000, sc.Port)
	assert.Equal(t, "0.0.0.0", sc.Host)
	assert.True(t, sc.CORSEnabled)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, sc.CORSOrigins)
	assert.Zero(t, sc.RateLimit)
	assert.Equal(t, 5*time.Second, sc.CacheTTL)
	assert.False(t, sc.MetricsEnabled)
}

func TestParseConfigAuthNeedsKey(t *testing.T) {
	cmd := NewCommand(&application.Mock{})
	require.NoError(t, cmd.ParseFlags([]string{"--auth"}))

	_, err := parseConfig(cmd, testConfig())
	assert.True(t, errors.IsValidationError(err))

	cfg := testConfig()
	cfg.APIKey = "secret"
	sc, err := parseConfig(cmd, cfg)
	require.NoError(t, err)
	assert.True(t, sc.AuthEnabled)
	assert.Equal(t, "secret", sc.APIKey)
}

func TestParseConfigRejectsBadPort(t *testing.T) {
	cmd := NewCommand(&application.Mock{})
	require.NoError(t, cmd.ParseFlags([]string{"--port", "70000"}))

	_, err := parseConfig(cmd, testConfig())
	assert.True(t, errors.IsValidationError(err))
}

func TestNewDaemon(t *testing.T) {
	d, err := newDaemon(testConfig(), transport.NewRouter(), logging.NewNopLogger())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, d.Startup(ctx))
	assert.True(t, d.Stats().Running)
	require.NoError(t, d.Shutdown(ctx))

	cfg := testConfig()
	cfg.Engine = "libtorrent"
	_, err = newDaemon(cfg, transport.NewRouter(), logging.NewNopLogger())
	assert.True(t, errors.IsValidationError(err))
}
