package torrents

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seedarr/seedarr"
	"github.com/seedarr/seedarr/internal/client"
	"github.com/seedarr/seedarr/internal/cmd/application"
	"github.com/seedarr/seedarr/internal/engine/sim"
	"github.com/seedarr/seedarr/internal/server"
	"github.com/seedarr/seedarr/pkg/logging"
	"github.com/seedarr/seedarr/pkg/transport"
)

const (
	testMagnet = "magnet:?xt=urn:btih:3b245504cf5f11bbdbe1201cea6a6bf45aee1bc0&dn=ubuntu.iso"
	testHash   = "3b245504cf5f11bbdbe1201cea6a6bf45aee1bc0"
)

// newMock returns an application whose client talks to a live daemon.
func newMock(t *testing.T, format string) *application.Mock {
	t.Helper()

	router := transport.NewRouter()
	d, err := seedarr.New(
		seedarr.WithSession(sim.New(sim.WithMetadataDelay(10*time.Millisecond))),
		seedarr.WithSink(router),
		seedarr.WithLogger(logging.NewNopLogger()),
		seedarr.WithStatsInterval(0),
	)
	require.NoError(t, err)
	require.NoError(t, d.Startup(context.Background()))

	cfg := server.DefaultConfig()
	cfg.RateLimit = 0
	srv, err := server.New(d, router, cfg, logging.NewNopLogger())
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
		ts.Close()
		_ = d.Shutdown(context.Background())
	})

	return &application.Mock{
		ClientFunc:       func() (*client.Client, error) { return client.New(ts.URL) },
		OutputFormatFunc: func() string { return format },
	}
}

func execute(t *testing.T, app *application.Mock, args ...string) (string, error) {
	t.Helper()
	cmd := NewCommand(app)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestAddConfirmPauseRemove(t *testing.T) {
	app := newMock(t, "table")

	out, err := execute(t, app, "add", testMagnet, "--save-path", "/data")
	require.NoError(t, err)
	assert.Contains(t, out, "✓")

	out, err = execute(t, app, "pending")
	require.NoError(t, err)
	assert.Contains(t, out, testHash[:12])

	_, err = execute(t, app, "confirm", testHash)
	require.NoError(t, err)

	out, err = execute(t, app)
	require.NoError(t, err)
	assert.Contains(t, out, "ubuntu.iso")

	out, err = execute(t, app, "pause", testHash)
	require.NoError(t, err)
	assert.Contains(t, out, "✓")

	out, err = execute(t, app, "pause", testHash)
	require.NoError(t, err)
	assert.Contains(t, out, "already paused")

	_, err = execute(t, app, "rm", testHash, "--delete-data")
	require.NoError(t, err)

	_, err = execute(t, app, "get", testHash)
	assert.Error(t, err)
}

func TestCancelStaged(t *testing.T) {
	app := newMock(t, "json")

	_, err := execute(t, app, "add", testMagnet)
	require.NoError(t, err)

	out, err := execute(t, app, "cancel", testHash)
	require.NoError(t, err)
	var reply seedarr.Reply
	require.NoError(t, json.Unmarshal([]byte(out), &reply))
	assert.Equal(t, seedarr.StatusSuccess, reply.Status)

	out, err = execute(t, app, "pending")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}

func TestAddRejectsNonMagnet(t *testing.T) {
	_, err := execute(t, &application.Mock{}, "add", "https://example.com/file.torrent")
	assert.Error(t, err)
}

func TestResumeUnknownTorrent(t *testing.T) {
	app := newMock(t, "table")

	_, err := execute(t, app, "resume", testHash)
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Torrent not found", apiErr.Message)
}

func TestTrackerSubcommands(t *testing.T) {
	app := newMock(t, "table")

	_, err := execute(t, app, "add", testMagnet+"&tr=udp%3A%2F%2Fone%3A80")
	require.NoError(t, err)
	_, err = execute(t, app, "confirm", testHash)
	require.NoError(t, err)

	out, err := execute(t, app, "trackers", "add", testHash, "http://two/announce")
	require.NoError(t, err)
	assert.Contains(t, out, "Added 1 tracker(s)")

	out, err = execute(t, app, "trackers", "rename", testHash, "http://two/announce", "http://three/announce")
	require.NoError(t, err)
	assert.Contains(t, out, "renamed to http://three/announce")

	out, err = execute(t, app, "trackers", "reannounce", testHash, "udp://one:80")
	require.NoError(t, err)
	assert.Contains(t, out, "Reannounce triggered for 1 tracker(s)")

	_, err = execute(t, app, "trackers", "rm", testHash, "udp://one:80")
	require.NoError(t, err)

	out, err = execute(t, app, "trackers", testHash)
	require.NoError(t, err)
	assert.Contains(t, out, "http://three/announce")
	assert.NotContains(t, out, "udp://one:80")

	out, err = execute(t, app, "files", testHash)
	require.NoError(t, err)
	assert.Contains(t, out, "ubuntu.iso")

	_, err = execute(t, app, "peers", testHash)
	require.NoError(t, err)

	_, err = execute(t, app, "trackers", "reannounce", testHash, "http://nope")
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "None of the provided trackers matched existing ones", apiErr.Message)
}
