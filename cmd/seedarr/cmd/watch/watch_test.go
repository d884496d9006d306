package watch

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seedarr/seedarr"
	"github.com/seedarr/seedarr/internal/client"
	"github.com/seedarr/seedarr/internal/engine/sim"
	"github.com/seedarr/seedarr/internal/matcher"
	"github.com/seedarr/seedarr/internal/server"
	"github.com/seedarr/seedarr/pkg/logging"
	"github.com/seedarr/seedarr/pkg/transport"
)

const testMagnet = "magnet:?xt=urn:btih:3b245504cf5f11bbdbe1201cea6a6bf45aee1bc0&dn=ubuntu.iso"

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestPrintFrame(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, printFrame(&buf, client.Frame{Event: "torrent:broadcast", Data: json.RawMessage(`{"type":"torrent_added"}`)}, false))
	require.NoError(t, printFrame(&buf, client.Frame{ID: "1", Event: "ack", Data: json.RawMessage(`{"status":"success","message":"Streaming started"}`)}, false))
	require.NoError(t, printFrame(&buf, client.Frame{Event: "daemon:subscribed", Data: json.RawMessage(`{"client_id":"c1"}`)}, false))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, `» {"type":"torrent_added"}`, lines[0])
	assert.Equal(t, "← success: Streaming started", lines[1])
	assert.Equal(t, `i daemon:subscribed {"client_id":"c1"}`, lines[2])

	buf.Reset()
	require.NoError(t, printFrame(&buf, client.Frame{Event: "ack", Data: json.RawMessage(`{}`)}, true))
	assert.JSONEq(t, `{"event":"ack","data":{}}`, buf.String())
}

func TestPayloadType(t *testing.T) {
	assert.Equal(t, "torrent_added", payloadType(client.Frame{Data: json.RawMessage(`{"type":"torrent_added","id":"x"}`)}))
	assert.Empty(t, payloadType(client.Frame{Data: json.RawMessage(`[1,2]`)}))
}

func TestRunPrintsBroadcasts(t *testing.T) {
	router := transport.NewRouter()
	d, err := seedarr.New(
		seedarr.WithSession(sim.New(sim.WithMetadataDelay(20*time.Millisecond))),
		seedarr.WithSink(router),
		seedarr.WithLogger(logging.NewNopLogger()),
		seedarr.WithPollIntervals(10*time.Millisecond, 20*time.Millisecond),
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

	c, err := client.New(ts.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	out := &syncBuffer{}
	done := make(chan error, 1)
	filter, err := matcher.NewSet("torrent_*")
	require.NoError(t, err)
	go func() { done <- run(ctx, c, options{rooms: []string{"daemon"}, filter: filter}, out) }()

	require.Eventually(t, func() bool {
		return d.Stats().Subscribers == 1
	}, 5*time.Second, 10*time.Millisecond)

	_, err = c.Stage(context.Background(), testMagnet, "")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "torrent_added")
	}, 5*time.Second, 10*time.Millisecond)
	assert.Contains(t, out.String(), "Joined room daemon")
	assert.NotContains(t, out.String(), "metadata_received")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}
