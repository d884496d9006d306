package sse

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seedarr/seedarr/pkg/logging"
	"github.com/seedarr/seedarr/pkg/transport"
)

// stream opens an SSE request and returns the client id and a line reader.
func stream(t *testing.T, b *Broadcaster, connected <-chan string, query string) (string, *bufio.Reader) {
	t.Helper()
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+query, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	select {
	case id := <-connected:
		assert.Equal(t, id, resp.Header.Get("X-Client-ID"))
		return id, bufio.NewReader(resp.Body)
	case <-time.After(2 * time.Second):
		t.Fatal("stream never connected")
		return "", nil
	}
}

// next reads one event block and returns its event and data lines.
func next(t *testing.T, r *bufio.Reader) (event, data string) {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if event != "" || data != "" {
				return event, data
			}
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func newBroadcaster() (*Broadcaster, chan string, chan string) {
	b := NewBroadcaster(logging.NewNopLogger())
	connected := make(chan string, 1)
	gone := make(chan string, 1)
	b.OnConnect(func(_ context.Context, id string) { connected <- id })
	b.OnDisconnect(func(id string) { gone <- id })
	return b, connected, gone
}

func TestStreamReceivesEmits(t *testing.T) {
	b, connected, _ := newBroadcaster()
	id, r := stream(t, b, connected, "")

	event, _ := next(t, r)
	assert.Equal(t, "connected", event)

	require.NoError(t, b.Emit(context.Background(), id, "torrent:broadcast", map[string]any{"type": "torrent_added"}))
	event, data := next(t, r)
	assert.Equal(t, "torrent:broadcast", event)
	assert.JSONEq(t, `{"type":"torrent_added"}`, data)

	assert.ErrorIs(t, b.Emit(context.Background(), "other", "x", nil), transport.ErrUnknownClient)
}

func TestStreamRooms(t *testing.T) {
	b, connected, _ := newBroadcaster()
	_, r := stream(t, b, connected, "?room=ops")
	_, _ = next(t, r)

	require.NoError(t, b.EmitRoom(context.Background(), "elsewhere", "skip", 1))
	require.NoError(t, b.EmitRoom(context.Background(), "ops", "notice", "disk low"))
	event, data := next(t, r)
	assert.Equal(t, "notice", event)
	assert.Equal(t, `"disk low"`, data)
}

func TestCloseEndsStreams(t *testing.T) {
	b, connected, gone := newBroadcaster()
	id, _ := stream(t, b, connected, "")
	assert.Equal(t, 1, b.ClientCount())

	b.Close()
	select {
	case got := <-gone:
		assert.Equal(t, id, got)
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end")
	}
	assert.Zero(t, b.ClientCount())
}
