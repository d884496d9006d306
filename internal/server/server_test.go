package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seedarr/seedarr"
	"github.com/seedarr/seedarr/internal/engine/sim"
	"github.com/seedarr/seedarr/pkg/logging"
	"github.com/seedarr/seedarr/pkg/transport"
)

const (
	testMagnet = "magnet:?xt=urn:btih:3b245504cf5f11bbdbe1201cea6a6bf45aee1bc0&dn=ubuntu.iso"
	testHash   = "3b245504cf5f11bbdbe1201cea6a6bf45aee1bc0"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type testServer struct {
	daemon seedarr.Daemon
	srv    *Server
	http   *httptest.Server
}

func newTestServer(t *testing.T, cfg Config, start bool) *testServer {
	t.Helper()

	router := transport.NewRouter()
	d, err := seedarr.New(
		seedarr.WithSession(sim.New(sim.WithMetadataDelay(20*time.Millisecond))),
		seedarr.WithSink(router),
		seedarr.WithLogger(logging.NewNopLogger()),
		seedarr.WithPollIntervals(10*time.Millisecond, 20*time.Millisecond),
		seedarr.WithMetadataTimeout(2*time.Second),
		seedarr.WithStatsInterval(0),
	)
	require.NoError(t, err)
	if start {
		require.NoError(t, d.Startup(context.Background()))
	}

	srv, err := New(d, router, cfg, logging.NewNopLogger())
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())

	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
		ts.Close()
		_ = d.Shutdown(context.Background())
	})
	return &testServer{daemon: d, srv: srv, http: ts}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.http.URL+path, &buf)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RateLimit = 0
	return cfg
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t, testConfig(), false)

	status, _ := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)

	status, env := ts.do(t, http.MethodGet, "/api/v1/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	require.NotNil(t, env.Error)

	require.NoError(t, ts.daemon.Startup(context.Background()))
	status, _ = ts.do(t, http.MethodGet, "/api/v1/ready", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestStageConfirmFlow(t *testing.T) {
	ts := newTestServer(t, testConfig(), true)

	status, env := ts.do(t, http.MethodPost, "/api/v1/magnets", map[string]string{"magnet": testMagnet})
	require.Equal(t, http.StatusOK, status)
	var reply seedarr.Reply
	require.NoError(t, json.Unmarshal(env.Data, &reply))
	assert.Equal(t, seedarr.StatusSuccess, reply.Status)
	assert.Equal(t, "Metadata and files fetched", reply.Message)

	status, env = ts.do(t, http.MethodGet, "/api/v1/pending", nil)
	require.Equal(t, http.StatusOK, status)
	var pending struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &pending))
	assert.Equal(t, 1, pending.Count)

	status, _ = ts.do(t, http.MethodPost, "/api/v1/pending/"+testHash+"/confirm", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, ts.daemon.Pending())

	status, env = ts.do(t, http.MethodGet, "/api/v1/torrents/"+testHash, nil)
	require.Equal(t, http.StatusOK, status)
	var torrent struct {
		InfoHash string `json:"info_hash"`
		Paused   bool   `json:"paused"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &torrent))
	assert.Equal(t, testHash, torrent.InfoHash)
	assert.False(t, torrent.Paused)

	// Confirming twice has nothing left to take.
	status, env = ts.do(t, http.MethodPost, "/api/v1/pending/"+testHash+"/confirm", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "COMMAND_FAILED", env.Error.Code)
}

func TestTorrentCommands(t *testing.T) {
	ts := newTestServer(t, testConfig(), true)

	status, _ := ts.do(t, http.MethodPost, "/api/v1/magnets", map[string]string{"magnet": testMagnet})
	require.Equal(t, http.StatusOK, status)
	status, _ = ts.do(t, http.MethodPost, "/api/v1/pending/"+testHash+"/confirm", nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = ts.do(t, http.MethodPost, "/api/v1/torrents/"+testHash+"/pause", nil)
	assert.Equal(t, http.StatusOK, status)

	status, env := ts.do(t, http.MethodGet, "/api/v1/torrents/"+testHash, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"paused":true`, "pause must invalidate the cached torrent")

	status, _ = ts.do(t, http.MethodPost, "/api/v1/torrents/"+testHash+"/resume", nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = ts.do(t, http.MethodDelete, "/api/v1/torrents/"+testHash+"?delete_data=true", nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = ts.do(t, http.MethodGet, "/api/v1/torrents/"+testHash, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = ts.do(t, http.MethodGet, "/api/v1/torrents/not-a-hash", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestCommandsWhileStopped(t *testing.T) {
	ts := newTestServer(t, testConfig(), false)

	status, env := ts.do(t, http.MethodPost, "/api/v1/torrents/"+testHash+"/pause", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	require.NotNil(t, env.Error)
}

func TestAuth(t *testing.T) {
	cfg := testConfig()
	cfg.AuthEnabled = true
	cfg.APIKey = "secret"
	ts := newTestServer(t, cfg, true)

	status, _ := ts.do(t, http.MethodGet, "/api/v1/torrents", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = ts.do(t, http.MethodGet, "/api/v1/torrents?api_key=secret", nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = ts.do(t, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, testConfig(), true)

	resp, err := http.Get(ts.http.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWebSocketBroadcast(t *testing.T) {
	ts := newTestServer(t, testConfig(), true)

	status, _ := ts.do(t, http.MethodPost, "/api/v1/magnets", map[string]string{"magnet": testMagnet})
	require.Equal(t, http.StatusOK, status)
	status, _ = ts.do(t, http.MethodPost, "/api/v1/pending/"+testHash+"/confirm", nil)
	require.Equal(t, http.StatusOK, status)

	url := "ws" + strings.TrimPrefix(ts.http.URL, "http") + "/api/v1/updates/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]any{
		"id":    "1",
		"event": "torrent:broadcast",
		"data":  map[string]string{"event": "start"},
	}))

	var ack struct {
		ID    string        `json:"id"`
		Event string        `json:"event"`
		Data  seedarr.Reply `json:"data"`
	}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&ack))
	assert.Equal(t, "1", ack.ID)
	assert.Equal(t, "ack", ack.Event)
	assert.Equal(t, seedarr.StatusSuccess, ack.Data.Status)
	assert.Equal(t, 1, ts.daemon.Stats().Subscribers)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"id":    "2",
		"event": "torrent:pause",
		"data":  map[string]string{"info_hash": testHash},
	}))

	deadline := time.Now().Add(3 * time.Second)
	require.NoError(t, conn.SetReadDeadline(deadline))
	for {
		var frame struct {
			Event string         `json:"event"`
			Data  map[string]any `json:"data"`
		}
		require.NoError(t, conn.ReadJSON(&frame), "no synthetic pause before deadline")
		if frame.Event == "torrent:broadcast" && frame.Data["type"] == "torrent_paused" && frame.Data["synthetic"] == true {
			assert.Equal(t, testHash, frame.Data["id"])
			break
		}
	}

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool {
		return ts.daemon.Stats().Subscribers == 0
	}, 2*time.Second, 10*time.Millisecond, "disconnect must drop the subscription")
}

func TestWebSocketUnknownEvent(t *testing.T) {
	ts := newTestServer(t, testConfig(), true)

	url := "ws" + strings.TrimPrefix(ts.http.URL, "http") + "/api/v1/updates/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]any{"id": "x", "event": "torrent:explode"}))

	var ack struct {
		Data seedarr.Reply `json:"data"`
	}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&ack))
	assert.Equal(t, seedarr.StatusError, ack.Data.Status)
	assert.Contains(t, ack.Data.Message, "torrent:explode")
}

func TestSSESubscribesForItsLifetime(t *testing.T) {
	ts := newTestServer(t, testConfig(), true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.http.URL+"/api/v1/updates/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get("X-Client-ID"))

	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: connected\n", line)

	assert.Eventually(t, func() bool {
		return ts.daemon.Stats().Subscribers == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.Eventually(t, func() bool {
		return ts.daemon.Stats().Subscribers == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestTrackerEndpoints(t *testing.T) {
	ts := newTestServer(t, testConfig(), true)
	base := "/api/v1/torrents/" + testHash

	magnet := testMagnet + "&tr=udp%3A%2F%2Fone%3A80"
	status, _ := ts.do(t, http.MethodPost, "/api/v1/magnets", map[string]string{"magnet": magnet})
	require.Equal(t, http.StatusOK, status)

	replyOf := func(env envelope) seedarr.Reply {
		t.Helper()
		var reply seedarr.Reply
		require.NoError(t, json.Unmarshal(env.Data, &reply))
		return reply
	}

	status, env := ts.do(t, http.MethodPost, base+"/trackers", map[string]any{"trackers": []string{"http://two/announce"}})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Added 1 tracker(s)", replyOf(env).Message)

	status, env = ts.do(t, http.MethodPut, base+"/trackers", map[string]string{
		"old_tracker": "http://two/announce",
		"new_tracker": "http://three/announce",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Tracker http://two/announce renamed to http://three/announce", replyOf(env).Message)

	status, env = ts.do(t, http.MethodPost, base+"/reannounce", map[string]any{"trackers": []string{"udp://one:80"}})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Reannounce triggered for 1 tracker(s)", replyOf(env).Message)

	status, _ = ts.do(t, http.MethodDelete, base+"/trackers?url=udp%3A%2F%2Fone%3A80", nil)
	require.Equal(t, http.StatusOK, status)

	status, env = ts.do(t, http.MethodGet, base+"/trackers", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"url":"http://three/announce"`)
	assert.NotContains(t, string(env.Data), "udp://one:80")

	status, env = ts.do(t, http.MethodGet, base+"/files", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"path":"ubuntu.iso"`)

	status, env = ts.do(t, http.MethodGet, base+"/peers", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"leeches":0`)

	status, env = ts.do(t, http.MethodPost, base+"/reannounce", map[string]any{"trackers": []string{}})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "Trackers list is empty", env.Error.Message)
}
