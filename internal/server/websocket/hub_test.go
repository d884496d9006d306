package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seedarr/seedarr/pkg/logging"
	"github.com/seedarr/seedarr/pkg/transport"
)

type harness struct {
	hub       *Hub
	server    *httptest.Server
	connected chan string
	gone      chan string
}

func newHarness(t *testing.T, d Dispatcher) *harness {
	t.Helper()
	h := &harness{
		hub:       NewHub(d, logging.NewNopLogger()),
		connected: make(chan string, 4),
		gone:      make(chan string, 4),
	}
	h.hub.OnConnect(func(id string) { h.connected <- id })
	h.hub.OnDisconnect(func(id string) { h.gone <- id })

	upgrader := websocket.Upgrader{}
	var n atomic.Int32
	h.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := NewClient(fmt.Sprintf("client-%d", n.Add(1)), h.hub, conn)
		h.hub.Register(c)
		go c.WritePump()
		go c.ReadPump(context.Background())
	}))
	t.Cleanup(h.server.Close)
	return h
}

func (h *harness) dial(t *testing.T) (*websocket.Conn, string) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	select {
	case id := <-h.connected:
		return conn, id
	case <-time.After(2 * time.Second):
		t.Fatal("client never registered")
		return nil, ""
	}
}

func read(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var m Message
	require.NoError(t, conn.ReadJSON(&m))
	return m
}

func TestDispatchAck(t *testing.T) {
	d := DispatcherFunc(func(_ context.Context, clientID, event string, data json.RawMessage) any {
		return map[string]any{"client": clientID, "event": event, "raw": string(data)}
	})
	h := newHarness(t, d)
	conn, id := h.dial(t)

	require.NoError(t, conn.WriteJSON(map[string]any{"id": "7", "event": "torrent:get_all", "data": map[string]any{"x": 1}}))

	m := read(t, conn)
	assert.Equal(t, "7", m.ID)
	assert.Equal(t, "ack", m.Event)
	body := m.Data.(map[string]any)
	assert.Equal(t, id, body["client"])
	assert.Equal(t, "torrent:get_all", body["event"])
	assert.JSONEq(t, `{"x":1}`, body["raw"].(string))
}

func TestEmitToClient(t *testing.T) {
	h := newHarness(t, nil)
	conn, id := h.dial(t)

	require.NoError(t, h.hub.Emit(context.Background(), id, "torrent:broadcast", map[string]any{"type": "torrent_added"}))
	m := read(t, conn)
	assert.Empty(t, m.ID)
	assert.Equal(t, "torrent:broadcast", m.Event)
	assert.Equal(t, "torrent_added", m.Data.(map[string]any)["type"])

	err := h.hub.Emit(context.Background(), "nobody", "x", nil)
	assert.ErrorIs(t, err, transport.ErrUnknownClient)
}

func TestRooms(t *testing.T) {
	h := newHarness(t, nil)
	a, aID := h.dial(t)
	_, _ = h.dial(t)

	require.NoError(t, a.WriteJSON(map[string]any{"id": "1", "event": EventJoin, "data": map[string]any{"room": "admins"}}))
	ack := read(t, a)
	assert.Equal(t, "success", ack.Data.(map[string]any)["status"])
	assert.Equal(t, 1, h.hub.RoomSize("admins"))

	require.NoError(t, h.hub.EmitRoom(context.Background(), "admins", "notice", "hi"))
	m := read(t, a)
	assert.Equal(t, "notice", m.Event)
	assert.Equal(t, "hi", m.Data)

	assert.True(t, h.hub.Leave(aID, "admins"))
	assert.False(t, h.hub.Leave(aID, "admins"))
	assert.Zero(t, h.hub.RoomSize("admins"))
}

func TestJoinWithoutRoomName(t *testing.T) {
	h := newHarness(t, nil)
	conn, _ := h.dial(t)

	require.NoError(t, conn.WriteJSON(map[string]any{"id": "1", "event": EventJoin, "data": map[string]any{}}))
	ack := read(t, conn)
	assert.Equal(t, "error", ack.Data.(map[string]any)["status"])
}

func TestDisconnectUnregisters(t *testing.T) {
	h := newHarness(t, nil)
	conn, id := h.dial(t)
	assert.Equal(t, 1, h.hub.ClientCount())

	require.NoError(t, conn.Close())
	select {
	case gone := <-h.gone:
		assert.Equal(t, id, gone)
	case <-time.After(2 * time.Second):
		t.Fatal("disconnect was never observed")
	}
	assert.Zero(t, h.hub.ClientCount())
	assert.ErrorIs(t, h.hub.Emit(context.Background(), id, "x", nil), transport.ErrUnknownClient)
}

func TestUnregisterTwice(t *testing.T) {
	hub := NewHub(nil, logging.NewNopLogger())
	calls := 0
	hub.OnDisconnect(func(string) { calls++ })

	c := NewClient("c1", hub, nil)
	hub.Register(c)
	hub.Unregister(c)
	hub.Unregister(c)
	assert.Equal(t, 1, calls)
}
