// Package websocket carries seedarr commands and broadcasts over WebSocket
// connections.
//
// Every connection gets a generated client id. Inbound frames are
// {"id","event","data"}; each is answered with an "ack" frame echoing the
// id. Outbound pushes carry no id.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/seedarr/seedarr/pkg/constants"
	"github.com/seedarr/seedarr/pkg/logging"
	"github.com/seedarr/seedarr/pkg/transport"
)

// Room control events handled by the hub itself.
const (
	EventJoin  = "room:join"
	EventLeave = "room:leave"
)

// Dispatcher answers a client event. The returned value is sent back in
// the ack frame.
type Dispatcher interface {
	Dispatch(ctx context.Context, clientID, event string, data json.RawMessage) any
}

// DispatcherFunc adapts a function to a Dispatcher.
type DispatcherFunc func(ctx context.Context, clientID, event string, data json.RawMessage) any

// Dispatch implements Dispatcher.
func (f DispatcherFunc) Dispatch(ctx context.Context, clientID, event string, data json.RawMessage) any {
	return f(ctx, clientID, event, data)
}

// Hub tracks live connections and their room memberships. It is a
// transport.Sink.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	rooms   map[string]map[string]struct{}

	dispatcher   Dispatcher
	onConnect    func(clientID string)
	onDisconnect func(clientID string)
	logger       *zerolog.Logger
}

var _ transport.Sink = (*Hub)(nil)

// NewHub creates a hub answering inbound events with d.
func NewHub(d Dispatcher, logger *zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]struct{}),
		dispatcher: d,
		logger:     logging.Component(logger, "websocket"),
	}
}

// OnConnect sets a callback run after a client registers.
func (h *Hub) OnConnect(fn func(clientID string)) { h.onConnect = fn }

// OnDisconnect sets a callback run after a client is gone.
func (h *Hub) OnDisconnect(fn func(clientID string)) { h.onDisconnect = fn }

// Register adds a client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Info().Str("client_id", c.id).Int("total_clients", total).Msg("WebSocket client connected")
	if h.onConnect != nil {
		h.onConnect(c.id)
	}
}

// Unregister removes a client, its room memberships, and closes its send
// queue. It is safe to call more than once.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.id)
	for room, members := range h.rooms {
		delete(members, c.id)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	close(c.send)
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Info().Str("client_id", c.id).Int("total_clients", total).Msg("WebSocket client disconnected")
	if h.onDisconnect != nil {
		h.onDisconnect(c.id)
	}
}

// Join adds clientID to room.
func (h *Hub) Join(clientID, room string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[clientID]; !ok {
		return false
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[string]struct{})
		h.rooms[room] = members
	}
	members[clientID] = struct{}{}
	return true
}

// Leave removes clientID from room.
func (h *Hub) Leave(clientID, room string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[room]
	if !ok {
		return false
	}
	if _, ok := members[clientID]; !ok {
		return false
	}
	delete(members, clientID)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
	return true
}

// Emit implements transport.Sink.
func (h *Hub) Emit(_ context.Context, clientID, event string, payload any) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[clientID]
	if !ok {
		return transport.ErrUnknownClient
	}
	return c.enqueue(Message{Event: event, Data: payload})
}

// EmitRoom implements transport.Sink. Members with a full queue are skipped.
func (h *Hub) EmitRoom(_ context.Context, room, event string, payload any) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id := range h.rooms[room] {
		if err := h.clients[id].enqueue(Message{Event: event, Data: payload}); err != nil {
			h.logger.Warn().Err(err).Str("client_id", id).Str("room", room).Msg("Room message dropped")
		}
	}
	return nil
}

// Broadcast sends a message to every connected client.
func (h *Hub) Broadcast(event string, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, c := range h.clients {
		if err := c.enqueue(Message{Event: event, Data: payload}); err != nil {
			h.logger.Warn().Err(err).Str("client_id", id).Msg("Broadcast message dropped")
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomSize returns the number of clients in room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// CloseAll unregisters every client.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	all := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		all = append(all, c)
	}
	h.mu.RUnlock()
	for _, c := range all {
		h.Unregister(c)
	}
}

// handle answers one inbound frame.
func (h *Hub) handle(ctx context.Context, c *Client, in Inbound) {
	var reply any
	switch in.Event {
	case EventJoin, EventLeave:
		reply = h.roomControl(c.id, in)
	default:
		if h.dispatcher == nil {
			reply = map[string]any{"status": "error", "message": "No handler for " + in.Event}
			break
		}
		ctx = logging.WithClient(ctx, c.id)
		reply = h.dispatcher.Dispatch(ctx, c.id, in.Event, in.Data)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	if err := c.enqueue(Message{ID: in.ID, Event: constants.AckEvent, Data: reply}); err != nil {
		h.logger.Warn().Err(err).Str("client_id", c.id).Str("event", in.Event).Msg("Ack dropped")
	}
}

func (h *Hub) roomControl(clientID string, in Inbound) map[string]any {
	var body struct {
		Room string `json:"room"`
	}
	if err := json.Unmarshal(in.Data, &body); err != nil || body.Room == "" {
		return map[string]any{"status": "error", "message": "Room name is required"}
	}
	if in.Event == EventJoin {
		h.Join(clientID, body.Room)
		return map[string]any{"status": "success", "message": "Joined room " + body.Room}
	}
	if !h.Leave(clientID, body.Room) {
		return map[string]any{"status": "info", "message": "Not in room " + body.Room}
	}
	return map[string]any{"status": "success", "message": "Left room " + body.Room}
}

// Message is an outbound frame.
type Message struct {
	ID    string `json:"id,omitempty"`
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Inbound is a frame sent by a client.
type Inbound struct {
	ID    string          `json:"id"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Client is one WebSocket connection.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan Message
}

// NewClient creates a client for conn.
func NewClient(id string, hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:   id,
		hub:  hub,
		conn: conn,
		send: make(chan Message, constants.ChannelBufferSize),
	}
}

// ID returns the client id.
func (c *Client) ID() string { return c.id }

// enqueue must be called with the hub lock held so send cannot be closed
// underneath it.
func (c *Client) enqueue(m Message) error {
	select {
	case c.send <- m:
		return nil
	default:
		return fmt.Errorf("client %s: send queue full", c.id)
	}
}

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// ReadPump reads frames until the connection fails, then unregisters the
// client. Frames are handled one at a time, in order.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(constants.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var in Inbound
		if err := c.conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.hub.logger.Error().Err(err).Str("client_id", c.id).Msg("WebSocket read error")
			}
			return
		}
		if in.Event == "" {
			continue
		}
		c.hub.handle(ctx, c, in)
	}
}

// WritePump writes queued frames and keepalive pings until the queue is
// closed or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				c.hub.logger.Debug().Err(err).Str("client_id", c.id).Msg("WebSocket write failed")
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
