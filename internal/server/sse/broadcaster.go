// Package sse streams seedarr broadcasts as Server-Sent Events.
//
// An SSE connection is receive-only, so opening one is the subscription:
// the connection gets a client id, is announced through OnConnect, and is
// forgotten through OnDisconnect when the request ends. Rooms are chosen
// up front with repeated ?room= query parameters.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/seedarr/seedarr/pkg/constants"
	"github.com/seedarr/seedarr/pkg/logging"
	"github.com/seedarr/seedarr/pkg/transport"
)

// Event represents an SSE event.
type Event struct {
	Event string `json:"event,omitempty"` // Event type (optional)
	ID    string `json:"id,omitempty"`    // Event ID (optional)
	Data  any    `json:"data"`            // Event data
}

type client struct {
	id     string
	rooms  []string
	events chan Event
}

// Broadcaster manages Server-Sent Events connections. It is a
// transport.Sink.
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[string]*client
	closed  bool

	onConnect    func(ctx context.Context, clientID string)
	onDisconnect func(clientID string)
	heartbeat    time.Duration
	logger       *zerolog.Logger
}

var _ transport.Sink = (*Broadcaster)(nil)

// NewBroadcaster creates a new SSE broadcaster.
func NewBroadcaster(logger *zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		clients:   make(map[string]*client),
		heartbeat: 30 * time.Second,
		logger:    logging.Component(logger, "sse"),
	}
}

// OnConnect sets a callback run once a stream is open.
func (b *Broadcaster) OnConnect(fn func(ctx context.Context, clientID string)) { b.onConnect = fn }

// OnDisconnect sets a callback run after a stream ends.
func (b *Broadcaster) OnDisconnect(fn func(clientID string)) { b.onDisconnect = fn }

// Emit implements transport.Sink.
func (b *Broadcaster) Emit(_ context.Context, clientID, event string, payload any) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, ok := b.clients[clientID]
	if !ok {
		return transport.ErrUnknownClient
	}
	select {
	case c.events <- Event{Event: event, Data: payload}:
		return nil
	default:
		return fmt.Errorf("sse client %s: buffer full", clientID)
	}
}

// EmitRoom implements transport.Sink.
func (b *Broadcaster) EmitRoom(_ context.Context, room, event string, payload any) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, c := range b.clients {
		if !slices.Contains(c.rooms, room) {
			continue
		}
		select {
		case c.events <- Event{Event: event, Data: payload}:
		default:
			b.logger.Warn().Str("client_id", c.id).Str("room", room).Msg("SSE client buffer full, event skipped")
		}
	}
	return nil
}

// ClientCount returns the number of connected SSE clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Close ends every open stream and rejects new ones.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, c := range b.clients {
		close(c.events)
		delete(b.clients, id)
	}
	b.logger.Info().Msg("SSE broadcaster shut down")
}

func (b *Broadcaster) add(c *client) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}
	b.clients[c.id] = c
	b.logger.Info().Str("client_id", c.id).Int("total_clients", len(b.clients)).Msg("SSE client connected")
	return true
}

func (b *Broadcaster) remove(c *client) {
	b.mu.Lock()
	if _, ok := b.clients[c.id]; ok {
		delete(b.clients, c.id)
		close(c.events)
	}
	total := len(b.clients)
	b.mu.Unlock()
	b.logger.Info().Str("client_id", c.id).Int("total_clients", total).Msg("SSE client disconnected")
}

// ServeHTTP handles SSE connections.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	c := &client{
		id:     uuid.NewString(),
		rooms:  r.URL.Query()["room"],
		events: make(chan Event, constants.ChannelBufferSize),
	}
	if !b.add(c) {
		http.Error(w, "Server shutting down", http.StatusServiceUnavailable)
		return
	}
	defer func() {
		b.remove(c)
		if b.onDisconnect != nil {
			b.onDisconnect(c.id)
		}
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Client-ID", c.id)

	b.writeEvent(w, flusher, Event{
		Event: "connected",
		ID:    c.id,
		Data: map[string]any{
			"client_id": c.id,
			"timestamp": time.Now(),
		},
	})

	if b.onConnect != nil {
		b.onConnect(r.Context(), c.id)
	}

	heartbeat := time.NewTicker(b.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case event, ok := <-c.events:
			if !ok {
				return
			}
			b.writeEvent(w, flusher, event)

		case <-heartbeat.C:
			_, _ = fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// writeEvent writes an SSE event to the response writer.
func (b *Broadcaster) writeEvent(w http.ResponseWriter, flusher http.Flusher, event Event) {
	if event.Event != "" {
		_, _ = fmt.Fprintf(w, "event: %s\n", event.Event)
	}
	if event.ID != "" {
		_, _ = fmt.Fprintf(w, "id: %s\n", event.ID)
	}

	data, err := json.Marshal(event.Data)
	if err != nil {
		b.logger.Error().Err(err).Msg("Failed to marshal SSE event data")
		return
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}
