// Package handlers provides HTTP request handlers for the seedarr API.
//
// Handlers are organized by domain:
//
//   - torrents.go: torrent listing and control, magnet staging
//   - commands.go: WebSocket event dispatch onto daemon commands
//   - admin.go: daemon and runtime statistics
//   - health.go: liveness and readiness checks
//   - realtime.go: WebSocket and SSE connections
//
// Every command goes through the same seedarr.Daemon the WebSocket clients
// use, so REST callers see identical replies and trigger the same
// broadcasts.
package handlers

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/seedarr/seedarr"
	"github.com/seedarr/seedarr/internal/server/cache"
	"github.com/seedarr/seedarr/internal/server/sse"
	ws "github.com/seedarr/seedarr/internal/server/websocket"
)

// Handlers provides access to all HTTP handlers.
type Handlers struct {
	daemon         seedarr.Daemon
	cache          *cache.Cache
	wsHub          *ws.Hub
	sseBroadcaster *sse.Broadcaster
	upgrader       websocket.Upgrader
	logger         *zerolog.Logger
	startTime      time.Time
}

// New creates a new Handlers instance.
func New(
	daemon seedarr.Daemon,
	cache *cache.Cache,
	sseBroadcaster *sse.Broadcaster,
	upgrader websocket.Upgrader,
	logger *zerolog.Logger,
) *Handlers {
	return &Handlers{
		daemon:         daemon,
		cache:          cache,
		sseBroadcaster: sseBroadcaster,
		upgrader:       upgrader,
		logger:         logger,
		startTime:      time.Now(),
	}
}

// AttachHub sets the WebSocket hub. The hub dispatches into these
// handlers, so it is built after them.
func (h *Handlers) AttachHub(hub *ws.Hub) {
	h.wsHub = hub
}
