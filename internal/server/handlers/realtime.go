package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	ws "github.com/seedarr/seedarr/internal/server/websocket"
)

// HandleWebSocket handles WebSocket connections at /api/v1/updates/ws.
// Connecting does not subscribe; the client sends torrent:broadcast with
// {"event":"start"} to begin receiving updates.
// @Summary WebSocket commands and updates
// @Description Bidirectional channel for torrent commands and broadcast updates
// @Tags updates
// @Success 101 "Switching Protocols"
// @Router /api/v1/updates/ws [get].
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := ws.NewClient(uuid.NewString(), h.wsHub, conn)
	h.wsHub.Register(client)

	// The request context ends when this handler returns.
	go client.WritePump()
	go client.ReadPump(context.WithoutCancel(r.Context()))
}

// HandleSSE handles Server-Sent Events at /api/v1/updates/stream.
// The stream is subscribed for as long as it stays open.
// @Summary SSE updates stream
// @Description Server-Sent Events stream of torrent broadcasts
// @Tags updates
// @Produce text/event-stream
// @Param room query string false "Room to join (repeatable)"
// @Success 200 "Event stream"
// @Router /api/v1/updates/stream [get].
func (h *Handlers) HandleSSE(w http.ResponseWriter, r *http.Request) {
	h.sseBroadcaster.ServeHTTP(w, r)
}
