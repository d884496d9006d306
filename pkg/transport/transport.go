// Package transport defines how seedarr hands payloads to connected clients.
//
// A Sink is fire-and-forget from the caller's perspective: an error reports
// that this one delivery could not be attempted (the client is gone, the
// payload cannot be encoded), never that the caller should stop.
package transport

import (
	"context"
	"sync"

	"github.com/seedarr/seedarr/pkg/errors"
)

// Sink delivers named payloads to clients.
type Sink interface {
	// Emit sends payload under event to a single client.
	Emit(ctx context.Context, clientID, event string, payload any) error
	// EmitRoom sends payload under event to every client in room.
	EmitRoom(ctx context.Context, room, event string, payload any) error
}

// ErrUnknownClient is returned when no transport owns a client id.
var ErrUnknownClient = errors.New("unknown client")

// Router is a Sink that forwards to whichever registered transport owns a
// client. Transports claim a client id with Bind when the connection opens
// and release it with Unbind when it closes.
type Router struct {
	mu      sync.RWMutex
	owners  map[string]Sink
	members []Sink
}

// NewRouter returns a Router fanning room emits out to every given transport.
func NewRouter(transports ...Sink) *Router {
	return &Router{
		owners:  make(map[string]Sink),
		members: transports,
	}
}

// Attach adds a transport that participates in room emits.
func (r *Router) Attach(s Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members = append(r.members, s)
}

// Bind records that s owns clientID.
func (r *Router) Bind(clientID string, s Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.owners[clientID] = s
}

// Unbind forgets clientID.
func (r *Router) Unbind(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.owners, clientID)
}

// Emit implements Sink.
func (r *Router) Emit(ctx context.Context, clientID, event string, payload any) error {
	r.mu.RLock()
	s, ok := r.owners[clientID]
	r.mu.RUnlock()
	if !ok {
		return ErrUnknownClient
	}
	return s.Emit(ctx, clientID, event, payload)
}

// EmitRoom implements Sink. Every transport is tried; the first error is returned.
func (r *Router) EmitRoom(ctx context.Context, room, event string, payload any) error {
	r.mu.RLock()
	members := append([]Sink(nil), r.members...)
	r.mu.RUnlock()

	var first error
	for _, s := range members {
		if err := s.EmitRoom(ctx, room, event, payload); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// SinkFunc adapts a function to a Sink that cannot address rooms.
type SinkFunc func(ctx context.Context, clientID, event string, payload any) error

// Emit implements Sink.
func (f SinkFunc) Emit(ctx context.Context, clientID, event string, payload any) error {
	return f(ctx, clientID, event, payload)
}

// EmitRoom implements Sink and always succeeds without delivering.
func (f SinkFunc) EmitRoom(context.Context, string, string, any) error {
	return nil
}
