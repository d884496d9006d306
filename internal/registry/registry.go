// Package registry tracks which clients currently want broadcasts.
package registry

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/seedarr/seedarr/pkg/logging"
)

// Registry is a concurrency-safe set of subscribed client ids.
// Membership only: adding twice or removing an absent id is a no-op.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]struct{}
	log     *zerolog.Logger
}

// New creates an empty registry.
func New(logger *zerolog.Logger) *Registry {
	return &Registry{
		clients: make(map[string]struct{}),
		log:     logging.Component(logger, "registry"),
	}
}

// Add subscribes id. It reports whether id was newly added.
func (r *Registry) Add(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[id]; ok {
		return false
	}
	r.clients[id] = struct{}{}
	r.log.Debug().Str("client_id", id).Int("count", len(r.clients)).Msg("Client subscribed")
	return true
}

// Remove unsubscribes id. It reports whether id was a member.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[id]; !ok {
		return false
	}
	delete(r.clients, id)
	r.log.Debug().Str("client_id", id).Int("count", len(r.clients)).Msg("Client unsubscribed")
	return true
}

// Has reports whether id is subscribed.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.clients[id]
	return ok
}

// Count returns the number of subscribed clients.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Snapshot returns a sorted copy of the member set. The copy is detached
// from the registry, so callers may iterate it while clients come and go.
func (r *Registry) Snapshot() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}
