package seedarr

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/panics"
)

// Hook function types for daemon events
type (
	// SubscribedHook is called when a client starts streaming
	SubscribedHook func(clientID string)

	// UnsubscribedHook is called when a client stops streaming or disconnects
	UnsubscribedHook func(clientID string)

	// PendingExpiredHook is called after an unconfirmed torrent was discarded
	PendingExpiredHook func(p Pending)
)

// hooks manages callbacks for daemon events
type hooks struct {
	mu               sync.RWMutex
	onSubscribed     []SubscribedHook
	onUnsubscribed   []UnsubscribedHook
	onPendingExpired []PendingExpiredHook
	log              *zerolog.Logger
}

func newHooks(log *zerolog.Logger) *hooks {
	return &hooks{log: log}
}

// OnSubscribed registers a callback for new subscriptions
func (h *hooks) OnSubscribed(fn SubscribedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onSubscribed = append(h.onSubscribed, fn)
}

// OnUnsubscribed registers a callback for ended subscriptions
func (h *hooks) OnUnsubscribed(fn UnsubscribedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onUnsubscribed = append(h.onUnsubscribed, fn)
}

// OnPendingExpired registers a callback for expired pending torrents
func (h *hooks) OnPendingExpired(fn PendingExpiredHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onPendingExpired = append(h.onPendingExpired, fn)
}

func (h *hooks) subscribed(clientID string) {
	h.mu.RLock()
	fns := h.onSubscribed
	h.mu.RUnlock()
	for _, fn := range fns {
		h.run("subscribed", func() { fn(clientID) })
	}
}

func (h *hooks) unsubscribed(clientID string) {
	h.mu.RLock()
	fns := h.onUnsubscribed
	h.mu.RUnlock()
	for _, fn := range fns {
		h.run("unsubscribed", func() { fn(clientID) })
	}
}

func (h *hooks) pendingExpired(p Pending) {
	h.mu.RLock()
	fns := h.onPendingExpired
	h.mu.RUnlock()
	for _, fn := range fns {
		h.run("pending_expired", func() { fn(p) })
	}
}

// run isolates a hook so a panicking callback cannot take a command down.
func (h *hooks) run(name string, fn func()) {
	var pc panics.Catcher
	pc.Try(fn)
	if r := pc.Recovered(); r != nil {
		h.log.Error().Str("hook", name).Interface("panic", r.Value).Msg("Hook panicked")
	}
}
