// Package seedarr broadcasts torrent engine activity to connected clients.
//
// A Daemon wraps an engine.Session and a transport.Sink. Clients opt in
// with StartStreaming and from then on receive every engine alert, and every
// pause, resume or remove issued through the daemon, as a serialized
// payload. Torrents added from a magnet are staged until the client confirms
// them; unconfirmed torrents are removed when their pending window closes.
package seedarr

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/seedarr/seedarr/internal/bus"
	"github.com/seedarr/seedarr/internal/metrics"
	"github.com/seedarr/seedarr/internal/pipeline"
	"github.com/seedarr/seedarr/internal/registry"
	"github.com/seedarr/seedarr/internal/store"
	"github.com/seedarr/seedarr/internal/workers"
	"github.com/seedarr/seedarr/pkg/engine"
	"github.com/seedarr/seedarr/pkg/logging"
)

// Daemon is the transport-agnostic command surface of seedarr.
type Daemon interface {
	// Startup builds the bus, registry, pending store and pipeline.
	Startup(ctx context.Context) error

	// Shutdown stops the pipeline, drops pending torrents without
	// removing them and closes the engine session.
	Shutdown(ctx context.Context) error

	// StartStreaming subscribes clientID to broadcasts
	StartStreaming(ctx context.Context, clientID string) Reply

	// StopStreaming unsubscribes clientID
	StopStreaming(clientID string) Reply

	// Disconnect silently forgets clientID
	Disconnect(clientID string)

	// Pause pauses a torrent and announces it
	Pause(ctx context.Context, infoHash string) Reply

	// Resume resumes a torrent and announces it
	Resume(ctx context.Context, infoHash string) Reply

	// Remove removes a torrent, optionally with its data, and announces it
	Remove(ctx context.Context, infoHash string, deleteData bool) Reply

	// FetchMetadata adds a magnet paused, waits for its metadata and stages it
	FetchMetadata(ctx context.Context, magnet, savePath string) Reply

	// ConfirmAdd starts a staged torrent
	ConfirmAdd(ctx context.Context, infoHash string) Reply

	// CancelAdd discards a staged torrent and its data
	CancelAdd(ctx context.Context, infoHash string) Reply

	// Files lists a torrent's files
	Files(ctx context.Context, infoHash string) Reply

	// Peers lists a torrent's connected peers
	Peers(ctx context.Context, infoHash string) Reply

	// Trackers lists a torrent's trackers in tier order
	Trackers(ctx context.Context, infoHash string) Reply

	// AddTrackers appends trackers in a new tier, skipping known URLs
	AddTrackers(ctx context.Context, infoHash string, urls []string) Reply

	// RemoveTrackers drops the matching trackers
	RemoveTrackers(ctx context.Context, infoHash string, urls []string) Reply

	// RenameTracker replaces one tracker URL and reannounces
	RenameTracker(ctx context.Context, infoHash, oldURL, newURL string) Reply

	// ForceReannounce announces to the matching trackers now
	ForceReannounce(ctx context.Context, infoHash string, urls []string) Reply

	// List returns every torrent known to the engine
	List(ctx context.Context) ([]engine.Torrent, error)

	// Get returns a single torrent
	Get(ctx context.Context, infoHash string) (engine.Torrent, error)

	// Pending returns the torrents waiting for confirmation
	Pending() []Pending

	// Stats returns daemon counters
	Stats() Stats

	// OnSubscribed registers a callback for new subscriptions
	OnSubscribed(SubscribedHook)

	// OnUnsubscribed registers a callback for ended subscriptions
	OnUnsubscribed(UnsubscribedHook)

	// OnPendingExpired registers a callback for expired pending torrents
	OnPendingExpired(PendingExpiredHook)
}

// Stats is a point-in-time view of the daemon.
type Stats struct {
	Running bool `json:"running" yaml:"running"`
	pipeline.Stats
	Pending int `json:"pending" yaml:"pending"`
}

// daemon is the internal implementation of the Daemon interface
type daemon struct {
	mu      sync.RWMutex
	config  *config
	log     *zerolog.Logger
	running bool

	session  engine.Session
	bus      *bus.Bus[pipeline.Event]
	registry *registry.Registry
	pending  *store.Store[Pending]
	pipeline *pipeline.Pipeline
	workers  *workers.Pool
	stats    *metrics.Collector

	// Event hooks
	*hooks
}

// New creates a daemon with the given options. Components are built by
// Startup.
func New(opts ...Option) (Daemon, error) {
	cfg := defaultConfig()
	if err := cfg.apply(opts...); err != nil {
		return nil, err
	}

	log := logging.Component(cfg.logger, "daemon")
	return &daemon{
		config:  cfg,
		log:     log,
		session: cfg.session,
		hooks:   newHooks(log),
	}, nil
}
