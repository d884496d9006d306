package seedarr

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/seedarr/seedarr/internal/pipeline"
	"github.com/seedarr/seedarr/pkg/constants"
	"github.com/seedarr/seedarr/pkg/engine"
	"github.com/seedarr/seedarr/pkg/errors"
	"github.com/seedarr/seedarr/pkg/transport"
)

// Option is a function that configures a Daemon
type Option func(*config) error

type config struct {
	session engine.Session
	sink    transport.Sink
	logger  *zerolog.Logger

	activeInterval  time.Duration
	idleInterval    time.Duration
	pendingTTL      time.Duration
	metadataTimeout time.Duration
	workers         int
	busCapacity     int
	statsInterval   time.Duration
	serializer      pipeline.Serializer
	savePath        string
}

func defaultConfig() *config {
	return &config{
		activeInterval:  constants.PollActiveInterval,
		idleInterval:    constants.PollIdleInterval,
		pendingTTL:      constants.PendingTTL,
		metadataTimeout: constants.MetadataTimeout,
		workers:         constants.DefaultWorkers,
		statsInterval:   15 * time.Second,
	}
}

// WithSession sets the engine session the daemon reports on. Required.
func WithSession(s engine.Session) Option {
	return func(c *config) error {
		if s == nil {
			return errors.NewValidationError("session", nil, "must not be nil")
		}
		c.session = s
		return nil
	}
}

// WithSink sets where broadcasts are delivered. Required.
func WithSink(s transport.Sink) Option {
	return func(c *config) error {
		if s == nil {
			return errors.NewValidationError("sink", nil, "must not be nil")
		}
		c.sink = s
		return nil
	}
}

// WithLogger sets the logger shared by every component.
func WithLogger(l *zerolog.Logger) Option {
	return func(c *config) error {
		c.logger = l
		return nil
	}
}

// WithPollIntervals sets how often the engine is drained while clients are
// subscribed and how often the registry is re-checked while none are.
func WithPollIntervals(active, idle time.Duration) Option {
	return func(c *config) error {
		if active <= 0 || idle <= 0 {
			return errors.NewValidationError("poll_interval", active, "must be positive")
		}
		c.activeInterval, c.idleInterval = active, idle
		return nil
	}
}

// WithPendingTTL sets how long a staged torrent waits for confirmation.
func WithPendingTTL(d time.Duration) Option {
	return func(c *config) error {
		if d <= 0 {
			return errors.NewValidationError("pending_ttl", d, "must be positive")
		}
		c.pendingTTL = d
		return nil
	}
}

// WithMetadataTimeout bounds how long FetchMetadata waits for the engine.
func WithMetadataTimeout(d time.Duration) Option {
	return func(c *config) error {
		if d <= 0 {
			return errors.NewValidationError("metadata_timeout", d, "must be positive")
		}
		c.metadataTimeout = d
		return nil
	}
}

// WithWorkers sets the size of the blocking-call worker pool.
func WithWorkers(n int) Option {
	return func(c *config) error {
		if n <= 0 {
			return errors.NewValidationError("workers", n, "must be positive")
		}
		c.workers = n
		return nil
	}
}

// WithBusCapacity bounds the event bus. Zero keeps it unbounded.
func WithBusCapacity(n int) Option {
	return func(c *config) error {
		if n < 0 {
			return errors.NewValidationError("bus_capacity", n, "must not be negative")
		}
		c.busCapacity = n
		return nil
	}
}

// WithSerializer replaces the default alert serializer chain.
func WithSerializer(s pipeline.Serializer) Option {
	return func(c *config) error {
		c.serializer = s
		return nil
	}
}

// WithSavePath sets the default download directory for new torrents.
func WithSavePath(path string) Option {
	return func(c *config) error {
		c.savePath = path
		return nil
	}
}

// WithStatsInterval sets how often gauges are sampled. Zero disables sampling.
func WithStatsInterval(d time.Duration) Option {
	return func(c *config) error {
		c.statsInterval = d
		return nil
	}
}

func (c *config) apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return err
		}
	}
	if c.session == nil {
		return errors.NewConfigError("daemon", "an engine session is required", nil)
	}
	if c.sink == nil {
		return errors.NewConfigError("daemon", "a transport sink is required", nil)
	}
	return nil
}
