// Package constants provides shared constants used throughout the seedarr codebase.
// This includes poll intervals, timeouts, limits, file permissions, and other
// configuration values that should be consistent across the application.
package constants

import "time"

// Pipeline timing constants
const (
	// PollActiveInterval is how often the poller drains the engine while at least
	// one client is subscribed.
	PollActiveInterval = 250 * time.Millisecond

	// PollIdleInterval is how long the poller sleeps between registry checks
	// while nobody is subscribed.
	PollIdleInterval = 1 * time.Second

	// PendingTTL is the default lifetime of a staged torrent awaiting confirmation.
	PendingTTL = 60 * time.Second

	// MetadataTimeout bounds how long a metadata fetch waits for the engine.
	MetadataTimeout = 20 * time.Second

	// WaitBaseDelay is the first delay used by backoff polling.
	WaitBaseDelay = 100 * time.Millisecond

	// WaitMaxDelay caps the delay used by backoff polling.
	WaitMaxDelay = 5 * time.Second
)

// Timeout constants define various timeout durations used in the application
const (
	// DefaultTimeout is the standard timeout for general operations
	DefaultTimeout = 10 * time.Second

	// DefaultHTTPTimeout is the timeout used by CLI commands talking to a running
	// daemon. It exceeds MetadataTimeout so staging a magnet can finish.
	DefaultHTTPTimeout = 30 * time.Second

	// ShutdownTimeout is how long graceful shutdown may take
	ShutdownTimeout = 30 * time.Second
)

// File permission constants define standard Unix file permissions
const (
	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Limit constants define various limits and capacities
const (
	// DefaultWorkers is the default size of the blocking-call worker pool
	DefaultWorkers = 8

	// ChannelBufferSize is the default buffer size for per-client send channels
	ChannelBufferSize = 256

	// MaxMessageSize is the largest inbound WebSocket frame accepted from a client
	MaxMessageSize = 64 * 1024
)

// Transport event names
const (
	// BroadcastEvent is the event name every fan-out payload is emitted under
	BroadcastEvent = "torrent:broadcast"

	// AckEvent is the event name for command replies
	AckEvent = "ack"
)

// Path constants
const (
	// DefaultConfigName is the config file name searched in $HOME and the working directory
	DefaultConfigName = ".seedarr"

	// EnvPrefix is the prefix for environment variable configuration
	EnvPrefix = "SEEDARR"
)
