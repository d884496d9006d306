// Package logging provides structured logging for seedarr using zerolog.
// Long-running components (the event bus, the expiring store, the fan-out
// pipeline, the transport hub) take an injected *zerolog.Logger and tag
// their events with a "component" field. Code without an injected logger
// falls back to the package default.
//
// Example usage:
//
//	log := logging.Default()
//	log.Info().Str("info_hash", hash).Msg("Torrent paused")
//
//	busLog := logging.Component(log, "bus")
//	busLog.Error().Err(err).Msg("Consumer failed")
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// defaultLogger is the global logger instance.
	defaultLogger zerolog.Logger

	// Nop logger for discarding output.
	Nop = zerolog.Nop()
)

func init() {
	defaultLogger = createDefaultLogger()
}

func createDefaultLogger() zerolog.Logger {
	var writer io.Writer = os.Stderr
	if isTerminal(os.Stderr) && envOr("LOG_FORMAT", "") != "json" {
		writer = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.Kitchen,
			NoColor:    os.Getenv("NO_COLOR") != "",
		}
	}

	level := zerolog.InfoLevel
	if lvl := envOr("LOG_LEVEL", ""); lvl != "" {
		level = ParseLevel(lvl)
	} else if os.Getenv("DEBUG") != "" {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	return zerolog.New(writer).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// Default returns the default global logger.
func Default() *zerolog.Logger {
	return &defaultLogger
}

// SetDefault sets the default global logger.
func SetDefault(logger zerolog.Logger) {
	defaultLogger = logger
	log.Logger = logger
}

// New creates a new logger with the given writer.
func New(w io.Writer) zerolog.Logger {
	return zerolog.New(w).
		Level(zerolog.GlobalLevel()).
		With().
		Timestamp().
		Logger()
}

// Component returns a child logger tagged with the given component name.
// A nil parent resolves to the default logger.
func Component(parent *zerolog.Logger, name string) *zerolog.Logger {
	if parent == nil {
		parent = Default()
	}
	l := parent.With().Str("component", name).Logger()
	return &l
}

// OrDefault returns l unless it is nil.
func OrDefault(l *zerolog.Logger) *zerolog.Logger {
	if l == nil {
		return Default()
	}
	return l
}

// Debug starts a new debug level log event.
func Debug() *zerolog.Event {
	return defaultLogger.Debug()
}

// Info starts a new info level log event.
func Info() *zerolog.Event {
	return defaultLogger.Info()
}

// Warn starts a new warning level log event.
func Warn() *zerolog.Event {
	return defaultLogger.Warn()
}

// Error starts a new error level log event.
func Error() *zerolog.Event {
	return defaultLogger.Error()
}

// Fatal starts a new fatal level log event (will exit after logging).
func Fatal() *zerolog.Event {
	return defaultLogger.Fatal()
}
