package serve

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/seedarr/seedarr"
	"github.com/seedarr/seedarr/cmd/application"
	"github.com/seedarr/seedarr/internal/cmd/emoji"
	"github.com/seedarr/seedarr/internal/config"
	"github.com/seedarr/seedarr/internal/engine/sim"
	"github.com/seedarr/seedarr/internal/server"
	"github.com/seedarr/seedarr/pkg/constants"
	"github.com/seedarr/seedarr/pkg/engine"
	"github.com/seedarr/seedarr/pkg/errors"
	"github.com/seedarr/seedarr/pkg/transport"
)

// run builds the daemon and serves it until the command context is done.
func run(cmd *cobra.Command, app application.Application) error {
	cfg := *app.Config()
	logger := app.Logger()
	if cmd.Flags().Changed("engine") {
		cfg.Engine = mustGetString(cmd, "engine")
	}

	sc, err := parseConfig(cmd, &cfg)
	if err != nil {
		return err
	}

	router := transport.NewRouter()
	d, err := newDaemon(&cfg, router, logger)
	if err != nil {
		return err
	}

	logger.Info().
		Str("engine", cfg.Engine).
		Str("save_path", cfg.SavePath).
		Dur("pending_ttl", cfg.PendingTTL).
		Int("workers", cfg.Workers).
		Msg("Starting daemon")

	if err := d.Startup(cmd.Context()); err != nil {
		return errors.WrapResource("start", "daemon", cfg.Engine, err)
	}

	srv, err := server.New(d, router, sc, logger)
	if err != nil {
		_ = d.Shutdown(context.Background())
		return fmt.Errorf("creating server: %w", err)
	}

	logger.Info().
		Int("port", sc.Port).
		Str("host", sc.Host).
		Bool("cors", sc.CORSEnabled).
		Bool("auth", sc.AuthEnabled).
		Int("rate_limit", sc.RateLimit).
		Dur("cache_ttl", sc.CacheTTL).
		Msg("Starting API server")

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(sc.Host, strconv.Itoa(sc.Port)),
		Handler:      srv.Handler(),
		ReadTimeout:  sc.ReadTimeout,
		WriteTimeout: sc.WriteTimeout,
		IdleTimeout:  sc.IdleTimeout,
	}

	// cmd.Context() carries the signal handling installed by main.go.
	return startWithGracefulShutdown(cmd.Context(), cmd, httpServer, srv, d, logger)
}

// newDaemon builds the engine session named by cfg and a daemon around it.
func newDaemon(cfg *config.Config, sink transport.Sink, logger *zerolog.Logger) (seedarr.Daemon, error) {
	var session engine.Session
	switch cfg.Engine {
	case config.EngineSim:
		session = sim.New(sim.WithLogger(logger))
	default:
		return nil, errors.NewValidationError("engine", cfg.Engine, "supported engines: "+config.EngineSim)
	}

	return seedarr.New(
		seedarr.WithSession(session),
		seedarr.WithSink(sink),
		seedarr.WithLogger(logger),
		seedarr.WithPollIntervals(cfg.PollActiveInterval, cfg.PollIdleInterval),
		seedarr.WithPendingTTL(cfg.PendingTTL),
		seedarr.WithMetadataTimeout(cfg.MetadataTimeout),
		seedarr.WithWorkers(cfg.Workers),
		seedarr.WithBusCapacity(cfg.BusCapacity),
		seedarr.WithSavePath(cfg.SavePath),
	)
}

// startWithGracefulShutdown serves until ctx is done, then drains HTTP
// connections, closes the streams and shuts the daemon down.
func startWithGracefulShutdown(ctx context.Context, cmd *cobra.Command, httpServer *http.Server, srv *server.Server, d seedarr.Daemon, logger *zerolog.Logger) error {
	serverErr := make(chan error, 1)

	go func() {
		logger.Info().
			Str("addr", httpServer.Addr).
			Msg("HTTP server listening")

		cmd.Printf("%s seedarr listening on %s\n", emoji.Broadcast, httpServer.Addr)
		cmd.Println("   Press Ctrl+C to stop")

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- fmt.Errorf("server failed: %w", err)
		}
	}()

	select {
	case err := <-serverErr:
		_ = d.Shutdown(context.Background())
		return err
	case <-ctx.Done():
		logger.Info().Msg("Shutdown signal received via context")
		cmd.Printf("\n%s Shutting down seedarr...\n", emoji.Stop)

		// The parent context is already canceled.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()

		// Streams first: hijacked WebSocket connections are not tracked by
		// http.Server.Shutdown.
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("Closing client connections had issues")
		}
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		if err := d.Shutdown(shutdownCtx); err != nil {
			return errors.WrapResource("stop", "daemon", "", err)
		}

		logger.Info().Msg("Server stopped gracefully")
		cmd.Printf("%s seedarr stopped gracefully\n", emoji.Success)
		return nil
	}
}
