// Package serve provides the daemon command for the seedarr CLI.
package serve

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/seedarr/seedarr/cmd/application"
	"github.com/seedarr/seedarr/internal/config"
	"github.com/seedarr/seedarr/internal/server"
	"github.com/seedarr/seedarr/pkg/errors"
)

// NewCommand creates the serve command using app context.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"server", "daemon"},
		GroupID: "core",
		Short:   "Run the torrent daemon with WebSocket, SSE and REST endpoints",
		Long: `Start the seedarr daemon.

The daemon drives a torrent engine and serves:
  - WebSocket commands and broadcasts (/api/v1/updates/ws)
  - Server-Sent Events broadcasts (/api/v1/updates/stream)
  - A REST mirror of every command (/api/v1/torrents, /api/v1/magnets, /api/v1/pending)
  - Health, readiness, stats and Prometheus metrics

Engine polling only runs while at least one client is subscribed. Staged
magnets are discarded when pending_ttl passes without a confirmation.`,
		Example: `  # Start on the configured port (default 8420)
  seedarr serve

  # Require an API key
  SEEDARR_API_KEY=secret seedarr serve --auth

  # Allow a browser UI on another origin
  seedarr serve --cors-origins "http://localhost:5173"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, app)
		},
	}

	// Server configuration flags; zero values fall back to the config file.
	cmd.Flags().Int("port", 0, "Server port (default from config, 8420)")
	cmd.Flags().String("host", "", "Bind address (default from config, localhost)")
	cmd.Flags().String("engine", "", "Torrent engine: sim (default from config)")

	// CORS flags
	cmd.Flags().Bool("cors", false, "Enable CORS for all origins")
	cmd.Flags().StringSlice("cors-origins", []string{}, "Allowed CORS origins (comma-separated)")

	// Authentication flags
	cmd.Flags().Bool("auth", false, "Require the configured api_key on every request")
	cmd.Flags().String("auth-header", "X-API-Key", "Authentication header name")

	// Performance flags
	cmd.Flags().Int("rate-limit", server.DefaultConfig().RateLimit, "Requests per minute per IP (0 to disable)")
	cmd.Flags().Duration("cache-ttl", server.DefaultConfig().CacheTTL, "How long REST torrent lists are cached")

	// Timeout flags
	cmd.Flags().Duration("read-timeout", 10*time.Second, "HTTP read timeout")
	cmd.Flags().Duration("idle-timeout", 120*time.Second, "HTTP idle timeout")

	// Features flags
	cmd.Flags().Bool("metrics", true, "Enable metrics endpoint")

	return cmd
}

// parseConfig merges command flags over the loaded configuration.
func parseConfig(cmd *cobra.Command, cfg *config.Config) (server.Config, error) {
	sc := server.DefaultConfig()
	sc.Host = cfg.Host
	sc.Port = cfg.Port
	sc.APIKey = cfg.APIKey

	if cmd.Flags().Changed("port") {
		sc.Port = mustGetInt(cmd, "port")
	}
	if cmd.Flags().Changed("host") {
		sc.Host = mustGetString(cmd, "host")
	}

	sc.CORSEnabled = mustGetBool(cmd, "cors")
	sc.CORSOrigins = mustGetStringSlice(cmd, "cors-origins")
	if len(sc.CORSOrigins) > 0 {
		sc.CORSEnabled = true
	}
	sc.AuthEnabled = mustGetBool(cmd, "auth")
	sc.AuthHeader = mustGetString(cmd, "auth-header")
	sc.RateLimit = mustGetInt(cmd, "rate-limit")
	sc.CacheTTL = mustGetDuration(cmd, "cache-ttl")
	sc.ReadTimeout = mustGetDuration(cmd, "read-timeout")
	sc.IdleTimeout = mustGetDuration(cmd, "idle-timeout")
	sc.MetricsEnabled = mustGetBool(cmd, "metrics")

	if sc.Port < 1 || sc.Port > 65535 {
		return sc, errors.NewValidationError("port", sc.Port, "must be between 1 and 65535")
	}
	if sc.AuthEnabled && sc.APIKey == "" {
		return sc, errors.NewValidationError("api_key", "", "--auth requires api_key (SEEDARR_API_KEY)")
	}
	if sc.RateLimit < 0 {
		return sc, errors.NewValidationError("rate-limit", sc.RateLimit, "must not be negative")
	}
	return sc, nil
}

// mustGetInt retrieves an integer flag value or panics if the flag doesn't exist.
// This should only be used for flags defined in this package.
func mustGetInt(cmd *cobra.Command, name string) int {
	val, err := cmd.Flags().GetInt(name)
	if err != nil {
		panic(fmt.Sprintf("programming error: failed to get flag %q: %v", name, err))
	}
	return val
}

// mustGetString retrieves a string flag value or panics if the flag doesn't exist.
func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic(fmt.Sprintf("programming error: failed to get flag %q: %v", name, err))
	}
	return val
}

func mustGetBool(cmd *cobra.Command, name string) bool {
	val, err := cmd.Flags().GetBool(name)
	if err != nil {
		panic(fmt.Sprintf("programming error: failed to get flag %q: %v", name, err))
	}
	return val
}

func mustGetStringSlice(cmd *cobra.Command, name string) []string {
	val, err := cmd.Flags().GetStringSlice(name)
	if err != nil {
		panic(fmt.Sprintf("programming error: failed to get flag %q: %v", name, err))
	}
	return val
}

func mustGetDuration(cmd *cobra.Command, name string) time.Duration {
	val, err := cmd.Flags().GetDuration(name)
	if err != nil {
		panic(fmt.Sprintf("programming error: failed to get flag %q: %v", name, err))
	}
	return val
}
