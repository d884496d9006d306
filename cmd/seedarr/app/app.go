// Package app provides the application context and dependency management
// for the seedarr CLI. It centralizes configuration, logging and the daemon
// client, and hands them to commands through cmd/application.
package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/seedarr/seedarr/cmd/application"
	"github.com/seedarr/seedarr/internal/client"
	"github.com/seedarr/seedarr/internal/config"
	"github.com/seedarr/seedarr/pkg/errors"
)

// App represents the seedarr application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	// Configuration
	config *config.Config

	// Logger
	logger *zerolog.Logger

	// Daemon client (lazy-initialized, singleton)
	mu     sync.Mutex
	client *client.Client
}

// Ensure App implements application.Application at compile time.
var _ application.Application = (*App)(nil)

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	if app.config == nil {
		cfg, err := config.Load("")
		if err != nil {
			return nil, errors.WrapResource("load", "config", "", err)
		}
		app.config = cfg
	}

	if app.logger == nil {
		logger := NewLogger(app.config)
		app.logger = &logger
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *config.Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the --format value.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// Client returns the daemon client, creating it lazily from server_url and
// api_key.
func (a *App) Client() (*client.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client != nil {
		return a.client, nil
	}

	c, err := client.New(a.config.ServerURL, client.WithAPIKey(a.config.APIKey))
	if err != nil {
		return nil, errors.WrapResource("create", "client", a.config.ServerURL, err)
	}
	a.client = c
	return c, nil
}

// Shutdown performs graceful shutdown of the application. Long-running
// commands own their resources, so there is nothing to stop here yet.
func (a *App) Shutdown(_ context.Context) error {
	return nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(cfg *config.Config) Option {
	return func(a *App) error {
		a.config = cfg
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}
