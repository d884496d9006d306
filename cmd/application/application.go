// Package application provides the application interface for seedarr commands.
//
// The Application interface defines the contract between the application layer and
// command implementations, enabling dependency injection and testability.
//
// Usage in Commands:
//
//	func NewCommand(app application.Application) *cobra.Command {
//	    return &cobra.Command{
//	        RunE: func(cmd *cobra.Command, args []string) error {
//	            c, err := app.Client()
//	            if err != nil {
//	                return err
//	            }
//	            list, err := c.Torrents(cmd.Context())
//	            // ... render list
//	        },
//	    }
//	}
//
// Testing with Mocks:
//
//	mock := &application.Mock{
//	    ClientFunc: func() (*client.Client, error) {
//	        return client.New(testServer.URL)
//	    },
//	}
//	cmd := NewCommand(mock)
package application

import (
	"github.com/rs/zerolog"

	"github.com/seedarr/seedarr/internal/client"
	"github.com/seedarr/seedarr/internal/config"
)

// Application provides the application interface that commands need.
// The App struct from cmd/seedarr/app implements this interface.
//
// Thread Safety: All methods must be safe for concurrent access.
type Application interface {
	// Config returns the effective configuration.
	Config() *config.Config

	// Client returns a client for the daemon at the configured server URL.
	Client() (*client.Client, error)

	// Logger returns the configured logger instance.
	// Commands should use this for all logging operations.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (json, yaml, table, wide).
	OutputFormat() string

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
