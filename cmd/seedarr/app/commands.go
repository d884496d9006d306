package app

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	configcmd "github.com/seedarr/seedarr/cmd/seedarr/cmd/config"
	"github.com/seedarr/seedarr/cmd/seedarr/cmd/serve"
	"github.com/seedarr/seedarr/cmd/seedarr/cmd/status"
	"github.com/seedarr/seedarr/cmd/seedarr/cmd/torrents"
	"github.com/seedarr/seedarr/cmd/seedarr/cmd/watch"
)

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	// Core commands
	rootCmd.AddCommand(serve.NewCommand(a))
	rootCmd.AddCommand(torrents.NewCommand(a))
	rootCmd.AddCommand(watch.NewCommand(a))

	// Management commands
	rootCmd.AddCommand(status.NewCommand(a))
	rootCmd.AddCommand(configcmd.NewCommand(a))

	// Utility commands
	rootCmd.AddCommand(a.newVersionCommand())
}

// newVersionCommand creates the version command.
func (a *App) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "seedarr %s\n", a.version)
			if a.config.Verbose {
				_, _ = fmt.Fprintf(out, "  commit:   %s\n", a.commit)
				_, _ = fmt.Fprintf(out, "  built:    %s\n", a.date)
				_, _ = fmt.Fprintf(out, "  built by: %s\n", a.builtBy)
				_, _ = fmt.Fprintf(out, "  go:       %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
			}
		},
	}
}
