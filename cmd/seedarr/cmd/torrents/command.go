// Package torrents provides commands that list and manage torrents on a
// running daemon.
package torrents

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/seedarr/seedarr"
	"github.com/seedarr/seedarr/cmd/application"
	"github.com/seedarr/seedarr/internal/cmd/output"
	"github.com/seedarr/seedarr/pkg/engine"
	"github.com/seedarr/seedarr/pkg/errors"
)

// NewCommand creates the torrents command and its subcommands.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "torrents",
		Aliases: []string{"torrent", "t"},
		GroupID: "core",
		Short:   "List and manage torrents",
		Long: `List the daemon's torrents, or manage one with a subcommand.

Adding a magnet is a two step flow: "add" fetches the metadata and stages
the torrent, then "confirm" starts it or "cancel" discards it. Staged
torrents that are never confirmed expire after pending_ttl.`,
		Example: `  seedarr torrents
  seedarr torrents -o wide
  seedarr torrents add "magnet:?xt=urn:btih:..." --save-path /data
  seedarr torrents confirm 3b245504cf5f11bbdbe1201cea6a6bf45aee1bc0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, app)
		},
	}

	cmd.AddCommand(
		newGetCommand(app),
		newPauseCommand(app),
		newResumeCommand(app),
		newRemoveCommand(app),
		newAddCommand(app),
		newPendingCommand(app),
		newConfirmCommand(app),
		newCancelCommand(app),
		newFilesCommand(app),
		newPeersCommand(app),
		newTrackersCommand(app),
	)
	return cmd
}

func runList(cmd *cobra.Command, app application.Application) error {
	c, err := app.Client()
	if err != nil {
		return err
	}
	list, err := c.Torrents(cmd.Context())
	if err != nil {
		return err
	}

	format := output.DetectFormat(app.OutputFormat())
	table := output.TorrentsData(list, format == output.FormatWide)
	return output.Write(cmd.OutOrStdout(), format, list, &table)
}

func newGetCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "get <info-hash>",
		Short: "Show one torrent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.Client()
			if err != nil {
				return err
			}
			t, err := c.Torrent(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			format := output.DetectFormat(app.OutputFormat())
			table := output.TorrentsData([]engine.Torrent{t}, true)
			return output.Write(cmd.OutOrStdout(), format, t, &table)
		},
	}
}

func newPauseCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "pause <info-hash>",
		Short: "Pause a torrent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.Client()
			if err != nil {
				return err
			}
			reply, err := c.Pause(cmd.Context(), args[0])
			return writeReply(cmd, app, reply, err)
		},
	}
}

func newResumeCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "resume <info-hash>",
		Short: "Resume a paused torrent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.Client()
			if err != nil {
				return err
			}
			reply, err := c.Resume(cmd.Context(), args[0])
			return writeReply(cmd, app, reply, err)
		},
	}
}

func newRemoveCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "remove <info-hash>",
		Aliases: []string{"rm"},
		Short:   "Remove a torrent",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deleteData, _ := cmd.Flags().GetBool("delete-data")
			c, err := app.Client()
			if err != nil {
				return err
			}
			reply, err := c.Remove(cmd.Context(), args[0], deleteData)
			return writeReply(cmd, app, reply, err)
		},
	}
	cmd.Flags().Bool("delete-data", false, "Also delete downloaded files")
	return cmd
}

func newAddCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <magnet>",
		Short: "Fetch a magnet's metadata and stage it for confirmation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !strings.HasPrefix(args[0], "magnet:") {
				return errors.NewValidationError("magnet", args[0], "must be a magnet URI")
			}
			savePath, _ := cmd.Flags().GetString("save-path")
			c, err := app.Client()
			if err != nil {
				return err
			}
			reply, err := c.Stage(cmd.Context(), args[0], savePath)
			return writeReply(cmd, app, reply, err)
		},
	}
	cmd.Flags().String("save-path", "", "Download directory (default: the daemon's save_path)")
	return cmd
}

func newPendingCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List torrents waiting for confirmation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := app.Client()
			if err != nil {
				return err
			}
			list, err := c.Pending(cmd.Context())
			if err != nil {
				return err
			}

			format := output.DetectFormat(app.OutputFormat())
			table := output.PendingData(list, time.Now())
			return output.Write(cmd.OutOrStdout(), format, list, &table)
		},
	}
}

func newConfirmCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "confirm <info-hash>",
		Short: "Start a staged torrent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.Client()
			if err != nil {
				return err
			}
			reply, err := c.Confirm(cmd.Context(), args[0])
			return writeReply(cmd, app, reply, err)
		},
	}
}

func newCancelCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <info-hash>",
		Short: "Discard a staged torrent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.Client()
			if err != nil {
				return err
			}
			reply, err := c.Cancel(cmd.Context(), args[0])
			return writeReply(cmd, app, reply, err)
		},
	}
}

// writeReply prints a command reply as a status line, or encodes it for
// structured formats.
func writeReply(cmd *cobra.Command, app application.Application, reply seedarr.Reply, err error) error {
	if err != nil {
		return err
	}
	switch format := output.DetectFormat(app.OutputFormat()); format {
	case output.FormatJSON, output.FormatYAML:
		return output.Write(cmd.OutOrStdout(), format, reply, nil)
	default:
		_, err := fmt.Fprintln(cmd.OutOrStdout(), output.ReplyLine(reply))
		return err
	}
}
