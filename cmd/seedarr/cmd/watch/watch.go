// Package watch provides the watch command, which prints the daemon's live
// broadcast stream.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/seedarr/seedarr/cmd/application"
	"github.com/seedarr/seedarr/internal/client"
	"github.com/seedarr/seedarr/internal/cmd/emoji"
	"github.com/seedarr/seedarr/internal/cmd/output"
	"github.com/seedarr/seedarr/internal/matcher"
)

// NewCommand creates the watch command.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "watch",
		Aliases: []string{"tail"},
		GroupID: "core",
		Short:   "Stream live torrent broadcasts",
		Long: `Subscribe to the daemon's broadcast stream and print each payload as
it arrives. The daemon only polls its engine while at least one client
is subscribed, so a running watch keeps updates flowing.

Use --room daemon to also receive subscription and pending-expiry notices,
and --type to keep only broadcasts whose payload type matches a glob or
regular expression.`,
		Example: `  seedarr watch
  seedarr watch --type "torrent_*" --type "*_error"
  seedarr watch --room daemon -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rooms, _ := cmd.Flags().GetStringSlice("room")
			types, _ := cmd.Flags().GetStringSlice("type")
			filter, err := matcher.NewSet(types...)
			if err != nil {
				return err
			}
			c, err := app.Client()
			if err != nil {
				return err
			}
			raw := output.DetectFormat(app.OutputFormat()) == output.FormatJSON
			return run(cmd.Context(), c, options{
				rooms:  rooms,
				filter: filter,
				raw:    raw,
			}, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringSlice("room", nil, "Extra rooms to join (e.g. daemon)")
	cmd.Flags().StringSlice("type", nil, "Only print broadcasts whose type matches (glob or regex, repeatable)")
	return cmd
}

type options struct {
	rooms  []string
	filter matcher.Set
	raw    bool
}

// run subscribes and prints frames until ctx is done or the daemon closes
// the connection.
func run(ctx context.Context, c *client.Client, opts options, w io.Writer) error {
	stream, err := c.Dial(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = stream.Close() }()

	if _, err := stream.Start(); err != nil {
		return err
	}
	for _, room := range opts.rooms {
		if _, err := stream.Join(room); err != nil {
			return err
		}
	}

	// Closing the stream unblocks Next.
	stop := context.AfterFunc(ctx, func() { _ = stream.Close() })
	defer stop()

	for {
		f, err := stream.Next()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if f.IsBroadcast() && !opts.filter.Match(payloadType(f)) {
			continue
		}
		if err := printFrame(w, f, opts.raw); err != nil {
			return err
		}
	}
}

// payloadType returns the type field of a broadcast payload.
func payloadType(f client.Frame) string {
	var payload struct {
		Type string `json:"type"`
	}
	_ = json.Unmarshal(f.Data, &payload)
	return payload.Type
}

// printFrame writes one frame per line. Raw mode writes the frame as JSON.
func printFrame(w io.Writer, f client.Frame, raw bool) error {
	if raw {
		line, err := json.Marshal(f)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(line))
		return err
	}

	switch {
	case f.IsBroadcast():
		_, err := fmt.Fprintf(w, "%s %s\n", emoji.Broadcast, f.Data)
		return err
	case f.IsAck():
		var reply struct {
			Status  string `json:"status"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(f.Data, &reply)
		_, err := fmt.Fprintf(w, "%s %s: %s\n", emoji.Ack, reply.Status, reply.Message)
		return err
	default:
		_, err := fmt.Fprintf(w, "%s %s %s\n", emoji.Info, f.Event, f.Data)
		return err
	}
}
