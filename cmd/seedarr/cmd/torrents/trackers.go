package torrents

import (
	"github.com/spf13/cobra"

	"github.com/seedarr/seedarr/cmd/application"
	"github.com/seedarr/seedarr/internal/cmd/output"
)

func newFilesCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "files <info-hash>",
		Short: "List a torrent's files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.Client()
			if err != nil {
				return err
			}
			files, err := c.Files(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			table := output.FilesData(files)
			return output.Write(cmd.OutOrStdout(), output.DetectFormat(app.OutputFormat()), files, &table)
		},
	}
}

func newPeersCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "peers <info-hash>",
		Short: "List a torrent's connected peers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.Client()
			if err != nil {
				return err
			}
			peers, err := c.Peers(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			table := output.PeersData(peers)
			return output.Write(cmd.OutOrStdout(), output.DetectFormat(app.OutputFormat()), peers, &table)
		},
	}
}

func newTrackersCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trackers <info-hash>",
		Short: "List and edit a torrent's trackers",
		Example: `  seedarr torrents trackers 3b245504cf5f11bbdbe1201cea6a6bf45aee1bc0
  seedarr torrents trackers add 3b24... udp://tracker.example:80
  seedarr torrents trackers rename 3b24... udp://old:80 udp://new:80
  seedarr torrents trackers reannounce 3b24... udp://new:80`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.Client()
			if err != nil {
				return err
			}
			trackers, err := c.Trackers(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			table := output.TrackersData(trackers)
			return output.Write(cmd.OutOrStdout(), output.DetectFormat(app.OutputFormat()), trackers, &table)
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <info-hash> <url>...",
			Short: "Append trackers in a new tier",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := app.Client()
				if err != nil {
					return err
				}
				reply, err := c.AddTrackers(cmd.Context(), args[0], args[1:])
				return writeReply(cmd, app, reply, err)
			},
		},
		&cobra.Command{
			Use:     "remove <info-hash> <url>...",
			Aliases: []string{"rm"},
			Short:   "Remove trackers",
			Args:    cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := app.Client()
				if err != nil {
					return err
				}
				reply, err := c.RemoveTrackers(cmd.Context(), args[0], args[1:])
				return writeReply(cmd, app, reply, err)
			},
		},
		&cobra.Command{
			Use:   "rename <info-hash> <old-url> <new-url>",
			Short: "Replace a tracker URL and reannounce",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := app.Client()
				if err != nil {
					return err
				}
				reply, err := c.RenameTracker(cmd.Context(), args[0], args[1], args[2])
				return writeReply(cmd, app, reply, err)
			},
		},
		&cobra.Command{
			Use:   "reannounce <info-hash> <url>...",
			Short: "Announce to trackers now",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := app.Client()
				if err != nil {
					return err
				}
				reply, err := c.Reannounce(cmd.Context(), args[0], args[1:])
				return writeReply(cmd, app, reply, err)
			},
		},
	)
	return cmd
}
