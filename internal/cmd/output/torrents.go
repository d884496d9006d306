package output

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/seedarr/seedarr"
	"github.com/seedarr/seedarr/internal/cmd/emoji"
	"github.com/seedarr/seedarr/pkg/engine"
)

// TorrentsData renders torrents as a table. Wide adds rates and peers.
func TorrentsData(list []engine.Torrent, wide bool) Data {
	headers := []string{"Info Hash", "Name", "State", "Progress", "Size"}
	align := []Align{AlignLeft, AlignLeft, AlignLeft, AlignRight, AlignRight}
	if wide {
		headers = append(headers, "Down", "Up", "Peers", "Seeds")
		align = append(align, AlignRight, AlignRight, AlignRight, AlignRight)
	}

	rows := make([][]string, 0, len(list))
	for _, t := range list {
		state := string(t.State)
		if t.Paused {
			state = "paused"
		}
		row := []string{
			ShortHash(t.InfoHash),
			t.Name,
			state,
			fmt.Sprintf("%.1f%%", t.Progress*100),
			Bytes(t.TotalSize),
		}
		if wide {
			row = append(row,
				Bytes(t.DownloadRate)+"/s",
				Bytes(t.UploadRate)+"/s",
				strconv.Itoa(t.NumPeers),
				strconv.Itoa(t.NumSeeds),
			)
		}
		rows = append(rows, row)
	}
	return Data{Headers: headers, Rows: rows, ColumnAlignment: align}
}

// PendingData renders staged torrents as a table.
func PendingData(list []seedarr.Pending, now time.Time) Data {
	rows := make([][]string, 0, len(list))
	for _, p := range list {
		rows = append(rows, []string{
			ShortHash(p.InfoHash),
			p.Name,
			Bytes(p.Size),
			strconv.Itoa(len(p.Files)),
			p.ExpiresAt.Sub(now).Round(time.Second).String(),
		})
	}
	return Data{
		Headers:         []string{"Info Hash", "Name", "Size", "Files", "Expires In"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignLeft, AlignRight, AlignRight, AlignRight},
	}
}

// ReplyLine renders a command reply as a single status line.
func ReplyLine(r seedarr.Reply) string {
	symbol := emoji.Unknown
	switch r.Status {
	case seedarr.StatusSuccess:
		symbol = emoji.Success
	case seedarr.StatusInfo:
		symbol = emoji.Info
	case seedarr.StatusError:
		symbol = emoji.Error
	}
	return symbol + " " + r.Message
}

// ShortHash abbreviates a 40 character info hash.
func ShortHash(h string) string {
	if len(h) <= 12 {
		return h
	}
	return h[:12]
}

// Bytes formats n with a binary unit.
func Bytes(n int64) string {
	const unit = 1024
	if n < unit {
		return strconv.FormatInt(n, 10) + " B"
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// Title capitalizes a snake_case key for display.
func Title(key string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(key, "_", " "))
}

// FilesData renders a torrent's files as a table.
func FilesData(files []engine.File) Data {
	rows := make([][]string, 0, len(files))
	for _, f := range files {
		rows = append(rows, []string{f.Path, Bytes(f.Size)})
	}
	return Data{
		Headers:         []string{"Path", "Size"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignRight},
	}
}

// PeersData renders connected peers as a table.
func PeersData(peers []engine.Peer) Data {
	rows := make([][]string, 0, len(peers))
	for _, p := range peers {
		kind := "leech"
		if p.Seed {
			kind = "seed"
		}
		rows = append(rows, []string{
			p.IP + ":" + strconv.Itoa(p.Port),
			p.Client,
			kind,
			fmt.Sprintf("%.1f%%", p.Progress*100),
			Bytes(p.DownloadRate) + "/s",
			Bytes(p.UploadRate) + "/s",
		})
	}
	return Data{
		Headers:         []string{"Address", "Client", "Kind", "Progress", "Down", "Up"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignLeft, AlignLeft, AlignRight, AlignRight, AlignRight},
	}
}

// TrackersData renders a tracker list as a table.
func TrackersData(trackers []engine.Tracker) Data {
	rows := make([][]string, 0, len(trackers))
	for _, tr := range trackers {
		rows = append(rows, []string{strconv.Itoa(tr.Tier), tr.URL})
	}
	return Data{
		Headers:         []string{"Tier", "URL"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignRight, AlignLeft},
	}
}
