// Package engine defines the contract between seedarr and the torrent engine
// it reports on. The engine is an external collaborator: seedarr drains its
// alerts, asks it for torrent status, and issues imperative commands, but
// never implements the torrent protocol itself.
package engine

import (
	"context"
	"strings"
	"time"
)

// Session is a handle on a running torrent engine.
//
// PopAlerts returns every alert raised since the previous call, oldest first.
// PostTorrentUpdates asks the engine to raise a StateUpdate alert on the next
// drain. Methods may block; callers offload them to a worker pool.
type Session interface {
	PopAlerts(ctx context.Context) ([]Alert, error)
	PostTorrentUpdates(ctx context.Context) error

	Torrents(ctx context.Context) ([]Torrent, error)
	Torrent(ctx context.Context, infoHash string) (Torrent, error)

	AddMagnet(ctx context.Context, params AddParams) (string, error)
	Pause(ctx context.Context, infoHash string) error
	Resume(ctx context.Context, infoHash string) error
	Remove(ctx context.Context, infoHash string, deleteData bool) error

	Files(ctx context.Context, infoHash string) ([]File, error)
	Peers(ctx context.Context, infoHash string) ([]Peer, error)

	// Trackers returns the announce list in tier order. ReplaceTrackers
	// swaps the whole list. ForceReannounce announces to the tracker at
	// index, or to every tracker when index is negative.
	Trackers(ctx context.Context, infoHash string) ([]Tracker, error)
	ReplaceTrackers(ctx context.Context, infoHash string, trackers []Tracker) error
	ForceReannounce(ctx context.Context, infoHash string, index int) error

	Close() error
}

// AddParams describes a magnet link to add to the session.
type AddParams struct {
	Magnet   string
	SavePath string
	// Paused adds the torrent without starting transfer.
	Paused bool
}

// State is the engine's lifecycle state for a torrent.
type State string

// Torrent states.
const (
	StateQueued              State = "queued_for_checking"
	StateChecking            State = "checking_files"
	StateDownloadingMetadata State = "downloading_metadata"
	StateDownloading         State = "downloading"
	StateFinished            State = "finished"
	StateSeeding             State = "seeding"
	StateAllocating          State = "allocating"
	StateCheckingResume      State = "checking_resume_data"
	StateUnknown             State = "unknown"
)

// Torrent is a point-in-time snapshot of one tracked torrent.
type Torrent struct {
	InfoHash     string    `json:"info_hash" yaml:"info_hash"`
	Name         string    `json:"name" yaml:"name"`
	SavePath     string    `json:"save_path" yaml:"save_path"`
	State        State     `json:"state" yaml:"state"`
	Paused       bool      `json:"paused" yaml:"paused"`
	HasMetadata  bool      `json:"has_metadata" yaml:"has_metadata"`
	Progress     float64   `json:"progress" yaml:"progress"` // 0..1
	DownloadRate int64     `json:"download_rate" yaml:"download_rate"`
	UploadRate   int64     `json:"upload_rate" yaml:"upload_rate"`
	NumPeers     int       `json:"num_peers" yaml:"num_peers"`
	NumSeeds     int       `json:"num_seeds" yaml:"num_seeds"`
	TotalSize    int64     `json:"total_size" yaml:"total_size"`
	Files        []File    `json:"files,omitempty" yaml:"files,omitempty"`
	AddedAt      time.Time `json:"added_at" yaml:"added_at"`
}

// File is one file inside a torrent.
type File struct {
	Path string `json:"path" yaml:"path"`
	Size int64  `json:"size" yaml:"size"`
}

// ProgressPercent returns progress as a percentage rounded to two decimals.
func (t Torrent) ProgressPercent() float64 {
	return float64(int64(t.Progress*10000+0.5)) / 100
}

// Peer is one connected peer of a torrent.
type Peer struct {
	IP             string  `json:"ip" yaml:"ip"`
	Port           int     `json:"port" yaml:"port"`
	Client         string  `json:"client" yaml:"client"`
	ConnectionType string  `json:"connection_type" yaml:"connection_type"`
	Progress       float64 `json:"progress" yaml:"progress"`
	DownloadRate   int64   `json:"down_speed" yaml:"down_speed"`
	UploadRate     int64   `json:"up_speed" yaml:"up_speed"`
	TotalDownload  int64   `json:"total_download" yaml:"total_download"`
	TotalUpload    int64   `json:"total_upload" yaml:"total_upload"`
	Seed           bool    `json:"seed" yaml:"seed"`
}

// Tracker is one announce URL and the tier it belongs to.
type Tracker struct {
	URL  string `json:"url" yaml:"url"`
	Tier int    `json:"tier" yaml:"tier"`
}

// SameTracker compares announce URLs ignoring surrounding space and a
// trailing slash.
func SameTracker(a, b string) bool {
	return normalizeTracker(a) == normalizeTracker(b)
}

func normalizeTracker(u string) string {
	return strings.TrimRight(strings.TrimSpace(u), "/")
}
