// Package sim is an in-process torrent engine that fakes transfers. It
// backs `seedarr serve --engine sim` and the daemon tests.
//
// Time only moves when the session is asked for something: every call
// advances each torrent by the wall time elapsed since the previous call,
// resolving metadata after a fixed delay and growing progress at a fixed
// rate.
package sim

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/seedarr/seedarr/pkg/engine"
	"github.com/seedarr/seedarr/pkg/errors"
	"github.com/seedarr/seedarr/pkg/logging"
)

type torrent struct {
	engine.Torrent
	displayName string
	changed     bool

	trackers  []engine.Tracker
	peers     []engine.Peer
	announces int
}

// Session is a simulated engine.Session.
type Session struct {
	mu       sync.Mutex
	torrents map[string]*torrent
	alerts   []engine.Alert
	post     bool
	closed   bool
	last     time.Time

	metadataDelay time.Duration
	rate          int64
	now           func() time.Time
	log           *zerolog.Logger
}

var _ engine.Session = (*Session)(nil)

// Option configures a Session.
type Option func(*Session)

// WithMetadataDelay sets how long magnet metadata takes to resolve.
func WithMetadataDelay(d time.Duration) Option {
	return func(s *Session) { s.metadataDelay = d }
}

// WithDownloadRate sets the simulated per-torrent download rate in bytes/s.
func WithDownloadRate(bytesPerSecond int64) Option {
	return func(s *Session) { s.rate = bytesPerSecond }
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *zerolog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// New creates an empty simulated session.
func New(opts ...Option) *Session {
	s := &Session{
		torrents:      make(map[string]*torrent),
		metadataDelay: 2 * time.Second,
		rate:          4 << 20,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logging.Component(s.log, "engine")
	s.last = s.now()
	return s
}

// PopAlerts implements engine.Session.
func (s *Session) PopAlerts(context.Context) ([]engine.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.tick(); err != nil {
		return nil, err
	}

	if s.post {
		s.post = false
		var statuses []engine.Torrent
		for _, t := range s.sorted() {
			if t.changed {
				statuses = append(statuses, t.snapshot())
				t.changed = false
			}
		}
		if len(statuses) > 0 {
			s.alerts = append(s.alerts, engine.StateUpdate{Statuses: statuses})
		}
	}

	out := s.alerts
	s.alerts = nil
	return out, nil
}

// PostTorrentUpdates implements engine.Session.
func (s *Session) PostTorrentUpdates(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.ErrClosed
	}
	s.post = true
	return nil
}

// Torrents implements engine.Session.
func (s *Session) Torrents(context.Context) ([]engine.Torrent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.tick(); err != nil {
		return nil, err
	}
	out := make([]engine.Torrent, 0, len(s.torrents))
	for _, t := range s.sorted() {
		out = append(out, t.snapshot())
	}
	return out, nil
}

// Torrent implements engine.Session.
func (s *Session) Torrent(_ context.Context, infoHash string) (engine.Torrent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.tick(); err != nil {
		return engine.Torrent{}, err
	}
	t, ok := s.torrents[infoHash]
	if !ok {
		return engine.Torrent{}, errors.NewNotFoundError("torrent", infoHash)
	}
	return t.snapshot(), nil
}

// AddMagnet implements engine.Session.
func (s *Session) AddMagnet(_ context.Context, params engine.AddParams) (string, error) {
	m, err := engine.ParseMagnet(params.Magnet)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.tick(); err != nil {
		return "", err
	}
	if _, ok := s.torrents[m.InfoHash]; ok {
		return "", fmt.Errorf("torrent %s: %w", m.InfoHash, errors.ErrAlreadyExists)
	}

	trackers := make([]engine.Tracker, 0, len(m.Trackers))
	for _, u := range m.Trackers {
		trackers = append(trackers, engine.Tracker{URL: u})
	}
	s.torrents[m.InfoHash] = &torrent{
		Torrent: engine.Torrent{
			InfoHash: m.InfoHash,
			Name:     m.InfoHash,
			SavePath: params.SavePath,
			State:    engine.StateDownloadingMetadata,
			Paused:   params.Paused,
			AddedAt:  s.now(),
		},
		displayName: m.DisplayName,
		changed:     true,
		trackers:    trackers,
	}
	s.alerts = append(s.alerts, engine.TorrentAdded{InfoHash: m.InfoHash, Name: m.DisplayName})
	s.log.Debug().Str("info_hash", m.InfoHash).Bool("paused", params.Paused).Msg("Torrent added")
	return m.InfoHash, nil
}

// Pause implements engine.Session.
func (s *Session) Pause(_ context.Context, infoHash string) error {
	return s.mutate("pause", infoHash, func(t *torrent) {
		t.Paused = true
		t.DownloadRate, t.UploadRate = 0, 0
		s.alerts = append(s.alerts, engine.TorrentPaused{InfoHash: infoHash})
	})
}

// Resume implements engine.Session.
func (s *Session) Resume(_ context.Context, infoHash string) error {
	return s.mutate("resume", infoHash, func(t *torrent) {
		t.Paused = false
		s.alerts = append(s.alerts, engine.TorrentResumed{InfoHash: infoHash})
	})
}

// Remove implements engine.Session.
func (s *Session) Remove(_ context.Context, infoHash string, deleteData bool) error {
	return s.mutate("remove", infoHash, func(*torrent) {
		delete(s.torrents, infoHash)
		s.alerts = append(s.alerts, engine.TorrentRemoved{InfoHash: infoHash})
		s.log.Debug().Str("info_hash", infoHash).Bool("delete_data", deleteData).Msg("Torrent removed")
	})
}

// Files implements engine.Session. A torrent without metadata has no files.
func (s *Session) Files(_ context.Context, infoHash string) ([]engine.File, error) {
	var out []engine.File
	err := s.read("files", infoHash, func(t *torrent) {
		out = append([]engine.File{}, t.Files...)
	})
	return out, err
}

// Peers implements engine.Session.
func (s *Session) Peers(_ context.Context, infoHash string) ([]engine.Peer, error) {
	var out []engine.Peer
	err := s.read("peers", infoHash, func(t *torrent) {
		out = append([]engine.Peer{}, t.peers...)
	})
	return out, err
}

// Trackers implements engine.Session.
func (s *Session) Trackers(_ context.Context, infoHash string) ([]engine.Tracker, error) {
	var out []engine.Tracker
	err := s.read("trackers", infoHash, func(t *torrent) {
		out = append([]engine.Tracker{}, t.trackers...)
	})
	return out, err
}

// ReplaceTrackers implements engine.Session.
func (s *Session) ReplaceTrackers(_ context.Context, infoHash string, trackers []engine.Tracker) error {
	list := append([]engine.Tracker(nil), trackers...)
	sort.SliceStable(list, func(i, j int) bool { return list[i].Tier < list[j].Tier })
	return s.mutate("replace trackers", infoHash, func(t *torrent) {
		t.trackers = list
	})
}

// ForceReannounce implements engine.Session.
func (s *Session) ForceReannounce(_ context.Context, infoHash string, index int) error {
	var err error
	mutateErr := s.mutate("reannounce", infoHash, func(t *torrent) {
		switch {
		case index >= len(t.trackers):
			err = errors.NewValidationError("index", index, fmt.Sprintf("torrent has %d trackers", len(t.trackers)))
		case index < 0:
			t.announces += len(t.trackers)
		default:
			t.announces++
		}
	})
	if mutateErr != nil {
		return mutateErr
	}
	return err
}

// Announces returns how many tracker announces were forced for infoHash.
func (s *Session) Announces(infoHash string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.torrents[infoHash]; ok {
		return t.announces
	}
	return 0
}

// Fail raises a TorrentError alert for infoHash.
func (s *Session) Fail(infoHash, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, engine.TorrentError{InfoHash: infoHash, Message: message})
}

// ConnectPeer raises a PeerConnected alert and counts the peer.
func (s *Session) ConnectPeer(infoHash, ip string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.torrents[infoHash]; ok {
		t.NumPeers++
		t.changed = true
		t.peers = append(t.peers, engine.Peer{
			IP:             ip,
			Port:           6881 + len(t.peers),
			Client:         "sim",
			ConnectionType: "bittorrent",
		})
	}
	s.alerts = append(s.alerts, engine.PeerConnected{InfoHash: infoHash, IP: ip})
}

// Close implements engine.Session.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.torrents = make(map[string]*torrent)
	s.alerts = nil
	return nil
}

func (s *Session) mutate(op, infoHash string, fn func(*torrent)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.tick(); err != nil {
		return err
	}
	t, ok := s.torrents[infoHash]
	if !ok {
		return errors.WrapResource(op, "torrent", infoHash, errors.NewNotFoundError("torrent", infoHash))
	}
	t.changed = true
	fn(t)
	return nil
}

// read runs fn on a torrent without marking it changed.
func (s *Session) read(op, infoHash string, fn func(*torrent)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.tick(); err != nil {
		return err
	}
	t, ok := s.torrents[infoHash]
	if !ok {
		return errors.WrapResource(op, "torrent", infoHash, errors.NewNotFoundError("torrent", infoHash))
	}
	fn(t)
	return nil
}

// tick advances the simulation. Callers hold mu.
func (s *Session) tick() error {
	if s.closed {
		return errors.ErrClosed
	}
	now := s.now()
	elapsed := now.Sub(s.last)
	s.last = now
	if elapsed < 0 {
		elapsed = 0
	}

	for _, t := range s.sorted() {
		if !t.HasMetadata {
			if now.Sub(t.AddedAt) < s.metadataDelay {
				continue
			}
			t.resolve()
			t.changed = true
			s.alerts = append(s.alerts, engine.MetadataReceived{InfoHash: t.InfoHash, Name: t.Name})
			continue
		}
		if t.Paused || t.Progress >= 1 {
			continue
		}

		t.DownloadRate = s.rate
		t.UploadRate = s.rate / 8
		t.State = engine.StateDownloading
		got := int64(float64(s.rate) * elapsed.Seconds())
		t.Progress += float64(got) / float64(t.TotalSize)
		t.changed = true
		if t.Progress >= 1 {
			t.Progress = 1
			t.State = engine.StateSeeding
			t.DownloadRate = 0
			s.alerts = append(s.alerts, engine.TorrentFinished{InfoHash: t.InfoHash, Name: t.Name})
		}
	}
	return nil
}

func (t *torrent) resolve() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(t.InfoHash))
	sum := h.Sum32()

	if t.displayName != "" {
		t.Name = t.displayName
	}
	t.HasMetadata = true
	t.State = engine.StateChecking
	t.TotalSize = int64(1+sum%512) << 20
	t.NumSeeds = int(sum % 40)
	t.Files = []engine.File{{Path: t.Name, Size: t.TotalSize}}
}

func (t *torrent) snapshot() engine.Torrent {
	out := t.Torrent
	out.Files = append([]engine.File(nil), t.Files...)
	return out
}

func (s *Session) sorted() []*torrent {
	out := make([]*torrent, 0, len(s.torrents))
	for _, t := range s.torrents {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InfoHash < out[j].InfoHash })
	return out
}
