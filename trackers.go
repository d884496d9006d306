package seedarr

import (
	"context"

	"github.com/seedarr/seedarr/internal/workers"
	"github.com/seedarr/seedarr/pkg/engine"
)

// Files implements Daemon.
func (d *daemon) Files(ctx context.Context, infoHash string) Reply {
	c, err := d.components()
	if err != nil {
		return unavailable(err)
	}
	t, reply := d.lookup(ctx, c, infoHash)
	if reply != nil {
		return *reply
	}

	files, err := workers.Call(ctx, c.workers, func(ctx context.Context) ([]engine.File, error) {
		return d.session.Files(ctx, t.InfoHash)
	})
	if err != nil {
		return failure("Failed to list files: %v", err)
	}
	return success(map[string]any{"info_hash": t.InfoHash, "files": files}, "Files fetched")
}

// Peers implements Daemon.
func (d *daemon) Peers(ctx context.Context, infoHash string) Reply {
	c, err := d.components()
	if err != nil {
		return unavailable(err)
	}
	t, reply := d.lookup(ctx, c, infoHash)
	if reply != nil {
		return *reply
	}

	peers, err := workers.Call(ctx, c.workers, func(ctx context.Context) ([]engine.Peer, error) {
		return d.session.Peers(ctx, t.InfoHash)
	})
	if err != nil {
		return failure("Failed to list peers: %v", err)
	}
	leeches := 0
	for _, p := range peers {
		if !p.Seed {
			leeches++
		}
	}
	return success(map[string]any{
		"info_hash": t.InfoHash,
		"peers":     peers,
		"leeches":   leeches,
	}, "Peers fetched")
}

// Trackers implements Daemon.
func (d *daemon) Trackers(ctx context.Context, infoHash string) Reply {
	c, err := d.components()
	if err != nil {
		return unavailable(err)
	}
	t, reply := d.lookup(ctx, c, infoHash)
	if reply != nil {
		return *reply
	}

	trackers, err := d.trackers(ctx, c, t.InfoHash)
	if err != nil {
		return failure("Failed to list trackers: %v", err)
	}
	return success(map[string]any{"info_hash": t.InfoHash, "trackers": trackers}, "Trackers fetched")
}

// AddTrackers implements Daemon. New trackers go into a tier after every
// existing one; URLs already present are skipped.
func (d *daemon) AddTrackers(ctx context.Context, infoHash string, urls []string) Reply {
	if len(urls) == 0 {
		return failure("Trackers list is empty")
	}
	c, err := d.components()
	if err != nil {
		return unavailable(err)
	}
	t, reply := d.lookup(ctx, c, infoHash)
	if reply != nil {
		return *reply
	}

	current, err := d.trackers(ctx, c, t.InfoHash)
	if err != nil {
		return failure("Failed to add trackers: %v", err)
	}
	tier := 0
	for _, tr := range current {
		tier = max(tier, tr.Tier)
	}

	next := append([]engine.Tracker(nil), current...)
	added := 0
	for _, u := range urls {
		if u == "" || indexTracker(next, u) >= 0 {
			continue
		}
		next = append(next, engine.Tracker{URL: u, Tier: tier + 1})
		added++
	}
	if added > 0 {
		if err := d.replaceTrackers(ctx, c, t.InfoHash, next); err != nil {
			return failure("Failed to add trackers: %v", err)
		}
	}
	return success(map[string]any{
		"info_hash":    t.InfoHash,
		"all_trackers": trackerURLs(next),
	}, "Added %d tracker(s)", added)
}

// RemoveTrackers implements Daemon.
func (d *daemon) RemoveTrackers(ctx context.Context, infoHash string, urls []string) Reply {
	if len(urls) == 0 {
		return failure("Trackers list is empty")
	}
	c, err := d.components()
	if err != nil {
		return unavailable(err)
	}
	t, reply := d.lookup(ctx, c, infoHash)
	if reply != nil {
		return *reply
	}

	current, err := d.trackers(ctx, c, t.InfoHash)
	if err != nil {
		return failure("Failed to remove trackers: %v", err)
	}
	next := make([]engine.Tracker, 0, len(current))
	for _, tr := range current {
		if !matchesAny(tr.URL, urls) {
			next = append(next, tr)
		}
	}
	removed := len(current) - len(next)
	if removed == 0 {
		return failure("None of the provided trackers matched existing ones")
	}
	if err := d.replaceTrackers(ctx, c, t.InfoHash, next); err != nil {
		return failure("Failed to remove trackers: %v", err)
	}
	return success(map[string]any{
		"info_hash":    t.InfoHash,
		"all_trackers": trackerURLs(next),
	}, "Removed %d tracker(s)", removed)
}

// RenameTracker implements Daemon. The renamed tracker keeps its tier and
// every tracker is reannounced afterwards.
func (d *daemon) RenameTracker(ctx context.Context, infoHash, oldURL, newURL string) Reply {
	if oldURL == "" || newURL == "" {
		return failure("Both old and new tracker URLs are required")
	}
	c, err := d.components()
	if err != nil {
		return unavailable(err)
	}
	t, reply := d.lookup(ctx, c, infoHash)
	if reply != nil {
		return *reply
	}

	current, err := d.trackers(ctx, c, t.InfoHash)
	if err != nil {
		return failure("Failed to rename tracker: %v", err)
	}
	i := indexTracker(current, oldURL)
	if i < 0 {
		return failure("Tracker %s not found", oldURL)
	}
	next := append([]engine.Tracker(nil), current...)
	next[i].URL = newURL
	if err := d.replaceTrackers(ctx, c, t.InfoHash, next); err != nil {
		return failure("Failed to rename tracker: %v", err)
	}

	if err := c.workers.Do(ctx, func(ctx context.Context) error {
		return d.session.ForceReannounce(ctx, t.InfoHash, -1)
	}); err != nil {
		d.log.Warn().Err(err).Str("info_hash", t.InfoHash).Msg("Reannounce after rename failed")
	}
	return success(map[string]any{
		"info_hash":    t.InfoHash,
		"all_trackers": trackerURLs(next),
	}, "Tracker %s renamed to %s", oldURL, newURL)
}

// ForceReannounce implements Daemon.
func (d *daemon) ForceReannounce(ctx context.Context, infoHash string, urls []string) Reply {
	if len(urls) == 0 {
		return failure("Trackers list is empty")
	}
	c, err := d.components()
	if err != nil {
		return unavailable(err)
	}
	t, reply := d.lookup(ctx, c, infoHash)
	if reply != nil {
		return *reply
	}
	if !t.HasMetadata {
		return failure("Torrent metadata not yet available")
	}

	current, err := d.trackers(ctx, c, t.InfoHash)
	if err != nil {
		return failure("Failed to reannounce: %v", err)
	}
	if len(current) == 0 {
		return failure("No trackers currently associated with torrent")
	}

	announced := 0
	for i, tr := range current {
		if !matchesAny(tr.URL, urls) {
			continue
		}
		if err := c.workers.Do(ctx, func(ctx context.Context) error {
			return d.session.ForceReannounce(ctx, t.InfoHash, i)
		}); err != nil {
			d.log.Error().Err(err).Str("info_hash", t.InfoHash).Str("tracker", tr.URL).Msg("Force reannounce failed")
			continue
		}
		announced++
	}
	if announced == 0 {
		return failure("None of the provided trackers matched existing ones")
	}
	return success(map[string]any{"info_hash": t.InfoHash}, "Reannounce triggered for %d tracker(s)", announced)
}

func (d *daemon) trackers(ctx context.Context, c components, infoHash string) ([]engine.Tracker, error) {
	return workers.Call(ctx, c.workers, func(ctx context.Context) ([]engine.Tracker, error) {
		return d.session.Trackers(ctx, infoHash)
	})
}

func (d *daemon) replaceTrackers(ctx context.Context, c components, infoHash string, trackers []engine.Tracker) error {
	return c.workers.Do(ctx, func(ctx context.Context) error {
		return d.session.ReplaceTrackers(ctx, infoHash, trackers)
	})
}

func indexTracker(list []engine.Tracker, url string) int {
	for i, tr := range list {
		if engine.SameTracker(tr.URL, url) {
			return i
		}
	}
	return -1
}

func matchesAny(url string, urls []string) bool {
	for _, u := range urls {
		if engine.SameTracker(url, u) {
			return true
		}
	}
	return false
}

func trackerURLs(list []engine.Tracker) []string {
	out := make([]string, len(list))
	for i, tr := range list {
		out[i] = tr.URL
	}
	return out
}
