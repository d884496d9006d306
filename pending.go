package seedarr

import (
	"context"
	"sort"
	"time"

	"github.com/seedarr/seedarr/internal/store"
	"github.com/seedarr/seedarr/internal/workers"
	"github.com/seedarr/seedarr/pkg/engine"
	"github.com/seedarr/seedarr/pkg/errors"
)

// Pending is a torrent whose metadata has been fetched but which the client
// has not yet confirmed. It is removed, with its data, if the confirmation
// window closes first.
type Pending struct {
	InfoHash  string        `json:"info_hash" yaml:"info_hash"`
	Name      string        `json:"name" yaml:"name"`
	SavePath  string        `json:"save_path" yaml:"save_path"`
	Size      int64         `json:"size" yaml:"size"`
	Files     []engine.File `json:"files" yaml:"files"`
	StagedAt  time.Time     `json:"staged_at" yaml:"staged_at"`
	ExpiresAt time.Time     `json:"expires_at" yaml:"expires_at"`

	// Added is set when staging put the torrent into the engine. A torrent
	// the engine already had is never removed on cancel or expiry.
	Added bool `json:"added" yaml:"added"`
}

func newPending(t engine.Torrent, now time.Time, ttl time.Duration, added bool) Pending {
	return Pending{
		Added:     added,
		InfoHash:  t.InfoHash,
		Name:      t.Name,
		SavePath:  t.SavePath,
		Size:      t.TotalSize,
		Files:     append([]engine.File(nil), t.Files...),
		StagedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
}

func validatePending(p Pending) error {
	if !engine.ValidInfoHash(p.InfoHash) {
		return errors.NewValidationError("info_hash", p.InfoHash, "not a 40 character hex info hash")
	}
	return nil
}

// discard is the pending store cleanup: the torrent was never confirmed, so
// it goes away together with anything it downloaded.
func (d *daemon) discard(ctx context.Context, key string, p Pending) error {
	if err := d.release(ctx, d.workers, p); err != nil {
		return errors.WrapResource("discard", "pending", key, err)
	}
	d.log.Info().Str("info_hash", key).Str("name", p.Name).Bool("added", p.Added).Msg("Unconfirmed torrent discarded")
	d.hooks.pendingExpired(p)
	return nil
}

// release removes the engine torrent behind p, with its data, when staging
// added it. A torrent that is already gone is not an error.
func (d *daemon) release(ctx context.Context, pool *workers.Pool, p Pending) error {
	if !p.Added {
		return nil
	}
	err := pool.Do(ctx, func(ctx context.Context) error {
		return d.session.Remove(ctx, p.InfoHash, true)
	})
	if err != nil && !errors.IsNotFound(err) {
		return err
	}
	return nil
}

// restage puts back an entry that ConfirmAdd took but could not start. The
// entry keeps its original deadline.
func (d *daemon) restage(c components, p Pending) {
	ttl := time.Until(p.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Millisecond
	}
	if err := c.pending.Set(p.InfoHash, p, store.WithTTL(ttl)); err != nil {
		d.log.Warn().Err(err).Str("info_hash", p.InfoHash).Msg("Failed to restage pending torrent")
	}
}

// Pending implements Daemon.
func (d *daemon) Pending() []Pending {
	c, err := d.components()
	if err != nil {
		return nil
	}
	out := make([]Pending, 0, c.pending.Len())
	for _, key := range c.pending.Keys() {
		if p, ok := c.pending.Get(key); ok {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StagedAt.Before(out[j].StagedAt) })
	return out
}
