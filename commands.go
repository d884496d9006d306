package seedarr

import (
	"context"
	"fmt"
	"time"

	"github.com/seedarr/seedarr/internal/pipeline"
	"github.com/seedarr/seedarr/internal/waitfor"
	"github.com/seedarr/seedarr/internal/workers"
	"github.com/seedarr/seedarr/pkg/constants"
	"github.com/seedarr/seedarr/pkg/engine"
	"github.com/seedarr/seedarr/pkg/errors"
	"github.com/seedarr/seedarr/pkg/logging"
)

// Status classifies a Reply.
type Status string

// Reply statuses.
const (
	StatusSuccess Status = "success"
	StatusInfo    Status = "info"
	StatusError   Status = "error"
)

// Reply is what every command returns to the client that issued it.
type Reply struct {
	Status  Status `json:"status" yaml:"status"`
	Message string `json:"message" yaml:"message"`
	Data    any    `json:"data,omitempty" yaml:"data,omitempty"`
}

// OK reports whether the command did not fail. Info replies count as OK.
func (r Reply) OK() bool { return r.Status != StatusError }

func success(data any, format string, args ...any) Reply {
	return Reply{Status: StatusSuccess, Message: fmt.Sprintf(format, args...), Data: data}
}

func info(format string, args ...any) Reply {
	return Reply{Status: StatusInfo, Message: fmt.Sprintf(format, args...)}
}

func failure(format string, args ...any) Reply {
	return Reply{Status: StatusError, Message: fmt.Sprintf(format, args...)}
}

func unavailable(err error) Reply {
	if errors.Is(err, errors.ErrClosed) {
		return failure("Daemon is shutting down")
	}
	return failure("Daemon is not running")
}

// StartStreaming implements Daemon.
func (d *daemon) StartStreaming(ctx context.Context, clientID string) Reply {
	if clientID == "" {
		return failure("Client id is required")
	}
	c, err := d.components()
	if err != nil {
		return unavailable(err)
	}

	if !c.pipeline.Subscribe(clientID) {
		return info("Alert stream already active for client %s", clientID)
	}
	logging.Ctx(ctx).Debug().Str("client_id", clientID).Msg("Client subscribed")
	d.hooks.subscribed(clientID)
	return success(nil, "Started alert stream for client %s", clientID)
}

// StopStreaming implements Daemon.
func (d *daemon) StopStreaming(clientID string) Reply {
	c, err := d.components()
	if err != nil {
		return unavailable(err)
	}
	if !c.pipeline.Unsubscribe(clientID) {
		return failure("No active alert stream for client %s", clientID)
	}
	d.hooks.unsubscribed(clientID)
	return success(nil, "Stopped alert stream for client %s", clientID)
}

// Disconnect implements Daemon.
func (d *daemon) Disconnect(clientID string) {
	c, err := d.components()
	if err != nil {
		return
	}
	if c.pipeline.Unsubscribe(clientID) {
		d.log.Debug().Str("client_id", clientID).Msg("Client disconnected while streaming")
		d.hooks.unsubscribed(clientID)
	}
}

// lookup validates infoHash and fetches the torrent. A non-nil Reply means
// the command should return it as is.
func (d *daemon) lookup(ctx context.Context, c components, infoHash string) (engine.Torrent, *Reply) {
	if infoHash == "" {
		r := failure("Missing 'info_hash'")
		return engine.Torrent{}, &r
	}
	hash, ok := engine.NormalizeInfoHash(infoHash)
	if !ok {
		r := failure("Invalid info_hash format")
		return engine.Torrent{}, &r
	}
	t, err := workers.Call(ctx, c.workers, func(ctx context.Context) (engine.Torrent, error) {
		return d.session.Torrent(ctx, hash)
	})
	if errors.IsNotFound(err) {
		r := failure("Torrent not found")
		return engine.Torrent{}, &r
	}
	if err != nil {
		r := failure("Failed to look up torrent: %v", err)
		return engine.Torrent{}, &r
	}
	return t, nil
}

// announce publishes a synthetic event. The command already succeeded, so a
// failure here is only logged.
func (d *daemon) announce(ctx context.Context, c components, kind pipeline.SyntheticKind, t engine.Torrent) {
	if err := c.pipeline.PublishSynthetic(ctx, kind, t); err != nil {
		d.log.Warn().Err(err).Str("info_hash", t.InfoHash).Stringer("kind", kind).Msg("Failed to announce command")
	}
}

// Pause implements Daemon.
func (d *daemon) Pause(ctx context.Context, infoHash string) Reply {
	c, err := d.components()
	if err != nil {
		return unavailable(err)
	}
	t, reply := d.lookup(ctx, c, infoHash)
	if reply != nil {
		return *reply
	}
	if t.Paused {
		return info("Torrent is already paused")
	}

	if err := c.workers.Do(ctx, func(ctx context.Context) error {
		return d.session.Pause(ctx, t.InfoHash)
	}); err != nil {
		return failure("Failed to pause torrent: %v", err)
	}

	t.Paused = true
	t.DownloadRate, t.UploadRate = 0, 0
	d.announce(ctx, c, pipeline.Paused, t)
	return success(map[string]any{"info_hash": t.InfoHash}, "Torrent paused and upload disabled")
}

// Resume implements Daemon.
func (d *daemon) Resume(ctx context.Context, infoHash string) Reply {
	c, err := d.components()
	if err != nil {
		return unavailable(err)
	}
	t, reply := d.lookup(ctx, c, infoHash)
	if reply != nil {
		return *reply
	}
	if !t.Paused {
		return info("Torrent is not paused")
	}

	if err := c.workers.Do(ctx, func(ctx context.Context) error {
		return d.session.Resume(ctx, t.InfoHash)
	}); err != nil {
		return failure("Failed to resume torrent: %v", err)
	}

	t.Paused = false
	d.announce(ctx, c, pipeline.Resumed, t)
	return success(map[string]any{"info_hash": t.InfoHash}, "Torrent resumed")
}

// Remove implements Daemon.
func (d *daemon) Remove(ctx context.Context, infoHash string, deleteData bool) Reply {
	c, err := d.components()
	if err != nil {
		return unavailable(err)
	}
	t, reply := d.lookup(ctx, c, infoHash)
	if reply != nil {
		return *reply
	}

	if err := c.workers.Do(ctx, func(ctx context.Context) error {
		return d.session.Remove(ctx, t.InfoHash, deleteData)
	}); err != nil {
		return failure("Failed to remove torrent: %v", err)
	}
	// A staged torrent removed directly must not be removed again on expiry.
	c.pending.Delete(t.InfoHash)

	d.announce(ctx, c, pipeline.Removed, t)
	return success(map[string]any{
		"info_hash":   t.InfoHash,
		"remove_data": deleteData,
	}, "Torrent removed")
}

// FetchMetadata implements Daemon.
func (d *daemon) FetchMetadata(ctx context.Context, magnet, savePath string) Reply {
	if magnet == "" {
		return failure("Magnet URI is required")
	}
	m, err := engine.ParseMagnet(magnet)
	if err != nil {
		return failure("Invalid magnet URI: %v", err)
	}
	c, err := d.components()
	if err != nil {
		return unavailable(err)
	}
	if savePath == "" {
		savePath = d.config.savePath
	}
	log := d.log.With().Str("info_hash", m.InfoHash).Logger()

	added := true
	_, err = workers.Call(ctx, c.workers, func(ctx context.Context) (string, error) {
		return d.session.AddMagnet(ctx, engine.AddParams{Magnet: magnet, SavePath: savePath, Paused: true})
	})
	switch {
	case errors.IsAlreadyExists(err):
		// Restaging keeps whatever the earlier stage recorded; a torrent
		// that was never staged belongs to the user.
		prev, staged := c.pending.Get(m.InfoHash)
		added = staged && prev.Added
	case err != nil:
		return failure("Failed to add magnet: %v", err)
	}
	fresh := err == nil

	var t engine.Torrent
	err = waitfor.Until(ctx, waitfor.Options{
		Operation: "fetch metadata",
		Timeout:   d.config.metadataTimeout,
		BaseDelay: constants.WaitBaseDelay,
		MaxDelay:  constants.WaitMaxDelay,
		Backoff:   waitfor.Exponential,
	}, func(ctx context.Context) (bool, error) {
		got, err := workers.Call(ctx, c.workers, func(ctx context.Context) (engine.Torrent, error) {
			return d.session.Torrent(ctx, m.InfoHash)
		})
		if err != nil {
			return false, err
		}
		t = got
		return got.HasMetadata, nil
	})
	if err != nil {
		if fresh {
			d.abandon(c, m.InfoHash)
		}
		if errors.IsTimeout(err) {
			log.Warn().Dur("timeout", d.config.metadataTimeout).Msg("Metadata did not arrive")
			return failure("Metadata not available after waiting")
		}
		return failure("Failed to fetch metadata: %v", err)
	}

	p := newPending(t, time.Now(), d.config.pendingTTL, added)
	if err := c.pending.Set(t.InfoHash, p); err != nil {
		if fresh {
			d.abandon(c, m.InfoHash)
		}
		return failure("Failed to stage torrent: %v", err)
	}
	log.Info().Str("name", t.Name).Bool("added", added).Msg("Torrent staged for confirmation")

	return success(map[string]any{
		"metadata": map[string]any{
			"info_hash": t.InfoHash,
			"name":      t.Name,
			"save_path": t.SavePath,
			"size":      t.TotalSize,
		},
		"files":      t.Files,
		"expires_at": p.ExpiresAt,
	}, "Metadata and files fetched")
}

// abandon removes a torrent FetchMetadata added but could not stage.
func (d *daemon) abandon(c components, infoHash string) {
	ctx, cancel := context.WithTimeout(context.Background(), constants.DefaultTimeout)
	defer cancel()
	if err := c.workers.Do(ctx, func(ctx context.Context) error {
		return d.session.Remove(ctx, infoHash, true)
	}); err != nil && !errors.IsNotFound(err) {
		d.log.Warn().Err(err).Str("info_hash", infoHash).Msg("Failed to remove abandoned torrent")
	}
}

// ConfirmAdd implements Daemon.
func (d *daemon) ConfirmAdd(ctx context.Context, infoHash string) Reply {
	c, err := d.components()
	if err != nil {
		return unavailable(err)
	}
	hash, ok := engine.NormalizeInfoHash(infoHash)
	if !ok {
		return failure("Invalid info_hash format")
	}
	p, ok := c.pending.Take(hash)
	if !ok {
		return failure("No pending torrent %s", hash)
	}

	if err := c.workers.Do(ctx, func(ctx context.Context) error {
		return d.session.Resume(ctx, hash)
	}); err != nil {
		if !errors.IsNotFound(err) {
			d.restage(c, p)
		}
		return failure("Failed to start torrent: %v", err)
	}

	t := engine.Torrent{InfoHash: p.InfoHash, Name: p.Name, SavePath: p.SavePath, TotalSize: p.Size}
	d.announce(ctx, c, pipeline.Resumed, t)
	return success(map[string]any{"info_hash": hash, "name": p.Name}, "Torrent added")
}

// CancelAdd implements Daemon.
func (d *daemon) CancelAdd(ctx context.Context, infoHash string) Reply {
	c, err := d.components()
	if err != nil {
		return unavailable(err)
	}
	hash, ok := engine.NormalizeInfoHash(infoHash)
	if !ok {
		return failure("Invalid info_hash format")
	}
	p, ok := c.pending.Take(hash)
	if !ok {
		return failure("No pending torrent %s", hash)
	}

	if err := d.release(ctx, c.workers, p); err != nil {
		d.restage(c, p)
		return failure("Failed to remove torrent: %v", err)
	}
	return success(map[string]any{"info_hash": hash, "name": p.Name}, "Pending torrent discarded")
}

// List implements Daemon.
func (d *daemon) List(ctx context.Context) ([]engine.Torrent, error) {
	c, err := d.components()
	if err != nil {
		return nil, err
	}
	return workers.Call(ctx, c.workers, d.session.Torrents)
}

// Get implements Daemon.
func (d *daemon) Get(ctx context.Context, infoHash string) (engine.Torrent, error) {
	c, err := d.components()
	if err != nil {
		return engine.Torrent{}, err
	}
	hash, ok := engine.NormalizeInfoHash(infoHash)
	if !ok {
		return engine.Torrent{}, errors.NewValidationError("info_hash", infoHash, "invalid info hash")
	}
	return workers.Call(ctx, c.workers, func(ctx context.Context) (engine.Torrent, error) {
		return d.session.Torrent(ctx, hash)
	})
}
