package seedarr

import (
	"context"
	"fmt"

	"github.com/seedarr/seedarr/internal/bus"
	"github.com/seedarr/seedarr/internal/metrics"
	"github.com/seedarr/seedarr/internal/pipeline"
	"github.com/seedarr/seedarr/internal/registry"
	"github.com/seedarr/seedarr/internal/store"
	"github.com/seedarr/seedarr/internal/workers"
	"github.com/seedarr/seedarr/pkg/errors"
)

// Startup builds every component. Streaming itself starts lazily on the
// first StartStreaming. A daemon that has been shut down cannot be started
// again.
func (d *daemon) Startup(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return fmt.Errorf("daemon: %w", errors.ErrAlreadyExists)
	}
	if d.bus != nil {
		return fmt.Errorf("daemon: %w", errors.ErrClosed)
	}

	cfg := d.config
	d.workers = workers.New(cfg.workers)
	d.registry = registry.New(cfg.logger)
	d.bus = bus.New[pipeline.Event](
		bus.WithName("alerts"),
		bus.WithCapacity(cfg.busCapacity),
		bus.WithLogger(cfg.logger),
	)

	pending, err := store.New[Pending](cfg.pendingTTL,
		store.WithName[Pending]("pending"),
		store.WithCleanup[Pending](d.discard),
		store.WithValidator[Pending](validatePending),
		store.WithLogger[Pending](cfg.logger),
		store.WithContext[Pending](context.WithoutCancel(ctx)),
	)
	if err != nil {
		d.workers.Close()
		return errors.NewConfigError("daemon", "pending store", err)
	}
	d.pending = pending

	opts := []pipeline.Option{
		pipeline.WithWorkers(d.workers),
		pipeline.WithIntervals(cfg.activeInterval, cfg.idleInterval),
		pipeline.WithLogger(cfg.logger),
	}
	if cfg.serializer != nil {
		opts = append(opts, pipeline.WithSerializer(cfg.serializer))
	}
	p, err := pipeline.New(d.session, d.bus, d.registry, cfg.sink, opts...)
	if err != nil {
		_ = d.pending.Close(ctx)
		d.workers.Close()
		return errors.NewConfigError("daemon", "pipeline", err)
	}
	d.pipeline = p

	if cfg.statsInterval > 0 {
		d.stats = metrics.NewCollector(gauges{d}, cfg.statsInterval)
		d.stats.Start()
	}

	d.running = true
	d.log.Info().
		Dur("poll_active", cfg.activeInterval).
		Dur("poll_idle", cfg.idleInterval).
		Dur("pending_ttl", cfg.pendingTTL).
		Int("workers", cfg.workers).
		Msg("Daemon started")
	return nil
}

// Shutdown stops broadcasting and releases the engine. Pending torrents are
// forgotten without running their cleanup.
func (d *daemon) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return nil
	}
	d.running = false

	if d.stats != nil {
		d.stats.Stop()
	}
	d.pipeline.Close()

	var firstErr error
	if err := d.pending.Close(ctx); err != nil {
		d.log.Warn().Err(err).Msg("Pending cleanups did not finish")
		firstErr = err
	}
	d.workers.Close()
	if err := d.session.Close(); err != nil {
		d.log.Error().Err(err).Msg("Failed to close engine session")
		if firstErr == nil {
			firstErr = err
		}
	}

	d.log.Info().Msg("Daemon stopped")
	return firstErr
}

// components is the set of parts a command needs. Commands run outside mu so
// a slow engine call never blocks Shutdown.
type components struct {
	pipeline *pipeline.Pipeline
	pending  *store.Store[Pending]
	workers  *workers.Pool
}

func (d *daemon) components() (components, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.running {
		if d.bus != nil {
			return components{}, errors.ErrClosed
		}
		return components{}, errors.ErrNotInitialized
	}
	return components{pipeline: d.pipeline, pending: d.pending, workers: d.workers}, nil
}

// Stats implements Daemon.
func (d *daemon) Stats() Stats {
	c, err := d.components()
	if err != nil {
		return Stats{}
	}
	return Stats{
		Running: true,
		Stats:   c.pipeline.Stats(),
		Pending: c.pending.Len(),
	}
}

// gauges adapts the daemon to metrics.Source.
type gauges struct{ d *daemon }

func (g gauges) Subscribers() int  { return g.d.registry.Count() }
func (g gauges) QueueLength() int  { return g.d.bus.Len() }
func (g gauges) PendingCount() int { return g.d.pending.Len() }
