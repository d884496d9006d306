// Package pipeline bridges the engine's pull-based alerts to subscribed
// clients.
//
// A poller drains the engine on a short interval while at least one client
// is subscribed and publishes each alert onto the bus. When nobody is
// subscribed it only re-checks the registry on a longer idle interval and
// never touches the engine. The bus consumer serializes each event and
// emits the payload to every subscriber, isolating per-client failures.
//
// Both loops start lazily, exactly once, on the first subscription. They
// keep running when the last client leaves; the poller simply goes idle.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/panics"

	"github.com/seedarr/seedarr/internal/bus"
	"github.com/seedarr/seedarr/internal/metrics"
	"github.com/seedarr/seedarr/internal/registry"
	"github.com/seedarr/seedarr/internal/workers"
	"github.com/seedarr/seedarr/pkg/constants"
	"github.com/seedarr/seedarr/pkg/engine"
	"github.com/seedarr/seedarr/pkg/errors"
	"github.com/seedarr/seedarr/pkg/logging"
	"github.com/seedarr/seedarr/pkg/transport"
)

// Pipeline owns the poller and the bus consumer.
type Pipeline struct {
	session   engine.Session
	bus       *bus.Bus[Event]
	registry  *registry.Registry
	sink      transport.Sink
	serialize Serializer
	workers   *workers.Pool
	ownPool   bool

	activeInterval time.Duration
	idleInterval   time.Duration
	event          string
	log            *zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	started atomic.Bool
	active  atomic.Bool
	drains  atomic.Int64
	wg      sync.WaitGroup
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithSerializer replaces the default serializer chain.
func WithSerializer(s Serializer) Option {
	return func(p *Pipeline) { p.serialize = s }
}

// WithWorkers runs engine calls on pool. The caller keeps ownership.
func WithWorkers(pool *workers.Pool) Option {
	return func(p *Pipeline) { p.workers = pool }
}

// WithIntervals sets the active drain interval and the idle re-check interval.
func WithIntervals(active, idle time.Duration) Option {
	return func(p *Pipeline) {
		p.activeInterval = active
		p.idleInterval = idle
	}
}

// WithEventName sets the transport event name broadcasts are emitted under.
func WithEventName(name string) Option {
	return func(p *Pipeline) { p.event = name }
}

// WithLogger sets the logger.
func WithLogger(l *zerolog.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// New wires a pipeline and registers its consumer on b. It fails if b
// already has a consumer.
func New(session engine.Session, b *bus.Bus[Event], reg *registry.Registry, sink transport.Sink, opts ...Option) (*Pipeline, error) {
	if session == nil || b == nil || reg == nil || sink == nil {
		return nil, errors.ErrNotInitialized
	}

	p := &Pipeline{
		session:        session,
		bus:            b,
		registry:       reg,
		sink:           sink,
		serialize:      DefaultSerializer(),
		activeInterval: constants.PollActiveInterval,
		idleInterval:   constants.PollIdleInterval,
		event:          constants.BroadcastEvent,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.activeInterval <= 0 || p.idleInterval <= 0 {
		return nil, errors.NewConfigError("pipeline", "poll intervals must be positive", nil)
	}
	if p.workers == nil {
		p.workers = workers.New(constants.DefaultWorkers)
		p.ownPool = true
	}
	p.log = logging.Component(p.log, "pipeline")

	if err := b.SetConsumer(p.consume); err != nil {
		return nil, err
	}

	p.ctx, p.cancel = context.WithCancel(context.Background())
	return p, nil
}

// Subscribe registers clientID and starts the pipeline if this is the first
// subscription ever. It reports whether the client was newly added.
func (p *Pipeline) Subscribe(clientID string) bool {
	added := p.registry.Add(clientID)
	p.ensureStarted()
	return added
}

// Unsubscribe removes clientID. It reports whether the client was subscribed.
func (p *Pipeline) Unsubscribe(clientID string) bool {
	return p.registry.Remove(clientID)
}

// ensureStarted launches the poller and the consumer loop once.
func (p *Pipeline) ensureStarted() {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	p.log.Info().Msg("Starting broadcast pipeline")

	p.wg.Add(2)
	go func() {
		defer p.wg.Done()
		if err := p.bus.Start(p.ctx); err != nil {
			p.log.Error().Err(err).Msg("Bus consumer did not start")
		}
	}()
	go func() {
		defer p.wg.Done()
		p.poll(p.ctx)
	}()
}

// Started reports whether the loops have been launched.
func (p *Pipeline) Started() bool {
	return p.started.Load()
}

// Publish enqueues an engine alert directly, bypassing the poller.
func (p *Pipeline) Publish(ctx context.Context, a engine.Alert) error {
	return p.bus.Publish(ctx, AlertEvent(a))
}

// PublishSynthetic announces a state change the caller made to t.
func (p *Pipeline) PublishSynthetic(ctx context.Context, kind SyntheticKind, t engine.Torrent) error {
	return p.bus.Publish(ctx, SyntheticEvent(kind, t))
}

func (p *Pipeline) poll(ctx context.Context) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if p.registry.Count() == 0 {
			if p.active.CompareAndSwap(true, false) {
				p.log.Debug().Msg("No subscribers, poller idle")
			}
			timer.Reset(p.idleInterval)
			continue
		}

		if p.active.CompareAndSwap(false, true) {
			p.log.Debug().Msg("Subscribers present, poller active")
		}
		p.drain(ctx)
		timer.Reset(p.activeInterval)
	}
}

// drain asks the engine for fresh status, pops pending alerts and publishes
// them in order. Failures are logged; the next tick tries again.
func (p *Pipeline) drain(ctx context.Context) {
	timer := metrics.NewTimer()
	p.drains.Add(1)
	metrics.PollDrains.Inc()

	alerts, err := workers.Call(ctx, p.workers, func(ctx context.Context) ([]engine.Alert, error) {
		if err := p.session.PostTorrentUpdates(ctx); err != nil {
			return nil, fmt.Errorf("post torrent updates: %w", err)
		}
		return p.session.PopAlerts(ctx)
	})
	timer.ObserveDuration(metrics.PollDrainDuration)
	if err != nil {
		if ctx.Err() == nil {
			p.log.Error().Err(err).Msg("Engine drain failed")
		}
		return
	}

	for _, a := range alerts {
		if err := p.bus.Publish(ctx, AlertEvent(a)); err != nil {
			p.log.Warn().Err(err).Str("alert", fmt.Sprintf("%T", a)).Msg("Alert not published")
			return
		}
	}
}

// consume is the bus consumer.
func (p *Pipeline) consume(ctx context.Context, ev Event) error {
	payload, err := p.serialize(ev)
	if err != nil {
		p.log.Warn().Err(err).Msg("Event dropped")
		metrics.AlertsDropped.WithLabelValues("unsupported").Inc()
		return nil
	}
	if payload == nil {
		metrics.AlertsDropped.WithLabelValues("ignored").Inc()
		return nil
	}

	clients := p.registry.Snapshot()
	if len(clients) == 0 {
		metrics.AlertsDropped.WithLabelValues("no_subscribers").Inc()
		return nil
	}

	p.log.Debug().
		Interface("type", payload["type"]).
		Int("clients", len(clients)).
		Msg("Broadcasting")
	for _, id := range clients {
		p.emit(ctx, id, payload)
	}
	return nil
}

func (p *Pipeline) emit(ctx context.Context, clientID string, payload Payload) {
	var (
		pc  panics.Catcher
		err error
	)
	pc.Try(func() { err = p.sink.Emit(ctx, clientID, p.event, payload) })
	if r := pc.Recovered(); r != nil {
		err = fmt.Errorf("emit panic: %v", r.Value)
	}
	if err != nil {
		p.log.Warn().Err(err).Str("client_id", clientID).Msg("Broadcast to client failed")
		metrics.BroadcastEmits.WithLabelValues("error").Inc()
		return
	}
	metrics.BroadcastEmits.WithLabelValues("ok").Inc()
}

// Stats is a point-in-time view of the pipeline.
type Stats struct {
	Started     bool  `json:"started" yaml:"started"`
	Active      bool  `json:"active" yaml:"active"`
	Subscribers int   `json:"subscribers" yaml:"subscribers"`
	Queued      int   `json:"queued" yaml:"queued"`
	Drains      int64 `json:"drains" yaml:"drains"`
}

// Stats returns current counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Started:     p.started.Load(),
		Active:      p.active.Load(),
		Subscribers: p.registry.Count(),
		Queued:      p.bus.Len(),
		Drains:      p.drains.Load(),
	}
}

// Close stops both loops and waits for them to return.
func (p *Pipeline) Close() {
	p.cancel()
	p.bus.Stop()
	p.wg.Wait()
	if p.ownPool {
		p.workers.Close()
	}
	p.log.Debug().Msg("Broadcast pipeline closed")
}
