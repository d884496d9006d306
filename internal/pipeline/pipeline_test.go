package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seedarr/seedarr/internal/bus"
	"github.com/seedarr/seedarr/internal/registry"
	"github.com/seedarr/seedarr/pkg/engine"
	pkgerrors "github.com/seedarr/seedarr/pkg/errors"
	"github.com/seedarr/seedarr/pkg/logging"
)

const (
	activeTick = 5 * time.Millisecond
	idleTick   = 10 * time.Millisecond
)

// stubSession hands out queued alerts and counts engine calls.
type stubSession struct {
	engine.Session // unused methods panic

	mu      sync.Mutex
	pending []engine.Alert
	failPop error

	pops  atomic.Int64
	posts atomic.Int64
}

func (s *stubSession) queue(alerts ...engine.Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, alerts...)
}

func (s *stubSession) PopAlerts(context.Context) ([]engine.Alert, error) {
	s.pops.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPop != nil {
		err := s.failPop
		s.failPop = nil
		return nil, err
	}
	out := s.pending
	s.pending = nil
	return out, nil
}

func (s *stubSession) PostTorrentUpdates(context.Context) error {
	s.posts.Add(1)
	return nil
}

// recordingSink captures emits per client.
type recordingSink struct {
	mu     sync.Mutex
	got    map[string][]Payload
	events map[string]bool
	failOn string
}

func newRecordingSink() *recordingSink {
	return &recordingSink{got: make(map[string][]Payload), events: make(map[string]bool)}
}

func (r *recordingSink) Emit(_ context.Context, clientID, event string, payload any) error {
	if clientID == r.failOn {
		return errors.New("payload not serializable for client")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got[clientID] = append(r.got[clientID], payload.(Payload))
	r.events[event] = true
	return nil
}

func (r *recordingSink) EmitRoom(context.Context, string, string, any) error { return nil }

func (r *recordingSink) sawEvent(event string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[event]
}

func (r *recordingSink) payloads(clientID string) []Payload {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Payload(nil), r.got[clientID]...)
}

type fixture struct {
	session *stubSession
	sink    *recordingSink
	reg     *registry.Registry
	bus     *bus.Bus[Event]
	p       *Pipeline
	log     *logging.TestLogger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tl := logging.NewTestLogger(t)
	f := &fixture{
		session: &stubSession{},
		sink:    newRecordingSink(),
		reg:     registry.New(tl.Logger),
		bus:     bus.New[Event](bus.WithLogger(tl.Logger)),
		log:     tl,
	}
	p, err := New(f.session, f.bus, f.reg, f.sink,
		WithIntervals(activeTick, idleTick),
		WithLogger(tl.Logger),
	)
	require.NoError(t, err)
	f.p = p
	t.Cleanup(p.Close)
	return f
}

func TestIdleGating(t *testing.T) {
	f := newFixture(t)
	f.p.ensureStarted()
	require.Eventually(t, f.bus.Running, time.Second, time.Millisecond)

	time.Sleep(5 * idleTick)
	assert.Zero(t, f.session.pops.Load())
	assert.Zero(t, f.session.posts.Load())
	assert.Zero(t, f.p.Stats().Drains)
}

func TestFinishedAlertReachesSubscriberOnly(t *testing.T) {
	f := newFixture(t)
	f.session.queue(engine.TorrentFinished{InfoHash: "h1"})

	assert.True(t, f.p.Subscribe("A"))

	require.Eventually(t, func() bool { return len(f.sink.payloads("A")) == 1 }, time.Second, time.Millisecond)
	want := []Payload{{"type": "torrent_finished", "id": "h1"}}
	if diff := cmp.Diff(want, f.sink.payloads("A")); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, f.sink.sawEvent("torrent:broadcast"))
	assert.Empty(t, f.sink.payloads("B"))
	assert.Positive(t, f.session.posts.Load())
}

func TestSyntheticPausedFansOut(t *testing.T) {
	f := newFixture(t)
	f.p.Subscribe("A")
	f.p.Subscribe("B")

	require.NoError(t, f.p.PublishSynthetic(context.Background(), Paused, engine.Torrent{InfoHash: "h2"}))

	want := []Payload{{"type": "torrent_paused", "id": "h2", "synthetic": true}}
	for _, id := range []string{"A", "B"} {
		require.Eventually(t, func() bool { return len(f.sink.payloads(id)) == 1 }, time.Second, time.Millisecond)
		assert.Empty(t, cmp.Diff(want, f.sink.payloads(id)), id)
	}
	assert.Empty(t, f.sink.payloads("C"))
}

func TestEmitFailureIsolated(t *testing.T) {
	f := newFixture(t)
	f.sink.failOn = "bad"
	f.p.Subscribe("bad")
	f.p.Subscribe("good")

	require.NoError(t, f.p.Publish(context.Background(), engine.PeerConnected{InfoHash: "h3", IP: "10.0.0.2"}))
	require.NoError(t, f.p.Publish(context.Background(), engine.TorrentAdded{InfoHash: "h3", Name: "debian.iso"}))

	require.Eventually(t, func() bool { return len(f.sink.payloads("good")) == 2 }, time.Second, time.Millisecond)
	f.log.AssertContains(t, "Broadcast to client failed")
	assert.Equal(t, "peer_connected", f.sink.payloads("good")[0]["type"])
	assert.Equal(t, "torrent_added", f.sink.payloads("good")[1]["type"])
}

func TestUnsubscribeReturnsToIdle(t *testing.T) {
	f := newFixture(t)
	f.p.Subscribe("A")
	require.Eventually(t, func() bool { return f.session.pops.Load() > 0 }, time.Second, time.Millisecond)

	assert.True(t, f.p.Unsubscribe("A"))
	assert.False(t, f.p.Unsubscribe("A"))
	// Let any in-flight drain finish, then the count must hold still.
	time.Sleep(2 * idleTick)
	before := f.session.pops.Load()
	time.Sleep(5 * idleTick)
	assert.Equal(t, before, f.session.pops.Load())
	assert.True(t, f.p.Started())
}

func TestStartsOnce(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.p.Subscribe("client")
		}()
	}
	wg.Wait()

	require.Eventually(t, f.bus.Running, time.Second, time.Millisecond)
	assert.Equal(t, 1, f.reg.Count())
	f.log.AssertNotContains(t, "Bus consumer did not start")
	assert.Equal(t, 1, countLines(f.log, "Starting broadcast pipeline"))
}

func countLines(tl *logging.TestLogger, substr string) int {
	n := 0
	for _, line := range tl.Lines() {
		if strings.Contains(line, substr) {
			n++
		}
	}
	return n
}

func TestDrainErrorKeepsPolling(t *testing.T) {
	f := newFixture(t)
	f.session.failPop = errors.New("engine busy")
	f.session.queue(engine.TorrentError{InfoHash: "h4", Message: "tracker unreachable"})

	f.p.Subscribe("A")

	require.Eventually(t, func() bool { return len(f.sink.payloads("A")) == 1 }, time.Second, time.Millisecond)
	f.log.AssertContains(t, "Engine drain failed")
	assert.Equal(t, "tracker unreachable", f.sink.payloads("A")[0]["message"])
}

func TestIgnoredAndUnsupportedEventsDropped(t *testing.T) {
	f := newFixture(t)
	f.p.Subscribe("A")

	require.NoError(t, f.p.Publish(context.Background(), engine.TorrentPaused{InfoHash: "h5"}))
	require.NoError(t, f.bus.Publish(context.Background(), Event{}))
	require.NoError(t, f.p.Publish(context.Background(), engine.TorrentFinished{InfoHash: "h5"}))

	require.Eventually(t, func() bool { return len(f.sink.payloads("A")) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, "torrent_finished", f.sink.payloads("A")[0]["type"])
	f.log.AssertContains(t, "Event dropped")
}

func TestNewRejectsSecondConsumer(t *testing.T) {
	b := bus.New[Event]()
	reg := registry.New(nil)
	sink := newRecordingSink()
	session := &stubSession{}

	p, err := New(session, b, reg, sink)
	require.NoError(t, err)
	defer p.Close()

	_, err = New(session, b, reg, sink)
	assert.ErrorIs(t, err, pkgerrors.ErrConsumerSet)

	_, err = New(nil, b, reg, sink)
	assert.ErrorIs(t, err, pkgerrors.ErrNotInitialized)

	_, err = New(session, bus.New[Event](), reg, sink, WithIntervals(0, time.Second))
	assert.Error(t, err)
}
