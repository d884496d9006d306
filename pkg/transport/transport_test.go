package transport_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seedarr/seedarr/pkg/transport"
)

type recordingSink struct {
	name   string
	emits  []string
	rooms  []string
	failOn string
}

func (s *recordingSink) Emit(_ context.Context, clientID, event string, _ any) error {
	if clientID == s.failOn {
		return errors.New("send failed")
	}
	s.emits = append(s.emits, clientID+"/"+event)
	return nil
}

func (s *recordingSink) EmitRoom(_ context.Context, room, event string, _ any) error {
	s.rooms = append(s.rooms, room+"/"+event)
	return nil
}

func TestRouterEmit(t *testing.T) {
	ws := &recordingSink{name: "ws"}
	sse := &recordingSink{name: "sse"}
	r := transport.NewRouter(ws, sse)

	r.Bind("a", ws)
	r.Bind("b", sse)

	require.NoError(t, r.Emit(context.Background(), "a", "torrent:broadcast", nil))
	require.NoError(t, r.Emit(context.Background(), "b", "torrent:broadcast", nil))
	assert.Equal(t, []string{"a/torrent:broadcast"}, ws.emits)
	assert.Equal(t, []string{"b/torrent:broadcast"}, sse.emits)

	r.Unbind("a")
	err := r.Emit(context.Background(), "a", "torrent:broadcast", nil)
	assert.ErrorIs(t, err, transport.ErrUnknownClient)
}

func TestRouterEmitRoom(t *testing.T) {
	ws := &recordingSink{}
	r := transport.NewRouter()
	r.Attach(ws)

	require.NoError(t, r.EmitRoom(context.Background(), "downloads", "torrent:broadcast", nil))
	assert.Equal(t, []string{"downloads/torrent:broadcast"}, ws.rooms)
}

func TestSinkFunc(t *testing.T) {
	var got string
	s := transport.SinkFunc(func(_ context.Context, clientID, event string, _ any) error {
		got = clientID + ":" + event
		return nil
	})
	require.NoError(t, s.Emit(context.Background(), "c", "e", nil))
	assert.Equal(t, "c:e", got)
	assert.NoError(t, s.EmitRoom(context.Background(), "r", "e", nil))
}
