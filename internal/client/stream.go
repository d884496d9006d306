package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/seedarr/seedarr/pkg/constants"
	"github.com/seedarr/seedarr/pkg/errors"
)

// Frame is one WebSocket message from the daemon.
type Frame struct {
	ID    string          `json:"id,omitempty"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// IsBroadcast reports whether the frame carries a fan-out payload.
func (f Frame) IsBroadcast() bool { return f.Event == constants.BroadcastEvent }

// IsAck reports whether the frame answers a command.
func (f Frame) IsAck() bool { return f.Event == constants.AckEvent }

// Stream is a WebSocket connection to the daemon's updates endpoint.
type Stream struct {
	conn *websocket.Conn
	wmu  sync.Mutex
}

// Dial opens the updates WebSocket. It does not subscribe; call Start.
func (c *Client) Dial(ctx context.Context) (*Stream, error) {
	target := c.websocketURL()
	header := http.Header{}
	if c.apiKey != "" {
		// Reuse the configured authenticator on a throwaway request so
		// header and query schemes both apply to the handshake.
		u, err := url.Parse(target)
		if err != nil {
			return nil, errors.WrapResource("parse", "url", target, err)
		}
		req := &http.Request{URL: u, Header: header}
		c.auth.Apply(req, c.apiKey)
		target = req.URL.String()
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, target, header)
	if err != nil {
		if resp != nil {
			return nil, DecodeResponse(resp, nil)
		}
		return nil, errors.WrapResource("dial", "daemon", target, err)
	}
	conn.SetReadLimit(constants.MaxMessageSize * 16)
	return &Stream{conn: conn}, nil
}

// Send writes a command frame and returns its id.
func (s *Stream) Send(event string, data any) (string, error) {
	id := uuid.NewString()
	raw, err := json.Marshal(data)
	if err != nil {
		return "", errors.WrapResource("encode", "frame", event, err)
	}

	s.wmu.Lock()
	defer s.wmu.Unlock()
	if err := s.conn.WriteJSON(Frame{ID: id, Event: event, Data: raw}); err != nil {
		return "", errors.WrapResource("write", "frame", event, err)
	}
	return id, nil
}

// Start asks the daemon to begin streaming broadcasts to this connection.
func (s *Stream) Start() (string, error) {
	return s.Send(constants.BroadcastEvent, map[string]string{"event": "start"})
}

// Stop asks the daemon to stop streaming broadcasts.
func (s *Stream) Stop() (string, error) {
	return s.Send(constants.BroadcastEvent, map[string]string{"event": "stop"})
}

// Join adds the connection to a room, such as the daemon notice room.
func (s *Stream) Join(room string) (string, error) {
	return s.Send("room:join", map[string]string{"room": room})
}

// Next blocks for the next frame. It returns an error once the connection
// is closed.
func (s *Stream) Next() (Frame, error) {
	var f Frame
	if err := s.conn.ReadJSON(&f); err != nil {
		return Frame{}, err
	}
	return f, nil
}

// SetReadDeadline bounds the next calls to Next.
func (s *Stream) SetReadDeadline(t time.Time) error {
	return s.conn.SetReadDeadline(t)
}

// Close sends a close frame and closes the connection.
func (s *Stream) Close() error {
	s.wmu.Lock()
	_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.wmu.Unlock()
	return s.conn.Close()
}
