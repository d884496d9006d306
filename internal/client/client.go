// Package client talks to a running seedarr daemon over its HTTP and
// WebSocket API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/seedarr/seedarr"
	"github.com/seedarr/seedarr/pkg/constants"
	"github.com/seedarr/seedarr/pkg/engine"
	"github.com/seedarr/seedarr/pkg/errors"
)

// DefaultHTTPTimeout is the default timeout for HTTP requests.
var DefaultHTTPTimeout = constants.DefaultHTTPTimeout

// Client calls the daemon REST API under /api/v1.
type Client struct {
	base   *url.URL
	apiKey string
	http   *http.Client
	auth   Authenticator
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sets the key sent with every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithAuthenticator overrides how the API key is attached. The default
// sends it in the X-API-Key header.
func WithAuthenticator(a Authenticator) Option {
	return func(c *Client) { c.auth = a }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a client for the daemon at serverURL.
func New(serverURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(serverURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, errors.NewValidationError("server_url", serverURL, "must be an absolute http(s) URL")
	}

	c := &Client{
		base: base,
		http: &http.Client{Timeout: DefaultHTTPTimeout},
		auth: &HeaderAuth{Header: "X-API-Key"},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Health returns the liveness payload.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	return out, c.do(ctx, http.MethodGet, "/api/v1/health", nil, &out)
}

// Stats returns daemon, runtime and connection statistics.
func (c *Client) Stats(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	return out, c.do(ctx, http.MethodGet, "/api/v1/stats", nil, &out)
}

// Torrents lists every torrent.
func (c *Client) Torrents(ctx context.Context) ([]engine.Torrent, error) {
	var out struct {
		Torrents []engine.Torrent `json:"torrents"`
	}
	return out.Torrents, c.do(ctx, http.MethodGet, "/api/v1/torrents", nil, &out)
}

// Torrent returns a single torrent.
func (c *Client) Torrent(ctx context.Context, infoHash string) (engine.Torrent, error) {
	var out engine.Torrent
	return out, c.do(ctx, http.MethodGet, "/api/v1/torrents/"+url.PathEscape(infoHash), nil, &out)
}

// Pause pauses a torrent.
func (c *Client) Pause(ctx context.Context, infoHash string) (seedarr.Reply, error) {
	return c.command(ctx, http.MethodPost, "/api/v1/torrents/"+url.PathEscape(infoHash)+"/pause", nil)
}

// Resume resumes a torrent.
func (c *Client) Resume(ctx context.Context, infoHash string) (seedarr.Reply, error) {
	return c.command(ctx, http.MethodPost, "/api/v1/torrents/"+url.PathEscape(infoHash)+"/resume", nil)
}

// Remove removes a torrent, with its data when deleteData is set.
func (c *Client) Remove(ctx context.Context, infoHash string, deleteData bool) (seedarr.Reply, error) {
	path := "/api/v1/torrents/" + url.PathEscape(infoHash)
	if deleteData {
		path += "?delete_data=true"
	}
	return c.command(ctx, http.MethodDelete, path, nil)
}

// Stage adds a magnet paused and stages it once its metadata arrives.
func (c *Client) Stage(ctx context.Context, magnet, savePath string) (seedarr.Reply, error) {
	body := map[string]string{"magnet": magnet, "save_path": savePath}
	return c.command(ctx, http.MethodPost, "/api/v1/magnets", body)
}

// Pending lists the staged torrents.
func (c *Client) Pending(ctx context.Context) ([]seedarr.Pending, error) {
	var out struct {
		Pending []seedarr.Pending `json:"pending"`
	}
	return out.Pending, c.do(ctx, http.MethodGet, "/api/v1/pending", nil, &out)
}

// Confirm starts a staged torrent.
func (c *Client) Confirm(ctx context.Context, infoHash string) (seedarr.Reply, error) {
	return c.command(ctx, http.MethodPost, "/api/v1/pending/"+url.PathEscape(infoHash)+"/confirm", nil)
}

// Cancel discards a staged torrent.
func (c *Client) Cancel(ctx context.Context, infoHash string) (seedarr.Reply, error) {
	return c.command(ctx, http.MethodDelete, "/api/v1/pending/"+url.PathEscape(infoHash), nil)
}

// Files lists a torrent's files.
func (c *Client) Files(ctx context.Context, infoHash string) ([]engine.File, error) {
	var out struct {
		Data struct {
			Files []engine.File `json:"files"`
		} `json:"data"`
	}
	return out.Data.Files, c.do(ctx, http.MethodGet, torrentPath(infoHash, "/files"), nil, &out)
}

// Peers lists a torrent's connected peers.
func (c *Client) Peers(ctx context.Context, infoHash string) ([]engine.Peer, error) {
	var out struct {
		Data struct {
			Peers []engine.Peer `json:"peers"`
		} `json:"data"`
	}
	return out.Data.Peers, c.do(ctx, http.MethodGet, torrentPath(infoHash, "/peers"), nil, &out)
}

// Trackers lists a torrent's trackers.
func (c *Client) Trackers(ctx context.Context, infoHash string) ([]engine.Tracker, error) {
	var out struct {
		Data struct {
			Trackers []engine.Tracker `json:"trackers"`
		} `json:"data"`
	}
	return out.Data.Trackers, c.do(ctx, http.MethodGet, torrentPath(infoHash, "/trackers"), nil, &out)
}

// AddTrackers appends trackers to a torrent.
func (c *Client) AddTrackers(ctx context.Context, infoHash string, urls []string) (seedarr.Reply, error) {
	return c.command(ctx, http.MethodPost, torrentPath(infoHash, "/trackers"), map[string]any{"trackers": urls})
}

// RemoveTrackers drops trackers from a torrent.
func (c *Client) RemoveTrackers(ctx context.Context, infoHash string, urls []string) (seedarr.Reply, error) {
	q := url.Values{"url": urls}
	return c.command(ctx, http.MethodDelete, torrentPath(infoHash, "/trackers")+"?"+q.Encode(), nil)
}

// RenameTracker replaces one tracker URL.
func (c *Client) RenameTracker(ctx context.Context, infoHash, oldURL, newURL string) (seedarr.Reply, error) {
	body := map[string]string{"old_tracker": oldURL, "new_tracker": newURL}
	return c.command(ctx, http.MethodPut, torrentPath(infoHash, "/trackers"), body)
}

// Reannounce forces an announce to the given trackers.
func (c *Client) Reannounce(ctx context.Context, infoHash string, urls []string) (seedarr.Reply, error) {
	return c.command(ctx, http.MethodPost, torrentPath(infoHash, "/reannounce"), map[string]any{"trackers": urls})
}

func torrentPath(infoHash, suffix string) string {
	return "/api/v1/torrents/" + url.PathEscape(infoHash) + suffix
}

func (c *Client) command(ctx context.Context, method, path string, body any) (seedarr.Reply, error) {
	var reply seedarr.Reply
	return reply, c.do(ctx, method, path, body, &reply)
}

// do sends a request and decodes the envelope's data into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return errors.WrapResource("encode", "request", path, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), reader)
	if err != nil {
		return errors.WrapResource("create", "request", method+" "+path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		c.auth.Apply(req, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.WrapResource("call", "daemon", method+" "+path, err)
	}
	return DecodeResponse(resp, out)
}

func (c *Client) url(path string) string {
	return c.base.String() + path
}

// websocketURL returns the updates endpoint with an http scheme swapped
// for its ws counterpart.
func (c *Client) websocketURL() string {
	u := *c.base
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	return fmt.Sprintf("%s/api/v1/updates/ws", u.String())
}
