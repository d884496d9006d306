package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/seedarr/seedarr"
	"github.com/seedarr/seedarr/internal/server/cache"
	"github.com/seedarr/seedarr/internal/server/handlers"
	"github.com/seedarr/seedarr/internal/server/middleware"
	"github.com/seedarr/seedarr/internal/server/sse"
	ws "github.com/seedarr/seedarr/internal/server/websocket"
	"github.com/seedarr/seedarr/pkg/logging"
	"github.com/seedarr/seedarr/pkg/transport"
)

// DaemonRoom receives daemon lifecycle notices: subscriptions coming and
// going and staged torrents expiring.
const DaemonRoom = "daemon"

// Daemon notice event names, emitted to DaemonRoom.
const (
	EventClientSubscribed   = "daemon:subscribed"
	EventClientUnsubscribed = "daemon:unsubscribed"
	EventPendingExpired     = "daemon:pending_expired"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	daemon         seedarr.Daemon
	router         *transport.Router
	cache          *cache.Cache
	handlers       *handlers.Handlers
	wsHub          *ws.Hub
	sseBroadcaster *sse.Broadcaster
	limiter        *middleware.RateLimiter
	logger         *zerolog.Logger
	config         Config
	startTime      time.Time
}

// New creates a server for daemon. router must be the transport.Sink the
// daemon was built with; the server's WebSocket hub and SSE broadcaster
// attach to it and bind their clients as they connect.
func New(daemon seedarr.Daemon, router *transport.Router, cfg Config, logger *zerolog.Logger) (*Server, error) {
	logger = logging.Component(logger, "server")
	logger.Debug().Msg("Creating new server instance")

	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = DefaultConfig().CacheTTL
	}
	if cfg.PathPrefix == "" {
		cfg.PathPrefix = DefaultConfig().PathPrefix
	}

	c := cache.New(cfg.CacheTTL, cfg.CacheTTL*2)
	sseBroadcaster := sse.NewBroadcaster(logger)
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(_ *http.Request) bool {
			return true // Allow all origins for WebSocket
		},
	}

	h := handlers.New(daemon, c, sseBroadcaster, upgrader, logger)
	wsHub := ws.NewHub(h, logger)
	h.AttachHub(wsHub)

	router.Attach(wsHub)
	router.Attach(sseBroadcaster)

	s := &Server{
		daemon:         daemon,
		router:         router,
		cache:          c,
		handlers:       h,
		wsHub:          wsHub,
		sseBroadcaster: sseBroadcaster,
		logger:         logger,
		config:         cfg,
		startTime:      time.Now(),
	}
	if cfg.RateLimit > 0 {
		s.limiter = middleware.NewRateLimiter(cfg.RateLimit, logger)
	}

	s.connectTransports()
	s.connectHooks()

	logger.Debug().Msg("Server instance created successfully")
	return s, nil
}

// connectTransports keeps the router's ownership table and the daemon's
// registry in step with open connections.
func (s *Server) connectTransports() {
	s.wsHub.OnConnect(func(clientID string) {
		s.router.Bind(clientID, s.wsHub)
	})
	s.wsHub.OnDisconnect(func(clientID string) {
		s.router.Unbind(clientID)
		s.daemon.Disconnect(clientID)
	})

	s.sseBroadcaster.OnConnect(func(ctx context.Context, clientID string) {
		s.router.Bind(clientID, s.sseBroadcaster)
		if reply := s.daemon.StartStreaming(ctx, clientID); !reply.OK() {
			s.logger.Warn().
				Str("client_id", clientID).
				Str("reply", reply.Message).
				Msg("SSE client could not subscribe")
		}
	})
	s.sseBroadcaster.OnDisconnect(func(clientID string) {
		s.router.Unbind(clientID)
		s.daemon.Disconnect(clientID)
	})
}

// connectHooks forwards daemon hooks to the daemon room.
func (s *Server) connectHooks() {
	notify := func(event string, payload any) {
		if err := s.router.EmitRoom(context.Background(), DaemonRoom, event, payload); err != nil {
			s.logger.Debug().Err(err).Str("event", event).Msg("Daemon notice not delivered")
		}
	}

	s.daemon.OnSubscribed(func(clientID string) {
		notify(EventClientSubscribed, map[string]any{"client_id": clientID})
	})
	s.daemon.OnUnsubscribed(func(clientID string) {
		notify(EventClientUnsubscribed, map[string]any{"client_id": clientID})
	})
	s.daemon.OnPendingExpired(func(p seedarr.Pending) {
		s.cache.Invalidate(p.InfoHash)
		notify(EventPendingExpired, p)
	})

	s.logger.Debug().Msg("Daemon hooks connected to daemon room")
}

// Handler returns the configured http.Handler with middleware chain applied.
func (s *Server) Handler() http.Handler {
	return s.setupRouter()
}

// Shutdown closes every client connection. The daemon is shut down by its
// owner.
func (s *Server) Shutdown(_ context.Context) error {
	s.logger.Info().Msg("Shutting down server connections")

	s.wsHub.CloseAll()
	s.sseBroadcaster.Close()
	if s.limiter != nil {
		s.limiter.Stop()
	}
	return nil
}

// Cache returns the server's cache instance.
func (s *Server) Cache() *cache.Cache {
	return s.cache
}

// WSHub returns the WebSocket hub.
func (s *Server) WSHub() *ws.Hub {
	return s.wsHub
}

// SSEBroadcaster returns the SSE broadcaster.
func (s *Server) SSEBroadcaster() *sse.Broadcaster {
	return s.sseBroadcaster
}

// StartTime returns the server start time for uptime calculations.
func (s *Server) StartTime() time.Time {
	return s.startTime
}
