package server

import (
	"net/http"

	"github.com/seedarr/seedarr/internal/metrics"
	"github.com/seedarr/seedarr/internal/server/middleware"
)

// setupRouter creates the HTTP handler with routes and middleware.
func (s *Server) setupRouter() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)
	return s.applyMiddleware(mux)
}

// registerRoutes registers all HTTP routes.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	prefix := s.config.PathPrefix
	h := s.handlers

	// Favicon handler (return 204 No Content to avoid 404 logs)
	mux.HandleFunc("GET /favicon.ico", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// Public health endpoints (no auth required)
	mux.HandleFunc("GET /health", h.HandleHealth)
	mux.HandleFunc("GET "+prefix+"/health", h.HandleHealth)
	mux.HandleFunc("GET "+prefix+"/ready", h.HandleReady)

	// Torrents
	mux.HandleFunc("GET "+prefix+"/torrents", h.HandleListTorrents)
	mux.HandleFunc("GET "+prefix+"/torrents/{hash}", h.HandleGetTorrent)
	mux.HandleFunc("DELETE "+prefix+"/torrents/{hash}", h.HandleRemove)
	mux.HandleFunc("POST "+prefix+"/torrents/{hash}/pause", h.HandlePause)
	mux.HandleFunc("POST "+prefix+"/torrents/{hash}/resume", h.HandleResume)
	mux.HandleFunc("GET "+prefix+"/torrents/{hash}/files", h.HandleFiles)
	mux.HandleFunc("GET "+prefix+"/torrents/{hash}/peers", h.HandlePeers)

	// Trackers
	mux.HandleFunc("GET "+prefix+"/torrents/{hash}/trackers", h.HandleTrackers)
	mux.HandleFunc("POST "+prefix+"/torrents/{hash}/trackers", h.HandleAddTrackers)
	mux.HandleFunc("PUT "+prefix+"/torrents/{hash}/trackers", h.HandleRenameTracker)
	mux.HandleFunc("DELETE "+prefix+"/torrents/{hash}/trackers", h.HandleRemoveTrackers)
	mux.HandleFunc("POST "+prefix+"/torrents/{hash}/reannounce", h.HandleReannounce)

	// Staging
	mux.HandleFunc("POST "+prefix+"/magnets", h.HandleStageMagnet)
	mux.HandleFunc("GET "+prefix+"/pending", h.HandleListPending)
	mux.HandleFunc("POST "+prefix+"/pending/{hash}/confirm", h.HandleConfirm)
	mux.HandleFunc("DELETE "+prefix+"/pending/{hash}", h.HandleCancel)

	// Admin
	mux.HandleFunc("GET "+prefix+"/stats", h.HandleStats)

	// Real-time endpoints
	mux.HandleFunc("GET "+prefix+"/updates/ws", h.HandleWebSocket)
	mux.HandleFunc("GET "+prefix+"/updates/stream", h.HandleSSE)

	if s.config.MetricsEnabled {
		mux.Handle("GET /metrics", metrics.Handler())
	}
}

// applyMiddleware wraps handler with middleware chain.
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	cfg := s.config

	// Rate limiting (if enabled)
	if s.limiter != nil {
		handler = middleware.RateLimit(s.limiter)(handler)
	}

	// Authentication (if enabled)
	if cfg.AuthEnabled {
		authConfig := middleware.DefaultAuthConfig()
		authConfig.Enabled = true
		authConfig.APIKey = cfg.APIKey
		if cfg.AuthHeader != "" {
			authConfig.HeaderName = cfg.AuthHeader
		}
		handler = middleware.Auth(authConfig, s.logger)(handler)
	}

	// CORS (if enabled)
	if cfg.CORSEnabled {
		corsConfig := middleware.DefaultCORSConfig()
		corsConfig.AllowedOrigins = cfg.CORSOrigins
		handler = middleware.CORS(corsConfig)(handler)
	}

	// Logging and recovery (always enabled)
	handler = middleware.Logger(s.logger)(handler)
	handler = middleware.Recovery(s.logger)(handler)

	return handler
}
