package server

// @title Seedarr API
// @version 1.0
// @description REST, WebSocket and SSE API for a seedarr torrent daemon.
// @description
// @description Features:
// @description - Live torrent alerts and state updates over WebSocket and Server-Sent Events
// @description - Pause, resume and remove commands
// @description - Magnet staging with explicit confirmation
// @description - File, peer and tracker inspection and tracker editing
// @description - Prometheus metrics
//
// @contact.name Seedarr Project
// @contact.url https://github.com/seedarr/seedarr
//
// @license.name MIT
// @license.url https://github.com/seedarr/seedarr/blob/main/LICENSE
//
// @host localhost:8420
// @BasePath /api/v1
//
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
// @description API key for authentication (optional, configurable)
