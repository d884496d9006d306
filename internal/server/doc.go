// Package server provides the HTTP surface of a seedarr daemon.
//
// The server owns the client-facing transports and nothing else:
//
//   - Server: WebSocket hub, SSE broadcaster and response cache
//   - Config: server configuration with sensible defaults
//   - Router: route registration and middleware chain
//   - Handlers: HTTP request handlers organized by domain
//
// The daemon is built around a transport.Router, and the server attaches
// its transports to that same router so broadcasts reach whichever
// connection owns a client id.
//
// Usage:
//
//	router := transport.NewRouter()
//	d, err := seedarr.New(seedarr.WithSession(session), seedarr.WithSink(router))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := d.Startup(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	srv, err := server.New(d, router, server.DefaultConfig(), &logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	http.ListenAndServe(":8420", srv.Handler())
package server
