// Package server wires the car audio service to its HTTP, WebSocket and
// webhook surfaces.
//
// Server Lifecycle:
//  1. Load configuration from environment/flags
//  2. Build the zones from the zone file, or the built-in layout
//  3. Create the car audio service with the ws hub and webhook notifier as
//     focus dispatchers
//  4. Setup HTTP routes and middleware
//  5. Run HTTP and webhook delivery until the context is cancelled
//  6. Graceful shutdown within Server.ShutdownTimeout
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.NewServer(cfg, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer srv.Close()
//	err = srv.Run(ctx)
package server
