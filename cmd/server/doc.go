// Package main is the entry point for the car audio focus broker.
//
// The broker arbitrates audio focus per zone of the vehicle, keeps the uid
// to zone routing table and the volume groups, and streams focus and volume
// events to clients over WebSocket and webhooks.
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Built-in zone layout when no zone file is given
//
// Usage:
//
//	# Production mode
//	./server -port 8000 -zones /etc/carfocus/zones.toml
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
//	# Legacy stream type volumes, no focus arbitration
//	./server -dynamic-routing=false -car-focus=false
//
// Only one broker runs per lock file (-lock, LOCK_PATH).
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
