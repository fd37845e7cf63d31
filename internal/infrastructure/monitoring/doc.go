/*
Package monitoring provides metrics collection for the focus broker.

# Overview

Prometheus collectors cover HTTP traffic, focus arbitration (requests by
result, dispatched gain/loss events, holders and losers per zone, zone
transfers), volume changes and event delivery over WebSocket and webhooks.

# Usage

	// Create metrics collector
	metrics := monitoring.NewMetrics(prometheus.DefaultRegisterer)

	// Add middleware to Gin router
	router.Use(monitoring.Middleware(metrics))

	// Record focus outcomes
	metrics.RecordFocusRequest(0, "music", "granted", elapsed)

Tests pass prometheus.NewRegistry() so collectors never collide.

# Metrics Endpoint

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
*/
package monitoring
