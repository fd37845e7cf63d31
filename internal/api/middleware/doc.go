// Package middleware provides the gin middleware in front of the broker API.
//
//   - CORS: any origin by default, exposes the trace and Retry-After headers
//   - RateLimit: token bucket per client, keyed by X-Client-ID or address,
//     with idle clients evicted
//   - GlobalRateLimit: one bucket for every caller
//
// Example Usage:
//
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
