// Package http exposes the car audio service over a JSON API built on gin.
//
// Routes:
//   - /focus: snapshot, request, abandon, webhook registration
//   - /zones, /uids, /displays: zone layout and uid routing
//   - /zones/:zone/groups/:group/volume, /volume: volume and master mute
//   - /permissions/ducking: the ducking events allowlist
//   - /dump: plain text state dump
//
// Errors are returned as {"error": "..."} with a status derived from the
// service's sentinel errors: unknown zones and groups are 404, out of range
// volumes 400, operations unavailable in the current routing mode 409.
package http
