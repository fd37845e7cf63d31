// Package ws streams focus and volume events to WebSocket clients.
//
// A connection subscribes with ?client_id=<focus client id>; it then receives
// that client's focus changes and request results, plus every volume and mute
// change. Connections without client_id receive only the broadcasts.
//
// Message Types (Client → Server):
//   - ping: Keep-alive ping
//
// Message Types (Server → Client):
//   - welcome: Subscriber id assigned
//   - focus_change: Gain or loss for the subscribed client
//   - request_result: Outcome of the client's focus request
//   - group_volume_changed: A zone's volume group index changed
//   - master_mute_changed: Master mute toggled
//   - pong, error
//
// Example Usage:
//
//	hub := ws.NewHub(logger, metrics)
//	svc.RegisterVolumeListener(hub)
//	router.GET("/ws", hub.HandleConnection)
package ws
