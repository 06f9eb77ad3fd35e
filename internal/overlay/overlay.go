// Package overlay implements the in-client overlay transport (C8): a
// websocket fan-out server that pushes local trigger advice and status
// updates to any attached overlay renderer, plus the HTTP control
// surface used to reload credentials and report health.
package overlay

import "encoding/json"

// OverlayEnvelope is the wire frame pushed to every connected overlay
// client, keyed by channel so a renderer can route without parsing a
// free-form payload shape. Seq is a per-connection monotonic counter
// (starting at 1) so a reconnecting overlay window can detect gaps in
// the stream it missed while disconnected.
type OverlayEnvelope struct {
	Channel string          `json:"channel"`
	Payload json.RawMessage `json:"payload"`
	Seq     uint64          `json:"seq"`
}

// Sink is the orchestrator's (C6) write side onto the overlay
// transport. It never blocks the caller on a slow or absent client.
type Sink interface {
	Send(channel string, payload any) error
}
