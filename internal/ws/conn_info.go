package ws

import "time"

// ConnInfo is request metadata captured at handshake and attached to
// lifecycle events for the connection.
type ConnInfo struct {
	ConnID      string
	Group       string
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
