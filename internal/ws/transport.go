package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// socketTransport adapts a gorilla websocket connection to Transport.
// gorilla allows a single concurrent writer, so writes are serialized here.
type socketTransport struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	mu           sync.Mutex
}

// NewSocketTransport wraps conn. A positive writeTimeout sets a deadline on
// every frame.
func NewSocketTransport(conn *websocket.Conn, writeTimeout time.Duration) Transport {
	return &socketTransport{conn: conn, writeTimeout: writeTimeout}
}

func (t *socketTransport) SendJSON(v any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.deadline(); err != nil {
		return err
	}
	return t.conn.WriteJSON(v)
}

func (t *socketTransport) SendText(s string) error {
	return t.write(websocket.TextMessage, []byte(s))
}

func (t *socketTransport) SendBytes(b []byte) error {
	return t.write(websocket.BinaryMessage, b)
}

// Send picks the frame type from the value: bytes go out binary, strings as
// text, anything else as JSON.
func (t *socketTransport) Send(v any) error {
	switch p := v.(type) {
	case []byte:
		return t.SendBytes(p)
	case string:
		return t.SendText(p)
	default:
		return t.SendJSON(v)
	}
}

func (t *socketTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_ = t.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return t.conn.Close()
}

func (t *socketTransport) write(messageType int, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.deadline(); err != nil {
		return err
	}
	return t.conn.WriteMessage(messageType, data)
}

func (t *socketTransport) deadline() error {
	if t.writeTimeout <= 0 {
		return nil
	}
	return t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
}
