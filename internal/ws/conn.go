package ws

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"channelbox/internal/observability"
)

// PayloadType selects how a Conn encodes outgoing payloads.
type PayloadType int

const (
	// PayloadUnset falls back to the transport's generic Send.
	PayloadUnset PayloadType = iota
	PayloadJSON
	PayloadText
	PayloadBytes
)

func (p PayloadType) String() string {
	switch p {
	case PayloadJSON:
		return "json"
	case PayloadText:
		return "text"
	case PayloadBytes:
		return "bytes"
	default:
		return "unset"
	}
}

// ParsePayloadType maps the configuration spelling of a payload type.
func ParsePayloadType(s string) (PayloadType, error) {
	switch s {
	case "json":
		return PayloadJSON, nil
	case "text":
		return PayloadText, nil
	case "bytes":
		return PayloadBytes, nil
	case "", "unset":
		return PayloadUnset, nil
	}
	return PayloadUnset, fmt.Errorf("unknown payload type %q", s)
}

// Transport is the live connection a Conn writes to.
// Every method may fail; a Conn treats all failures the same way.
type Transport interface {
	SendJSON(v any) error
	SendText(s string) error
	SendBytes(b []byte) error
	Send(v any) error
	Close() error
}

// Conn wraps one transport with an identity and a TTL.
type Conn struct {
	id          string
	expires     time.Duration
	payloadType PayloadType
	transport   Transport
	info        ConnInfo
	now         func() time.Time
	log         *slog.Logger

	sendMu     sync.Mutex
	mu         sync.Mutex
	lastActive time.Time
	closeOnce  sync.Once
}

// ConnOption customizes a Conn.
type ConnOption func(*Conn)

// WithConnInfo attaches request metadata used in lifecycle events.
func WithConnInfo(info ConnInfo) ConnOption {
	return func(c *Conn) { c.info = info }
}

// WithConnClock overrides the time source.
func WithConnClock(now func() time.Time) ConnOption {
	return func(c *Conn) { c.now = now }
}

// WithConnLogger sets the logger used for transport failures.
func WithConnLogger(log *slog.Logger) ConnOption {
	return func(c *Conn) { c.log = log }
}

// NewConn wraps t. A zero expires makes the connection stale as soon as
// the clock moves past its last activity.
func NewConn(t Transport, expires time.Duration, payloadType PayloadType, opts ...ConnOption) *Conn {
	c := &Conn{
		id:          uuid.NewString(),
		expires:     expires,
		payloadType: payloadType,
		transport:   t,
		now:         time.Now,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.lastActive = c.now()
	if c.info.ConnID == "" {
		c.info.ConnID = c.id
	}
	if c.info.ConnectedAt.IsZero() {
		c.info.ConnectedAt = c.lastActive
	}
	return c
}

func (c *Conn) ID() string               { return c.id }
func (c *Conn) Expires() time.Duration   { return c.expires }
func (c *Conn) PayloadType() PayloadType { return c.payloadType }
func (c *Conn) Info() ConnInfo           { return c.info }

// LastActive returns the time of the last successful send.
func (c *Conn) LastActive() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActive
}

// Send writes payload using the connection's payload type and reports
// whether the transport accepted it. Transport errors never escape.
func (c *Conn) Send(payload any) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	var err error
	switch c.payloadType {
	case PayloadJSON:
		err = c.transport.SendJSON(payload)
	case PayloadText:
		var text string
		if text, err = textOf(payload); err == nil {
			err = c.transport.SendText(text)
		}
	case PayloadBytes:
		var data []byte
		if data, err = bytesOf(payload); err == nil {
			err = c.transport.SendBytes(data)
		}
	default:
		err = c.transport.Send(payload)
	}
	if err != nil {
		c.log.Debug("websocket send failed", "conn_id", c.id, "payload_type", c.payloadType.String(), "error", err)
		observability.IncWSSend("failed")
		return false
	}

	c.mu.Lock()
	if now := c.now(); now.After(c.lastActive) {
		c.lastActive = now
	}
	c.mu.Unlock()
	observability.IncWSSend("ok")
	return true
}

// IsExpired reports whether the TTL has lapsed since the last activity.
func (c *Conn) IsExpired() bool {
	c.mu.Lock()
	last := c.lastActive
	c.mu.Unlock()
	return last.Add(c.expires).Before(c.now())
}

// Close closes the underlying transport. Later calls are no-ops.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.transport.Close()
	})
	return err
}

func (c *Conn) String() string {
	return fmt.Sprintf("Conn id=%s expires=%s payload_type=%s", c.id, c.expires, c.payloadType)
}

func textOf(payload any) (string, error) {
	switch v := payload.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case fmt.Stringer:
		return v.String(), nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode text payload: %w", err)
	}
	return string(b), nil
}

func bytesOf(payload any) ([]byte, error) {
	switch v := payload.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode binary payload: %w", err)
	}
	return b, nil
}
