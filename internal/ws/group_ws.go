package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"channelbox/internal/observability"
)

// SocketConfig controls connections accepted by GroupWebSocketHandler.
type SocketConfig struct {
	Expires      time.Duration
	PayloadType  PayloadType
	WriteTimeout time.Duration
	ReadLimit    int64
	MessageRate  float64
	MessageBurst int
}

// GroupWebSocketHandler accepts websocket clients into a named group and
// relays what they send to the rest of the group.
type GroupWebSocketHandler struct {
	hub *Hub
	cfg SocketConfig
	log *slog.Logger
}

// NewGroupWebSocketHandler constructs a GroupWebSocketHandler.
func NewGroupWebSocketHandler(hub *Hub, cfg SocketConfig, log *slog.Logger) *GroupWebSocketHandler {
	RegisterValidators()
	if log == nil {
		log = slog.Default()
	}
	return &GroupWebSocketHandler{hub: hub, cfg: cfg, log: log}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// GroupURI binds the group name path parameter.
type GroupURI struct {
	Name string `uri:"group_name" binding:"required,groupname"`
}

// Handle upgrades the request, joins the group named in the path and runs
// the read loop until the client goes away.
func (h *GroupWebSocketHandler) Handle(c *gin.Context) {
	var uri GroupURI
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group name"})
		return
	}

	ctx := c.Request.Context()
	conn, wrapper, ok := h.accept(c, uri.Name)
	if !ok {
		return
	}
	info := wrapper.Info()

	observability.IncWSActive("group")
	publishWSEvent(ctx, uri.Name, info, "ws_connect", "")

	var closeReason string
	defer func() {
		h.hub.RemoveFromGroup(wrapper, uri.Name)
		_ = wrapper.Close()
		observability.DecWSActive("group")
		publishWSEvent(ctx, uri.Name, info, "ws_disconnect", closeReason)
		h.log.Debug("websocket disconnected", "group", uri.Name, "conn_id", wrapper.ID(), "reason", closeReason)
	}()

	limiter := rate.NewLimiter(rate.Limit(h.cfg.MessageRate), h.cfg.MessageBurst)
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				publishWSEvent(ctx, uri.Name, info, "ws_error", closeReason)
			}
			return
		}
		if h.cfg.MessageRate > 0 && !limiter.Allow() {
			observability.IncWSEvent("group", "rate_limited")
			h.log.Debug("inbound message dropped by rate limit", "group", uri.Name, "conn_id", wrapper.ID())
			continue
		}
		payload, ok := decodeFrame(h.cfg.PayloadType, messageType, data)
		if !ok {
			continue
		}
		h.hub.GroupSend(ctx, uri.Name, payload, true)
	}
}

func (h *GroupWebSocketHandler) accept(c *gin.Context, group string) (*websocket.Conn, *Conn, bool) {
	_, span := otel.Tracer("channelbox/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	span.SetAttributes(attribute.String("group", group))

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", "group", group, "error", err)
		return nil, nil, false
	}
	if h.cfg.ReadLimit > 0 {
		conn.SetReadLimit(h.cfg.ReadLimit)
	}

	info := ConnInfo{
		Group:       group,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	wrapper := NewConn(
		NewSocketTransport(conn, h.cfg.WriteTimeout),
		h.cfg.Expires,
		h.cfg.PayloadType,
		WithConnInfo(info),
		WithConnLogger(h.log),
	)
	status := h.hub.AddToGroup(wrapper, group)
	span.SetAttributes(attribute.String("conn_id", wrapper.ID()), attribute.String("status", status.String()))
	h.log.Info("websocket connected", "group", group, "conn_id", wrapper.ID(), "status", status.String(), "ip", info.IP)
	return conn, wrapper, true
}

// decodeFrame turns an inbound frame into a broadcast payload. Blank chat
// messages are dropped.
func decodeFrame(pt PayloadType, messageType int, data []byte) (any, bool) {
	if messageType == websocket.BinaryMessage {
		return data, len(data) > 0
	}
	text := string(data)
	if strings.TrimSpace(text) == "" {
		return nil, false
	}
	if pt == PayloadText || pt == PayloadBytes {
		return text, true
	}

	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		if pt == PayloadJSON {
			return nil, false
		}
		return text, true
	}
	if msg, ok := obj["message"].(string); ok && strings.TrimSpace(msg) == "" {
		return nil, false
	}
	return obj, true
}
