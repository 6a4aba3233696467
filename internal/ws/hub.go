package ws

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"channelbox/internal/models"
	"channelbox/internal/observability"
)

// AddStatus is the outcome of AddToGroup.
type AddStatus int

const (
	Added AddStatus = iota + 1
	AlreadyExists
)

func (s AddStatus) String() string {
	if s == Added {
		return "added"
	}
	return "already_exists"
}

// RemoveStatus is the outcome of RemoveFromGroup.
type RemoveStatus int

const (
	ChannelRemoved RemoveStatus = iota + 1
	GroupRemoved
	NotFound
)

func (s RemoveStatus) String() string {
	switch s {
	case ChannelRemoved:
		return "channel_removed"
	case GroupRemoved:
		return "group_removed"
	default:
		return "not_found"
	}
}

// SendStatus is the outcome of GroupSend.
type SendStatus int

const (
	Sent SendStatus = iota + 1
	NoSuchGroup
)

func (s SendStatus) String() string {
	if s == Sent {
		return "sent"
	}
	return "no_such_group"
}

type membership struct {
	conn     *Conn
	joinedAt time.Time
}

// Hub maintains named groups of websocket connections, broadcasts to them
// and prunes members that fail or go stale. Group existence implies at
// least one member.
type Hub struct {
	mu      sync.RWMutex
	groups  map[string]map[string]membership
	history *History
	now     func() time.Time
	log     *slog.Logger
}

// Option customizes a Hub.
type Option func(*Hub)

// WithHistory sets the history store used by GroupSend.
func WithHistory(history *History) Option {
	return func(h *Hub) { h.history = history }
}

// WithLogger sets the hub logger.
func WithLogger(log *slog.Logger) Option {
	return func(h *Hub) { h.log = log }
}

// WithClock overrides the time source used for membership timestamps.
func WithClock(now func() time.Time) Option {
	return func(h *Hub) { h.now = now }
}

// NewHub creates an empty hub with a default-sized history store.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		groups: make(map[string]map[string]membership),
		now:    time.Now,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.history == nil {
		h.history = NewHistory(DefaultHistorySize)
	}
	return h
}

// History returns the hub's history store.
func (h *Hub) History() *History { return h.history }

// AddToGroup registers conn under group. It reports Added when the group
// was created by this call and AlreadyExists when the group was already
// there. Re-adding a current member changes nothing.
func (h *Hub) AddToGroup(conn *Conn, group string) AddStatus {
	h.mu.Lock()
	defer h.mu.Unlock()

	status := AlreadyExists
	members, ok := h.groups[group]
	if !ok {
		members = make(map[string]membership)
		h.groups[group] = members
		status = Added
		h.log.Debug("group created", "group", group)
	}
	if _, exists := members[conn.ID()]; !exists {
		members[conn.ID()] = membership{conn: conn, joinedAt: h.now()}
	}
	observability.SetGroups(len(h.groups))
	return status
}

// RemoveFromGroup drops conn from group, deleting the group when it becomes
// empty, and then sweeps expired members from every group.
func (h *Hub) RemoveFromGroup(conn *Conn, group string) RemoveStatus {
	status := h.remove(conn.ID(), group)
	h.CleanExpired()
	return status
}

func (h *Hub) remove(connID, group string) RemoveStatus {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.groups[group]
	if !ok {
		return NotFound
	}
	if _, exists := members[connID]; !exists {
		return NotFound
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(h.groups, group)
		observability.SetGroups(len(h.groups))
		h.log.Debug("group removed", "group", group)
		return GroupRemoved
	}
	return ChannelRemoved
}

// GroupSend delivers payload to every current member of group. With
// saveHistory the payload is recorded first, whether or not anyone is
// listening. Members whose send fails are closed and removed.
func (h *Hub) GroupSend(ctx context.Context, group string, payload any, saveHistory bool) SendStatus {
	ctx, span := otel.Tracer("channelbox/ws").Start(ctx, "ws.group_send")
	defer span.End()

	if saveHistory {
		h.history.Append(group, payload)
	}

	conns := h.members(group)
	span.SetAttributes(
		attribute.String("group", group),
		attribute.Int("members", len(conns)),
		attribute.Bool("save_history", saveHistory),
	)
	if len(conns) == 0 {
		observability.IncBroadcast(NoSuchGroup.String())
		return NoSuchGroup
	}

	failed := lo.Filter(conns, func(conn *Conn, _ int) bool {
		return !conn.Send(payload)
	})
	for _, conn := range failed {
		h.log.Info("pruning member after failed send", "group", group, "conn_id", conn.ID())
		_ = conn.Close()
		h.RemoveFromGroup(conn, group)
		publishWSEvent(ctx, group, conn.Info(), "ws_error", "send failed")
	}
	span.SetAttributes(attribute.Int("failed", len(failed)))
	observability.IncBroadcast(Sent.String())
	return Sent
}

// CleanExpired removes and closes every member whose TTL has lapsed,
// deletes groups left empty and returns how many members were removed.
func (h *Hub) CleanExpired() int {
	var expired []membership

	h.mu.Lock()
	for group, members := range h.groups {
		for id, m := range members {
			if m.conn.IsExpired() {
				delete(members, id)
				expired = append(expired, m)
			}
		}
		if len(members) == 0 {
			delete(h.groups, group)
			h.log.Debug("group removed", "group", group)
		}
	}
	observability.SetGroups(len(h.groups))
	h.mu.Unlock()

	for _, m := range expired {
		_ = m.conn.Close()
		h.log.Info("expired member removed", "conn_id", m.conn.ID(), "last_active", m.conn.LastActive())
	}
	if len(expired) > 0 {
		observability.AddExpired(len(expired))
	}
	return len(expired)
}

// FlushGroups drops every group at once. Members are not closed or notified.
func (h *Hub) FlushGroups() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.groups = make(map[string]map[string]membership)
	observability.SetGroups(0)
}

// Groups returns a snapshot of every group and its members.
func (h *Hub) Groups() map[string][]models.Member {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string][]models.Member, len(h.groups))
	for group, members := range h.groups {
		out[group] = lo.MapToSlice(members, func(_ string, m membership) models.Member {
			return models.Member{
				ConnID:      m.conn.ID(),
				PayloadType: m.conn.PayloadType().String(),
				Expires:     m.conn.Expires(),
				LastActive:  m.conn.LastActive(),
				JoinedAt:    m.joinedAt,
			}
		})
	}
	return out
}

// GroupNames returns the current group names in sorted order.
func (h *Hub) GroupNames() []string {
	h.mu.RLock()
	names := lo.Keys(h.groups)
	h.mu.RUnlock()
	sort.Strings(names)
	return names
}

// MemberCount returns the number of members in group.
func (h *Hub) MemberCount(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}

// IsMember reports whether conn currently belongs to group.
func (h *Hub) IsMember(conn *Conn, group string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.groups[group][conn.ID()]
	return ok
}

func (h *Hub) members(group string) []*Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return lo.MapToSlice(h.groups[group], func(_ string, m membership) *Conn {
		return m.conn
	})
}

func publishWSEvent(ctx context.Context, group string, info ConnInfo, event, reason string) {
	observability.IncWSEvent("group", event)
	var durationMS int64
	if !info.ConnectedAt.IsZero() {
		durationMS = time.Since(info.ConnectedAt).Milliseconds()
	}
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"kind":        "group",
			"group":       group,
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": durationMS,
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}
	_ = observability.PublishEvent(ctx, observability.WSEventsRoutingKey, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload:   payload,
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}
