package handlers

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"channelbox/internal/models"
	"channelbox/internal/telemetry"
	"channelbox/internal/ws"
)

// GroupHandler exposes the hub and its history over HTTP.
type GroupHandler struct {
	hub   *ws.Hub
	audit *telemetry.AuditEmitter
}

// NewGroupHandler constructs a GroupHandler.
func NewGroupHandler(hub *ws.Hub, audit *telemetry.AuditEmitter) *GroupHandler {
	ws.RegisterValidators()
	return &GroupHandler{hub: hub, audit: audit}
}

// Register wires the group routes onto router.
func (h *GroupHandler) Register(router gin.IRouter) {
	router.GET("/groups", h.ListGroups)
	router.DELETE("/groups", h.FlushGroups)
	router.POST("/groups/:group_name/messages", h.SendMessage)
	router.GET("/groups/:group_name/history", h.GetGroupHistory)
	router.DELETE("/groups/:group_name/history", h.FlushGroupHistory)
	router.GET("/history", h.GetHistory)
	router.DELETE("/history", h.FlushHistory)
	router.POST("/clean-expired", h.CleanExpired)
}

// ListGroups returns every group with its members.
func (h *GroupHandler) ListGroups(c *gin.Context) {
	snapshot := h.hub.Groups()
	groups := make([]models.Group, 0, len(snapshot))
	for name, members := range snapshot {
		groups = append(groups, models.Group{Name: name, Members: members})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

// FlushGroups drops every group.
func (h *GroupHandler) FlushGroups(c *gin.Context) {
	h.hub.FlushGroups()
	h.emitAudit(c, "flush_groups", "", "Groups flushed")
	c.JSON(http.StatusOK, gin.H{"flush": "success"})
}

// SendMessage broadcasts a payload to a group from outside any socket.
func (h *GroupHandler) SendMessage(c *gin.Context) {
	group, ok := bindGroup(c)
	if !ok {
		return
	}

	var req models.SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status := h.hub.GroupSend(c.Request.Context(), group, req.Payload, req.SaveHistory)
	c.JSON(http.StatusOK, gin.H{"status": status.String()})
}

// GetGroupHistory returns one group's history.
func (h *GroupHandler) GetGroupHistory(c *gin.Context) {
	group, ok := bindGroup(c)
	if !ok {
		return
	}
	history := h.hub.History()
	entries := history.Get(group)
	c.JSON(http.StatusOK, gin.H{"group": group, "count": len(entries), "history": entries})
}

// FlushGroupHistory drops one group's history.
func (h *GroupHandler) FlushGroupHistory(c *gin.Context) {
	group, ok := bindGroup(c)
	if !ok {
		return
	}
	h.hub.History().Flush(group)
	h.emitAudit(c, "flush_history", group, "Group history flushed")
	c.JSON(http.StatusOK, gin.H{"flush": "success"})
}

// GetHistory returns every group's history.
func (h *GroupHandler) GetHistory(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"history": h.hub.History().All()})
}

// FlushHistory drops all history.
func (h *GroupHandler) FlushHistory(c *gin.Context) {
	h.hub.History().FlushAll()
	h.emitAudit(c, "flush_history", "", "History flushed")
	c.JSON(http.StatusOK, gin.H{"flush": "success"})
}

// CleanExpired runs an expiry sweep immediately.
func (h *GroupHandler) CleanExpired(c *gin.Context) {
	removed := h.hub.CleanExpired()
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

func (h *GroupHandler) emitAudit(c *gin.Context, action, group, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), telemetry.AuditRecord{
		Level:     "INFO",
		Action:    action,
		Group:     group,
		Text:      text,
		RequestID: requestIDFromContext(c),
	})
}

func bindGroup(c *gin.Context) (string, bool) {
	var uri ws.GroupURI
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group name"})
		return "", false
	}
	return uri.Name, true
}
