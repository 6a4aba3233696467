package ws

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"channelbox/internal/models"
	"channelbox/internal/observability"
)

// DefaultHistorySize is the per-group history budget in bytes.
const DefaultHistorySize = 1_048_576

// entryOverhead approximates the bytes an entry costs beyond its payload:
// the uuid string, the timestamp and slice bookkeeping.
const entryOverhead = 96

type groupHistory struct {
	entries []models.HistoryEntry
	size    int
}

// History keeps a bounded, append-only log of payloads per group. When a
// group's estimated size goes over the budget its whole log is dropped.
type History struct {
	mu     sync.Mutex
	limit  int
	groups map[string]*groupHistory
	now    func() time.Time
	log    *slog.Logger
}

// NewHistory creates a store with the given per-group budget in bytes.
// Non-positive limits fall back to DefaultHistorySize.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistorySize
	}
	return &History{
		limit:  limit,
		groups: make(map[string]*groupHistory),
		now:    time.Now,
		log:    slog.Default(),
	}
}

// Limit returns the per-group budget in bytes.
func (h *History) Limit() int { return h.limit }

// Append records payload for group and returns the stored entry.
func (h *History) Append(group string, payload any) models.HistoryEntry {
	entry := models.HistoryEntry{
		Payload:   payload,
		MessageID: uuid.NewString(),
		CreatedAt: h.now(),
	}
	size := estimateSize(payload) + entryOverhead

	h.mu.Lock()
	defer h.mu.Unlock()

	gh, ok := h.groups[group]
	if !ok {
		gh = &groupHistory{}
		h.groups[group] = gh
	}
	gh.entries = append(gh.entries, entry)
	gh.size += size

	if gh.size > h.limit {
		h.log.Info("history size exceeded, resetting group history",
			"group", group, "entries", len(gh.entries), "size", gh.size, "limit", h.limit)
		gh.entries = nil
		gh.size = 0
		observability.IncHistoryReset()
	}
	return entry
}

// Get returns a copy of group's history in append order.
func (h *History) Get(group string) []models.HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	gh, ok := h.groups[group]
	if !ok {
		return []models.HistoryEntry{}
	}
	return append([]models.HistoryEntry{}, gh.entries...)
}

// All returns a copy of every group's history.
func (h *History) All() map[string][]models.HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string][]models.HistoryEntry, len(h.groups))
	for name, gh := range h.groups {
		out[name] = append([]models.HistoryEntry{}, gh.entries...)
	}
	return out
}

// Count returns the number of entries recorded for group.
func (h *History) Count(group string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if gh, ok := h.groups[group]; ok {
		return len(gh.entries)
	}
	return 0
}

// Size returns the estimated byte size of group's history.
func (h *History) Size(group string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if gh, ok := h.groups[group]; ok {
		return gh.size
	}
	return 0
}

// Flush drops group's history.
func (h *History) Flush(group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.groups, group)
}

// FlushAll drops every group's history.
func (h *History) FlushAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.groups = make(map[string]*groupHistory)
}

func estimateSize(payload any) int {
	switch v := payload.(type) {
	case nil:
		return 0
	case string:
		return len(v)
	case []byte:
		return len(v)
	}
	if b, err := json.Marshal(payload); err == nil {
		return len(b)
	}
	return len(fmt.Sprintf("%v", payload))
}
