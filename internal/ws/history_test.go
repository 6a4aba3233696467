package ws

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryAppendKeepsOrder(t *testing.T) {
	h := NewHistory(DefaultHistorySize)

	first := h.Append("room1", "one")
	second := h.Append("room1", map[string]any{"n": 2})

	entries := h.Get("room1")
	require.Len(t, entries, 2)
	assert.Equal(t, "one", entries[0].Payload)
	assert.Equal(t, map[string]any{"n": 2}, entries[1].Payload)
	assert.NotEqual(t, first.MessageID, second.MessageID)
	assert.False(t, entries[0].CreatedAt.After(entries[1].CreatedAt))
}

func TestHistoryGetUnknownGroup(t *testing.T) {
	h := NewHistory(DefaultHistorySize)

	entries := h.Get("missing")
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
	assert.Equal(t, 0, h.Count("missing"))
}

func TestHistoryGetReturnsCopy(t *testing.T) {
	h := NewHistory(DefaultHistorySize)
	h.Append("room1", "one")

	entries := h.Get("room1")
	entries[0].Payload = "changed"

	assert.Equal(t, "one", h.Get("room1")[0].Payload)
}

func TestHistoryResetsGroupOverBudget(t *testing.T) {
	h := NewHistory(1000)
	payload := strings.Repeat("x", 200)

	for i := 0; i < 3; i++ {
		h.Append("room1", payload)
	}
	h.Append("room2", payload)
	require.Equal(t, 3, h.Count("room1"))
	assert.Equal(t, 3*(200+entryOverhead), h.Size("room1"))

	h.Append("room1", payload)

	assert.Equal(t, 0, h.Count("room1"))
	assert.Equal(t, 0, h.Size("room1"))
	assert.Equal(t, 1, h.Count("room2"), "other groups keep their history")

	h.Append("room1", payload)
	assert.Equal(t, 1, h.Count("room1"))
}

func TestHistoryFlush(t *testing.T) {
	h := NewHistory(DefaultHistorySize)
	h.Append("room1", "a")
	h.Append("room2", "b")

	h.Flush("room1")
	assert.Equal(t, 0, h.Count("room1"))
	assert.Equal(t, 1, h.Count("room2"))

	h.FlushAll()
	assert.Empty(t, h.All())
}

func TestHistoryAll(t *testing.T) {
	h := NewHistory(DefaultHistorySize)
	h.Append("room1", "a")
	h.Append("room2", "b")
	h.Append("room2", "c")

	all := h.All()
	require.Len(t, all, 2)
	assert.Len(t, all["room1"], 1)
	assert.Len(t, all["room2"], 2)
}

func TestNewHistoryDefaultLimit(t *testing.T) {
	assert.Equal(t, DefaultHistorySize, NewHistory(0).Limit())
	assert.Equal(t, 512, NewHistory(512).Limit())
}

func TestEstimateSize(t *testing.T) {
	assert.Equal(t, 0, estimateSize(nil))
	assert.Equal(t, 5, estimateSize("hello"))
	assert.Equal(t, 3, estimateSize([]byte{1, 2, 3}))
	assert.Equal(t, len(`{"a":1}`), estimateSize(map[string]any{"a": 1}))
	assert.Positive(t, estimateSize(make(chan int)))
}
