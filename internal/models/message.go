package models

import "time"

// HistoryEntry is one payload recorded in a group's history.
type HistoryEntry struct {
	Payload   any       `json:"payload"`
	MessageID string    `json:"message_id"`
	CreatedAt time.Time `json:"created_at"`
}

// SendRequest is the body accepted by the group send endpoint.
type SendRequest struct {
	Payload     any  `json:"payload" binding:"required"`
	SaveHistory bool `json:"save_history"`
}
