package models

import "time"

// Member is a read-only view of one connection inside a group.
type Member struct {
	ConnID      string        `json:"conn_id"`
	PayloadType string        `json:"payload_type"`
	Expires     time.Duration `json:"expires"`
	LastActive  time.Time     `json:"last_active"`
	JoinedAt    time.Time     `json:"joined_at"`
}

// Group is the API view of a group and its current members.
type Group struct {
	Name    string   `json:"name"`
	Members []Member `json:"members"`
}
