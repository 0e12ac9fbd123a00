package model

import "time"

// EventRetention is how many activity log entries are kept per user.
const EventRetention = 200

// Event is one append-only activity log entry. The activity log is the only
// user-visible failure surface: every terminal pipeline branch and every
// scheduler tick writes one.
type Event struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	EventType string    `json:"event_type"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
