package model

import "time"

// ProcessedRecord is one dedup ledger entry: written exactly once per
// (user, message) at the end of a pipeline run that reached a terminal
// outcome. Never updated or deleted except by retention policy.
type ProcessedRecord struct {
	UserID      string    `json:"user_id"`
	MessageID   string    `json:"message_id"`
	ThreadID    string    `json:"thread_id"`
	ProcessedAt time.Time `json:"processed_at"`
}

// ProcessResult summarizes one pipeline run over one message.
type ProcessResult struct {
	MessageID string `json:"message_id"`
	Action    string `json:"action"` // sent | review | skipped | error
	Reason    string `json:"reason"`
	Sender    string `json:"sender,omitempty"`
	Subject   string `json:"subject,omitempty"`
}

// Pipeline terminal actions.
const (
	ResultSent    = "sent"
	ResultReview  = "review"
	ResultSkipped = "skipped"
	ResultError   = "error"
)
