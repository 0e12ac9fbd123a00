package model

import (
	"time"

	"github.com/google/uuid"
)

// Review queue item lifecycle. Pending is the only initial status; the other
// three are terminal and an item transitions exactly once.
const (
	StatusPending   = "pending"
	StatusSent      = "sent"
	StatusDrafted   = "drafted"
	StatusDiscarded = "discarded"
)

// ReviewItem is a drafted reply held for human disposition. At most one
// entry exists per (user, message).
type ReviewItem struct {
	ID             string              `json:"id"`
	UserID         string              `json:"user_id"`
	MessageID      string              `json:"message_id"`
	ThreadID       string              `json:"thread_id"`
	Sender         string              `json:"sender"`
	Subject        string              `json:"subject"`
	Snippet        string              `json:"snippet"`
	Body           string              `json:"body"`
	DraftReply     string              `json:"draft_reply"`
	Classification QueueClassification `json:"classification"`
	Status         string              `json:"status"`
	ActionTaken    string              `json:"action_taken,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

func NewReviewItem(userID string, msg *Message, draftReply string, classification QueueClassification) *ReviewItem {
	now := time.Now()
	return &ReviewItem{
		ID:             uuid.New().String(),
		UserID:         userID,
		MessageID:      msg.ID,
		ThreadID:       msg.ThreadID,
		Sender:         msg.Sender,
		Subject:        msg.Subject,
		Snippet:        msg.Snippet,
		Body:           msg.Body,
		DraftReply:     draftReply,
		Classification: classification,
		Status:         StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
