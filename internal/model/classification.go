package model

// SenderPriority buckets the sender of a message by how much their mail matters.
type SenderPriority string

const (
	PriorityHigh    SenderPriority = "high"
	PriorityMedium  SenderPriority = "medium"
	PriorityLow     SenderPriority = "low"
	PriorityUnknown SenderPriority = "unknown"
)

const (
	DefaultCalendarDays = 7
	MinCalendarDays     = 1
	MaxCalendarDays     = 60
)

// Classification is the structured verdict the classification oracle produces
// for one message. It is a value type: enriched copies are created, never
// edited in place. Fallback marks a classification synthesized after the
// oracle failed; it always routes to review via the unknown-sender rule.
type Classification struct {
	NeedsReply            bool           `json:"needs_reply"`
	SenderPriority        SenderPriority `json:"sender_priority"`
	Confidence            float64        `json:"confidence"`
	IsCritical            bool           `json:"is_critical"`
	NeedsCalendar         bool           `json:"needs_calendar"`
	CalendarDaysRequested int            `json:"calendar_days_requested,omitempty"`
	NeedsDrive            bool           `json:"needs_gdrive"`
	DriveQuery            string         `json:"gdrive_query,omitempty"`
	Reasoning             string         `json:"reasoning"`
	Fallback              bool           `json:"fallback,omitempty"`
}

// FallbackClassification is the safe degraded verdict used when the oracle
// fails after retries. needs_reply=true plus an unknown sender guarantees the
// message lands in the review queue instead of being dropped.
func FallbackClassification(reason string) Classification {
	return Classification{
		NeedsReply:     true,
		SenderPriority: PriorityUnknown,
		Confidence:     0,
		Reasoning:      reason,
		Fallback:       true,
	}
}

// CalendarDays returns the requested availability window clamped to the
// allowed range, defaulting when the oracle omitted it.
func (c Classification) CalendarDays() int {
	days := c.CalendarDaysRequested
	if days == 0 {
		days = DefaultCalendarDays
	}
	if days < MinCalendarDays {
		days = MinCalendarDays
	}
	if days > MaxCalendarDays {
		days = MaxCalendarDays
	}
	return days
}

// QueueClassification is the classification snapshot persisted with a review
// queue item, augmented with the routing outcome and resolved attachments.
type QueueClassification struct {
	Classification
	RoutingReason   string   `json:"routing_reason"`
	HasAttachments  bool     `json:"has_attachments"`
	AttachmentNames []string `json:"attachment_names,omitempty"`
}
