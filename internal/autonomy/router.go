// Package autonomy decides what happens to a classified message: send the
// reply autonomously, queue it for human review, or skip it.
//
// Levels:
//
//	1 = everything goes to the review queue
//	2 = review on low confidence or critical mail, send otherwise
//	3 = fully autonomous
//
// Two hard rules override every level, including level 3: an unknown sender
// and a reply carrying an attachment always go to review.
package autonomy

import (
	"fmt"

	"inbox-autopilot/internal/model"
)

type Action string

const (
	ActionSend   Action = "send"
	ActionReview Action = "review"
	ActionSkip   Action = "skip"
)

// DefaultConfidenceThreshold is the low-confidence cutoff used when the user
// has not configured one.
const DefaultConfidenceThreshold = 0.70

// Decision is the routing outcome. Reason is always populated and
// human-readable; it travels with the queue item so the reviewer sees why the
// message needed their eyes.
type Decision struct {
	Action Action `json:"action"`
	Reason string `json:"reason"`
}

// Route maps a classification to a decision. Pure, no I/O: first matching
// rule wins, hard rules before level rules.
func Route(c model.Classification, level int, hasAttachmentsToSend bool, threshold float64) Decision {
	if !c.NeedsReply {
		return Decision{ActionSkip, "No reply needed"}
	}

	if c.SenderPriority == model.PriorityUnknown {
		return Decision{ActionReview, "Unknown sender - always review"}
	}

	if hasAttachmentsToSend {
		return Decision{ActionReview, "Has attachment - always review"}
	}

	switch level {
	case 1:
		return Decision{ActionReview, "All emails reviewed at this level"}
	case 2:
		if c.Confidence < threshold {
			return Decision{ActionReview, fmt.Sprintf("Low confidence (%.0f%%) - review required", c.Confidence*100)}
		}
		if c.IsCritical {
			return Decision{ActionReview, "Critical email - review required"}
		}
		return Decision{ActionSend, "High confidence, known sender, not critical"}
	case 3:
		return Decision{ActionSend, "Fully autonomous"}
	}

	// Fail safe on any level value we don't recognize.
	return Decision{ActionReview, "Unrecognized policy level - defaulting to review"}
}
