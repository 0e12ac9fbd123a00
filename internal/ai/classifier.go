package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"inbox-autopilot/internal/model"
)

const classifySystemPrompt = `You are an email triage assistant. You analyze incoming emails and respond with a strict JSON object, no markdown, no commentary.`

const classifySchema = `Respond with ONLY a JSON object matching this schema:
{
  "needs_reply": boolean,        // does this email expect a response from the recipient?
  "sender_priority": string,     // one of "high", "medium", "low", "unknown"
  "confidence": number,          // 0.0 to 1.0, your confidence in this classification
  "is_critical": boolean,        // does this involve money, legal matters, deadlines, or emergencies?
  "needs_calendar": boolean,     // does replying require knowing the recipient's availability?
  "calendar_days_requested": number, // how many days ahead of availability are relevant (default 7)
  "needs_gdrive": boolean,       // does replying require attaching a document the recipient owns?
  "gdrive_query": string,        // short search phrase for that document, empty if none
  "reasoning": string            // one sentence explaining the classification
}`

// EmailClassifier turns raw email content into a structured triage decision.
// It never returns an error: when the provider fails after retries or sends
// back garbage, it degrades to a conservative fallback that forces review.
type EmailClassifier struct {
	client *Client
}

func NewEmailClassifier(client *Client) *EmailClassifier {
	return &EmailClassifier{client: client}
}

func (ec *EmailClassifier) Classify(ctx context.Context, msg *model.Message, modelName string) model.Classification {
	prompt := buildClassifyPrompt(msg)

	raw, err := ec.client.completeWithRetry(ctx, modelName, classifySystemPrompt, prompt, 500)
	if err != nil {
		ec.client.logger.Errorf("Classification failed for message %s: %v", msg.ID, err)
		return model.FallbackClassification(fmt.Sprintf("classifier error: %v", err))
	}

	classification, err := parseClassification(raw)
	if err != nil {
		ec.client.logger.Errorf("Classification unparseable for message %s: %v", msg.ID, err)
		return model.FallbackClassification(fmt.Sprintf("unparseable classifier output: %v", err))
	}
	return classification
}

func buildClassifyPrompt(msg *model.Message) string {
	var sb strings.Builder
	sb.WriteString("Classify this email.\n\n")
	fmt.Fprintf(&sb, "From: %s\n", msg.Sender)
	fmt.Fprintf(&sb, "Subject: %s\n", msg.Subject)
	fmt.Fprintf(&sb, "Received: %s\n", msg.ReceivedAt.Format(time.RFC1123))
	if msg.HasAttachments {
		sb.WriteString("Has attachments: yes\n")
	}
	fmt.Fprintf(&sb, "\nBody:\n%s\n", msg.Body)
	if msg.ThreadContext != "" {
		fmt.Fprintf(&sb, "\nEarlier messages in this thread:\n%s\n", msg.ThreadContext)
	}
	sb.WriteString("\n" + classifySchema)
	return sb.String()
}

// rawClassification mirrors the JSON schema the model is told to follow.
// Pointer fields distinguish "absent" from zero values for required keys.
type rawClassification struct {
	NeedsReply            *bool    `json:"needs_reply"`
	SenderPriority        *string  `json:"sender_priority"`
	Confidence            *float64 `json:"confidence"`
	IsCritical            bool     `json:"is_critical"`
	NeedsCalendar         bool     `json:"needs_calendar"`
	CalendarDaysRequested int      `json:"calendar_days_requested"`
	NeedsDrive            bool     `json:"needs_gdrive"`
	DriveQuery            string   `json:"gdrive_query"`
	Reasoning             string   `json:"reasoning"`
}

func parseClassification(output string) (model.Classification, error) {
	cleaned := stripCodeFences(output)

	var raw rawClassification
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return model.Classification{}, fmt.Errorf("invalid JSON: %w", err)
	}
	if raw.NeedsReply == nil || raw.SenderPriority == nil || raw.Confidence == nil {
		return model.Classification{}, fmt.Errorf("missing required keys in classifier output")
	}

	confidence := *raw.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return model.Classification{
		NeedsReply:            *raw.NeedsReply,
		SenderPriority:        normalizePriority(*raw.SenderPriority),
		Confidence:            confidence,
		IsCritical:            raw.IsCritical,
		NeedsCalendar:         raw.NeedsCalendar,
		CalendarDaysRequested: raw.CalendarDaysRequested,
		NeedsDrive:            raw.NeedsDrive,
		DriveQuery:            strings.TrimSpace(raw.DriveQuery),
		Reasoning:             strings.TrimSpace(raw.Reasoning),
	}, nil
}

func normalizePriority(priority string) model.SenderPriority {
	switch strings.ToLower(strings.TrimSpace(priority)) {
	case "high":
		return model.PriorityHigh
	case "medium":
		return model.PriorityMedium
	case "low":
		return model.PriorityLow
	default:
		return model.PriorityUnknown
	}
}
