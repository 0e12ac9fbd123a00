package ai

import (
	"context"
	"fmt"
	"strings"

	"inbox-autopilot/internal/model"
	"inbox-autopilot/internal/service"
)

const draftBodyLimit = 2000

// ReplyDrafter writes reply bodies in the user's voice. A failed or empty
// drafting attempt is reported as an empty string.
type ReplyDrafter struct {
	client *Client
}

func NewReplyDrafter(client *Client) *ReplyDrafter {
	return &ReplyDrafter{client: client}
}

func (rd *ReplyDrafter) Draft(ctx context.Context, msg *model.Message, classification model.Classification, draftCtx service.DraftContext, modelName string) string {
	system := buildDraftSystemPrompt(draftCtx)
	prompt := buildDraftPrompt(msg, classification, draftCtx)

	raw, err := rd.client.complete(ctx, modelName, system, prompt, 800)
	if err != nil {
		rd.client.logger.Errorf("Drafting failed for message %s: %v", msg.ID, err)
		return ""
	}
	return strings.TrimSpace(stripCodeFences(raw))
}

func buildDraftSystemPrompt(draftCtx service.DraftContext) string {
	var sb strings.Builder
	sb.WriteString("You write email replies on behalf of the account owner. ")
	sb.WriteString("Respond with the reply body only: no subject line, no markdown, no explanation.\n")
	if draftCtx.VoiceTraits != "" {
		sb.WriteString("\nWrite in the owner's voice:\n")
		sb.WriteString(draftCtx.VoiceTraits)
		sb.WriteString("\n")
	}
	if draftCtx.Formality != "" {
		fmt.Fprintf(&sb, "\nThe owner's relationship with this sender is %s; match that register.\n", draftCtx.Formality)
	}
	return sb.String()
}

func buildDraftPrompt(msg *model.Message, classification model.Classification, draftCtx service.DraftContext) string {
	body := model.Truncate(msg.Body, draftBodyLimit)

	var sb strings.Builder
	sb.WriteString("Write a reply to this email.\n\n")
	fmt.Fprintf(&sb, "From: %s\n", msg.Sender)
	fmt.Fprintf(&sb, "Subject: %s\n", msg.Subject)
	fmt.Fprintf(&sb, "\nBody:\n%s\n", body)
	if msg.ThreadContext != "" {
		fmt.Fprintf(&sb, "\nEarlier messages in this thread:\n%s\n", msg.ThreadContext)
	}
	if classification.NeedsCalendar && draftCtx.CalendarSlots != "" {
		fmt.Fprintf(&sb, "\nThe owner's availability, if the sender asked to meet:\n%s\n", draftCtx.CalendarSlots)
		sb.WriteString("Offer two or three of these slots, do not list all of them.\n")
	}
	if len(draftCtx.AttachmentNames) > 0 {
		fmt.Fprintf(&sb, "\nThe reply will include these attachments, mention them naturally: %s\n",
			strings.Join(draftCtx.AttachmentNames, ", "))
	}
	if classification.Reasoning != "" {
		fmt.Fprintf(&sb, "\nContext: %s\n", classification.Reasoning)
	}
	return sb.String()
}
