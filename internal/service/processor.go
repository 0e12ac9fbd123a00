package service

import (
	"context"
	"fmt"
	"time"

	"inbox-autopilot/internal/autonomy"
	"inbox-autopilot/internal/logger"
	"inbox-autopilot/internal/model"
	"inbox-autopilot/internal/repository"
)

type processor struct {
	mail          MailClient
	classifier    Classifier
	drafter       Drafter
	calendar      CalendarClient
	drive         DriveClient
	processedRepo repository.ProcessedRepository
	reviewRepo    repository.ReviewRepository
	eventRepo     repository.EventRepository
	settingsRepo  repository.SettingsRepository
	contactRepo   repository.ContactRepository
	logger        *logger.Logger
}

func NewProcessor(
	mail MailClient,
	classifier Classifier,
	drafter Drafter,
	calendar CalendarClient,
	drive DriveClient,
	processedRepo repository.ProcessedRepository,
	reviewRepo repository.ReviewRepository,
	eventRepo repository.EventRepository,
	settingsRepo repository.SettingsRepository,
	contactRepo repository.ContactRepository,
	logger *logger.Logger,
) Processor {
	return &processor{
		mail:          mail,
		classifier:    classifier,
		drafter:       drafter,
		calendar:      calendar,
		drive:         drive,
		processedRepo: processedRepo,
		reviewRepo:    reviewRepo,
		eventRepo:     eventRepo,
		settingsRepo:  settingsRepo,
		contactRepo:   contactRepo,
		logger:        logger.Tagged("processor"),
	}
}

// ProcessMessage runs one message through the full pipeline. Every exit
// path is terminal: it writes exactly one dedup record, one activity log
// entry and returns exactly one result. Context gathering is best effort
// and never fails the run; drafting is the only hard failure.
func (p *processor) ProcessMessage(ctx context.Context, user *model.User, settings model.Settings, msg *model.Message) *model.ProcessResult {
	if done, err := p.processedRepo.IsProcessed(ctx, user.ID, msg.ID); err != nil {
		p.logger.Errorf("Dedup lookup failed for message %s: %v", msg.ID, err)
		return p.result(msg, model.ResultError, fmt.Sprintf("dedup lookup failed: %v", err))
	} else if done {
		return p.result(msg, model.ResultSkipped, "already processed")
	}

	classification := p.classifier.Classify(ctx, msg, settings.Model)
	if classification.Fallback {
		p.logger.Warnf("Using fallback classification for message %s: %s", msg.ID, classification.Reasoning)
	}

	if !classification.NeedsReply {
		p.finalize(ctx, user, msg)
		p.logEvent(ctx, user.ID, "skipped", fmt.Sprintf("Skipped %q from %s - no reply needed", msg.Subject, msg.Sender))
		return p.result(msg, model.ResultSkipped, "No reply needed")
	}

	draftCtx := p.gatherContext(ctx, user, settings, msg, classification)

	draft := p.drafter.Draft(ctx, msg, classification, draftCtx.DraftContext, settings.Model)
	if draft == "" {
		p.finalize(ctx, user, msg)
		p.logEvent(ctx, user.ID, "error", fmt.Sprintf("Could not draft a reply to %q from %s", msg.Subject, msg.Sender))
		return p.result(msg, model.ResultError, "draft generation failed")
	}

	decision := autonomy.Route(classification, settings.AutonomyLevel, len(draftCtx.attachments) > 0, settings.LowConfidenceThreshold)

	switch decision.Action {
	case autonomy.ActionSend:
		return p.executeSend(ctx, user, msg, draft, classification, decision, draftCtx)
	case autonomy.ActionSkip:
		p.finalize(ctx, user, msg)
		p.logEvent(ctx, user.ID, "skipped", fmt.Sprintf("Skipped %q from %s - %s", msg.Subject, msg.Sender, decision.Reason))
		return p.result(msg, model.ResultSkipped, decision.Reason)
	default:
		return p.enqueueForReview(ctx, user, msg, draft, classification, decision.Reason, draftCtx)
	}
}

// draftContext bundles the public DraftContext with the attachments it was
// derived from; the attachments themselves matter for routing and sending.
type draftContext struct {
	DraftContext
	attachments []*model.Attachment
}

func (p *processor) gatherContext(ctx context.Context, user *model.User, settings model.Settings, msg *model.Message, classification model.Classification) draftContext {
	var dc draftContext

	if classification.NeedsCalendar {
		dc.CalendarSlots = p.calendar.FreeSlots(ctx, user.Email, classification.CalendarDays(), settings.Timezone)
	}
	if classification.NeedsDrive && classification.DriveQuery != "" {
		dc.attachments = p.drive.SearchAttachments(ctx, user.Email, classification.DriveQuery)
		dc.AttachmentNames = model.AttachmentNames(dc.attachments)
	}

	if params, err := p.settingsRepo.GetParams(ctx, user.ID); err == nil {
		dc.VoiceTraits = params.VoiceProfile.Traits
	}
	if contact, err := p.contactRepo.FindByEmail(ctx, user.ID, msg.SenderAddress()); err == nil && contact != nil {
		dc.Formality = contact.FormalityLevel
	}

	return dc
}

func (p *processor) executeSend(ctx context.Context, user *model.User, msg *model.Message, draft string, classification model.Classification, decision autonomy.Decision, dc draftContext) *model.ProcessResult {
	err := p.mail.SendReply(ctx, user.Email, msg.ThreadID, msg.SenderAddress(), msg.ReplySubject(), draft, dc.attachments)
	if err != nil {
		// A send failure downgrades to review so the draft is not lost.
		p.logger.Errorf("Send failed for message %s, queueing for review: %v", msg.ID, err)
		reason := fmt.Sprintf("Send failed (%v) - queued for review", err)
		return p.enqueueForReview(ctx, user, msg, draft, classification, reason, dc)
	}

	if err := p.mail.MarkRead(ctx, user.Email, msg.ID); err != nil {
		p.logger.Warnf("Could not mark message %s read: %v", msg.ID, err)
	}

	p.finalize(ctx, user, msg)
	p.logEvent(ctx, user.ID, "auto_sent", fmt.Sprintf("Auto-sent reply to %s for %q", msg.Sender, msg.Subject))
	return p.result(msg, model.ResultSent, decision.Reason)
}

func (p *processor) enqueueForReview(ctx context.Context, user *model.User, msg *model.Message, draft string, classification model.Classification, reason string, dc draftContext) *model.ProcessResult {
	item := model.NewReviewItem(user.ID, msg, draft, model.QueueClassification{
		Classification:  classification,
		RoutingReason:   reason,
		HasAttachments:  len(dc.attachments) > 0,
		AttachmentNames: dc.AttachmentNames,
	})

	if err := p.reviewRepo.Create(ctx, item); err != nil {
		p.logger.Errorf("Failed to queue message %s for review: %v", msg.ID, err)
		p.finalize(ctx, user, msg)
		p.logEvent(ctx, user.ID, "error", fmt.Sprintf("Could not queue %q from %s for review", msg.Subject, msg.Sender))
		return p.result(msg, model.ResultError, fmt.Sprintf("failed to queue for review: %v", err))
	}

	if err := p.mail.MarkRead(ctx, user.Email, msg.ID); err != nil {
		p.logger.Warnf("Could not mark message %s read: %v", msg.ID, err)
	}

	p.finalize(ctx, user, msg)
	p.logEvent(ctx, user.ID, "queued", fmt.Sprintf("Queued %q from %s for review: %s", msg.Subject, msg.Sender, reason))
	return p.result(msg, model.ResultReview, reason)
}

// finalize writes the dedup record. Insert-if-absent, so a concurrent run
// of the same message cannot double-record.
func (p *processor) finalize(ctx context.Context, user *model.User, msg *model.Message) {
	record := &model.ProcessedRecord{
		UserID:      user.ID,
		MessageID:   msg.ID,
		ThreadID:    msg.ThreadID,
		ProcessedAt: time.Now(),
	}
	if _, err := p.processedRepo.MarkProcessed(ctx, record); err != nil {
		p.logger.Errorf("Failed to record message %s as processed: %v", msg.ID, err)
	}
}

func (p *processor) logEvent(ctx context.Context, userID, eventType, message string) {
	if err := p.eventRepo.Append(ctx, userID, eventType, message); err != nil {
		p.logger.Errorf("Failed to append activity log entry: %v", err)
	}
}

func (p *processor) result(msg *model.Message, action, reason string) *model.ProcessResult {
	return &model.ProcessResult{
		MessageID: msg.ID,
		Action:    action,
		Reason:    reason,
		Sender:    msg.Sender,
		Subject:   msg.Subject,
	}
}
