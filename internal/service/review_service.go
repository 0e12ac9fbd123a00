package service

import (
	"context"
	"fmt"

	"inbox-autopilot/internal/logger"
	"inbox-autopilot/internal/model"
	"inbox-autopilot/internal/repository"
)

// Review queue actions.
const (
	ActionSend    = "send"
	ActionDraft   = "draft"
	ActionDiscard = "discard"
)

type reviewService struct {
	reviewRepo repository.ReviewRepository
	eventRepo  repository.EventRepository
	userRepo   repository.UserRepository
	mail       MailClient
	drive      DriveClient
	logger     *logger.Logger
}

func NewReviewService(
	reviewRepo repository.ReviewRepository,
	eventRepo repository.EventRepository,
	userRepo repository.UserRepository,
	mail MailClient,
	drive DriveClient,
	logger *logger.Logger,
) ReviewService {
	return &reviewService{
		reviewRepo: reviewRepo,
		eventRepo:  eventRepo,
		userRepo:   userRepo,
		mail:       mail,
		drive:      drive,
		logger:     logger.Tagged("review"),
	}
}

func (s *reviewService) ListItems(ctx context.Context, userID string, pendingOnly bool) ([]*model.ReviewItem, error) {
	return s.reviewRepo.FindByUser(ctx, userID, pendingOnly, 0)
}

func (s *reviewService) GetItem(ctx context.Context, userID, itemID string) (*model.ReviewItem, error) {
	return s.reviewRepo.FindByID(ctx, userID, itemID)
}

// UpdateDraft replaces the draft body on a pending item. Actioned items are
// frozen.
func (s *reviewService) UpdateDraft(ctx context.Context, userID, itemID, draftReply string) error {
	item, err := s.reviewRepo.FindByID(ctx, userID, itemID)
	if err != nil {
		return err
	}
	if item.Status != model.StatusPending {
		return fmt.Errorf("already actioned: %s", item.Status)
	}
	return s.reviewRepo.UpdateDraft(ctx, userID, itemID, draftReply)
}

// Action applies one terminal disposition to a pending item. Each item is
// actioned at most once; a send failure leaves the item pending so the user
// can retry.
func (s *reviewService) Action(ctx context.Context, userID, itemID, action string) error {
	item, err := s.reviewRepo.FindByID(ctx, userID, itemID)
	if err != nil {
		return err
	}
	if item.Status != model.StatusPending {
		return fmt.Errorf("already actioned: %s", item.Status)
	}

	switch action {
	case ActionSend:
		return s.send(ctx, item)
	case ActionDraft:
		return s.draft(ctx, item)
	case ActionDiscard:
		return s.discard(ctx, item)
	default:
		return fmt.Errorf("unknown action: %s", action)
	}
}

func (s *reviewService) send(ctx context.Context, item *model.ReviewItem) error {
	user, err := s.userRepo.FindByID(ctx, item.UserID)
	if err != nil {
		return fmt.Errorf("failed to resolve user: %w", err)
	}

	attachments := s.resolveAttachments(ctx, user.Email, item)

	to := model.ExtractAddress(item.Sender)
	subject := model.ReplySubject(item.Subject)
	if err := s.mail.SendReply(ctx, user.Email, item.ThreadID, to, subject, item.DraftReply, attachments); err != nil {
		s.logEvent(ctx, item.UserID, "error", fmt.Sprintf("Send failed for %q to %s", item.Subject, item.Sender))
		return fmt.Errorf("failed to send reply: %w", err)
	}

	if err := s.mail.MarkRead(ctx, user.Email, item.MessageID); err != nil {
		s.logger.Warnf("Could not mark message %s read: %v", item.MessageID, err)
	}

	if err := s.reviewRepo.UpdateStatus(ctx, item.UserID, item.ID, model.StatusSent, "sent by user"); err != nil {
		return err
	}
	s.logEvent(ctx, item.UserID, "user_sent", fmt.Sprintf("Sent reply to %s for %q", item.Sender, item.Subject))
	return nil
}

func (s *reviewService) draft(ctx context.Context, item *model.ReviewItem) error {
	user, err := s.userRepo.FindByID(ctx, item.UserID)
	if err != nil {
		return fmt.Errorf("failed to resolve user: %w", err)
	}

	attachments := s.resolveAttachments(ctx, user.Email, item)

	to := model.ExtractAddress(item.Sender)
	subject := model.ReplySubject(item.Subject)
	if _, err := s.mail.CreateDraft(ctx, user.Email, item.ThreadID, to, subject, item.DraftReply, attachments); err != nil {
		s.logEvent(ctx, item.UserID, "error", fmt.Sprintf("Draft creation failed for %q to %s", item.Subject, item.Sender))
		return fmt.Errorf("failed to create draft: %w", err)
	}

	if err := s.reviewRepo.UpdateStatus(ctx, item.UserID, item.ID, model.StatusDrafted, "saved to drafts"); err != nil {
		return err
	}
	s.logEvent(ctx, item.UserID, "user_drafted", fmt.Sprintf("Saved draft reply to %s for %q", item.Sender, item.Subject))
	return nil
}

func (s *reviewService) discard(ctx context.Context, item *model.ReviewItem) error {
	if err := s.reviewRepo.UpdateStatus(ctx, item.UserID, item.ID, model.StatusDiscarded, "discarded by user"); err != nil {
		return err
	}
	s.logEvent(ctx, item.UserID, "user_discarded", fmt.Sprintf("Discarded draft for %q from %s", item.Subject, item.Sender))
	return nil
}

// resolveAttachments re-runs the document search at action time. Attachment
// bytes are never stored in the queue, only the intent to attach.
func (s *reviewService) resolveAttachments(ctx context.Context, userEmail string, item *model.ReviewItem) []*model.Attachment {
	if !item.Classification.NeedsDrive || item.Classification.DriveQuery == "" {
		return nil
	}
	attachments := s.drive.SearchAttachments(ctx, userEmail, item.Classification.DriveQuery)
	if len(attachments) == 0 {
		s.logger.Warnf("Could not re-resolve attachments for item %s (query %q)", item.ID, item.Classification.DriveQuery)
	}
	return attachments
}

func (s *reviewService) logEvent(ctx context.Context, userID, eventType, message string) {
	if err := s.eventRepo.Append(ctx, userID, eventType, message); err != nil {
		s.logger.Errorf("Failed to append activity log entry: %v", err)
	}
}
