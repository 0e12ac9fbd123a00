package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"inbox-autopilot/internal/ai"
	"inbox-autopilot/internal/gcal"
	"inbox-autopilot/internal/gdrive"
	"inbox-autopilot/internal/gmail"
	"inbox-autopilot/internal/logger"
	"inbox-autopilot/internal/model"
	"inbox-autopilot/internal/repository/memory"
	"inbox-autopilot/internal/service"
)

type processorFixture struct {
	processedRepo *memory.InMemoryProcessedRepository
	reviewRepo    *memory.InMemoryReviewRepository
	eventRepo     *memory.InMemoryEventRepository
	mail          *gmail.MockMailClient
	classifier    *ai.MockClassifier
	drafter       *ai.MockDrafter
	processor     service.Processor
	user          *model.User
	settings      model.Settings
}

func newProcessorFixture() *processorFixture {
	f := &processorFixture{
		processedRepo: memory.NewInMemoryProcessedRepository(),
		reviewRepo:    memory.NewInMemoryReviewRepository(),
		eventRepo:     memory.NewInMemoryEventRepository(),
		mail:          gmail.NewMockMailClient(),
		classifier:    ai.NewMockClassifier(),
		drafter:       ai.NewMockDrafter(),
	}

	f.processor = service.NewProcessor(
		f.mail,
		f.classifier,
		f.drafter,
		gcal.NewMockCalendarClient(),
		gdrive.NewMockDriveClient(),
		f.processedRepo,
		f.reviewRepo,
		f.eventRepo,
		memory.NewInMemorySettingsRepository(),
		memory.NewInMemoryContactRepository(),
		logger.New(),
	)

	f.user = model.NewUser("google_1", "owner@example.com", "Owner", "token", "refresh", time.Now().Add(time.Hour))
	f.settings = model.DefaultSettings()
	return f
}

func testMessage() *model.Message {
	return model.NewMessage("msg-1", "thread-1", "Alice <alice@example.com>", "Lunch?", "Are you free for lunch?", "Are you free...", false, time.Now())
}

func TestProcessMessageQueuesForReviewAtLevelOne(t *testing.T) {
	f := newProcessorFixture()

	markedRead := false
	f.mail.MarkReadFunc = func(ctx context.Context, userEmail, messageID string) error {
		markedRead = true
		assert.Equal(t, "msg-1", messageID)
		return nil
	}

	result := f.processor.ProcessMessage(context.Background(), f.user, f.settings, testMessage())
	assert.Equal(t, model.ResultReview, result.Action)

	// A queued message is taken out of the unread pool like a sent one
	assert.True(t, markedRead)

	// Exactly one queue entry and one dedup record
	items, err := f.reviewRepo.FindByUser(context.Background(), f.user.ID, true, 0)
	assert.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, model.StatusPending, items[0].Status)
	assert.NotEmpty(t, items[0].DraftReply)
	assert.NotEmpty(t, items[0].Classification.RoutingReason)

	processed, err := f.processedRepo.IsProcessed(context.Background(), f.user.ID, "msg-1")
	assert.NoError(t, err)
	assert.True(t, processed)
}

func TestProcessMessageSecondRunIsNoOp(t *testing.T) {
	f := newProcessorFixture()
	msg := testMessage()

	classifyCalls := 0
	f.classifier.ClassifyFunc = func(ctx context.Context, m *model.Message, modelName string) model.Classification {
		classifyCalls++
		return model.Classification{NeedsReply: true, SenderPriority: model.PriorityMedium, Confidence: 0.9}
	}

	first := f.processor.ProcessMessage(context.Background(), f.user, f.settings, msg)
	second := f.processor.ProcessMessage(context.Background(), f.user, f.settings, msg)

	assert.Equal(t, model.ResultReview, first.Action)
	assert.Equal(t, model.ResultSkipped, second.Action)
	assert.Equal(t, "already processed", second.Reason)

	// The second run must not touch the classifier or grow the queue
	assert.Equal(t, 1, classifyCalls)
	items, _ := f.reviewRepo.FindByUser(context.Background(), f.user.ID, false, 0)
	assert.Len(t, items, 1)
}

func TestProcessMessageAutoSendsAtLevelTwo(t *testing.T) {
	f := newProcessorFixture()
	f.settings.AutonomyLevel = 2

	var sentTo, sentSubject string
	f.mail.SendReplyFunc = func(ctx context.Context, userEmail, threadID, to, subject, body string, attachments []*model.Attachment) error {
		sentTo = to
		sentSubject = subject
		return nil
	}

	result := f.processor.ProcessMessage(context.Background(), f.user, f.settings, testMessage())
	assert.Equal(t, model.ResultSent, result.Action)
	assert.Equal(t, "alice@example.com", sentTo)
	assert.Equal(t, "Re: Lunch?", sentSubject)

	// Nothing queued, message recorded as processed
	items, _ := f.reviewRepo.FindByUser(context.Background(), f.user.ID, false, 0)
	assert.Empty(t, items)
	processed, _ := f.processedRepo.IsProcessed(context.Background(), f.user.ID, "msg-1")
	assert.True(t, processed)
}

func TestProcessMessageSendFailureDowngradesToReview(t *testing.T) {
	f := newProcessorFixture()
	f.settings.AutonomyLevel = 3

	f.mail.SendReplyFunc = func(ctx context.Context, userEmail, threadID, to, subject, body string, attachments []*model.Attachment) error {
		return errors.New("gmail unavailable")
	}

	result := f.processor.ProcessMessage(context.Background(), f.user, f.settings, testMessage())
	assert.Equal(t, model.ResultReview, result.Action)
	assert.Contains(t, result.Reason, "Send failed")

	// The draft survives in the queue instead of being lost
	items, _ := f.reviewRepo.FindByUser(context.Background(), f.user.ID, true, 0)
	assert.Len(t, items, 1)
	assert.NotEmpty(t, items[0].DraftReply)
	assert.Contains(t, items[0].Classification.RoutingReason, "Send failed")
}

func TestProcessMessageSkipsWhenNoReplyNeeded(t *testing.T) {
	f := newProcessorFixture()

	f.classifier.ClassifyFunc = func(ctx context.Context, m *model.Message, modelName string) model.Classification {
		return model.Classification{NeedsReply: false, SenderPriority: model.PriorityLow, Confidence: 0.9}
	}

	draftCalls := 0
	f.drafter.DraftFunc = func(ctx context.Context, m *model.Message, c model.Classification, dc service.DraftContext, modelName string) string {
		draftCalls++
		return "should not happen"
	}

	result := f.processor.ProcessMessage(context.Background(), f.user, f.settings, testMessage())
	assert.Equal(t, model.ResultSkipped, result.Action)
	assert.Equal(t, "No reply needed", result.Reason)

	// Skipped mail is never drafted but still lands in the dedup ledger
	assert.Equal(t, 0, draftCalls)
	processed, _ := f.processedRepo.IsProcessed(context.Background(), f.user.ID, "msg-1")
	assert.True(t, processed)
}

func TestProcessMessageEmptyDraftIsTerminalError(t *testing.T) {
	f := newProcessorFixture()

	f.drafter.DraftFunc = func(ctx context.Context, m *model.Message, c model.Classification, dc service.DraftContext, modelName string) string {
		return ""
	}

	result := f.processor.ProcessMessage(context.Background(), f.user, f.settings, testMessage())
	assert.Equal(t, model.ResultError, result.Action)
	assert.Equal(t, "draft generation failed", result.Reason)

	// No queue entry, but the dedup record still lands so the message is
	// not retried forever
	items, _ := f.reviewRepo.FindByUser(context.Background(), f.user.ID, false, 0)
	assert.Empty(t, items)
	processed, _ := f.processedRepo.IsProcessed(context.Background(), f.user.ID, "msg-1")
	assert.True(t, processed)
}

func TestProcessMessageFallbackClassificationGoesToReview(t *testing.T) {
	f := newProcessorFixture()
	f.settings.AutonomyLevel = 3

	f.classifier.ClassifyFunc = func(ctx context.Context, m *model.Message, modelName string) model.Classification {
		return model.FallbackClassification("provider overloaded")
	}

	// Even at full autonomy an unreadable classification never auto-sends
	result := f.processor.ProcessMessage(context.Background(), f.user, f.settings, testMessage())
	assert.Equal(t, model.ResultReview, result.Action)
}

func TestProcessMessageAttachmentForcesReviewAtFullAutonomy(t *testing.T) {
	f := newProcessorFixture()
	f.settings.AutonomyLevel = 3

	f.classifier.ClassifyFunc = func(ctx context.Context, m *model.Message, modelName string) model.Classification {
		return model.Classification{
			NeedsReply:     true,
			SenderPriority: model.PriorityHigh,
			Confidence:     0.99,
			NeedsDrive:     true,
			DriveQuery:     "quarterly report",
		}
	}

	drive := gdrive.NewMockDriveClient()
	drive.SearchAttachmentsFunc = func(ctx context.Context, userEmail, query string) []*model.Attachment {
		return []*model.Attachment{{Filename: "report.pdf", MimeType: "application/pdf"}}
	}

	proc := service.NewProcessor(
		f.mail, f.classifier, f.drafter,
		gcal.NewMockCalendarClient(), drive,
		f.processedRepo, f.reviewRepo, f.eventRepo,
		memory.NewInMemorySettingsRepository(), memory.NewInMemoryContactRepository(),
		logger.New(),
	)

	result := proc.ProcessMessage(context.Background(), f.user, f.settings, testMessage())
	assert.Equal(t, model.ResultReview, result.Action)

	items, _ := f.reviewRepo.FindByUser(context.Background(), f.user.ID, true, 0)
	assert.Len(t, items, 1)
	assert.True(t, items[0].Classification.HasAttachments)
	assert.Equal(t, []string{"report.pdf"}, items[0].Classification.AttachmentNames)
}
