package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"inbox-autopilot/internal/gdrive"
	"inbox-autopilot/internal/gmail"
	"inbox-autopilot/internal/logger"
	"inbox-autopilot/internal/model"
	"inbox-autopilot/internal/repository/memory"
	"inbox-autopilot/internal/service"
)

type reviewFixture struct {
	reviewRepo *memory.InMemoryReviewRepository
	eventRepo  *memory.InMemoryEventRepository
	userRepo   *memory.InMemoryUserRepository
	mail       *gmail.MockMailClient
	drive      *gdrive.MockDriveClient
	service    service.ReviewService
	user       *model.User
}

func newReviewFixture(t *testing.T) *reviewFixture {
	f := &reviewFixture{
		reviewRepo: memory.NewInMemoryReviewRepository(),
		eventRepo:  memory.NewInMemoryEventRepository(),
		userRepo:   memory.NewInMemoryUserRepository(),
		mail:       gmail.NewMockMailClient(),
		drive:      gdrive.NewMockDriveClient(),
	}

	f.service = service.NewReviewService(f.reviewRepo, f.eventRepo, f.userRepo, f.mail, f.drive, logger.New())

	f.user = model.NewUser("google_1", "owner@example.com", "Owner", "token", "refresh", time.Now().Add(time.Hour))
	assert.NoError(t, f.userRepo.Create(context.Background(), f.user))
	return f
}

func (f *reviewFixture) addPendingItem(t *testing.T) *model.ReviewItem {
	msg := model.NewMessage("msg-1", "thread-1", "Bob <bob@example.com>", "Contract", "Please review the contract.", "Please review...", false, time.Now())
	item := model.NewReviewItem(f.user.ID, msg, "Will do, sending comments by Friday.", model.QueueClassification{
		Classification: model.Classification{NeedsReply: true, SenderPriority: model.PriorityHigh, Confidence: 0.9},
		RoutingReason:  "All emails reviewed at this level",
	})
	assert.NoError(t, f.reviewRepo.Create(context.Background(), item))
	return item
}

func TestReviewActionSend(t *testing.T) {
	f := newReviewFixture(t)
	item := f.addPendingItem(t)

	var sentTo, sentBody string
	f.mail.SendReplyFunc = func(ctx context.Context, userEmail, threadID, to, subject, body string, attachments []*model.Attachment) error {
		sentTo = to
		sentBody = body
		return nil
	}

	err := f.service.Action(context.Background(), f.user.ID, item.ID, service.ActionSend)
	assert.NoError(t, err)
	assert.Equal(t, "bob@example.com", sentTo)
	assert.Equal(t, item.DraftReply, sentBody)

	updated, err := f.reviewRepo.FindByID(context.Background(), f.user.ID, item.ID)
	assert.NoError(t, err)
	assert.Equal(t, model.StatusSent, updated.Status)
	assert.Equal(t, "sent by user", updated.ActionTaken)
}

func TestReviewActionIsTerminal(t *testing.T) {
	f := newReviewFixture(t)
	item := f.addPendingItem(t)

	assert.NoError(t, f.service.Action(context.Background(), f.user.ID, item.ID, service.ActionDiscard))

	// A second disposition of any kind is rejected with the current status
	err := f.service.Action(context.Background(), f.user.ID, item.ID, service.ActionSend)
	assert.EqualError(t, err, "already actioned: discarded")

	err = f.service.Action(context.Background(), f.user.ID, item.ID, service.ActionDiscard)
	assert.EqualError(t, err, "already actioned: discarded")
}

func TestReviewSendFailureLeavesItemPending(t *testing.T) {
	f := newReviewFixture(t)
	item := f.addPendingItem(t)

	f.mail.SendReplyFunc = func(ctx context.Context, userEmail, threadID, to, subject, body string, attachments []*model.Attachment) error {
		return errors.New("gmail unavailable")
	}

	err := f.service.Action(context.Background(), f.user.ID, item.ID, service.ActionSend)
	assert.Error(t, err)

	// Still pending, so the user can retry
	updated, _ := f.reviewRepo.FindByID(context.Background(), f.user.ID, item.ID)
	assert.Equal(t, model.StatusPending, updated.Status)
	assert.Equal(t, item.DraftReply, updated.DraftReply)
}

func TestReviewActionDraftSavesToMailbox(t *testing.T) {
	f := newReviewFixture(t)
	item := f.addPendingItem(t)

	draftCreated := false
	f.mail.CreateDraftFunc = func(ctx context.Context, userEmail, threadID, to, subject, body string, attachments []*model.Attachment) (string, error) {
		draftCreated = true
		return "draft-9", nil
	}

	assert.NoError(t, f.service.Action(context.Background(), f.user.ID, item.ID, service.ActionDraft))
	assert.True(t, draftCreated)

	updated, _ := f.reviewRepo.FindByID(context.Background(), f.user.ID, item.ID)
	assert.Equal(t, model.StatusDrafted, updated.Status)
}

func TestReviewSendReresolvesAttachments(t *testing.T) {
	f := newReviewFixture(t)

	msg := model.NewMessage("msg-2", "thread-2", "Carol <carol@example.com>", "Deck", "Can you send the deck?", "Can you send...", false, time.Now())
	item := model.NewReviewItem(f.user.ID, msg, "Here it is.", model.QueueClassification{
		Classification: model.Classification{
			NeedsReply:     true,
			SenderPriority: model.PriorityMedium,
			Confidence:     0.9,
			NeedsDrive:     true,
			DriveQuery:     "pitch deck",
		},
		RoutingReason:  "Has attachment - always review",
		HasAttachments: true,
	})
	assert.NoError(t, f.reviewRepo.Create(context.Background(), item))

	var searched string
	f.drive.SearchAttachmentsFunc = func(ctx context.Context, userEmail, query string) []*model.Attachment {
		searched = query
		return []*model.Attachment{{Filename: "deck.pptx", Data: []byte("bytes")}}
	}

	var sentAttachments []*model.Attachment
	f.mail.SendReplyFunc = func(ctx context.Context, userEmail, threadID, to, subject, body string, attachments []*model.Attachment) error {
		sentAttachments = attachments
		return nil
	}

	assert.NoError(t, f.service.Action(context.Background(), f.user.ID, item.ID, service.ActionSend))

	// Attachment bytes are fetched fresh at action time, not stored
	assert.Equal(t, "pitch deck", searched)
	assert.Len(t, sentAttachments, 1)
	assert.Equal(t, "deck.pptx", sentAttachments[0].Filename)
}

func TestReviewUpdateDraftOnlyWhilePending(t *testing.T) {
	f := newReviewFixture(t)
	item := f.addPendingItem(t)

	assert.NoError(t, f.service.UpdateDraft(context.Background(), f.user.ID, item.ID, "Edited reply."))

	updated, _ := f.reviewRepo.FindByID(context.Background(), f.user.ID, item.ID)
	assert.Equal(t, "Edited reply.", updated.DraftReply)

	assert.NoError(t, f.service.Action(context.Background(), f.user.ID, item.ID, service.ActionDiscard))

	err := f.service.UpdateDraft(context.Background(), f.user.ID, item.ID, "Too late.")
	assert.EqualError(t, err, "already actioned: discarded")
}

func TestReviewUnknownActionRejected(t *testing.T) {
	f := newReviewFixture(t)
	item := f.addPendingItem(t)

	err := f.service.Action(context.Background(), f.user.ID, item.ID, "archive")
	assert.EqualError(t, err, "unknown action: archive")

	updated, _ := f.reviewRepo.FindByID(context.Background(), f.user.ID, item.ID)
	assert.Equal(t, model.StatusPending, updated.Status)
}
