package gmail

import (
	"context"
	"time"

	"inbox-autopilot/internal/model"
)

// MockMailClient is a mock implementation of MailClient for testing
type MockMailClient struct {
	FetchCandidatesFunc func(ctx context.Context, userEmail string, maxResults int64, afterEpoch int64) ([]*model.Message, error)
	SendReplyFunc       func(ctx context.Context, userEmail, threadID, to, subject, body string, attachments []*model.Attachment) error
	CreateDraftFunc     func(ctx context.Context, userEmail, threadID, to, subject, body string, attachments []*model.Attachment) (string, error)
	MarkReadFunc        func(ctx context.Context, userEmail, messageID string) error
	FetchSentFunc       func(ctx context.Context, userEmail string, maxResults int64, since time.Duration, headersOnly bool) ([]*model.SentMessage, error)
}

func NewMockMailClient() *MockMailClient {
	return &MockMailClient{}
}

func (m *MockMailClient) FetchCandidates(ctx context.Context, userEmail string, maxResults int64, afterEpoch int64) ([]*model.Message, error) {
	if m.FetchCandidatesFunc != nil {
		return m.FetchCandidatesFunc(ctx, userEmail, maxResults, afterEpoch)
	}

	// Default mock behavior: return an empty list
	return []*model.Message{}, nil
}

func (m *MockMailClient) SendReply(ctx context.Context, userEmail, threadID, to, subject, body string, attachments []*model.Attachment) error {
	if m.SendReplyFunc != nil {
		return m.SendReplyFunc(ctx, userEmail, threadID, to, subject, body, attachments)
	}

	// Default mock behavior: success
	return nil
}

func (m *MockMailClient) CreateDraft(ctx context.Context, userEmail, threadID, to, subject, body string, attachments []*model.Attachment) (string, error) {
	if m.CreateDraftFunc != nil {
		return m.CreateDraftFunc(ctx, userEmail, threadID, to, subject, body, attachments)
	}

	// Default mock behavior: success
	return "draft-1", nil
}

func (m *MockMailClient) MarkRead(ctx context.Context, userEmail, messageID string) error {
	if m.MarkReadFunc != nil {
		return m.MarkReadFunc(ctx, userEmail, messageID)
	}

	// Default mock behavior: success
	return nil
}

func (m *MockMailClient) FetchSent(ctx context.Context, userEmail string, maxResults int64, since time.Duration, headersOnly bool) ([]*model.SentMessage, error) {
	if m.FetchSentFunc != nil {
		return m.FetchSentFunc(ctx, userEmail, maxResults, since, headersOnly)
	}

	// Default mock behavior: return an empty list
	return []*model.SentMessage{}, nil
}
