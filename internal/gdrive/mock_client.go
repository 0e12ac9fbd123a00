package gdrive

import (
	"context"

	"inbox-autopilot/internal/model"
)

// MockDriveClient is a mock implementation of DriveClient for testing
type MockDriveClient struct {
	SearchAttachmentsFunc func(ctx context.Context, userEmail, query string) []*model.Attachment
}

func NewMockDriveClient() *MockDriveClient {
	return &MockDriveClient{}
}

func (m *MockDriveClient) SearchAttachments(ctx context.Context, userEmail, query string) []*model.Attachment {
	if m.SearchAttachmentsFunc != nil {
		return m.SearchAttachmentsFunc(ctx, userEmail, query)
	}

	// Default mock behavior: no matches
	return nil
}
