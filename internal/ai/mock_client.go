package ai

import (
	"context"

	"inbox-autopilot/internal/model"
	"inbox-autopilot/internal/service"
)

// MockClassifier is a mock implementation of Classifier for testing
type MockClassifier struct {
	ClassifyFunc func(ctx context.Context, msg *model.Message, modelName string) model.Classification
}

func NewMockClassifier() *MockClassifier {
	return &MockClassifier{}
}

func (m *MockClassifier) Classify(ctx context.Context, msg *model.Message, modelName string) model.Classification {
	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(ctx, msg, modelName)
	}

	// Default mock behavior: confident routine email that needs a reply
	return model.Classification{
		NeedsReply:     true,
		SenderPriority: model.PriorityMedium,
		Confidence:     0.9,
	}
}

// MockDrafter is a mock implementation of Drafter for testing
type MockDrafter struct {
	DraftFunc func(ctx context.Context, msg *model.Message, classification model.Classification, draftCtx service.DraftContext, modelName string) string
}

func NewMockDrafter() *MockDrafter {
	return &MockDrafter{}
}

func (m *MockDrafter) Draft(ctx context.Context, msg *model.Message, classification model.Classification, draftCtx service.DraftContext, modelName string) string {
	if m.DraftFunc != nil {
		return m.DraftFunc(ctx, msg, classification, draftCtx, modelName)
	}

	// Default mock behavior: a non-empty draft
	return "Thanks for reaching out, I'll get back to you shortly."
}

// MockProfileAnalyzer is a mock implementation of ProfileAnalyzer for testing
type MockProfileAnalyzer struct {
	AnalyzeVoiceFunc     func(ctx context.Context, samples []string, modelName string) (string, error)
	ClassifyContactsFunc func(ctx context.Context, contactLines []string, modelName string) ([]*model.Contact, error)
}

func NewMockProfileAnalyzer() *MockProfileAnalyzer {
	return &MockProfileAnalyzer{}
}

func (m *MockProfileAnalyzer) AnalyzeVoice(ctx context.Context, samples []string, modelName string) (string, error) {
	if m.AnalyzeVoiceFunc != nil {
		return m.AnalyzeVoiceFunc(ctx, samples, modelName)
	}

	// Default mock behavior: a fixed voice description
	return "- Friendly and direct\n- Short sentences", nil
}

func (m *MockProfileAnalyzer) ClassifyContacts(ctx context.Context, contactLines []string, modelName string) ([]*model.Contact, error) {
	if m.ClassifyContactsFunc != nil {
		return m.ClassifyContactsFunc(ctx, contactLines, modelName)
	}

	// Default mock behavior: no contacts
	return []*model.Contact{}, nil
}
