package service

import (
	"context"
	"time"

	"inbox-autopilot/internal/model"
)

type AuthService interface {
	GetOrCreateUser(ctx context.Context, googleID, email, name, accessToken, refreshToken string, tokenExpiry time.Time) (*model.User, bool, error)
	GetUser(ctx context.Context, userID string) (*model.User, error)
}

// Processor drives one message through classification, drafting, routing and
// persistence. Exactly one terminal outcome per call; calling it again for
// the same message is a cheap no-op thanks to the dedup ledger.
type Processor interface {
	ProcessMessage(ctx context.Context, user *model.User, settings model.Settings, msg *model.Message) *model.ProcessResult
}

// ReviewService owns the review queue state machine:
// pending -> {sent, drafted, discarded}, each transition exactly once.
type ReviewService interface {
	ListItems(ctx context.Context, userID string, pendingOnly bool) ([]*model.ReviewItem, error)
	GetItem(ctx context.Context, userID, itemID string) (*model.ReviewItem, error)
	UpdateDraft(ctx context.Context, userID, itemID, draftReply string) error
	Action(ctx context.Context, userID, itemID, action string) error
}

// SetupService runs the one-time profile bootstrap for a newly authorized
// user: voice profile generation and contact analysis.
type SetupService interface {
	Run(ctx context.Context, userID string)
}

// MailClient is the message-source contract. Implementations resolve
// per-user credentials by user email.
type MailClient interface {
	// FetchCandidates returns unread inbox messages received after
	// afterEpoch (unix seconds; 0 means no lower bound), newest capped at
	// maxResults. Automated categories are excluded at the source.
	FetchCandidates(ctx context.Context, userEmail string, maxResults int64, afterEpoch int64) ([]*model.Message, error)
	SendReply(ctx context.Context, userEmail, threadID, to, subject, body string, attachments []*model.Attachment) error
	CreateDraft(ctx context.Context, userEmail, threadID, to, subject, body string, attachments []*model.Attachment) (string, error)
	MarkRead(ctx context.Context, userEmail, messageID string) error
	// FetchSent returns recent sent messages for profile bootstrapping.
	// With headersOnly set, bodies are left empty and only recipients and
	// subjects are populated.
	FetchSent(ctx context.Context, userEmail string, maxResults int64, since time.Duration, headersOnly bool) ([]*model.SentMessage, error)
}

// Classifier is the classification oracle. It retries transient overload
// internally and degrades to model.FallbackClassification instead of
// returning an error, so a verdict is always usable.
type Classifier interface {
	Classify(ctx context.Context, msg *model.Message, modelName string) model.Classification
}

// DraftContext carries the optional context gathered before drafting.
type DraftContext struct {
	CalendarSlots   string
	AttachmentNames []string
	VoiceTraits     string
	Formality       string
}

// Drafter is the drafting oracle. An empty string signals failure.
type Drafter interface {
	Draft(ctx context.Context, msg *model.Message, classification model.Classification, draftCtx DraftContext, modelName string) string
}

// CalendarClient looks up availability. An empty string signals failure or
// no free time; neither is a pipeline error.
type CalendarClient interface {
	FreeSlots(ctx context.Context, userEmail string, daysAhead int, timezone string) string
}

// DriveClient resolves document requests. An empty slice signals failure or
// no match; neither is a pipeline error.
type DriveClient interface {
	SearchAttachments(ctx context.Context, userEmail, query string) []*model.Attachment
}

// ProfileAnalyzer is the oracle surface the setup service uses.
type ProfileAnalyzer interface {
	AnalyzeVoice(ctx context.Context, samples []string, modelName string) (string, error)
	ClassifyContacts(ctx context.Context, contactLines []string, modelName string) ([]*model.Contact, error)
}
