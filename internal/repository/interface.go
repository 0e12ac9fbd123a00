package repository

import (
	"context"

	"inbox-autopilot/internal/model"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByGoogleID(ctx context.Context, googleID string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindAll(ctx context.Context) ([]*model.User, error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id string) error
}

// ProcessedRepository is the dedup ledger. MarkProcessed is insert-if-absent:
// it reports false when the record already existed, so the loser of two
// overlapping pipeline runs is a no-op, not an error. The uniqueness
// constraint on (user_id, message_id) is the authoritative guard against
// double-processing.
type ProcessedRepository interface {
	MarkProcessed(ctx context.Context, record *model.ProcessedRecord) (bool, error)
	IsProcessed(ctx context.Context, userID, messageID string) (bool, error)
}

// ReviewRepository stores review queue items. Create enforces at most one
// entry per (user, message).
type ReviewRepository interface {
	Create(ctx context.Context, item *model.ReviewItem) error
	FindByID(ctx context.Context, userID, itemID string) (*model.ReviewItem, error)
	FindByUser(ctx context.Context, userID string, pendingOnly bool, limit int) ([]*model.ReviewItem, error)
	UpdateStatus(ctx context.Context, userID, itemID, status, actionTaken string) error
	UpdateDraft(ctx context.Context, userID, itemID, draftReply string) error
}

// EventRepository is the append-only activity log with bounded retention.
type EventRepository interface {
	Append(ctx context.Context, userID, eventType, message string) error
	FindRecent(ctx context.Context, userID string, limit int) ([]*model.Event, error)
}

// SettingsRepository stores per-user settings and behavior params.
// GetSettings returns defaults when the user has never saved any.
type SettingsRepository interface {
	GetSettings(ctx context.Context, userID string) (model.Settings, error)
	PutSettings(ctx context.Context, userID string, settings model.Settings) error
	GetParams(ctx context.Context, userID string) (model.Params, error)
	PutParams(ctx context.Context, userID string, params model.Params) error
}

// ScheduleRepository persists per-user last-run state so the scheduler has no
// hidden shared maps.
type ScheduleRepository interface {
	Get(ctx context.Context, userID string) (*model.ScheduleState, error)
	Put(ctx context.Context, state *model.ScheduleState) error
}

// ContactRepository stores known correspondents per user.
type ContactRepository interface {
	Upsert(ctx context.Context, contact *model.Contact) error
	FindByUser(ctx context.Context, userID string) ([]*model.Contact, error)
	FindByEmail(ctx context.Context, userID, email string) (*model.Contact, error)
	Delete(ctx context.Context, userID, email string) error
}
