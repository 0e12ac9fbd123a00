package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"inbox-autopilot/internal/model"
)

// Postgres activity log implementation. Retention is enforced on every
// append: only the most recent entries per user are kept.
type PostgresEventRepository struct {
	db *sql.DB
}

func NewPostgresEventRepository(db *sql.DB) *PostgresEventRepository {
	return &PostgresEventRepository{db: db}
}

func (r *PostgresEventRepository) Append(ctx context.Context, userID, eventType, message string) error {
	query := `INSERT INTO activity_log (user_id, event_type, message, created_at) VALUES ($1, $2, $3, NOW())`
	if _, err := r.db.ExecContext(ctx, query, userID, eventType, message); err != nil {
		return err
	}

	retention := `
		DELETE FROM activity_log
		WHERE user_id = $1 AND id NOT IN (
			SELECT id FROM activity_log WHERE user_id = $1 ORDER BY id DESC LIMIT $2
		)`
	_, err := r.db.ExecContext(ctx, retention, userID, model.EventRetention)
	return err
}

func (r *PostgresEventRepository) FindRecent(ctx context.Context, userID string, limit int) ([]*model.Event, error) {
	query := `SELECT id, user_id, event_type, message, created_at FROM activity_log WHERE user_id = $1 ORDER BY id DESC LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*model.Event
	for rows.Next() {
		event := &model.Event{}
		err := rows.Scan(&event.ID, &event.UserID, &event.EventType, &event.Message, &event.CreatedAt)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// Postgres settings implementation. Settings and params are stored as JSON
// columns on one row per user; absent rows fall back to defaults.
type PostgresSettingsRepository struct {
	db *sql.DB
}

func NewPostgresSettingsRepository(db *sql.DB) *PostgresSettingsRepository {
	return &PostgresSettingsRepository{db: db}
}

func (r *PostgresSettingsRepository) GetSettings(ctx context.Context, userID string) (model.Settings, error) {
	query := `SELECT settings FROM user_settings WHERE user_id = $1`
	var raw sql.NullString
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !raw.Valid) {
		return model.DefaultSettings(), nil
	}
	if err != nil {
		return model.Settings{}, err
	}

	settings := model.DefaultSettings()
	if err := json.Unmarshal([]byte(raw.String), &settings); err != nil {
		return model.Settings{}, fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	return settings, nil
}

func (r *PostgresSettingsRepository) PutSettings(ctx context.Context, userID string, settings model.Settings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	query := `
		INSERT INTO user_settings (user_id, settings, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET settings = EXCLUDED.settings, updated_at = NOW()`
	_, err = r.db.ExecContext(ctx, query, userID, raw)
	return err
}

func (r *PostgresSettingsRepository) GetParams(ctx context.Context, userID string) (model.Params, error) {
	query := `SELECT params FROM user_settings WHERE user_id = $1`
	var raw sql.NullString
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !raw.Valid) {
		return model.Params{}, nil
	}
	if err != nil {
		return model.Params{}, err
	}

	var params model.Params
	if err := json.Unmarshal([]byte(raw.String), &params); err != nil {
		return model.Params{}, fmt.Errorf("failed to unmarshal params: %w", err)
	}
	return params, nil
}

func (r *PostgresSettingsRepository) PutParams(ctx context.Context, userID string, params model.Params) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}
	query := `
		INSERT INTO user_settings (user_id, params, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET params = EXCLUDED.params, updated_at = NOW()`
	_, err = r.db.ExecContext(ctx, query, userID, raw)
	return err
}

// Postgres schedule state implementation.
type PostgresScheduleRepository struct {
	db *sql.DB
}

func NewPostgresScheduleRepository(db *sql.DB) *PostgresScheduleRepository {
	return &PostgresScheduleRepository{db: db}
}

func (r *PostgresScheduleRepository) Get(ctx context.Context, userID string) (*model.ScheduleState, error) {
	query := `
		SELECT user_id, last_run_at, scanned_count, sent_count, queued_count, skipped_count, error_count, updated_at
		FROM schedule_state WHERE user_id = $1`
	state := &model.ScheduleState{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&state.UserID, &state.LastRunAt, &state.ScannedCount, &state.SentCount,
		&state.QueuedCount, &state.SkippedCount, &state.ErrorCount, &state.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.New("schedule state not found")
		}
		return nil, err
	}
	return state, nil
}

func (r *PostgresScheduleRepository) Put(ctx context.Context, state *model.ScheduleState) error {
	query := `
		INSERT INTO schedule_state (user_id, last_run_at, scanned_count, sent_count, queued_count, skipped_count, error_count, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			last_run_at = EXCLUDED.last_run_at,
			scanned_count = EXCLUDED.scanned_count,
			sent_count = EXCLUDED.sent_count,
			queued_count = EXCLUDED.queued_count,
			skipped_count = EXCLUDED.skipped_count,
			error_count = EXCLUDED.error_count,
			updated_at = NOW()`
	_, err := r.db.ExecContext(ctx, query,
		state.UserID, state.LastRunAt, state.ScannedCount, state.SentCount,
		state.QueuedCount, state.SkippedCount, state.ErrorCount)
	return err
}

// Postgres contact implementation.
type PostgresContactRepository struct {
	db *sql.DB
}

func NewPostgresContactRepository(db *sql.DB) *PostgresContactRepository {
	return &PostgresContactRepository{db: db}
}

func (r *PostgresContactRepository) Upsert(ctx context.Context, contact *model.Contact) error {
	query := `
		INSERT INTO contacts (user_id, email, name, relationship_type, formality_level, interaction_count, last_contact_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (user_id, email) DO UPDATE SET
			name = EXCLUDED.name,
			relationship_type = EXCLUDED.relationship_type,
			formality_level = EXCLUDED.formality_level,
			interaction_count = EXCLUDED.interaction_count,
			last_contact_at = EXCLUDED.last_contact_at,
			updated_at = NOW()`
	_, err := r.db.ExecContext(ctx, query,
		contact.UserID, contact.Email, contact.Name,
		contact.RelationshipType, contact.FormalityLevel,
		contact.InteractionCount, contact.LastContactAt)
	return err
}

const contactColumns = `user_id, email, name, relationship_type, formality_level, interaction_count, last_contact_at, created_at, updated_at`

func (r *PostgresContactRepository) FindByUser(ctx context.Context, userID string) ([]*model.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE user_id = $1 ORDER BY interaction_count DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []*model.Contact
	for rows.Next() {
		contact := &model.Contact{}
		err := rows.Scan(
			&contact.UserID, &contact.Email, &contact.Name,
			&contact.RelationshipType, &contact.FormalityLevel,
			&contact.InteractionCount, &contact.LastContactAt,
			&contact.CreatedAt, &contact.UpdatedAt)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, contact)
	}
	return contacts, rows.Err()
}

func (r *PostgresContactRepository) FindByEmail(ctx context.Context, userID, email string) (*model.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE user_id = $1 AND email = $2`
	contact := &model.Contact{}
	err := r.db.QueryRowContext(ctx, query, userID, email).Scan(
		&contact.UserID, &contact.Email, &contact.Name,
		&contact.RelationshipType, &contact.FormalityLevel,
		&contact.InteractionCount, &contact.LastContactAt,
		&contact.CreatedAt, &contact.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.New("contact not found")
		}
		return nil, err
	}
	return contact, nil
}

func (r *PostgresContactRepository) Delete(ctx context.Context, userID, email string) error {
	query := `DELETE FROM contacts WHERE user_id = $1 AND email = $2`
	_, err := r.db.ExecContext(ctx, query, userID, email)
	return err
}
