package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"inbox-autopilot/internal/model"

	_ "github.com/lib/pq"
)

type PostgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

const userColumns = `id, google_id, email, name, access_token, refresh_token, token_expiry, service_start_epoch, setup_status, created_at, updated_at`

func (r *PostgresUserRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (google_id) DO UPDATE SET
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expiry = EXCLUDED.token_expiry,
			updated_at = NOW()`
	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.GoogleID, user.Email, user.Name,
		user.AccessToken, user.RefreshToken, user.TokenExpiry,
		user.ServiceStartEpoch, user.SetupStatus,
		user.CreatedAt, user.UpdatedAt)
	return err
}

func (r *PostgresUserRepository) scanUser(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(
		&user.ID, &user.GoogleID, &user.Email, &user.Name,
		&user.AccessToken, &user.RefreshToken, &user.TokenExpiry,
		&user.ServiceStartEpoch, &user.SetupStatus,
		&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.New("user not found")
		}
		return nil, err
	}
	return user, nil
}

func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresUserRepository) FindByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE google_id = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, googleID))
}

func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresUserRepository) FindAll(ctx context.Context) ([]*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user := &model.User{}
		err := rows.Scan(
			&user.ID, &user.GoogleID, &user.Email, &user.Name,
			&user.AccessToken, &user.RefreshToken, &user.TokenExpiry,
			&user.ServiceStartEpoch, &user.SetupStatus,
			&user.CreatedAt, &user.UpdatedAt)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *PostgresUserRepository) Update(ctx context.Context, user *model.User) error {
	query := `
		UPDATE users SET google_id=$1, email=$2, name=$3, access_token=$4,
		refresh_token=$5, token_expiry=$6, service_start_epoch=$7, setup_status=$8,
		updated_at=NOW() WHERE id=$9`
	_, err := r.db.ExecContext(ctx, query,
		user.GoogleID, user.Email, user.Name,
		user.AccessToken, user.RefreshToken, user.TokenExpiry,
		user.ServiceStartEpoch, user.SetupStatus,
		user.ID)
	return err
}

func (r *PostgresUserRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM users WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// Postgres dedup ledger implementation. The primary key on
// (user_id, message_id) is what makes MarkProcessed race-safe: the loser of
// two concurrent inserts hits ON CONFLICT DO NOTHING and reports false.
type PostgresProcessedRepository struct {
	db *sql.DB
}

func NewPostgresProcessedRepository(db *sql.DB) *PostgresProcessedRepository {
	return &PostgresProcessedRepository{db: db}
}

func (r *PostgresProcessedRepository) MarkProcessed(ctx context.Context, record *model.ProcessedRecord) (bool, error) {
	query := `
		INSERT INTO processed_messages (user_id, message_id, thread_id, processed_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, message_id) DO NOTHING`
	result, err := r.db.ExecContext(ctx, query, record.UserID, record.MessageID, record.ThreadID)
	if err != nil {
		return false, err
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return inserted > 0, nil
}

func (r *PostgresProcessedRepository) IsProcessed(ctx context.Context, userID, messageID string) (bool, error) {
	query := `SELECT 1 FROM processed_messages WHERE user_id = $1 AND message_id = $2`
	var one int
	err := r.db.QueryRowContext(ctx, query, userID, messageID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Postgres review queue implementation. The classification snapshot is stored
// as a JSON column.
type PostgresReviewRepository struct {
	db *sql.DB
}

func NewPostgresReviewRepository(db *sql.DB) *PostgresReviewRepository {
	return &PostgresReviewRepository{db: db}
}

const reviewColumns = `id, user_id, message_id, thread_id, sender, subject, snippet, body, draft_reply, classification, status, action_taken, created_at, updated_at`

func (r *PostgresReviewRepository) Create(ctx context.Context, item *model.ReviewItem) error {
	classification, err := json.Marshal(item.Classification)
	if err != nil {
		return fmt.Errorf("failed to marshal classification: %w", err)
	}

	query := `
		INSERT INTO review_queue (` + reviewColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (user_id, message_id) DO UPDATE SET
			draft_reply = EXCLUDED.draft_reply,
			classification = EXCLUDED.classification,
			status = EXCLUDED.status,
			action_taken = EXCLUDED.action_taken,
			updated_at = NOW()`
	_, err = r.db.ExecContext(ctx, query,
		item.ID, item.UserID, item.MessageID, item.ThreadID,
		item.Sender, item.Subject, item.Snippet, item.Body,
		item.DraftReply, classification, item.Status, item.ActionTaken,
		item.CreatedAt, item.UpdatedAt)
	return err
}

func scanReviewItem(scan func(dest ...interface{}) error) (*model.ReviewItem, error) {
	item := &model.ReviewItem{}
	var classification []byte
	err := scan(
		&item.ID, &item.UserID, &item.MessageID, &item.ThreadID,
		&item.Sender, &item.Subject, &item.Snippet, &item.Body,
		&item.DraftReply, &classification, &item.Status, &item.ActionTaken,
		&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(classification) > 0 {
		if err := json.Unmarshal(classification, &item.Classification); err != nil {
			return nil, fmt.Errorf("failed to unmarshal classification: %w", err)
		}
	}
	return item, nil
}

func (r *PostgresReviewRepository) FindByID(ctx context.Context, userID, itemID string) (*model.ReviewItem, error) {
	query := `SELECT ` + reviewColumns + ` FROM review_queue WHERE user_id = $1 AND id = $2`
	row := r.db.QueryRowContext(ctx, query, userID, itemID)
	item, err := scanReviewItem(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.New("review item not found")
		}
		return nil, err
	}
	return item, nil
}

func (r *PostgresReviewRepository) FindByUser(ctx context.Context, userID string, pendingOnly bool, limit int) ([]*model.ReviewItem, error) {
	query := `SELECT ` + reviewColumns + ` FROM review_queue WHERE user_id = $1`
	if pendingOnly {
		query += ` AND status = 'pending'`
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*model.ReviewItem
	for rows.Next() {
		item, err := scanReviewItem(rows.Scan)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *PostgresReviewRepository) UpdateStatus(ctx context.Context, userID, itemID, status, actionTaken string) error {
	query := `UPDATE review_queue SET status=$1, action_taken=$2, updated_at=NOW() WHERE user_id=$3 AND id=$4`
	result, err := r.db.ExecContext(ctx, query, status, actionTaken, userID, itemID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.New("review item not found")
	}
	return nil
}

func (r *PostgresReviewRepository) UpdateDraft(ctx context.Context, userID, itemID, draftReply string) error {
	query := `UPDATE review_queue SET draft_reply=$1, updated_at=NOW() WHERE user_id=$2 AND id=$3`
	result, err := r.db.ExecContext(ctx, query, draftReply, userID, itemID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.New("review item not found")
	}
	return nil
}

// InitializeDatabase creates the necessary tables
func InitializeDatabase(db *sql.DB) error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(255) PRIMARY KEY,
			google_id VARCHAR(255) UNIQUE NOT NULL,
			email VARCHAR(255) NOT NULL,
			name VARCHAR(255) NOT NULL,
			access_token TEXT,
			refresh_token TEXT,
			token_expiry TIMESTAMP,
			service_start_epoch BIGINT DEFAULT 0,
			setup_status VARCHAR(32) DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS processed_messages (
			user_id VARCHAR(255) NOT NULL,
			message_id VARCHAR(255) NOT NULL,
			thread_id VARCHAR(255),
			processed_at TIMESTAMP NOT NULL,
			PRIMARY KEY (user_id, message_id)
		)`,
		`CREATE TABLE IF NOT EXISTS review_queue (
			id VARCHAR(255) PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			message_id VARCHAR(255) NOT NULL,
			thread_id VARCHAR(255),
			sender TEXT,
			subject TEXT,
			snippet TEXT,
			body TEXT,
			draft_reply TEXT,
			classification TEXT,
			status VARCHAR(32) NOT NULL DEFAULT 'pending',
			action_taken TEXT DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			UNIQUE (user_id, message_id)
		)`,
		`CREATE TABLE IF NOT EXISTS activity_log (
			id BIGSERIAL PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			event_type VARCHAR(64) NOT NULL,
			message TEXT,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS user_settings (
			user_id VARCHAR(255) PRIMARY KEY,
			settings TEXT,
			params TEXT,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS schedule_state (
			user_id VARCHAR(255) PRIMARY KEY,
			last_run_at TIMESTAMP,
			scanned_count INT DEFAULT 0,
			sent_count INT DEFAULT 0,
			queued_count INT DEFAULT 0,
			skipped_count INT DEFAULT 0,
			error_count INT DEFAULT 0,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS contacts (
			user_id VARCHAR(255) NOT NULL,
			email VARCHAR(255) NOT NULL,
			name VARCHAR(255) DEFAULT '',
			relationship_type VARCHAR(64) DEFAULT '',
			formality_level VARCHAR(64) DEFAULT '',
			interaction_count INT DEFAULT 0,
			last_contact_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (user_id, email)
		)`,
	}

	for _, table := range tables {
		_, err := db.Exec(table)
		if err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}
