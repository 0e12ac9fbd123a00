package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"inbox-autopilot/internal/model"
)

type InMemoryUserRepository struct {
	users map[string]*model.User
	mutex sync.RWMutex
}

func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{
		users: make(map[string]*model.User),
	}
}

func (r *InMemoryUserRepository) Create(ctx context.Context, user *model.User) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.users[user.ID] = user
	return nil
}

func (r *InMemoryUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	user, exists := r.users[id]
	if !exists {
		return nil, errors.New("user not found")
	}
	return user, nil
}

func (r *InMemoryUserRepository) FindByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, user := range r.users {
		if user.GoogleID == googleID {
			return user, nil
		}
	}
	return nil, errors.New("user not found")
}

func (r *InMemoryUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, errors.New("user not found")
}

func (r *InMemoryUserRepository) FindAll(ctx context.Context) ([]*model.User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var users []*model.User
	for _, user := range r.users {
		users = append(users, user)
	}
	return users, nil
}

func (r *InMemoryUserRepository) Update(ctx context.Context, user *model.User) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	_, exists := r.users[user.ID]
	if !exists {
		return errors.New("user not found")
	}
	r.users[user.ID] = user
	return nil
}

func (r *InMemoryUserRepository) Delete(ctx context.Context, id string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	delete(r.users, id)
	return nil
}

// Dedup ledger implementation. The map key is (user, message); the write lock
// makes insert-if-absent atomic, mirroring the unique constraint the Postgres
// implementation relies on.
type InMemoryProcessedRepository struct {
	records map[processedKey]*model.ProcessedRecord
	mutex   sync.RWMutex
}

type processedKey struct {
	userID    string
	messageID string
}

func NewInMemoryProcessedRepository() *InMemoryProcessedRepository {
	return &InMemoryProcessedRepository{
		records: make(map[processedKey]*model.ProcessedRecord),
	}
}

func (r *InMemoryProcessedRepository) MarkProcessed(ctx context.Context, record *model.ProcessedRecord) (bool, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	key := processedKey{record.UserID, record.MessageID}
	if _, exists := r.records[key]; exists {
		return false, nil
	}
	if record.ProcessedAt.IsZero() {
		record.ProcessedAt = time.Now()
	}
	r.records[key] = record
	return true, nil
}

func (r *InMemoryProcessedRepository) IsProcessed(ctx context.Context, userID, messageID string) (bool, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	_, exists := r.records[processedKey{userID, messageID}]
	return exists, nil
}

// Review queue implementation.
type InMemoryReviewRepository struct {
	items map[string]*model.ReviewItem // item ID -> item
	mutex sync.RWMutex
}

func NewInMemoryReviewRepository() *InMemoryReviewRepository {
	return &InMemoryReviewRepository{
		items: make(map[string]*model.ReviewItem),
	}
}

func (r *InMemoryReviewRepository) Create(ctx context.Context, item *model.ReviewItem) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	// One entry per (user, message): replace an existing entry in place,
	// keeping its ID and created timestamp.
	for id, existing := range r.items {
		if existing.UserID == item.UserID && existing.MessageID == item.MessageID {
			item.ID = existing.ID
			item.CreatedAt = existing.CreatedAt
			item.UpdatedAt = time.Now()
			r.items[id] = item
			return nil
		}
	}
	r.items[item.ID] = item
	return nil
}

func (r *InMemoryReviewRepository) FindByID(ctx context.Context, userID, itemID string) (*model.ReviewItem, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	item, exists := r.items[itemID]
	if !exists || item.UserID != userID {
		return nil, errors.New("review item not found")
	}
	return item, nil
}

func (r *InMemoryReviewRepository) FindByUser(ctx context.Context, userID string, pendingOnly bool, limit int) ([]*model.ReviewItem, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var result []*model.ReviewItem
	for _, item := range r.items {
		if item.UserID != userID {
			continue
		}
		if pendingOnly && item.Status != model.StatusPending {
			continue
		}
		result = append(result, item)
	}
	// Newest first.
	for i := 0; i < len(result); i++ {
		for j := i + 1; j < len(result); j++ {
			if result[j].CreatedAt.After(result[i].CreatedAt) {
				result[i], result[j] = result[j], result[i]
			}
		}
	}
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *InMemoryReviewRepository) UpdateStatus(ctx context.Context, userID, itemID, status, actionTaken string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	item, exists := r.items[itemID]
	if !exists || item.UserID != userID {
		return errors.New("review item not found")
	}
	item.Status = status
	item.ActionTaken = actionTaken
	item.UpdatedAt = time.Now()
	return nil
}

func (r *InMemoryReviewRepository) UpdateDraft(ctx context.Context, userID, itemID, draftReply string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	item, exists := r.items[itemID]
	if !exists || item.UserID != userID {
		return errors.New("review item not found")
	}
	item.DraftReply = draftReply
	item.UpdatedAt = time.Now()
	return nil
}
