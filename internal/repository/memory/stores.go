package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"inbox-autopilot/internal/model"
)

// Activity log implementation with bounded retention.
type InMemoryEventRepository struct {
	events map[string][]*model.Event // userID -> newest last
	nextID int64
	mutex  sync.RWMutex
}

func NewInMemoryEventRepository() *InMemoryEventRepository {
	return &InMemoryEventRepository{
		events: make(map[string][]*model.Event),
	}
}

func (r *InMemoryEventRepository) Append(ctx context.Context, userID, eventType, message string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.nextID++
	r.events[userID] = append(r.events[userID], &model.Event{
		ID:        r.nextID,
		UserID:    userID,
		EventType: eventType,
		Message:   message,
		CreatedAt: time.Now(),
	})

	if excess := len(r.events[userID]) - model.EventRetention; excess > 0 {
		r.events[userID] = r.events[userID][excess:]
	}
	return nil
}

func (r *InMemoryEventRepository) FindRecent(ctx context.Context, userID string, limit int) ([]*model.Event, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	events := r.events[userID]
	var result []*model.Event
	for i := len(events) - 1; i >= 0; i-- {
		result = append(result, events[i])
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

// Settings and behavior params implementation.
type InMemorySettingsRepository struct {
	settings map[string]model.Settings
	params   map[string]model.Params
	mutex    sync.RWMutex
}

func NewInMemorySettingsRepository() *InMemorySettingsRepository {
	return &InMemorySettingsRepository{
		settings: make(map[string]model.Settings),
		params:   make(map[string]model.Params),
	}
}

func (r *InMemorySettingsRepository) GetSettings(ctx context.Context, userID string) (model.Settings, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if settings, exists := r.settings[userID]; exists {
		return settings, nil
	}
	return model.DefaultSettings(), nil
}

func (r *InMemorySettingsRepository) PutSettings(ctx context.Context, userID string, settings model.Settings) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.settings[userID] = settings
	return nil
}

func (r *InMemorySettingsRepository) GetParams(ctx context.Context, userID string) (model.Params, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return r.params[userID], nil
}

func (r *InMemorySettingsRepository) PutParams(ctx context.Context, userID string, params model.Params) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.params[userID] = params
	return nil
}

// Schedule last-run state implementation.
type InMemoryScheduleRepository struct {
	states map[string]*model.ScheduleState
	mutex  sync.RWMutex
}

func NewInMemoryScheduleRepository() *InMemoryScheduleRepository {
	return &InMemoryScheduleRepository{
		states: make(map[string]*model.ScheduleState),
	}
}

func (r *InMemoryScheduleRepository) Get(ctx context.Context, userID string) (*model.ScheduleState, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	state, exists := r.states[userID]
	if !exists {
		return nil, errors.New("schedule state not found")
	}
	return state, nil
}

func (r *InMemoryScheduleRepository) Put(ctx context.Context, state *model.ScheduleState) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	state.UpdatedAt = time.Now()
	r.states[state.UserID] = state
	return nil
}

// Contact implementation.
type InMemoryContactRepository struct {
	contacts map[string]map[string]*model.Contact // userID -> email -> contact
	mutex    sync.RWMutex
}

func NewInMemoryContactRepository() *InMemoryContactRepository {
	return &InMemoryContactRepository{
		contacts: make(map[string]map[string]*model.Contact),
	}
}

func (r *InMemoryContactRepository) Upsert(ctx context.Context, contact *model.Contact) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.contacts[contact.UserID] == nil {
		r.contacts[contact.UserID] = make(map[string]*model.Contact)
	}
	now := time.Now()
	if existing, exists := r.contacts[contact.UserID][contact.Email]; exists {
		contact.CreatedAt = existing.CreatedAt
	} else {
		contact.CreatedAt = now
	}
	contact.UpdatedAt = now
	r.contacts[contact.UserID][contact.Email] = contact
	return nil
}

func (r *InMemoryContactRepository) FindByUser(ctx context.Context, userID string) ([]*model.Contact, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var result []*model.Contact
	for _, contact := range r.contacts[userID] {
		result = append(result, contact)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].InteractionCount > result[j].InteractionCount
	})
	return result, nil
}

func (r *InMemoryContactRepository) FindByEmail(ctx context.Context, userID, email string) (*model.Contact, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	contact, exists := r.contacts[userID][email]
	if !exists {
		return nil, errors.New("contact not found")
	}
	return contact, nil
}

func (r *InMemoryContactRepository) Delete(ctx context.Context, userID, email string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	delete(r.contacts[userID], email)
	return nil
}
