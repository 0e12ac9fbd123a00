package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"inbox-autopilot/internal/logger"
	"inbox-autopilot/internal/model"
	"inbox-autopilot/internal/repository"
	"inbox-autopilot/internal/service"
)

// BatchLimit caps how many candidates one poll will process.
const BatchLimit = 50

// pollTimeout bounds a single poll including all AI calls.
const pollTimeout = 10 * time.Minute

// userJob is one user's polling loop. Poll serialization lives on the
// Scheduler's per-user locks, not on the job, so replacing a job mid-poll
// still contends with the in-flight run.
type userJob struct {
	userID   string
	interval time.Duration
	ticker   *time.Ticker
	stop     chan struct{}
}

// Status describes one user's schedule for the API surface.
type Status struct {
	Installed       bool                 `json:"installed"`
	IntervalMinutes int                  `json:"interval_minutes,omitempty"`
	PollStartHour   int                  `json:"poll_start_hour"`
	PollEndHour     int                  `json:"poll_end_hour"`
	LastRun         *model.ScheduleState `json:"last_run,omitempty"`
}

// Scheduler runs one independent polling job per user. Jobs tick on the
// user's configured interval, respect the working-hour window, and never
// overlap for the same user.
type Scheduler struct {
	mu    sync.Mutex
	jobs  map[string]*userJob
	locks map[string]*sync.Mutex

	userRepo     repository.UserRepository
	settingsRepo repository.SettingsRepository
	scheduleRepo repository.ScheduleRepository
	eventRepo    repository.EventRepository
	mail         service.MailClient
	processor    service.Processor
	logger       *logger.Logger

	now func() time.Time
}

func NewScheduler(
	userRepo repository.UserRepository,
	settingsRepo repository.SettingsRepository,
	scheduleRepo repository.ScheduleRepository,
	eventRepo repository.EventRepository,
	mail service.MailClient,
	processor service.Processor,
	logger *logger.Logger,
) *Scheduler {
	return &Scheduler{
		jobs:         make(map[string]*userJob),
		locks:        make(map[string]*sync.Mutex),
		userRepo:     userRepo,
		settingsRepo: settingsRepo,
		scheduleRepo: scheduleRepo,
		eventRepo:    eventRepo,
		mail:         mail,
		processor:    processor,
		logger:       logger.Tagged("scheduler"),
		now:          time.Now,
	}
}

// AddOrReplace installs a polling job for the user, replacing any existing
// one. The per-user lock survives replacement, so ticks of the new job
// still wait out (or drop against) a poll started under the old one.
func (s *Scheduler) AddOrReplace(userID string, intervalMinutes int) {
	if intervalMinutes < 1 {
		intervalMinutes = 1
	}
	interval := time.Duration(intervalMinutes) * time.Minute

	job := &userJob{
		userID:   userID,
		interval: interval,
		ticker:   time.NewTicker(interval),
		stop:     make(chan struct{}),
	}

	s.mu.Lock()
	if existing, ok := s.jobs[userID]; ok {
		existing.ticker.Stop()
		close(existing.stop)
	}
	s.jobs[userID] = job
	s.mu.Unlock()

	go s.run(job)
	s.logger.Info("Scheduled polling for user", userID, "every", intervalMinutes, "minute(s)")
}

// Remove stops and forgets the user's polling job, if any.
func (s *Scheduler) Remove(userID string) {
	s.mu.Lock()
	job, ok := s.jobs[userID]
	if ok {
		delete(s.jobs, userID)
	}
	s.mu.Unlock()

	if ok {
		job.ticker.Stop()
		close(job.stop)
		s.logger.Info("Removed polling for user", userID)
	}
}

// Stop shuts down all jobs.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for userID, job := range s.jobs {
		job.ticker.Stop()
		close(job.stop)
		delete(s.jobs, userID)
	}
}

func (s *Scheduler) run(job *userJob) {
	for {
		select {
		case <-job.ticker.C:
			s.tick(job)
		case <-job.stop:
			return
		}
	}
}

// userLock returns the user's poll mutex, creating it on first use. Locks
// are never discarded so a Remove/AddOrReplace cycle keeps the same one.
func (s *Scheduler) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	return lock
}

// tick is one scheduled firing. If the previous poll for this user is
// still running the tick is coalesced into it by dropping this one.
func (s *Scheduler) tick(job *userJob) {
	lock := s.userLock(job.userID)
	if !lock.TryLock() {
		s.logger.Debug("Previous poll still running for user", job.userID, "- skipping tick")
		return
	}
	defer lock.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), pollTimeout)
	defer cancel()

	user, settings, ok := s.prepare(ctx, job.userID)
	if !ok {
		return
	}
	if !withinWindow(s.now(), settings) {
		s.logger.Debug("Outside polling window for user", job.userID)
		return
	}

	s.poll(ctx, user, settings)
}

// RunNow triggers an immediate poll for the user, ignoring the
// working-hour window. It waits for any in-flight poll to finish first so
// polls for one user never interleave.
func (s *Scheduler) RunNow(ctx context.Context, userID string) ([]*model.ProcessResult, error) {
	s.mu.Lock()
	_, ok := s.jobs[userID]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("no schedule installed for user")
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	user, settings, prepared := s.prepare(ctx, userID)
	if !prepared {
		return nil, fmt.Errorf("user has no usable credential")
	}

	return s.poll(ctx, user, settings), nil
}

// Status reports whether a job is installed plus the persisted last-run
// state.
func (s *Scheduler) Status(ctx context.Context, userID string) (*Status, error) {
	settings, err := s.settingsRepo.GetSettings(ctx, userID)
	if err != nil {
		settings = model.DefaultSettings()
	}

	status := &Status{
		PollStartHour: settings.PollStartHour,
		PollEndHour:   settings.PollEndHour,
	}

	s.mu.Lock()
	if job, ok := s.jobs[userID]; ok {
		status.Installed = true
		status.IntervalMinutes = int(job.interval / time.Minute)
	}
	s.mu.Unlock()

	if state, err := s.scheduleRepo.Get(ctx, userID); err == nil {
		status.LastRun = state
	}
	return status, nil
}

// prepare loads the user and settings and verifies the credential. A user
// without a token keeps their schedule; the tick just reports and skips.
func (s *Scheduler) prepare(ctx context.Context, userID string) (*model.User, model.Settings, bool) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		s.logger.Errorf("Poll aborted, user %s not found: %v", userID, err)
		return nil, model.Settings{}, false
	}
	if !user.HasCredential() {
		s.logEvent(ctx, userID, "error", "No valid token - skipping poll")
		return nil, model.Settings{}, false
	}

	settings, err := s.settingsRepo.GetSettings(ctx, userID)
	if err != nil {
		settings = model.DefaultSettings()
	}
	return user, settings, true
}

// withinWindow reports whether t falls in the inclusive polling window.
func withinWindow(t time.Time, settings model.Settings) bool {
	location, err := time.LoadLocation(settings.Timezone)
	if err != nil {
		location = time.UTC
	}
	hour := t.In(location).Hour()
	return hour >= settings.PollStartHour && hour <= settings.PollEndHour
}

// poll fetches a batch of candidates and processes them sequentially,
// then persists the run summary.
func (s *Scheduler) poll(ctx context.Context, user *model.User, settings model.Settings) []*model.ProcessResult {
	started := s.now()
	s.logEvent(ctx, user.ID, "poll_start", "Checking inbox")

	afterEpoch := user.ServiceStartEpoch
	if settings.LookbackHours > 0 {
		afterEpoch = started.Unix() - int64(settings.LookbackHours)*3600
	}

	messages, err := s.mail.FetchCandidates(ctx, user.Email, BatchLimit, afterEpoch)
	if err != nil {
		s.logger.Errorf("Fetch failed for %s: %v", user.Email, err)
		s.logEvent(ctx, user.ID, "error", fmt.Sprintf("Inbox fetch failed: %v", err))
		return nil
	}

	state := &model.ScheduleState{
		UserID:       user.ID,
		LastRunAt:    started,
		ScannedCount: len(messages),
	}

	results := make([]*model.ProcessResult, 0, len(messages))
	for _, msg := range messages {
		result := s.processor.ProcessMessage(ctx, user, settings, msg)
		state.Tally(result)
		results = append(results, result)
	}

	state.UpdatedAt = s.now()
	if err := s.scheduleRepo.Put(ctx, state); err != nil {
		s.logger.Errorf("Failed to persist schedule state for %s: %v", user.Email, err)
	}

	summary := fmt.Sprintf("Scanned %d email(s) - %d queued, %d sent, %d skipped",
		state.ScannedCount, state.QueuedCount, state.SentCount, state.SkippedCount)
	s.logEvent(ctx, user.ID, "poll_end", summary)
	s.logger.Info("Poll finished for", user.Email, "-", summary)

	return results
}

func (s *Scheduler) logEvent(ctx context.Context, userID, eventType, message string) {
	if err := s.eventRepo.Append(ctx, userID, eventType, message); err != nil {
		s.logger.Errorf("Failed to append activity log entry: %v", err)
	}
}
