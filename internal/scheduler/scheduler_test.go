package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"inbox-autopilot/internal/gmail"
	"inbox-autopilot/internal/logger"
	"inbox-autopilot/internal/model"
	"inbox-autopilot/internal/repository/memory"
)

// stubProcessor lets tests observe and slow down pipeline calls.
type stubProcessor struct {
	fn func(ctx context.Context, user *model.User, settings model.Settings, msg *model.Message) *model.ProcessResult
}

func (s *stubProcessor) ProcessMessage(ctx context.Context, user *model.User, settings model.Settings, msg *model.Message) *model.ProcessResult {
	if s.fn != nil {
		return s.fn(ctx, user, settings, msg)
	}
	return &model.ProcessResult{MessageID: msg.ID, Action: model.ResultSkipped, Reason: "stub"}
}

type schedulerFixture struct {
	userRepo     *memory.InMemoryUserRepository
	settingsRepo *memory.InMemorySettingsRepository
	scheduleRepo *memory.InMemoryScheduleRepository
	eventRepo    *memory.InMemoryEventRepository
	mail         *gmail.MockMailClient
	processor    *stubProcessor
	scheduler    *Scheduler
	user         *model.User
}

func newSchedulerFixture(t *testing.T) *schedulerFixture {
	f := &schedulerFixture{
		userRepo:     memory.NewInMemoryUserRepository(),
		settingsRepo: memory.NewInMemorySettingsRepository(),
		scheduleRepo: memory.NewInMemoryScheduleRepository(),
		eventRepo:    memory.NewInMemoryEventRepository(),
		mail:         gmail.NewMockMailClient(),
		processor:    &stubProcessor{},
	}

	f.scheduler = NewScheduler(f.userRepo, f.settingsRepo, f.scheduleRepo, f.eventRepo, f.mail, f.processor, logger.New())

	f.user = model.NewUser("google_1", "owner@example.com", "Owner", "token", "refresh", time.Now().Add(time.Hour))
	assert.NoError(t, f.userRepo.Create(context.Background(), f.user))
	return f
}

func candidates(n int) []*model.Message {
	msgs := make([]*model.Message, 0, n)
	for i := 0; i < n; i++ {
		msgs = append(msgs, model.NewMessage(
			string(rune('a'+i)), "thread", "x@example.com", "subj", "body", "snippet", false, time.Now()))
	}
	return msgs
}

func TestRunNowWithoutScheduleFails(t *testing.T) {
	f := newSchedulerFixture(t)

	_, err := f.scheduler.RunNow(context.Background(), f.user.ID)
	assert.Error(t, err)
}

func TestRunNowProcessesBatchSequentially(t *testing.T) {
	f := newSchedulerFixture(t)
	f.scheduler.AddOrReplace(f.user.ID, 30)
	defer f.scheduler.Stop()

	f.mail.FetchCandidatesFunc = func(ctx context.Context, userEmail string, maxResults int64, afterEpoch int64) ([]*model.Message, error) {
		assert.Equal(t, int64(BatchLimit), maxResults)
		return candidates(3), nil
	}

	var order []string
	f.processor.fn = func(ctx context.Context, user *model.User, settings model.Settings, msg *model.Message) *model.ProcessResult {
		order = append(order, msg.ID)
		return &model.ProcessResult{MessageID: msg.ID, Action: model.ResultReview}
	}

	results, err := f.scheduler.RunNow(context.Background(), f.user.ID)
	assert.NoError(t, err)
	assert.Len(t, results, 3)
	assert.Equal(t, []string{"a", "b", "c"}, order)

	// Run summary is persisted
	state, err := f.scheduleRepo.Get(context.Background(), f.user.ID)
	assert.NoError(t, err)
	assert.Equal(t, 3, state.ScannedCount)
	assert.Equal(t, 3, state.QueuedCount)
}

func TestRunNowUsesServiceStartWhenLookbackZero(t *testing.T) {
	f := newSchedulerFixture(t)
	f.scheduler.AddOrReplace(f.user.ID, 30)
	defer f.scheduler.Stop()

	settings := model.DefaultSettings()
	settings.LookbackHours = 0
	assert.NoError(t, f.settingsRepo.PutSettings(context.Background(), f.user.ID, settings))

	var gotEpoch int64
	f.mail.FetchCandidatesFunc = func(ctx context.Context, userEmail string, maxResults int64, afterEpoch int64) ([]*model.Message, error) {
		gotEpoch = afterEpoch
		return nil, nil
	}

	_, err := f.scheduler.RunNow(context.Background(), f.user.ID)
	assert.NoError(t, err)
	assert.Equal(t, f.user.ServiceStartEpoch, gotEpoch)
}

func TestRunNowUsesLookbackWindow(t *testing.T) {
	f := newSchedulerFixture(t)
	f.scheduler.AddOrReplace(f.user.ID, 30)
	defer f.scheduler.Stop()

	settings := model.DefaultSettings()
	settings.LookbackHours = 48
	assert.NoError(t, f.settingsRepo.PutSettings(context.Background(), f.user.ID, settings))

	var gotEpoch int64
	f.mail.FetchCandidatesFunc = func(ctx context.Context, userEmail string, maxResults int64, afterEpoch int64) ([]*model.Message, error) {
		gotEpoch = afterEpoch
		return nil, nil
	}

	before := time.Now().Unix() - 48*3600
	_, err := f.scheduler.RunNow(context.Background(), f.user.ID)
	after := time.Now().Unix() - 48*3600

	assert.NoError(t, err)
	assert.GreaterOrEqual(t, gotEpoch, before)
	assert.LessOrEqual(t, gotEpoch, after)
}

func TestRunNowFailsWithoutCredential(t *testing.T) {
	f := newSchedulerFixture(t)
	f.scheduler.AddOrReplace(f.user.ID, 30)
	defer f.scheduler.Stop()

	f.user.AccessToken = ""
	assert.NoError(t, f.userRepo.Update(context.Background(), f.user))

	_, err := f.scheduler.RunNow(context.Background(), f.user.ID)
	assert.Error(t, err)

	// The failed attempt is visible in the activity log
	events, _ := f.eventRepo.FindRecent(context.Background(), f.user.ID, 10)
	assert.NotEmpty(t, events)
	assert.Equal(t, "No valid token - skipping poll", events[0].Message)
}

func TestSameUserPollsNeverOverlap(t *testing.T) {
	f := newSchedulerFixture(t)
	f.scheduler.AddOrReplace(f.user.ID, 30)
	defer f.scheduler.Stop()

	f.mail.FetchCandidatesFunc = func(ctx context.Context, userEmail string, maxResults int64, afterEpoch int64) ([]*model.Message, error) {
		return candidates(1), nil
	}

	var active, maxActive int32
	f.processor.fn = func(ctx context.Context, user *model.User, settings model.Settings, msg *model.Message) *model.ProcessResult {
		current := atomic.AddInt32(&active, 1)
		for {
			seen := atomic.LoadInt32(&maxActive)
			if current <= seen || atomic.CompareAndSwapInt32(&maxActive, seen, current) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return &model.ProcessResult{MessageID: msg.ID, Action: model.ResultSkipped}
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.scheduler.RunNow(context.Background(), f.user.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxActive)
}

func TestReplacingScheduleMidPollStillSerializes(t *testing.T) {
	f := newSchedulerFixture(t)
	f.scheduler.AddOrReplace(f.user.ID, 30)
	defer f.scheduler.Stop()

	f.mail.FetchCandidatesFunc = func(ctx context.Context, userEmail string, maxResults int64, afterEpoch int64) ([]*model.Message, error) {
		return candidates(1), nil
	}

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	var active, maxActive int32
	f.processor.fn = func(ctx context.Context, user *model.User, settings model.Settings, msg *model.Message) *model.ProcessResult {
		current := atomic.AddInt32(&active, 1)
		for {
			seen := atomic.LoadInt32(&maxActive)
			if current <= seen || atomic.CompareAndSwapInt32(&maxActive, seen, current) {
				break
			}
		}
		once.Do(func() { close(entered) })
		<-release
		atomic.AddInt32(&active, -1)
		return &model.ProcessResult{MessageID: msg.ID, Action: model.ResultSkipped}
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := f.scheduler.RunNow(context.Background(), f.user.ID)
		assert.NoError(t, err)
	}()
	<-entered

	// Replace the job while the first poll is still inside the processor,
	// then trigger another run under the replacement.
	f.scheduler.AddOrReplace(f.user.ID, 15)

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := f.scheduler.RunNow(context.Background(), f.user.ID)
		assert.NoError(t, err)
	}()

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), maxActive)
}

func TestDifferentUsersRunIndependently(t *testing.T) {
	f := newSchedulerFixture(t)
	other := model.NewUser("google_2", "second@example.com", "Second", "token2", "refresh2", time.Now().Add(time.Hour))
	assert.NoError(t, f.userRepo.Create(context.Background(), other))

	f.scheduler.AddOrReplace(f.user.ID, 30)
	f.scheduler.AddOrReplace(other.ID, 30)
	defer f.scheduler.Stop()

	f.mail.FetchCandidatesFunc = func(ctx context.Context, userEmail string, maxResults int64, afterEpoch int64) ([]*model.Message, error) {
		return candidates(1), nil
	}

	var wg sync.WaitGroup
	for _, userID := range []string{f.user.ID, other.ID} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := f.scheduler.RunNow(context.Background(), id)
			assert.NoError(t, err)
		}(userID)
	}
	wg.Wait()

	// Both users got their own run state
	_, err := f.scheduleRepo.Get(context.Background(), f.user.ID)
	assert.NoError(t, err)
	_, err = f.scheduleRepo.Get(context.Background(), other.ID)
	assert.NoError(t, err)
}

func TestRemoveStopsPolling(t *testing.T) {
	f := newSchedulerFixture(t)
	f.scheduler.AddOrReplace(f.user.ID, 30)
	f.scheduler.Remove(f.user.ID)

	_, err := f.scheduler.RunNow(context.Background(), f.user.ID)
	assert.Error(t, err)
}

func TestStatusReportsInstalledJob(t *testing.T) {
	f := newSchedulerFixture(t)

	status, err := f.scheduler.Status(context.Background(), f.user.ID)
	assert.NoError(t, err)
	assert.False(t, status.Installed)

	f.scheduler.AddOrReplace(f.user.ID, 15)
	defer f.scheduler.Stop()

	status, err = f.scheduler.Status(context.Background(), f.user.ID)
	assert.NoError(t, err)
	assert.True(t, status.Installed)
	assert.Equal(t, 15, status.IntervalMinutes)
}

func TestWithinWindowIsInclusive(t *testing.T) {
	settings := model.DefaultSettings()
	settings.Timezone = "UTC"
	settings.PollStartHour = 9
	settings.PollEndHour = 17

	at := func(hour int) time.Time {
		return time.Date(2025, 6, 2, hour, 30, 0, 0, time.UTC)
	}

	assert.False(t, withinWindow(at(8), settings))
	assert.True(t, withinWindow(at(9), settings))
	assert.True(t, withinWindow(at(17), settings))
	assert.False(t, withinWindow(at(18), settings))
}
