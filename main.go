package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"inbox-autopilot/internal/ai"
	"inbox-autopilot/internal/config"
	"inbox-autopilot/internal/gcal"
	"inbox-autopilot/internal/gdrive"
	"inbox-autopilot/internal/gmail"
	"inbox-autopilot/internal/handler"
	"inbox-autopilot/internal/logger"
	"inbox-autopilot/internal/model"
	"inbox-autopilot/internal/repository"
	"inbox-autopilot/internal/repository/memory"
	"inbox-autopilot/internal/repository/postgres"
	"inbox-autopilot/internal/router"
	"inbox-autopilot/internal/scheduler"
	"inbox-autopilot/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatal("Config validation failed:", err)
	}

	// Initialize logger
	appLogger := logger.New()

	// Initialize repositories (conditionally use postgres or in-memory based on DATABASE_URL)
	var userRepo repository.UserRepository
	var processedRepo repository.ProcessedRepository
	var reviewRepo repository.ReviewRepository
	var eventRepo repository.EventRepository
	var settingsRepo repository.SettingsRepository
	var scheduleRepo repository.ScheduleRepository
	var contactRepo repository.ContactRepository

	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Fatal("Failed to connect to database:", err)
		}
		defer db.Close()

		userRepo = postgres.NewPostgresUserRepository(db)
		processedRepo = postgres.NewPostgresProcessedRepository(db)
		reviewRepo = postgres.NewPostgresReviewRepository(db)
		eventRepo = postgres.NewPostgresEventRepository(db)
		settingsRepo = postgres.NewPostgresSettingsRepository(db)
		scheduleRepo = postgres.NewPostgresScheduleRepository(db)
		contactRepo = postgres.NewPostgresContactRepository(db)

		// Initialize database tables
		if err := postgres.InitializeDatabase(db); err != nil {
			log.Fatal("Failed to initialize database:", err)
		}

		appLogger.Info("Using PostgreSQL repositories")
	} else {
		userRepo = memory.NewInMemoryUserRepository()
		processedRepo = memory.NewInMemoryProcessedRepository()
		reviewRepo = memory.NewInMemoryReviewRepository()
		eventRepo = memory.NewInMemoryEventRepository()
		settingsRepo = memory.NewInMemorySettingsRepository()
		scheduleRepo = memory.NewInMemoryScheduleRepository()
		contactRepo = memory.NewInMemoryContactRepository()

		appLogger.Info("Using in-memory repositories")
	}

	// Initialize AI oracles
	aiClient := ai.NewClient(cfg.AIProvider, cfg.AIKey, appLogger)
	classifier := ai.NewEmailClassifier(aiClient)
	drafter := ai.NewReplyDrafter(aiClient)
	analyzer := ai.NewProfileAnalyzer(aiClient)

	// Create Google clients that resolve user-specific access tokens
	mailClient := NewUserSpecificMailClient(userRepo, appLogger)
	calendarClient := NewUserSpecificCalendarClient(userRepo, appLogger)
	driveClient := NewUserSpecificDriveClient(userRepo, appLogger)

	// Initialize services
	authService := service.NewAuthService(userRepo, appLogger)
	processor := service.NewProcessor(
		mailClient,
		classifier,
		drafter,
		calendarClient,
		driveClient,
		processedRepo,
		reviewRepo,
		eventRepo,
		settingsRepo,
		contactRepo,
		appLogger,
	)
	reviewService := service.NewReviewService(reviewRepo, eventRepo, userRepo, mailClient, driveClient, appLogger)
	setupService := service.NewSetupService(userRepo, settingsRepo, contactRepo, eventRepo, mailClient, analyzer, appLogger)

	// Initialize the per-user polling scheduler
	sched := scheduler.NewScheduler(userRepo, settingsRepo, scheduleRepo, eventRepo, mailClient, processor, appLogger)
	defer sched.Stop()

	// Re-install polling jobs for users who authorized in a previous run
	reinstallSchedules(userRepo, settingsRepo, sched, appLogger)

	// Initialize handlers
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	authHandler := handler.NewAuthHandler(authService, setupService, settingsRepo, sched, cfg, e.Logger)
	queueHandler := handler.NewQueueHandler(reviewService, authHandler, e.Logger)
	configHandler := handler.NewConfigHandler(settingsRepo, sched, authHandler, e.Logger)
	schedulerHandler := handler.NewSchedulerHandler(sched, eventRepo, authHandler, e.Logger)
	contactsHandler := handler.NewContactsHandler(contactRepo, authHandler, e.Logger)

	// Setup routes
	router.SetupRoutes(e, authHandler, queueHandler, configHandler, schedulerHandler, contactsHandler)

	// Start server
	appLogger.Info("Starting server on port", cfg.Port)
	if err := e.Start(":" + cfg.Port); err != nil {
		appLogger.Error("Failed to start server:", err)
	}
}

// reinstallSchedules restores polling jobs after a restart for every user
// who still holds a credential.
func reinstallSchedules(userRepo repository.UserRepository, settingsRepo repository.SettingsRepository, sched *scheduler.Scheduler, logger *logger.Logger) {
	ctx := context.Background()

	users, err := userRepo.FindAll(ctx)
	if err != nil {
		logger.Error("Failed to list users for schedule restore:", err)
		return
	}

	restored := 0
	for _, user := range users {
		if !user.HasCredential() {
			continue
		}
		settings, err := settingsRepo.GetSettings(ctx, user.ID)
		if err != nil {
			settings = model.DefaultSettings()
		}
		sched.AddOrReplace(user.ID, settings.PollIntervalMinutes)
		restored++
	}
	if restored > 0 {
		logger.Info("Restored polling for", restored, "user(s)")
	}
}

// accessTokenFor resolves the stored access token for a user email.
func accessTokenFor(ctx context.Context, userRepo repository.UserRepository, userEmail string) (string, error) {
	user, err := userRepo.FindByEmail(ctx, userEmail)
	if err != nil {
		return "", fmt.Errorf("user not found for email: %s", userEmail)
	}
	if user.AccessToken == "" {
		return "", fmt.Errorf("access token not available for user: %s", userEmail)
	}
	return user.AccessToken, nil
}

// UserSpecificMailClient builds a Gmail client with the right user's token
// on every call.
type UserSpecificMailClient struct {
	userRepo repository.UserRepository
	logger   *logger.Logger
}

func NewUserSpecificMailClient(userRepo repository.UserRepository, logger *logger.Logger) service.MailClient {
	return &UserSpecificMailClient{
		userRepo: userRepo,
		logger:   logger,
	}
}

func (u *UserSpecificMailClient) client(ctx context.Context, userEmail string) (service.MailClient, error) {
	token, err := accessTokenFor(ctx, u.userRepo, userEmail)
	if err != nil {
		return nil, err
	}
	return gmail.NewGmailClient(token, u.logger)
}

func (u *UserSpecificMailClient) FetchCandidates(ctx context.Context, userEmail string, maxResults int64, afterEpoch int64) ([]*model.Message, error) {
	client, err := u.client(ctx, userEmail)
	if err != nil {
		return nil, err
	}
	return client.FetchCandidates(ctx, userEmail, maxResults, afterEpoch)
}

func (u *UserSpecificMailClient) SendReply(ctx context.Context, userEmail, threadID, to, subject, body string, attachments []*model.Attachment) error {
	client, err := u.client(ctx, userEmail)
	if err != nil {
		return err
	}
	return client.SendReply(ctx, userEmail, threadID, to, subject, body, attachments)
}

func (u *UserSpecificMailClient) CreateDraft(ctx context.Context, userEmail, threadID, to, subject, body string, attachments []*model.Attachment) (string, error) {
	client, err := u.client(ctx, userEmail)
	if err != nil {
		return "", err
	}
	return client.CreateDraft(ctx, userEmail, threadID, to, subject, body, attachments)
}

func (u *UserSpecificMailClient) MarkRead(ctx context.Context, userEmail, messageID string) error {
	client, err := u.client(ctx, userEmail)
	if err != nil {
		return err
	}
	return client.MarkRead(ctx, userEmail, messageID)
}

func (u *UserSpecificMailClient) FetchSent(ctx context.Context, userEmail string, maxResults int64, since time.Duration, headersOnly bool) ([]*model.SentMessage, error) {
	client, err := u.client(ctx, userEmail)
	if err != nil {
		return nil, err
	}
	return client.FetchSent(ctx, userEmail, maxResults, since, headersOnly)
}

// UserSpecificCalendarClient builds a Calendar client per call. Failures
// surface as missing availability, matching the calendar contract.
type UserSpecificCalendarClient struct {
	userRepo repository.UserRepository
	logger   *logger.Logger
}

func NewUserSpecificCalendarClient(userRepo repository.UserRepository, logger *logger.Logger) service.CalendarClient {
	return &UserSpecificCalendarClient{
		userRepo: userRepo,
		logger:   logger,
	}
}

func (u *UserSpecificCalendarClient) FreeSlots(ctx context.Context, userEmail string, daysAhead int, timezone string) string {
	token, err := accessTokenFor(ctx, u.userRepo, userEmail)
	if err != nil {
		u.logger.Error("Calendar lookup skipped:", err)
		return ""
	}
	client, err := gcal.NewCalendarClient(token, u.logger)
	if err != nil {
		u.logger.Error("Failed to create Calendar client:", err)
		return ""
	}
	return client.FreeSlots(ctx, userEmail, daysAhead, timezone)
}

// UserSpecificDriveClient builds a Drive client per call. Failures surface
// as no attachments, matching the drive contract.
type UserSpecificDriveClient struct {
	userRepo repository.UserRepository
	logger   *logger.Logger
}

func NewUserSpecificDriveClient(userRepo repository.UserRepository, logger *logger.Logger) service.DriveClient {
	return &UserSpecificDriveClient{
		userRepo: userRepo,
		logger:   logger,
	}
}

func (u *UserSpecificDriveClient) SearchAttachments(ctx context.Context, userEmail, query string) []*model.Attachment {
	token, err := accessTokenFor(ctx, u.userRepo, userEmail)
	if err != nil {
		u.logger.Error("Drive search skipped:", err)
		return nil
	}
	client, err := gdrive.NewDriveClient(token, u.logger)
	if err != nil {
		u.logger.Error("Failed to create Drive client:", err)
		return nil
	}
	return client.SearchAttachments(ctx, userEmail, query)
}
