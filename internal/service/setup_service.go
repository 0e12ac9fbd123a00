package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"inbox-autopilot/internal/logger"
	"inbox-autopilot/internal/model"
	"inbox-autopilot/internal/repository"
)

const (
	voiceSampleTarget  = 20
	voiceSampleCap     = 50
	voiceSampleBodyCap = 500
	voiceFetchLimit    = 100
	voiceLookback      = 30 * 24 * time.Hour
	voiceLookbackWide  = 90 * 24 * time.Hour

	contactFetchLimit = 500
	contactLookback   = 365 * 24 * time.Hour
	topContactCount   = 20
)

type setupService struct {
	userRepo     repository.UserRepository
	settingsRepo repository.SettingsRepository
	contactRepo  repository.ContactRepository
	eventRepo    repository.EventRepository
	mail         MailClient
	analyzer     ProfileAnalyzer
	logger       *logger.Logger
}

func NewSetupService(
	userRepo repository.UserRepository,
	settingsRepo repository.SettingsRepository,
	contactRepo repository.ContactRepository,
	eventRepo repository.EventRepository,
	mail MailClient,
	analyzer ProfileAnalyzer,
	logger *logger.Logger,
) SetupService {
	return &setupService{
		userRepo:     userRepo,
		settingsRepo: settingsRepo,
		contactRepo:  contactRepo,
		eventRepo:    eventRepo,
		mail:         mail,
		analyzer:     analyzer,
		logger:       logger.Tagged("setup"),
	}
}

// Run performs the one-time profile bootstrap: learn the user's writing
// voice from sent mail and classify their most frequent correspondents.
// The two halves are independent; a failure in one is logged as a warning
// and the other still runs.
func (s *setupService) Run(ctx context.Context, userID string) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		s.logger.Errorf("Setup aborted, user %s not found: %v", userID, err)
		return
	}

	s.logger.Info("Starting background setup for:", user.Email)

	settings, err := s.settingsRepo.GetSettings(ctx, userID)
	if err != nil {
		settings = model.DefaultSettings()
	}

	if err := s.buildVoiceProfile(ctx, user, settings.Model); err != nil {
		s.logger.Warnf("Voice profile setup failed for %s: %v", user.Email, err)
		s.logEvent(ctx, userID, "setup_warning", fmt.Sprintf("Could not build voice profile: %v", err))
	}

	if err := s.analyzeContacts(ctx, user, settings.Model); err != nil {
		s.logger.Warnf("Contact analysis failed for %s: %v", user.Email, err)
		s.logEvent(ctx, userID, "setup_warning", fmt.Sprintf("Could not analyze contacts: %v", err))
	}

	user.SetupStatus = "complete"
	user.UpdatedAt = time.Now()
	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Errorf("Failed to mark setup complete for %s: %v", user.Email, err)
		return
	}

	s.logEvent(ctx, userID, "setup_complete", "Profile setup finished")
	s.logger.Info("Background setup finished for:", user.Email)
}

func (s *setupService) buildVoiceProfile(ctx context.Context, user *model.User, modelName string) error {
	sent, err := s.mail.FetchSent(ctx, user.Email, voiceFetchLimit, voiceLookback, false)
	if err != nil {
		return fmt.Errorf("failed to fetch sent mail: %w", err)
	}
	if len(sent) < voiceSampleTarget {
		// Light senders need a wider window to say anything useful.
		wider, err := s.mail.FetchSent(ctx, user.Email, voiceFetchLimit, voiceLookbackWide, false)
		if err == nil && len(wider) > len(sent) {
			sent = wider
		}
	}

	var samples []string
	for _, msg := range sent {
		body := strings.TrimSpace(msg.Body)
		if body == "" {
			continue
		}
		body = model.Truncate(body, voiceSampleBodyCap)
		samples = append(samples, fmt.Sprintf("Subject: %s\n%s", msg.Subject, body))
		if len(samples) >= voiceSampleCap {
			break
		}
	}
	if len(samples) == 0 {
		return fmt.Errorf("no usable sent messages found")
	}

	traits, err := s.analyzer.AnalyzeVoice(ctx, samples, modelName)
	if err != nil {
		return err
	}

	params, err := s.settingsRepo.GetParams(ctx, user.ID)
	if err != nil {
		params = model.Params{}
	}
	params.VoiceProfile.Traits = traits
	if err := s.settingsRepo.PutParams(ctx, user.ID, params); err != nil {
		return fmt.Errorf("failed to store voice profile: %w", err)
	}

	s.logger.Info("Voice profile built from", len(samples), "samples for:", user.Email)
	return nil
}

type contactTally struct {
	email string
	name  string
	count int
}

func (s *setupService) analyzeContacts(ctx context.Context, user *model.User, modelName string) error {
	sent, err := s.mail.FetchSent(ctx, user.Email, contactFetchLimit, contactLookback, true)
	if err != nil {
		return fmt.Errorf("failed to fetch sent headers: %w", err)
	}

	tallies := map[string]*contactTally{}
	for _, msg := range sent {
		for _, recipient := range strings.Split(msg.To, ",") {
			recipient = strings.TrimSpace(recipient)
			if recipient == "" {
				continue
			}
			email := strings.ToLower(model.ExtractAddress(recipient))
			if email == "" || strings.EqualFold(email, user.Email) {
				continue
			}
			tally, ok := tallies[email]
			if !ok {
				tally = &contactTally{email: email, name: displayName(recipient)}
				tallies[email] = tally
			}
			tally.count++
		}
	}
	if len(tallies) == 0 {
		return fmt.Errorf("no recipients found in sent mail")
	}

	ranked := make([]*contactTally, 0, len(tallies))
	for _, tally := range tallies {
		ranked = append(ranked, tally)
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].count > ranked[j].count })
	if len(ranked) > topContactCount {
		ranked = ranked[:topContactCount]
	}

	lines := make([]string, 0, len(ranked))
	for _, tally := range ranked {
		lines = append(lines, fmt.Sprintf("%s | %s | %d", tally.email, tally.name, tally.count))
	}

	contacts, err := s.analyzer.ClassifyContacts(ctx, lines, modelName)
	if err != nil {
		return err
	}

	for _, contact := range contacts {
		contact.UserID = user.ID
		if tally, ok := tallies[contact.Email]; ok {
			contact.InteractionCount = tally.count
			if contact.Name == "" {
				contact.Name = tally.name
			}
		}
		if err := s.contactRepo.Upsert(ctx, contact); err != nil {
			s.logger.Errorf("Failed to store contact %s: %v", contact.Email, err)
		}
	}

	s.logger.Info("Classified", len(contacts), "contacts for:", user.Email)
	return nil
}

// displayName extracts the name part of a "Name <addr>" recipient.
func displayName(recipient string) string {
	if idx := strings.Index(recipient, "<"); idx > 0 {
		return strings.Trim(strings.TrimSpace(recipient[:idx]), `"`)
	}
	return ""
}

func (s *setupService) logEvent(ctx context.Context, userID, eventType, message string) {
	if err := s.eventRepo.Append(ctx, userID, eventType, message); err != nil {
		s.logger.Errorf("Failed to append activity log entry: %v", err)
	}
}
