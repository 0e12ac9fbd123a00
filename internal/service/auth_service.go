package service

import (
	"context"
	"fmt"
	"time"

	"inbox-autopilot/internal/logger"
	"inbox-autopilot/internal/model"
	"inbox-autopilot/internal/repository"
)

type authService struct {
	userRepo repository.UserRepository
	logger   *logger.Logger
}

func NewAuthService(userRepo repository.UserRepository, logger *logger.Logger) AuthService {
	return &authService{
		userRepo: userRepo,
		logger:   logger,
	}
}

// GetOrCreateUser upserts the user after an OAuth callback. The second
// return value reports whether the user is new, which triggers the one-time
// background setup.
func (s *authService) GetOrCreateUser(ctx context.Context, googleID, email, name, accessToken, refreshToken string, tokenExpiry time.Time) (*model.User, bool, error) {
	existing, err := s.userRepo.FindByGoogleID(ctx, googleID)
	if err == nil {
		existing.AccessToken = accessToken
		if refreshToken != "" {
			existing.RefreshToken = refreshToken
		}
		existing.TokenExpiry = tokenExpiry
		existing.UpdatedAt = time.Now()
		if err := s.userRepo.Update(ctx, existing); err != nil {
			return nil, false, fmt.Errorf("failed to update user tokens: %w", err)
		}
		s.logger.Info("Refreshed tokens for user:", email)
		return existing, false, nil
	}

	user := model.NewUser(googleID, email, name, accessToken, refreshToken, tokenExpiry)
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, false, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("Created new user:", email)
	return user, true, nil
}

func (s *authService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	return s.userRepo.FindByID(ctx, userID)
}
