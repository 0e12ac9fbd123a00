package handler

import (
	"fmt"
	"net/http"
	"time"

	"inbox-autopilot/internal/model"
	"inbox-autopilot/internal/repository"
	"inbox-autopilot/internal/scheduler"

	"github.com/labstack/echo/v4"
)

type ConfigHandler struct {
	settingsRepo repository.SettingsRepository
	scheduler    *scheduler.Scheduler
	authHandler  *AuthHandler
	logger       echo.Logger
}

func NewConfigHandler(settingsRepo repository.SettingsRepository, sched *scheduler.Scheduler, authHandler *AuthHandler, logger echo.Logger) *ConfigHandler {
	return &ConfigHandler{
		settingsRepo: settingsRepo,
		scheduler:    sched,
		authHandler:  authHandler,
		logger:       logger,
	}
}

// GetSettings returns the user's settings, defaults included
func (h *ConfigHandler) GetSettings(c echo.Context) error {
	user, err := h.authHandler.GetCurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "Unauthorized",
		})
	}

	settings, err := h.settingsRepo.GetSettings(c.Request().Context(), user.ID)
	if err != nil {
		h.logger.Error("Failed to load settings:", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, settings)
}

// UpdateSettings validates and stores new settings. A changed interval
// reinstalls the polling job on the spot.
func (h *ConfigHandler) UpdateSettings(c echo.Context) error {
	user, err := h.authHandler.GetCurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "Unauthorized",
		})
	}

	current, err := h.settingsRepo.GetSettings(c.Request().Context(), user.ID)
	if err != nil {
		current = model.DefaultSettings()
	}

	var settings model.Settings
	if err := c.Bind(&settings); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request body",
		})
	}

	if err := validateSettings(settings); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
	}

	if err := h.settingsRepo.PutSettings(c.Request().Context(), user.ID, settings); err != nil {
		h.logger.Error("Failed to save settings:", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": err.Error(),
		})
	}

	if settings.PollIntervalMinutes != current.PollIntervalMinutes {
		h.scheduler.AddOrReplace(user.ID, settings.PollIntervalMinutes)
	}

	return c.JSON(http.StatusOK, settings)
}

func validateSettings(s model.Settings) error {
	if s.PollIntervalMinutes < 1 || s.PollIntervalMinutes > 1440 {
		return fmt.Errorf("poll_interval_minutes must be between 1 and 1440")
	}
	if s.PollStartHour < 0 || s.PollStartHour > 23 || s.PollEndHour < 0 || s.PollEndHour > 23 {
		return fmt.Errorf("poll hours must be between 0 and 23")
	}
	if s.PollStartHour > s.PollEndHour {
		return fmt.Errorf("poll_start_hour must not be after poll_end_hour")
	}
	if s.AutonomyLevel < 1 || s.AutonomyLevel > 3 {
		return fmt.Errorf("autonomy_level must be 1, 2 or 3")
	}
	if s.LowConfidenceThreshold < 0 || s.LowConfidenceThreshold > 1 {
		return fmt.Errorf("low_confidence_threshold must be between 0 and 1")
	}
	if s.LookbackHours < 0 {
		return fmt.Errorf("lookback_hours must not be negative")
	}
	if s.Timezone != "" {
		if _, err := time.LoadLocation(s.Timezone); err != nil {
			return fmt.Errorf("unknown timezone: %s", s.Timezone)
		}
	}
	return nil
}

// GetProfile returns the drafting params, voice profile included
func (h *ConfigHandler) GetProfile(c echo.Context) error {
	user, err := h.authHandler.GetCurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "Unauthorized",
		})
	}

	params, err := h.settingsRepo.GetParams(c.Request().Context(), user.ID)
	if err != nil {
		h.logger.Error("Failed to load profile:", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, params)
}

// UpdateProfile replaces the drafting params, letting the user hand-tune
// the generated voice profile
func (h *ConfigHandler) UpdateProfile(c echo.Context) error {
	user, err := h.authHandler.GetCurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "Unauthorized",
		})
	}

	var params model.Params
	if err := c.Bind(&params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request body",
		})
	}

	if err := h.settingsRepo.PutParams(c.Request().Context(), user.ID, params); err != nil {
		h.logger.Error("Failed to save profile:", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, params)
}
