package handler

import (
	"net/http"
	"strconv"

	"inbox-autopilot/internal/repository"
	"inbox-autopilot/internal/scheduler"

	"github.com/labstack/echo/v4"
)

const defaultEventLimit = 50

type SchedulerHandler struct {
	scheduler   *scheduler.Scheduler
	eventRepo   repository.EventRepository
	authHandler *AuthHandler
	logger      echo.Logger
}

func NewSchedulerHandler(sched *scheduler.Scheduler, eventRepo repository.EventRepository, authHandler *AuthHandler, logger echo.Logger) *SchedulerHandler {
	return &SchedulerHandler{
		scheduler:   sched,
		eventRepo:   eventRepo,
		authHandler: authHandler,
		logger:      logger,
	}
}

// GetStatus reports the user's polling schedule and last run
func (h *SchedulerHandler) GetStatus(c echo.Context) error {
	user, err := h.authHandler.GetCurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "Unauthorized",
		})
	}

	status, err := h.scheduler.Status(c.Request().Context(), user.ID)
	if err != nil {
		h.logger.Error("Failed to get scheduler status:", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, status)
}

// RunNow triggers an immediate poll, ignoring the working-hour window
func (h *SchedulerHandler) RunNow(c echo.Context) error {
	user, err := h.authHandler.GetCurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "Unauthorized",
		})
	}

	results, err := h.scheduler.RunNow(c.Request().Context(), user.ID)
	if err != nil {
		h.logger.Error("Run-now failed:", err)
		return c.JSON(http.StatusConflict, map[string]string{
			"error": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"scanned": len(results),
		"results": results,
	})
}

// GetEvents returns the most recent activity log entries
func (h *SchedulerHandler) GetEvents(c echo.Context) error {
	user, err := h.authHandler.GetCurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "Unauthorized",
		})
	}

	limit := defaultEventLimit
	if limitStr := c.QueryParam("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	events, err := h.eventRepo.FindRecent(c.Request().Context(), user.ID, limit)
	if err != nil {
		h.logger.Error("Failed to load events:", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, events)
}
