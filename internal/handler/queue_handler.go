package handler

import (
	"net/http"
	"strings"

	"inbox-autopilot/internal/service"

	"github.com/labstack/echo/v4"
)

type QueueHandler struct {
	reviewService service.ReviewService
	authHandler   *AuthHandler
	logger        echo.Logger
}

func NewQueueHandler(reviewService service.ReviewService, authHandler *AuthHandler, logger echo.Logger) *QueueHandler {
	return &QueueHandler{
		reviewService: reviewService,
		authHandler:   authHandler,
		logger:        logger,
	}
}

// ListItems returns the review queue, newest first. ?pending_only=true
// filters out already-actioned items.
func (h *QueueHandler) ListItems(c echo.Context) error {
	user, err := h.authHandler.GetCurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "Unauthorized",
		})
	}

	pendingOnly := c.QueryParam("pending_only") == "true"

	items, err := h.reviewService.ListItems(c.Request().Context(), user.ID, pendingOnly)
	if err != nil {
		h.logger.Error("Failed to list review items:", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, items)
}

// GetItem returns one review item
func (h *QueueHandler) GetItem(c echo.Context) error {
	user, err := h.authHandler.GetCurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "Unauthorized",
		})
	}

	item, err := h.reviewService.GetItem(c.Request().Context(), user.ID, c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, item)
}

// UpdateDraft edits the draft body of a pending item
func (h *QueueHandler) UpdateDraft(c echo.Context) error {
	user, err := h.authHandler.GetCurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "Unauthorized",
		})
	}

	var req struct {
		DraftReply string `json:"draft_reply"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request body",
		})
	}
	if strings.TrimSpace(req.DraftReply) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "draft_reply must not be empty",
		})
	}

	if err := h.reviewService.UpdateDraft(c.Request().Context(), user.ID, c.Param("id"), req.DraftReply); err != nil {
		return h.queueError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "Draft updated",
	})
}

// ActionItem applies send, draft or discard to a pending item
func (h *QueueHandler) ActionItem(c echo.Context) error {
	user, err := h.authHandler.GetCurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "Unauthorized",
		})
	}

	var req struct {
		Action string `json:"action"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request body",
		})
	}

	switch req.Action {
	case service.ActionSend, service.ActionDraft, service.ActionDiscard:
	default:
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "action must be one of: send, draft, discard",
		})
	}

	if err := h.reviewService.Action(c.Request().Context(), user.ID, c.Param("id"), req.Action); err != nil {
		h.logger.Error("Failed to action review item:", err)
		return h.queueError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "Action applied",
	})
}

// queueError maps review queue failures onto HTTP statuses: a vanished item
// is 404, a double action is 409, anything else is 500.
func (h *QueueHandler) queueError(c echo.Context, err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "not found"):
		return c.JSON(http.StatusNotFound, map[string]string{"error": msg})
	case strings.Contains(msg, "already actioned"):
		return c.JSON(http.StatusConflict, map[string]string{"error": msg})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": msg})
	}
}
