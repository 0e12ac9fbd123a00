package handler

import (
	"net/http"
	"strings"
	"time"

	"inbox-autopilot/internal/model"
	"inbox-autopilot/internal/repository"

	"github.com/labstack/echo/v4"
)

type ContactsHandler struct {
	contactRepo repository.ContactRepository
	authHandler *AuthHandler
	logger      echo.Logger
}

func NewContactsHandler(contactRepo repository.ContactRepository, authHandler *AuthHandler, logger echo.Logger) *ContactsHandler {
	return &ContactsHandler{
		contactRepo: contactRepo,
		authHandler: authHandler,
		logger:      logger,
	}
}

// ListContacts returns the user's known correspondents, most contacted first
func (h *ContactsHandler) ListContacts(c echo.Context) error {
	user, err := h.authHandler.GetCurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "Unauthorized",
		})
	}

	contacts, err := h.contactRepo.FindByUser(c.Request().Context(), user.ID)
	if err != nil {
		h.logger.Error("Failed to list contacts:", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, contacts)
}

// UpsertContact creates or overrides one contact so the user can correct
// the generated relationship and formality
func (h *ContactsHandler) UpsertContact(c echo.Context) error {
	user, err := h.authHandler.GetCurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "Unauthorized",
		})
	}

	email := strings.ToLower(strings.TrimSpace(c.Param("email")))
	if email == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "email is required",
		})
	}

	var contact model.Contact
	if err := c.Bind(&contact); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request body",
		})
	}
	contact.UserID = user.ID
	contact.Email = email
	contact.UpdatedAt = time.Now()
	if contact.CreatedAt.IsZero() {
		contact.CreatedAt = contact.UpdatedAt
	}

	if err := h.contactRepo.Upsert(c.Request().Context(), &contact); err != nil {
		h.logger.Error("Failed to upsert contact:", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, contact)
}

// DeleteContact removes one contact
func (h *ContactsHandler) DeleteContact(c echo.Context) error {
	user, err := h.authHandler.GetCurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "Unauthorized",
		})
	}

	email := strings.ToLower(strings.TrimSpace(c.Param("email")))
	if err := h.contactRepo.Delete(c.Request().Context(), user.ID, email); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "Contact deleted",
	})
}
