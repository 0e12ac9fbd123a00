package router

import (
	"net/http"

	"inbox-autopilot/internal/handler"
	"inbox-autopilot/internal/middleware"

	"github.com/labstack/echo/v4"
)

func SetupRoutes(
	e *echo.Echo,
	authHandler *handler.AuthHandler,
	queueHandler *handler.QueueHandler,
	configHandler *handler.ConfigHandler,
	schedulerHandler *handler.SchedulerHandler,
	contactsHandler *handler.ContactsHandler,
) {
	// Apply session middleware globally
	e.Use(middleware.SessionMiddleware())

	// Public routes
	e.GET("/auth/:provider", authHandler.BeginAuthHandler)
	e.GET("/auth/:provider/callback", authHandler.CallbackHandler)
	e.GET("/auth/logout", authHandler.LogoutHandler)

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	// Protected API routes
	protected := e.Group("/api")
	protected.Use(middleware.AuthMiddleware(authHandler))

	protected.GET("/me", authHandler.Me)

	// Review queue
	protected.GET("/queue", queueHandler.ListItems)
	protected.GET("/queue/:id", queueHandler.GetItem)
	protected.PUT("/queue/:id/draft", queueHandler.UpdateDraft)
	protected.POST("/queue/:id/action", queueHandler.ActionItem)

	// Settings and drafting profile
	protected.GET("/config", configHandler.GetSettings)
	protected.PUT("/config", configHandler.UpdateSettings)
	protected.GET("/profile", configHandler.GetProfile)
	protected.PUT("/profile", configHandler.UpdateProfile)

	// Scheduler and activity log
	protected.GET("/scheduler/status", schedulerHandler.GetStatus)
	protected.POST("/scheduler/run-now", schedulerHandler.RunNow)
	protected.GET("/events", schedulerHandler.GetEvents)

	// Contacts
	protected.GET("/contacts", contactsHandler.ListContacts)
	protected.PUT("/contacts/:email", contactsHandler.UpsertContact)
	protected.DELETE("/contacts/:email", contactsHandler.DeleteContact)
}
