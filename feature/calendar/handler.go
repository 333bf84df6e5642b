package calendar

import (
	"errors"

	"feedsync/core/logger"
	"feedsync/feature/calendar/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handler handles HTTP requests for calendar subscriptions and their
// events.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the calendar routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/calendars")
	group.Get("/", h.HandleListCalendars)
	group.Post("/", h.HandleCreateCalendar)
	group.Delete("/:id", h.HandleDeleteCalendar)
	group.Get("/:id/events", h.HandleListEvents)
	group.Post("/:id/sync", h.HandleSyncCalendar)
}

// HandleListCalendars returns all enabled calendar subscriptions.
func (h *Handler) HandleListCalendars(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	calendars, err := h.service.store.ListCalendars(c.Context())
	if err != nil {
		l.Error("Failed to list calendars", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(calendars)
}

type createCalendarRequest struct {
	Name     string `json:"name"`
	FeedURL  string `json:"feed_url"`
	Timezone string `json:"timezone"`
}

// HandleCreateCalendar registers a new feed subscription.
func (h *Handler) HandleCreateCalendar(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	var req createCalendarRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if req.FeedURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "feed_url is required",
		})
	}

	cal := models.Calendar{
		Name:     req.Name,
		FeedURL:  req.FeedURL,
		Timezone: req.Timezone,
		Enabled:  true,
	}
	if err := h.service.store.CreateCalendar(c.Context(), &cal); err != nil {
		l.Error("Failed to create calendar", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	l.Info("Calendar created", zap.String("calendar_id", cal.ID), zap.String("name", cal.Name))
	return c.Status(fiber.StatusCreated).JSON(cal)
}

// HandleDeleteCalendar removes a subscription and its events.
func (h *Handler) HandleDeleteCalendar(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	id := c.Params("id")

	if err := h.service.DeleteCalendar(c.Context(), id); err != nil {
		l.Error("Failed to delete calendar", zap.String("calendar_id", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleListEvents returns the events of one calendar. Soft-deleted
// rows are excluded unless ?include_deleted=true.
func (h *Handler) HandleListEvents(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	id := c.Params("id")
	includeDeleted := c.QueryBool("include_deleted")

	events, err := h.service.store.ListEvents(c.Context(), id, includeDeleted)
	if err != nil {
		l.Error("Failed to list events", zap.String("calendar_id", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(events)
}

// HandleSyncCalendar triggers a sync run for one calendar and returns
// its report.
func (h *Handler) HandleSyncCalendar(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	id := c.Params("id")

	report, err := h.service.SyncCalendar(c.Context(), id)
	if err != nil {
		status := fiber.StatusInternalServerError
		if errors.Is(err, gorm.ErrRecordNotFound) {
			status = fiber.StatusNotFound
		}
		l.Error("Calendar sync failed", zap.String("calendar_id", id), zap.Error(err))
		return c.Status(status).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(report)
}
