package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"seatlane/internal/model"
	"seatlane/internal/repository"
)

// AdminHandler covers the administrative surface: venue seat
// generation, event creation, attaching a venue's seats to an event and
// the soft delete. All routes sit behind RequireRole(ADMIN).
type AdminHandler struct {
	Events     *repository.EventRepo
	Seats      *repository.SeatRepo
	EventSeats *repository.EventSeatRepo
	Audit      *repository.AuditLogRepo
}

func NewAdminHandler(events *repository.EventRepo, seats *repository.SeatRepo,
	eventSeats *repository.EventSeatRepo, audit *repository.AuditLogRepo) *AdminHandler {
	if events == nil || seats == nil || eventSeats == nil || audit == nil {
		panic("nil dependency passed to NewAdminHandler")
	}
	return &AdminHandler{Events: events, Seats: seats, EventSeats: eventSeats, Audit: audit}
}

// GenerateSeats handles POST /v1/admin/venues/:id/seats. The body names
// a section plus a row/seat grid; row labels are generated A, B, ...
// The insert is idempotent, so re-running with a bigger grid only adds
// the new shells.
func (h *AdminHandler) GenerateSeats(c echo.Context) error {
	venueID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || venueID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid venue id"})
	}
	var body struct {
		Section     string `json:"section"`
		Rows        int    `json:"rows"`
		SeatsPerRow int    `json:"seats_per_row"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	body.Section = strings.ToUpper(strings.TrimSpace(body.Section))
	if body.Section == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "section is required"})
	}
	if body.Rows < 1 || body.Rows > 100 || body.SeatsPerRow < 1 || body.SeatsPerRow > 200 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "rows and seats_per_row must be within 1-100 and 1-200"})
	}

	labels := make([]string, 0, body.Rows)
	for i := 0; i < body.Rows; i++ {
		labels = append(labels, indexToRowLabel(i))
	}
	ctx := c.Request().Context()
	created, err := h.Seats.GenerateForVenue(ctx, venueID, body.Section, labels, body.SeatsPerRow)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to generate seats"})
	}
	total, err := h.Seats.CountForVenue(ctx, venueID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to count seats"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"created": created, "total": total})
}

// CreateEvent handles POST /v1/admin/events.
func (h *AdminHandler) CreateEvent(c echo.Context) error {
	var body struct {
		VenueID     uint64 `json:"venue_id"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Category    string `json:"category"`
		StartTime   string `json:"start_time"` // RFC3339
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	body.Title = strings.TrimSpace(body.Title)
	if body.VenueID == 0 || body.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "venue_id and title are required"})
	}
	start, err := time.Parse(time.RFC3339, body.StartTime)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_time must be RFC3339"})
	}

	id, err := h.Events.Create(c.Request().Context(), body.VenueID, body.Title, body.Description, body.Category, start)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create event"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"event_id": id})
}

// AttachSeats handles POST /v1/admin/events/:id/seats: it materializes
// the event's seat inventory from the venue's shells at one price, all
// AVAILABLE. Re-running skips seats already attached.
func (h *AdminHandler) AttachSeats(c echo.Context) error {
	eventID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || eventID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var body struct {
		PriceCents uint32 `json:"price_cents"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.PriceCents == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "price_cents is required"})
	}

	ctx := c.Request().Context()
	venueID, err := h.Events.VenueID(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	attached, err := h.EventSeats.AttachVenueSeatsToEvent(ctx, eventID, venueID, body.PriceCents)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to attach seats"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"attached": attached})
}

// ListEvents handles GET /v1/admin/events: every event including
// DELETED ones.
func (h *AdminHandler) ListEvents(c echo.Context) error {
	events, err := h.Events.AllAdmin(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load events"})
	}
	if events == nil {
		events = []model.Event{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": events})
}

// DeleteEvent handles DELETE /v1/admin/events/:id. The event goes
// DELETED and every seat BLOCKED in one transaction; the action is
// audited with the acting admin. Repeat deletes are a 404.
func (h *AdminHandler) DeleteEvent(c echo.Context) error {
	adminID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || eventID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx := c.Request().Context()
	updated, err := h.Events.SoftDelete(ctx, h.EventSeats, eventID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete event"})
	}
	if !updated {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	}

	var email *string
	if em, ok := c.Get("email").(string); ok && em != "" {
		email = &em
	}
	h.Audit.Log(ctx, model.LevelWarn, model.ActionAdminDeleteEvent, &adminID, email,
		"event "+strconv.FormatUint(eventID, 10)+" soft-deleted, seats blocked")
	return c.NoContent(http.StatusNoContent)
}
