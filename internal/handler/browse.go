package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"seatlane/internal/model"
	"seatlane/internal/repository"
	"seatlane/internal/service"
)

// BrowseHandler serves the public catalogue and the per-event seat map.
// The seat map is the lazy sweep's trigger: listing an event's seats
// first reclaims every lapsed hold in the system.
type BrowseHandler struct {
	Events *repository.EventRepo
	Svc    *service.BookingService
}

func NewBrowseHandler(events *repository.EventRepo, svc *service.BookingService) *BrowseHandler {
	return &BrowseHandler{Events: events, Svc: svc}
}

// ListEvents handles GET /v1/events: all ACTIVE events with their
// remaining seat counts.
func (h *BrowseHandler) ListEvents(c echo.Context) error {
	events, err := h.Events.Active(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load events"})
	}
	if events == nil {
		events = []model.Event{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": events})
}

// Recommended handles GET /v1/events/recommended: upcoming events in
// the caller's favourite categories.
func (h *BrowseHandler) Recommended(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	events, err := h.Events.RecommendedForUser(c.Request().Context(), userID, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load recommendations"})
	}
	if events == nil {
		events = []model.Event{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": events})
}

// SeatMap handles GET /v1/events/:id/seats. The listing runs behind the
// expiry sweep, so a hold past its deadline never shows up as HELD.
func (h *BrowseHandler) SeatMap(c echo.Context) error {
	eventID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || eventID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	seats, err := h.Svc.SeatsForEvent(c.Request().Context(), eventID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load seats"})
	}
	if seats == nil {
		seats = []model.SeatInfo{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": seats})
}
