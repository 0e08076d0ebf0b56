package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"seatlane/internal/model"
	"seatlane/internal/repository"
	"seatlane/internal/service"
)

// BookingHandler exposes the booking lifecycle over HTTP. All routes
// assume JWTAuth has populated the request identity; the handler maps
// the service's error taxonomy onto distinct status codes so clients
// can tell a lost seat race from an abuse block.
type BookingHandler struct {
	Svc *service.BookingService
}

func NewBookingHandler(svc *service.BookingService) *BookingHandler {
	return &BookingHandler{Svc: svc}
}

// Book handles POST /v1/events/:id/seats/:seatID/book. On success the
// seat is HELD for the caller and a PENDING booking exists; the hold
// deadline is fixed at creation and never renewed.
func (h *BookingHandler) Book(c echo.Context) error {
	user := currentUser(c)
	if user == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || eventID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	seatID, err := strconv.ParseUint(c.Param("seatID"), 10, 64)
	if err != nil || seatID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seat id"})
	}

	bookingID, err := h.Svc.BookSeat(c.Request().Context(), user, eventID, seatID)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"booking_id": bookingID})
}

// CanPay handles GET /v1/bookings/:id/can-pay: a cheap pre-flight the
// UI calls before rendering the payment form.
func (h *BookingHandler) CanPay(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || bookingID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	ok, err := h.Svc.CanStartPayment(c.Request().Context(), userID, bookingID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"can_pay": ok})
}

// Pay handles POST /v1/bookings/:id/pay: charges the amount captured at
// hold time and settles the booking atomically.
func (h *BookingHandler) Pay(c echo.Context) error {
	user := currentUser(c)
	if user == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || bookingID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	if err := h.Svc.Pay(c.Request().Context(), user, bookingID); err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "paid"})
}

// Cancel handles DELETE /v1/bookings/:id. Only PENDING bookings cancel;
// the first cancel wins and repeats answer 409.
func (h *BookingHandler) Cancel(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || bookingID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	if err := h.Svc.Cancel(c.Request().Context(), userID, bookingID); err != nil {
		return bookingError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// History handles GET /v1/my-bookings: all PAID bookings plus PENDING
// ones whose hold is still alive.
func (h *BookingHandler) History(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.Svc.History(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load bookings"})
	}
	if items == nil {
		items = []model.BookingHistoryItem{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// bookingError maps the service error taxonomy to HTTP responses.
func bookingError(c echo.Context, err error) error {
	var blocked *service.BlockedError
	switch {
	case errors.As(err, &blocked):
		return c.JSON(http.StatusForbidden, echo.Map{
			"error":  "blocked",
			"score":  blocked.Score,
			"reason": blocked.Reason,
		})
	case errors.Is(err, repository.ErrSeatBlocked):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "seat permanently blocked"})
	case errors.Is(err, repository.ErrSeatUnavailable):
		return c.JSON(http.StatusConflict, echo.Map{"error": "seat not available"})
	case errors.Is(err, repository.ErrHoldExpired):
		return c.JSON(http.StatusConflict, echo.Map{"error": "seat hold expired"})
	case errors.Is(err, repository.ErrPaymentDeclined):
		return c.JSON(http.StatusPaymentRequired, echo.Map{"error": "payment declined"})
	case errors.Is(err, repository.ErrBookingNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	case errors.Is(err, repository.ErrAlreadyCancelled):
		return c.JSON(http.StatusConflict, echo.Map{"error": "booking already cancelled"})
	case errors.Is(err, repository.ErrBookingNotPending):
		return c.JSON(http.StatusConflict, echo.Map{"error": "booking is not pending"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
}
