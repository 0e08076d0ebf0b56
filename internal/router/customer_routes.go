package router

import (
	"github.com/labstack/echo/v4"

	"seatlane/internal/handler"
	"seatlane/internal/middleware"
	"seatlane/internal/model"
)

// RegisterCustomer registers the booking lifecycle endpoints under /v1.
// All routes require a valid JWT and the CUSTOMER role, and the booking
// mutations additionally pass the rate limiter. The fraud scorer runs
// inside the service, so the limiter here is only the blunt first line.
func RegisterCustomer(e *echo.Echo, h *handler.BookingHandler, b *handler.BrowseHandler,
	jwtSecret string, rl echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleCustomer, model.RoleAdmin),
	)

	g.POST("/events/:id/seats/:seatID/book", h.Book, rl)
	g.GET("/bookings/:id/can-pay", h.CanPay)
	g.POST("/bookings/:id/pay", h.Pay, rl)
	g.DELETE("/bookings/:id", h.Cancel)
	g.GET("/my-bookings", h.History)
	g.GET("/events/recommended", b.Recommended)
}
