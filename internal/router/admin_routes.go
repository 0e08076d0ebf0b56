package router

import (
	"github.com/labstack/echo/v4"

	"seatlane/internal/handler"
	"seatlane/internal/middleware"
	"seatlane/internal/model"
)

// RegisterAdmin registers the administrative endpoints under /v1/admin.
// All routes require a valid JWT with the ADMIN role.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, audit *handler.AuditHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)

	g.POST("/venues/:id/seats", a.GenerateSeats)
	g.POST("/events", a.CreateEvent)
	g.POST("/events/:id/seats", a.AttachSeats)
	g.GET("/events", a.ListEvents)
	g.DELETE("/events/:id", a.DeleteEvent)

	g.GET("/audit", audit.Latest)
	g.GET("/audit/search", audit.Search)
	g.GET("/audit/top-emails", audit.TopEmails)
	g.GET("/audit/stats", audit.ActionCount)
}
