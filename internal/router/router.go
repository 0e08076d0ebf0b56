package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"seatlane/internal/config"
	"seatlane/internal/handler"
	"seatlane/internal/middleware"
)

// RegisterHealth registers routes that do not require authentication.
func RegisterHealth(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the register and login endpoints under
// /v1/auth. Both sit behind the rate limiter: login is the abuse
// guard's loudest signal and also its cheapest attack surface.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, rl echo.MiddlewareFunc) {
	g := e.Group("/v1/auth", rl)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
}

// RegisterPublic registers the unauthenticated browse endpoints: event
// catalogue and seat maps. Both go behind the short-TTL response cache;
// the seat map's sweep still runs on every cache miss, which bounds how
// long a lapsed hold can linger at the cache TTL.
func RegisterPublic(e *echo.Echo, b *handler.BrowseHandler, cacheCfg config.CacheConfig, rdb *redis.Client) {
	cached := middleware.NewRedisCache(cacheCfg, rdb)
	e.GET("/v1/events", b.ListEvents, cached)
	e.GET("/v1/events/:id/seats", b.SeatMap, cached)
}
