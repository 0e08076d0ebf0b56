package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"seatlane/internal/config"
	"seatlane/internal/database"
	"seatlane/internal/handler"
	"seatlane/internal/middleware"
	"seatlane/internal/queue"
	"seatlane/internal/repository"
	"seatlane/internal/router"
	"seatlane/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// nil client degrades rate limiting and caching to pass-through.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable, rate limiting and response cache disabled")
	}

	// Repositories.
	users := repository.NewUserRepo(db)
	events := repository.NewEventRepo(db)
	seats := repository.NewSeatRepo(db)
	eventSeats := repository.NewEventSeatRepo(db)
	bookings := repository.NewBookingRepo(db, eventSeats)
	payments := repository.NewPaymentRepo(db)
	audit := repository.NewAuditLogRepo(db)

	// Services.
	fraud := service.NewFraudService(audit, service.FraudThresholds{
		BlockThreshold:  cfg.FraudBlockThreshold,
		LoginFailWin:    cfg.FraudLoginFailWin,
		BookFailWin:     cfg.FraudBookFailWin,
		PayFailWin:      cfg.FraudPayFailWin,
		QuickBookWin:    cfg.FraudQuickBookWin,
		SeatAbuseLimit:  cfg.SeatAbuseLimit,
		SeatAbuseWindow: cfg.SeatAbuseWindow,
	})
	booking := service.NewBookingService(bookings, eventSeats, payments,
		service.NewMockProvider(), fraud, audit, queue.NewPublisher(), cfg.HoldTTL)

	// Background consumer appends settled bookings and sweep results to
	// logs/booking.log, reconnecting to the broker as needed.
	go func() {
		if err := queue.StartConsumer(); err != nil {
			log.Printf("queue consumer stopped: %v", err)
		}
	}()

	// HTTP wiring.
	e := echo.New()
	e.HideBanner = true

	rl := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cacheCfg := config.LoadCacheConfig()

	authH := handler.NewAuthHandler(cfg, users, audit)
	bookingH := handler.NewBookingHandler(booking)
	browseH := handler.NewBrowseHandler(events, booking)
	adminH := handler.NewAdminHandler(events, seats, eventSeats, audit)
	auditH := handler.NewAuditHandler(audit)

	router.RegisterHealth(e)
	router.RegisterAuth(e, authH, rl)
	router.RegisterPublic(e, browseH, cacheCfg, rdb)
	router.RegisterCustomer(e, bookingH, browseH, cfg.JWTSecret, rl)
	router.RegisterAdmin(e, adminH, auditH, cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
