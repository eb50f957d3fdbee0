package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/Windi-Fikriyansyah/platform_jasa/internal/config"
	"github.com/Windi-Fikriyansyah/platform_jasa/internal/db"
	"github.com/Windi-Fikriyansyah/platform_jasa/internal/handlers"
	"github.com/Windi-Fikriyansyah/platform_jasa/internal/middleware"
	"github.com/Windi-Fikriyansyah/platform_jasa/internal/realtime"
	"github.com/Windi-Fikriyansyah/platform_jasa/internal/repository"
	"github.com/Windi-Fikriyansyah/platform_jasa/internal/services/accounts"
	"github.com/Windi-Fikriyansyah/platform_jasa/internal/services/booking"
	"github.com/Windi-Fikriyansyah/platform_jasa/internal/services/catalog"
	"github.com/Windi-Fikriyansyah/platform_jasa/internal/services/dashboard"
	"github.com/Windi-Fikriyansyah/platform_jasa/internal/services/esewa"
	"github.com/Windi-Fikriyansyah/platform_jasa/internal/utils"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	utils.SetupLogger(cfg.LogLevel, cfg.IsDevelopment())
	if cfg.AppBaseURL == "" {
		log.Warn().Msg("APP_BASE_URL is empty, payment callback URLs follow the request Host")
	}

	gdb, err := db.Connect(cfg.DBDSN, cfg.IsDevelopment())
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	rdb := realtime.NewRedis(cfg)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		// notifications still reach websocket clients through the hub
		log.Warn().Err(err).Msg("redis unavailable, pub/sub notifications disabled")
		rdb = nil
	}

	hub := realtime.NewHub()
	go hub.Run()

	store := repository.NewStore(gdb)
	gateway := esewa.NewEsewaService(cfg)
	var notifier booking.Notifier = realtime.NewBookingNotifier(hub, rdb)
	engine := booking.NewEngine(store, gateway, notifier)
	cat := catalog.New(store)
	acc := accounts.New(store, cat)
	dash := dashboard.New(store, engine)

	if err := acc.SeedAdmin(context.Background(), cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Fatal().Err(err).Msg("seed admin")
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMin)
	stop := make(chan struct{})
	limiter.StartCleanup(10*time.Minute, stop)

	authH := &handlers.AuthHandler{
		Accounts:     acc,
		JWTSecret:    cfg.JWTSecret,
		Expires:      cfg.JWTExpiresMin,
		SecureCookie: !cfg.IsDevelopment(),
	}
	var googleH *handlers.GoogleOAuthHandler
	if cfg.GoogleClientID != "" {
		googleH = &handlers.GoogleOAuthHandler{
			Auth:            authH,
			Accounts:        acc,
			GoogleClientID:  cfg.GoogleClientID,
			GoogleSecret:    cfg.GoogleSecret,
			GoogleRedirect:  cfg.GoogleRedirect,
			FrontendBaseURL: cfg.FrontendBaseURL,
		}
	}

	router := &handlers.Router{
		Auth:      authH,
		Google:    googleH,
		Profile:   handlers.NewProfileHandler(acc),
		Catalog:   handlers.NewCatalogHandler(cat),
		Booking:   handlers.NewBookingHandler(engine, cfg.AppBaseURL),
		Payment:   handlers.NewPaymentHandler(engine),
		Dashboard: handlers.NewDashboardHandler(dash),
		Realtime:  handlers.NewRealtimeHandler(hub, cfg.JWTSecret),

		Actors:    acc,
		JWTSecret: cfg.JWTSecret,
		Limiter:   limiter,

		CORSOrigins: cfg.CORSOrigins,
		AccessLog:   true,
	}
	app := router.NewApp()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Info().Msg("shutting down")
		close(stop)
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error().Err(err).Msg("shutdown")
		}
	}()

	log.Info().Str("port", cfg.AppPort).Str("env", cfg.AppEnv).Msg("listening")
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.Fatal().Err(err).Msg("listen")
	}
}
