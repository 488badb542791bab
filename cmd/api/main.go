package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/livesale/livesale-api/internal/config"
	"github.com/livesale/livesale-api/internal/domain/customer"
	"github.com/livesale/livesale-api/internal/domain/wallet"
	"github.com/livesale/livesale-api/internal/middleware"
	"github.com/livesale/livesale-api/internal/pkg/database"
	"github.com/livesale/livesale-api/internal/pkg/jwt"
	"github.com/livesale/livesale-api/internal/pkg/logger"
	"github.com/livesale/livesale-api/internal/pkg/response"
	"github.com/livesale/livesale-api/internal/realtime"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting LiveSale wallet API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	rdb, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(rdb)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)

	// ---------- Realtime feed ----------
	var events wallet.EventPublisher
	if rdb != nil {
		events = realtime.NewPublisher(rdb)
	}
	feedHub := realtime.NewHub(rdb)
	go feedHub.Run()
	defer feedHub.Shutdown()

	// ---------- Repositories & services ----------
	customerRepo := customer.NewRepository(db)
	customerService := customer.NewService(customerRepo)
	customerHandler := customer.NewHandler(customerService)

	walletRepo := wallet.NewRepository(db)
	walletService := wallet.NewService(walletRepo, events)
	walletHandler := wallet.NewHandler(walletService)

	// ---------- Router ----------
	authMiddleware := middleware.Auth(jwtService)
	adminMiddleware := middleware.RequireAdmin()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/customers", customerHandler.Routes(authMiddleware, adminMiddleware))
		r.Mount("/wallets", walletHandler.Routes(authMiddleware))

		// Wallet transaction feed for dashboards
		r.Get("/feed", func(w http.ResponseWriter, req *http.Request) {
			authMiddleware(http.HandlerFunc(feedHub.ServeWS)).ServeHTTP(w, req)
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}
