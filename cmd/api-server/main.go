package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/vitalink/telemed-backend/internal/api"
	"github.com/vitalink/telemed-backend/internal/appointment"
	"github.com/vitalink/telemed-backend/internal/availability"
	"github.com/vitalink/telemed-backend/internal/chat"
	"github.com/vitalink/telemed-backend/internal/config"
	"github.com/vitalink/telemed-backend/internal/db"
	redisclient "github.com/vitalink/telemed-backend/internal/redis"
	"github.com/vitalink/telemed-backend/internal/signaling"
)

var version = "dev"

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "api-server").Logger()
	log.Info().Msg("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}

	log.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("configuration loaded")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, int32(cfg.PGMaxConns))
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	migCtx, cancelMig := context.WithTimeout(rootCtx, 30*time.Second)
	err = db.Migrate(migCtx, pgPool)
	cancelMig()
	if err != nil {
		log.Fatal().Err(err).Msg("schema migration error")
	}

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword, cfg.RedisPoolSize, cfg.RedisTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("error closing redis")
		}
	}()
	log.Info().Msg("connected to Redis")

	apptRepo := appointment.NewPgRepository(pgPool)
	apptSvc := appointment.NewService(apptRepo)

	availRepo := availability.NewPgRepository(pgPool)
	availSvc := availability.NewService(availRepo, cfg.SlotHorizonDays)

	chatRepo := chat.NewPgRepository(pgPool)
	responder := chat.NewHTTPResponder(cfg.ChatResponderURL, cfg.ChatTimeout)
	chatSvc := chat.NewService(chatRepo, responder, log)

	roomSvc := signaling.NewRoomService(apptSvc)
	hub := signaling.NewHub(redisclient.NewRedisRoomBus(rdb), log)

	router := api.NewRouter(api.RouterConfig{
		Appointments: apptSvc,
		Availability: availSvc,
		Chat:         chatSvc,
		Rooms:        roomSvc,
		Hub:          hub,
		PgPool:       pgPool,
		Redis:        rdb,
		JWTSecret:    []byte(cfg.JWTSecret),
		Log:          log,
		Env:          cfg.Env,
		Version:      version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-rootCtx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}

	log.Info().Msg("api-server stopped")
}
