package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/vitalink/telemed-backend/internal/appointment"
	"github.com/vitalink/telemed-backend/internal/config"
	"github.com/vitalink/telemed-backend/internal/db"
)

// The completion worker sweeps scheduled appointments whose time is well in
// the past into the completed state so calendars do not accumulate stale
// scheduled rows.
func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "completion-worker").Logger()
	log.Info().Msg("completion-worker starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}

	log.Info().
		Str("env", cfg.Env).
		Dur("interval", cfg.WorkerInterval).
		Dur("grace", cfg.CompletionGrace).
		Msg("worker configuration")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, int32(cfg.PGMaxConns))
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	svc := appointment.NewService(appointment.NewPgRepository(pgPool))

	// Run once at startup
	runOnce(rootCtx, svc, cfg.CompletionGrace, log)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info().Msg("shutdown signal received, stopping completion worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, cfg.CompletionGrace, log)
		}
	}
}

func runOnce(ctx context.Context, svc *appointment.Service, grace time.Duration, log zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	n, err := svc.CompletePastAppointments(runCtx, grace)
	if err != nil {
		log.Error().Err(err).Msg("completion sweep error")
		return
	}
	log.Info().Int("completed", n).Dur("took", time.Since(start)).Msg("completion sweep done")
}
