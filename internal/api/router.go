package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/vitalink/telemed-backend/internal/appointment"
	"github.com/vitalink/telemed-backend/internal/auth"
	"github.com/vitalink/telemed-backend/internal/availability"
	"github.com/vitalink/telemed-backend/internal/chat"
	"github.com/vitalink/telemed-backend/internal/signaling"
)

type RouterConfig struct {
	Appointments *appointment.Service
	Availability *availability.Service
	Chat         *chat.Service
	Rooms        *signaling.RoomService
	Hub          *signaling.Hub
	PgPool       *pgxpool.Pool
	Redis        *redis.Client
	JWTSecret    []byte
	Log          zerolog.Logger
	Env          string
	Version      string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))

	// Health and metrics stay outside auth.
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware(cfg.JWTSecret))

		r.Post("/appointments", bookAppointmentHandler(cfg.Appointments))
		r.Get("/appointments/me", listMyAppointmentsHandler(cfg.Appointments))
		r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Appointments))
		r.Post("/appointments/{id}/complete", completeAppointmentHandler(cfg.Appointments))

		r.Post("/availability/batch", batchAvailabilityHandler(cfg.Availability))
		r.Get("/availability/{professionalID}/slots", listOpenSlotsHandler(cfg.Availability))

		r.Post("/chat/sessions", startChatSessionHandler(cfg.Chat))
		r.Post("/chat/sessions/{id}/messages", postChatMessageHandler(cfg.Chat))
		r.Get("/chat/sessions/{id}/messages", listChatMessagesHandler(cfg.Chat))

		r.Post("/video/rooms", createRoomHandler(cfg.Rooms))
		r.Get("/video/rooms/{roomID}/validate", validateRoomHandler(cfg.Rooms))
		r.Get("/video/rooms/{roomID}/ws", signaling.RoomWSHandler(cfg.Rooms, cfg.Hub, cfg.Log))
	})

	return r
}
