package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/calmline/therapy-booking/internal/booking"
)

type RouterConfig struct {
	Service *booking.Service
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Availability and schedule templates
	r.Get("/providers/{providerID}/availability", availabilityHandler(cfg.Service))
	r.Get("/providers/{providerID}/schedule", getScheduleHandler(cfg.Service))
	r.Put("/providers/{providerID}/schedule", putScheduleHandler(cfg.Service))

	// Appointments and the payment lifecycle
	r.Post("/appointments", createAppointmentHandler(cfg.Service))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/payment-proof", uploadPaymentProofHandler(cfg.Service))
	r.Patch("/appointments/{id}/payment-status", updatePaymentStatusHandler(cfg.Service))
	r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/no-show", noShowHandler(cfg.Service))

	// Client-facing lookups
	r.Get("/clients/{clientID}/appointments", listClientAppointmentsHandler(cfg.Service))
	r.Get("/clients/{clientID}/pending-count", pendingCountHandler(cfg.Service))
	r.Get("/clients/{clientID}/providers/{providerID}/first-appointment", firstAppointmentHandler(cfg.Service))

	return r
}
