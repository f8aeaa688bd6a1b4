package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/carebridge/scheduling-service/internal/booking"
	"github.com/carebridge/scheduling-service/internal/observability/metrics"
	"github.com/carebridge/scheduling-service/internal/schedule"
)

type RouterConfig struct {
	Generator *schedule.Generator
	Policy    *schedule.Policy
	Booking   *booking.Service
	Metrics   *metrics.SchedulingMetrics
	PgPool    *pgxpool.Pool // nil when running on the in-memory registry
	Redis     *redis.Client
	Env       string
	Version   string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Metrics))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/slots", listSlotsHandler(cfg.Generator, cfg.Policy, cfg.Metrics))

	r.Post("/appointments", bookAppointmentHandler(cfg.Booking, cfg.Metrics))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Booking))
	r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Booking))

	return r
}
