package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/safar/order-engine/internal/metrics"
	"github.com/safar/order-engine/internal/observability"
	"go.uber.org/zap"
)

type RouterConfig struct {
	Placer         OrderPlacer
	Admin          OrderAdmin
	DB             Pinger
	Logger         *zap.Logger
	AdminToken     string
	RequestTimeout time.Duration
	ThrottleLimit  int
	ThrottleWindow time.Duration
	Clock          func() time.Time
}

func NewRouter(cfg RouterConfig) http.Handler {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.RequestLoggerMiddleware(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	health := &healthHandlers{db: cfg.DB, started: clock(), clock: clock}
	r.Get("/healthz", health.health)
	r.Handle("/metrics", promhttp.Handler())

	orders := &orderHandlers{
		placer:   cfg.Placer,
		throttle: newPlacementThrottle(cfg.ThrottleLimit, cfg.ThrottleWindow, clock),
	}
	admin := &adminOrderHandlers{admin: cfg.Admin, token: cfg.AdminToken}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/orders", orders.Routes)
		r.Route("/admin/orders", admin.Routes)
	})

	return r
}
