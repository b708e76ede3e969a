package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal tracks total HTTP requests
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration tracks HTTP request duration
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// OrdersPlaced counts committed orders by payment method
	OrdersPlaced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_placed_total",
			Help: "Total number of committed orders",
		},
		[]string{"payment_method"},
	)

	// PlacementFailures counts rejected placements by error code
	PlacementFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_placement_failures_total",
			Help: "Total number of rejected order placements",
		},
		[]string{"code"},
	)

	// PlacementRetries counts replays of the placement transaction
	PlacementRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "order_placement_retries_total",
			Help: "Total number of placement transaction replays",
		},
	)

	OrderValue = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "order_total_amount",
			Help:    "Order totals in store currency",
			Buckets: []float64{100, 500, 1000, 2500, 5000, 10000, 25000},
		},
	)

	// StockRestorations counts line items put back into inventory
	StockRestorations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stock_restorations_total",
			Help: "Total number of order lines restored to inventory",
		},
		[]string{"result"},
	)

	// NotificationFailures counts purchase events a publisher could not deliver
	NotificationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "purchase_notification_failures_total",
			Help: "Total number of undelivered purchase notifications",
		},
		[]string{"publisher"},
	)

	// CircuitBreakerState tracks circuit breaker state (0=closed, 1=open, 2=half-open)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"circuit_name"},
	)

	SettingsCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settings_cache_lookups_total",
			Help: "Settings cache lookups by outcome",
		},
		[]string{"outcome"},
	)
)

// Middleware records request count and latency per chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
