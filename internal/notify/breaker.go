package notify

import (
	"context"
	"time"

	"github.com/safar/order-engine/internal/metrics"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// breakerPublisher stops calling a publisher that keeps failing, so a dead
// analytics endpoint costs nothing per order until it recovers.
type breakerPublisher struct {
	next Publisher
	cb   *gobreaker.CircuitBreaker
}

func WithBreaker(next Publisher, logger *zap.Logger) Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        next.Name(),
		MaxRequests: 3,
		Interval:    15 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
			logger.Info("circuit breaker state changed",
				zap.String("circuit", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	metrics.CircuitBreakerState.WithLabelValues(next.Name()).Set(0)

	return &breakerPublisher{next: next, cb: cb}
}

func (b *breakerPublisher) Name() string { return b.next.Name() }

func (b *breakerPublisher) Publish(ctx context.Context, event PurchaseEvent) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.Publish(ctx, event)
	})
	return err
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}
