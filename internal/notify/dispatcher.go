package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/safar/order-engine/internal/metrics"
	"github.com/safar/order-engine/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type DispatcherConfig struct {
	HashContact bool
	Timeout     time.Duration
}

// Dispatcher fans a purchase out to every publisher in the background.
type Dispatcher struct {
	publishers  []Publisher
	hashContact bool
	timeout     time.Duration
	logger      *zap.Logger
	now         func() time.Time
	wg          sync.WaitGroup
}

func NewDispatcher(cfg DispatcherConfig, logger *zap.Logger, publishers ...Publisher) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Dispatcher{
		publishers:  publishers,
		hashContact: cfg.HashContact,
		timeout:     cfg.Timeout,
		logger:      logger,
		now:         time.Now,
	}
}

// NotifyPurchase returns immediately. Delivery runs detached from the
// caller's context under the dispatcher's own timeout.
func (d *Dispatcher) NotifyPurchase(order *models.Order, currency string) {
	if len(d.publishers) == 0 {
		return
	}

	event := NewPurchaseEvent(order, currency, d.hashContact, d.now())

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.publish(event); err != nil {
			d.logger.Warn("purchase event not delivered everywhere",
				zap.String("order_number", event.OrderNumber),
				zap.String("event_id", event.EventID),
				zap.Error(err))
		}
	}()
}

// publish delivers event to every publisher concurrently. Each failure is
// counted per publisher; the first one is returned once all have finished.
func (d *Dispatcher) publish(event PurchaseEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	var g errgroup.Group
	for _, p := range d.publishers {
		p := p
		g.Go(func() error {
			if err := p.Publish(ctx, event); err != nil {
				metrics.NotificationFailures.WithLabelValues(p.Name()).Inc()
				return fmt.Errorf("publish to %s: %w", p.Name(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Wait blocks until in-flight deliveries finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
