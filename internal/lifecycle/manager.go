// Package lifecycle moves committed orders through their statuses and puts
// stock back when an order is cancelled or deleted.
package lifecycle

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/safar/order-engine/internal/database"
	"github.com/safar/order-engine/internal/metrics"
	"github.com/safar/order-engine/internal/models"
	"github.com/safar/order-engine/internal/store"
	"go.uber.org/zap"
)

var (
	ErrInvalidStatus        = errors.New("unknown order status")
	ErrInvalidTransition    = errors.New("order status transition not allowed")
	ErrPaymentNotVerifiable = errors.New("payment cannot be verified")
)

// CanTransition reports whether an order may move from one status to another.
// Staff may move an order between any statuses; cancelled is the only
// terminal status.
func CanTransition(from, to string) bool {
	if from == to {
		return true
	}
	return from != models.OrderStatusCancelled
}

type Manager struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewManager(db *sql.DB, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{db: db, logger: logger}
}

func (m *Manager) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	return store.GetOrder(ctx, m.db, id)
}

func (m *Manager) ListOrders(ctx context.Context, filter store.OrderFilter, cursor string, limit int) (*store.CursorPage, error) {
	if filter.Status != "" && !models.ValidOrderStatus(filter.Status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, filter.Status)
	}
	return store.ListOrdersCursor(ctx, m.db, filter, cursor, limit)
}

// UpdateStatus moves an order to status. Entering cancelled restores every
// line's stock in the same transaction.
func (m *Manager) UpdateStatus(ctx context.Context, id int64, status string) (*models.Order, error) {
	if !models.ValidOrderStatus(status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	return m.mutate(ctx, id, func(tx *sql.Tx, order *models.Order, r *restoreCount) error {
		if !CanTransition(order.Status, status) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, order.Status, status)
		}
		if order.Status == status {
			return nil
		}
		if status == models.OrderStatusCancelled {
			if err := m.restore(ctx, tx, order, r); err != nil {
				return err
			}
		}
		return store.SetOrderStatus(ctx, tx, order.ID, status)
	})
}

// VerifyPayment marks a manual transfer as paid and starts processing the
// order.
func (m *Manager) VerifyPayment(ctx context.Context, id int64) (*models.Order, error) {
	return m.mutate(ctx, id, func(tx *sql.Tx, order *models.Order, _ *restoreCount) error {
		if order.PaymentMethod == models.PaymentMethodCOD {
			return fmt.Errorf("%w: collect-on-delivery order", ErrPaymentNotVerifiable)
		}
		if order.PaymentSender == nil || order.PaymentTrxID == nil {
			return fmt.Errorf("%w: missing sender or transaction reference", ErrPaymentNotVerifiable)
		}
		if order.PaymentStatus != models.PaymentStatusPending {
			return fmt.Errorf("%w: payment is %s", ErrInvalidTransition, order.PaymentStatus)
		}
		if order.Status == models.OrderStatusCancelled {
			return fmt.Errorf("%w: order is cancelled", ErrInvalidTransition)
		}

		if err := store.SetPaymentStatus(ctx, tx, order.ID, models.PaymentStatusPaid); err != nil {
			return err
		}
		if order.Status == models.OrderStatusPending {
			return store.SetOrderStatus(ctx, tx, order.ID, models.OrderStatusProcessing)
		}
		return nil
	})
}

// RejectPayment marks the payment failed, cancels the order and records the
// reason in the order notes.
func (m *Manager) RejectPayment(ctx context.Context, id int64, reason string) (*models.Order, error) {
	reason = strings.TrimSpace(reason)

	return m.mutate(ctx, id, func(tx *sql.Tx, order *models.Order, r *restoreCount) error {
		if order.PaymentStatus != models.PaymentStatusPending {
			return fmt.Errorf("%w: payment is %s", ErrInvalidTransition, order.PaymentStatus)
		}

		if err := store.SetPaymentStatus(ctx, tx, order.ID, models.PaymentStatusFailed); err != nil {
			return err
		}
		if order.Status != models.OrderStatusCancelled {
			if err := m.restore(ctx, tx, order, r); err != nil {
				return err
			}
			if err := store.SetOrderStatus(ctx, tx, order.ID, models.OrderStatusCancelled); err != nil {
				return err
			}
		}

		note := "Payment rejected"
		if reason != "" {
			note += ": " + reason
		}
		return store.AppendOrderNote(ctx, tx, order.ID, note)
	})
}

// Delete removes an order and its items, restoring stock first unless the
// order was already cancelled.
func (m *Manager) Delete(ctx context.Context, id int64) error {
	var count restoreCount

	err := database.WithRetry(ctx, m.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		count = restoreCount{}

		order, err := store.LockOrder(ctx, tx, id)
		if err != nil {
			return err
		}
		if order.Status != models.OrderStatusCancelled {
			if err := m.restore(ctx, tx, order, &count); err != nil {
				return err
			}
		}
		return store.DeleteOrder(ctx, tx, order.ID)
	})
	if err != nil {
		return err
	}

	count.record()
	m.logger.Info("order deleted", zap.Int64("order_id", id), zap.Int("lines_restored", count.restored))
	return nil
}

type restoreCount struct {
	restored int
	skipped  int
}

func (c restoreCount) record() {
	if c.restored > 0 {
		metrics.StockRestorations.WithLabelValues("restored").Add(float64(c.restored))
	}
	if c.skipped > 0 {
		metrics.StockRestorations.WithLabelValues("skipped").Add(float64(c.skipped))
	}
}

func (m *Manager) mutate(ctx context.Context, id int64, fn func(*sql.Tx, *models.Order, *restoreCount) error) (*models.Order, error) {
	var (
		updated *models.Order
		count   restoreCount
	)

	err := database.WithRetry(ctx, m.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		count = restoreCount{}

		order, err := store.LockOrder(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(tx, order, &count); err != nil {
			return err
		}

		updated, err = store.GetOrder(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	count.record()
	m.logger.Info("order updated",
		zap.Int64("order_id", updated.ID),
		zap.String("status", updated.Status),
		zap.String("payment_status", updated.PaymentStatus),
		zap.Int("lines_restored", count.restored))

	return updated, nil
}

// restore returns every line's quantity to stock. Lines whose product or
// variant has since been removed are skipped.
func (m *Manager) restore(ctx context.Context, tx *sql.Tx, order *models.Order, count *restoreCount) error {
	for _, item := range order.Items {
		restored, err := store.RestoreStock(ctx, tx, store.StockLine{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
		})
		if err != nil {
			return err
		}
		if !restored {
			count.skipped++
			m.logger.Warn("stock target vanished, skipping restore",
				zap.Int64("order_id", order.ID),
				zap.Int64("product_id", item.ProductID),
				zap.Int("quantity", item.Quantity))
			continue
		}
		count.restored++
	}
	return nil
}
