// Package notify tells downstream analytics about committed purchases. Every
// delivery is best-effort: a failed publish is logged and counted, never
// returned to the order path.
package notify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/safar/order-engine/internal/models"
	"github.com/shopspring/decimal"
)

type PurchaseEvent struct {
	EventID     string          `json:"eventId"`
	OrderNumber string          `json:"orderNumber"`
	Total       decimal.Decimal `json:"total"`
	Currency    string          `json:"currency"`
	ItemCount   int             `json:"itemCount"`
	ProductIDs  []int64         `json:"productIds"`
	Email       string          `json:"email,omitempty"`
	Phone       string          `json:"phone,omitempty"`
	Hashed      bool            `json:"hashed"`
	OccurredAt  time.Time       `json:"occurredAt"`
}

type Publisher interface {
	Name() string
	Publish(ctx context.Context, event PurchaseEvent) error
}

// NewPurchaseEvent normalises an order into the event shape. With hashContact
// set, email and phone are replaced by their SHA-256 hex digests.
func NewPurchaseEvent(order *models.Order, currency string, hashContact bool, now time.Time) PurchaseEvent {
	event := PurchaseEvent{
		EventID:     uuid.NewString(),
		OrderNumber: order.OrderNumber,
		Total:       order.TotalAmount,
		Currency:    currency,
		ProductIDs:  []int64{},
		Hashed:      hashContact,
		OccurredAt:  now.UTC(),
	}

	seen := make(map[int64]bool, len(order.Items))
	for _, item := range order.Items {
		event.ItemCount += item.Quantity
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			event.ProductIDs = append(event.ProductIDs, item.ProductID)
		}
	}

	var email string
	if order.CustomerEmail != nil {
		email = strings.ToLower(strings.TrimSpace(*order.CustomerEmail))
	}
	phone := strings.Join(strings.Fields(order.CustomerPhone), "")

	if hashContact {
		email = hashValue(email)
		phone = hashValue(phone)
	}
	event.Email = email
	event.Phone = phone

	return event
}

func hashValue(v string) string {
	if v == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:])
}
