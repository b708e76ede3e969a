package lifecycle

import (
	"testing"

	"github.com/safar/order-engine/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{models.OrderStatusPending, models.OrderStatusProcessing, true},
		{models.OrderStatusPending, models.OrderStatusDelivered, true},
		{models.OrderStatusProcessing, models.OrderStatusPending, true},
		{models.OrderStatusShipped, models.OrderStatusProcessing, true},
		{models.OrderStatusDelivered, models.OrderStatusShipped, true},
		{models.OrderStatusPending, models.OrderStatusCancelled, true},
		{models.OrderStatusShipped, models.OrderStatusCancelled, true},
		{models.OrderStatusDelivered, models.OrderStatusCancelled, true},
		{models.OrderStatusCancelled, models.OrderStatusPending, false},
		{models.OrderStatusCancelled, models.OrderStatusDelivered, false},
		{models.OrderStatusCancelled, models.OrderStatusCancelled, true},
		{models.OrderStatusShipped, models.OrderStatusShipped, true},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}
