package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestProductEffectivePrice(t *testing.T) {
	price := decimal.NewFromInt(500)
	lower := decimal.NewFromInt(450)
	higher := decimal.NewFromInt(600)

	tests := []struct {
		name string
		sale *decimal.Decimal
		want decimal.Decimal
	}{
		{"no sale price", nil, price},
		{"lower sale price", &lower, lower},
		{"equal sale price", &price, price},
		{"higher sale price", &higher, price},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Product{Price: price, SalePrice: tt.sale}
			assert.True(t, tt.want.Equal(p.EffectivePrice()), "got %s", p.EffectivePrice())
		})
	}
}

func TestShippingZoneValid(t *testing.T) {
	assert.True(t, ShippingZoneInsideHub.Valid())
	assert.True(t, ShippingZoneOutsideHub.Valid())
	assert.False(t, ShippingZone("moon").Valid())
}

func TestValidOrderStatus(t *testing.T) {
	assert.True(t, ValidOrderStatus(OrderStatusShipped))
	assert.False(t, ValidOrderStatus("confirmed"))
}
