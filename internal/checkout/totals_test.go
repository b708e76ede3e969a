package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeTotals(t *testing.T) {
	tests := []struct {
		name                         string
		subtotal, discount, shipping string
		want                         string
	}{
		{"plain", "1000", "0", "80", "1080"},
		{"with discount", "1000", "100", "150", "1050"},
		{"discount equals subtotal", "200", "200", "80", "80"},
		{"free shipping", "5000", "500", "0", "4500"},
		{"never negative", "0", "10", "0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeTotals(dec(tt.subtotal), dec(tt.discount), dec(tt.shipping))
			assert.True(t, got.Total.Equal(dec(tt.want)), "got %s", got.Total)
			assert.True(t, got.Subtotal.Equal(dec(tt.subtotal)))
		})
	}
}

func TestSubtotal(t *testing.T) {
	lines := []ResolvedLine{
		{UnitPrice: dec("450"), Quantity: 2},
		{UnitPrice: dec("19.99"), Quantity: 3},
	}
	assert.True(t, Subtotal(lines).Equal(dec("959.97")))
	assert.True(t, Subtotal(nil).IsZero())
}
