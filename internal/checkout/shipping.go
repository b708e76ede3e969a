package checkout

import (
	"github.com/safar/order-engine/internal/models"
	"github.com/shopspring/decimal"
)

type ShippingRates struct {
	InsideHub       decimal.Decimal
	OutsideHub      decimal.Decimal
	FreeShippingMin decimal.Decimal
}

// Quote returns the shipping cost for zone. Orders at or above a positive
// free-shipping minimum ship free.
func (r ShippingRates) Quote(zone models.ShippingZone, subtotal decimal.Decimal) (decimal.Decimal, error) {
	var rate decimal.Decimal
	switch zone {
	case models.ShippingZoneInsideHub:
		rate = r.InsideHub
	case models.ShippingZoneOutsideHub:
		rate = r.OutsideHub
	default:
		return decimal.Zero, validationError("unknown shipping zone %q", zone)
	}

	if r.FreeShippingMin.IsPositive() && subtotal.GreaterThanOrEqual(r.FreeShippingMin) {
		return decimal.Zero, nil
	}
	return rate, nil
}
