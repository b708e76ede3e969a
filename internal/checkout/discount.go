package checkout

import (
	"time"

	"github.com/safar/order-engine/internal/models"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type Discount struct {
	Amount   decimal.Decimal
	CouponID *int64
}

// EvaluateCoupon computes the discount a coupon grants on subtotal at now.
// A coupon that does not qualify yields a zero discount and no coupon id;
// it is never an error.
func EvaluateCoupon(coupon *models.Coupon, subtotal decimal.Decimal, now time.Time) Discount {
	if !couponApplies(coupon, subtotal, now) {
		return Discount{Amount: decimal.Zero}
	}

	value := coupon.Value
	if value.IsNegative() {
		value = decimal.Zero
	}

	var amount decimal.Decimal
	switch coupon.Type {
	case models.CouponTypePercent:
		amount = subtotal.Mul(value).Div(hundred).Round(2)
	case models.CouponTypeFixed:
		amount = value
	default:
		return Discount{Amount: decimal.Zero}
	}

	amount = decimal.Min(amount, subtotal)
	if amount.IsNegative() {
		amount = decimal.Zero
	}

	id := coupon.ID
	return Discount{Amount: amount, CouponID: &id}
}

func couponApplies(c *models.Coupon, subtotal decimal.Decimal, now time.Time) bool {
	if c == nil || !c.Active {
		return false
	}
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return false
	}
	if c.ValidUntil != nil && now.After(*c.ValidUntil) {
		return false
	}
	if c.MaxUses != nil && c.UsedCount >= *c.MaxUses {
		return false
	}
	if c.MinOrderAmount != nil && subtotal.LessThan(*c.MinOrderAmount) {
		return false
	}
	return true
}
