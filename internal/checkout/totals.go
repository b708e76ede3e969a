package checkout

import "github.com/shopspring/decimal"

type Totals struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}

func Subtotal(lines []ResolvedLine) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Subtotal())
	}
	return sum
}

// ComputeTotals applies total = max(0, subtotal - discount + shipping).
func ComputeTotals(subtotal, discount, shipping decimal.Decimal) Totals {
	total := subtotal.Sub(discount).Add(shipping)
	if total.IsNegative() {
		total = decimal.Zero
	}
	return Totals{Subtotal: subtotal, Discount: discount, Shipping: shipping, Total: total}
}
