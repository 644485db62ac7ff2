// Package finance is the single place totals are computed. Every order,
// invoice and purchase order routes through Compute; no caller derives a total
// on its own.
package finance

import "github.com/shopspring/decimal"

// Line is one priced line item.
type Line struct {
	Quantity  int
	UnitPrice decimal.Decimal
}

// Totals is the result of a computation. All values are rounded to
// currency-minor-unit precision (2 places), once, at the end of the formula.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

var hundred = decimal.NewFromInt(100)

// Compute derives subtotal, tax and total from line items, a percent tax rate
// and an absolute discount. The total is floored at zero: a discount exceeding
// subtotal plus tax never produces a negative charge.
func Compute(lines []Line, taxRatePercent, discount decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	tax := subtotal.Mul(taxRatePercent).Div(hundred)

	total := subtotal.Add(tax).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Totals{
		Subtotal: subtotal.Round(2),
		Tax:      tax.Round(2),
		Total:    total.Round(2),
	}
}
