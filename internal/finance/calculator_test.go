package finance

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeBasic(t *testing.T) {
	totals := Compute(
		[]Line{{Quantity: 2, UnitPrice: d("500")}},
		d("10"), d("50"),
	)

	assert.True(t, totals.Subtotal.Equal(d("1000")), "subtotal %s", totals.Subtotal)
	assert.True(t, totals.Tax.Equal(d("100")), "tax %s", totals.Tax)
	assert.True(t, totals.Total.Equal(d("1050")), "total %s", totals.Total)
}

func TestComputeFlooredAtZero(t *testing.T) {
	totals := Compute(
		[]Line{{Quantity: 1, UnitPrice: d("100")}},
		d("0"), d("200"),
	)

	assert.True(t, totals.Total.Equal(decimal.Zero), "total %s", totals.Total)
	assert.False(t, totals.Total.IsNegative())
}

func TestComputeEmptyLines(t *testing.T) {
	totals := Compute(nil, d("21"), decimal.Zero)

	assert.True(t, totals.Subtotal.IsZero())
	assert.True(t, totals.Tax.IsZero())
	assert.True(t, totals.Total.IsZero())
}

func TestComputeRoundsOnceAtEnd(t *testing.T) {
	// Three lines of 0.333 would each round to 0.33 under per-line rounding
	// (subtotal 0.99); rounding once at the end gives 1.00.
	totals := Compute(
		[]Line{
			{Quantity: 1, UnitPrice: d("0.333")},
			{Quantity: 1, UnitPrice: d("0.333")},
			{Quantity: 1, UnitPrice: d("0.333")},
		},
		d("0"), decimal.Zero,
	)

	assert.Equal(t, "1.00", totals.Subtotal.StringFixed(2))
	assert.Equal(t, "1.00", totals.Total.StringFixed(2))
}

func TestComputeTaxRounding(t *testing.T) {
	// 7.77 * 8.25% = 0.641025, rounds to 0.64
	totals := Compute(
		[]Line{{Quantity: 1, UnitPrice: d("7.77")}},
		d("8.25"), decimal.Zero,
	)

	assert.Equal(t, "0.64", totals.Tax.StringFixed(2))
	assert.Equal(t, "8.41", totals.Total.StringFixed(2))
}

func TestComputeMultipleLines(t *testing.T) {
	totals := Compute(
		[]Line{
			{Quantity: 3, UnitPrice: d("19.99")},
			{Quantity: 1, UnitPrice: d("4.50")},
		},
		d("5"), d("10"),
	)

	// subtotal 64.47, tax 3.2235 -> totals rounded once
	assert.Equal(t, "64.47", totals.Subtotal.StringFixed(2))
	assert.Equal(t, "3.22", totals.Tax.StringFixed(2))
	assert.Equal(t, "57.69", totals.Total.StringFixed(2))
}
