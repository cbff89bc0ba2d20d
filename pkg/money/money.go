// Package money holds the currency-aware decimal helpers shared by the order
// and catalog engines.
package money

import (
	"strings"

	"github.com/angelmondragon/commerce-core/pkg/enums"
	"github.com/shopspring/decimal"
)

// Round rounds half away from zero at the currency's minor-unit count.
func Round(amount decimal.Decimal, currency enums.Currency) decimal.Decimal {
	return amount.Round(currency.MinorUnits())
}

// Sum adds the values.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// SumBy adds fn(item) over items.
func SumBy[T any](items []T, fn func(T) decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(fn(item))
	}
	return total
}

// Times multiplies a unit amount by an integer quantity.
func Times(amount decimal.Decimal, qty int) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(int64(qty)))
}

// Equal compares two amounts after rounding both to currency precision.
func Equal(a, b decimal.Decimal, currency enums.Currency) bool {
	return Round(a, currency).Equal(Round(b, currency))
}

// Format renders an amount as "<symbol><digits>" at currency precision.
// Negative amounts are prefixed with "-" before the symbol.
func Format(amount decimal.Decimal, currency enums.Currency) string {
	rounded := Round(amount, currency)
	digits := rounded.Abs().StringFixed(currency.MinorUnits())
	var b strings.Builder
	if rounded.IsNegative() {
		b.WriteByte('-')
	}
	b.WriteString(currency.Symbol())
	b.WriteString(digits)
	return b.String()
}
