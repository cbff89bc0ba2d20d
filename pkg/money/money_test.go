package money

import (
	"testing"

	"github.com/angelmondragon/commerce-core/pkg/enums"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRoundHalfAwayFromZero(t *testing.T) {
	cases := []struct {
		name     string
		in       string
		currency enums.Currency
		want     string
	}{
		{"usd half up", "10.005", enums.CurrencyUSD, "10.01"},
		{"usd negative half", "-10.005", enums.CurrencyUSD, "-10.01"},
		{"usd below half", "10.0049", enums.CurrencyUSD, "10"},
		{"jpy whole", "99.5", enums.CurrencyJPY, "100"},
		{"kwd three places", "1.2345", enums.CurrencyKWD, "1.235"},
		{"unknown defaults to two", "3.335", enums.Currency("XXX"), "3.34"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Round(d(tc.in), tc.currency)
			assert.True(t, got.Equal(d(tc.want)), "got %s want %s", got, tc.want)
		})
	}
}

func TestSumAndSumBy(t *testing.T) {
	assert.True(t, Sum().IsZero())
	assert.True(t, Sum(d("1.10"), d("2.20"), d("-0.30")).Equal(d("3")))

	type row struct{ v decimal.Decimal }
	rows := []row{{d("0.1")}, {d("0.2")}}
	assert.True(t, SumBy(rows, func(r row) decimal.Decimal { return r.v }).Equal(d("0.3")))
	assert.True(t, SumBy([]row(nil), func(r row) decimal.Decimal { return r.v }).IsZero())
}

func TestTimes(t *testing.T) {
	assert.True(t, Times(d("2.5"), 3).Equal(d("7.5")))
	assert.True(t, Times(d("2.5"), 0).IsZero())
}

func TestEqualUsesRoundedValues(t *testing.T) {
	assert.True(t, Equal(d("19.999"), d("20.001"), enums.CurrencyUSD))
	assert.False(t, Equal(d("19.994"), d("20.00"), enums.CurrencyUSD))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "$12.50", Format(d("12.5"), enums.CurrencyUSD))
	assert.Equal(t, "-$0.01", Format(d("-0.005"), enums.CurrencyUSD))
	assert.Equal(t, "¥1235", Format(d("1234.5"), enums.CurrencyJPY))
	assert.Equal(t, "KD 1.000", Format(d("1"), enums.CurrencyKWD))
}
