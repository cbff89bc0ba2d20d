package enums

import "fmt"

// Currency is an ISO 4217 code the store can price and settle in.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyCAD Currency = "CAD"
	CurrencyAUD Currency = "AUD"
	CurrencyJPY Currency = "JPY"
	CurrencyKWD Currency = "KWD"
)

var validCurrencies = []Currency{
	CurrencyUSD,
	CurrencyEUR,
	CurrencyGBP,
	CurrencyCAD,
	CurrencyAUD,
	CurrencyJPY,
	CurrencyKWD,
}

var minorUnits = map[Currency]int32{
	CurrencyUSD: 2,
	CurrencyEUR: 2,
	CurrencyGBP: 2,
	CurrencyCAD: 2,
	CurrencyAUD: 2,
	CurrencyJPY: 0,
	CurrencyKWD: 3,
}

var symbols = map[Currency]string{
	CurrencyUSD: "$",
	CurrencyEUR: "€",
	CurrencyGBP: "£",
	CurrencyCAD: "CA$",
	CurrencyAUD: "A$",
	CurrencyJPY: "¥",
	CurrencyKWD: "KD ",
}

// String implements fmt.Stringer.
func (c Currency) String() string {
	return string(c)
}

// IsValid reports whether the currency is recognized.
func (c Currency) IsValid() bool {
	for _, candidate := range validCurrencies {
		if candidate == c {
			return true
		}
	}
	return false
}

// MinorUnits is the number of decimal places amounts are rounded to.
// Unknown currencies round to two places.
func (c Currency) MinorUnits() int32 {
	if units, ok := minorUnits[c]; ok {
		return units
	}
	return 2
}

// Symbol returns the display prefix, falling back to "<code> ".
func (c Currency) Symbol() string {
	if sym, ok := symbols[c]; ok {
		return sym
	}
	return string(c) + " "
}

// ParseCurrency converts a raw string into a Currency.
func ParseCurrency(value string) (Currency, error) {
	for _, candidate := range validCurrencies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid currency %q", value)
}
