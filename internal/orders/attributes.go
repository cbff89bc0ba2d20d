package orders

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/commerce-core/pkg/enums"
	"github.com/angelmondragon/commerce-core/pkg/money"
)

type orderFormatter func(o *Order, totals Totals) string

// orderFormatters is indexed by enums.OrderAttribute; a missing entry is
// caught by TestOrderFormattersCoverEveryAttribute.
var orderFormatters = [enums.OrderAttributeCount]orderFormatter{
	enums.OrderAttrNumber: func(o *Order, _ Totals) string { return o.Number },
	enums.OrderAttrReference: func(o *Order, _ Totals) string {
		if o.Reference == nil {
			return ""
		}
		return *o.Reference
	},
	enums.OrderAttrEmail:              func(o *Order, _ Totals) string { return o.Email },
	enums.OrderAttrTotalPrice:         func(o *Order, _ Totals) string { return formatIndexAmount(o.TotalPrice, o.Currency) },
	enums.OrderAttrTotalPaid:          func(o *Order, _ Totals) string { return formatIndexAmount(o.TotalPaid, o.Currency) },
	enums.OrderAttrTotalDiscount:      func(o *Order, t Totals) string { return formatIndexAmount(t.TotalDiscount, o.Currency) },
	enums.OrderAttrTotalShippingCost:  func(o *Order, t Totals) string { return formatIndexAmount(t.TotalShippingCost, o.Currency) },
	enums.OrderAttrOutstandingBalance: func(o *Order, t Totals) string { return money.Format(t.OutstandingBalance, o.Currency) },
	enums.OrderAttrIsPaid:             func(_ *Order, t Totals) string { return strconv.FormatBool(t.IsPaid) },
	enums.OrderAttrDateOrdered:        func(o *Order, _ Totals) string { return formatDate(o.DateOrdered) },
	enums.OrderAttrDatePaid:           func(o *Order, _ Totals) string { return formatDate(o.DatePaid) },
}

// formatIndexAmount renders zero as empty and negative amounts by their
// absolute value, as the order index shows them.
func formatIndexAmount(amount decimal.Decimal, currency enums.Currency) string {
	if amount.IsZero() {
		return ""
	}
	return money.Format(amount.Abs(), currency)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// AttributeValues renders the requested index columns from one totals view.
func (o *Order) AttributeValues(totals Totals, attrs ...enums.OrderAttribute) map[string]string {
	out := make(map[string]string, len(attrs))
	for _, attr := range attrs {
		if attr < 0 || attr >= enums.OrderAttributeCount {
			continue
		}
		out[attr.String()] = orderFormatters[attr](o, totals)
	}
	return out
}
