package orders

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/commerce-core/pkg/logger"
	"github.com/angelmondragon/commerce-core/pkg/metrics"
	"github.com/angelmondragon/commerce-core/pkg/money"
)

// ChildSource supplies the line items and adjustments of an order.
type ChildSource interface {
	FetchByOrderID(ctx context.Context, orderID int64) ([]LineItem, []Adjustment, error)
}

// loaded is a cache slot. A zero slot has not been loaded; a loaded slot may
// legitimately hold an empty collection.
type loaded[T any] struct {
	value T
	ok    bool
}

func loadedWith[T any](v T) loaded[T] {
	return loaded[T]{value: v, ok: true}
}

// Order is the totals aggregate over one order. Children are fetched lazily on
// first use and kept until SetLineItems, SetAdjustments or Invalidate.
//
// An Order is not safe for concurrent mutation.
type Order struct {
	Fields

	source  ChildSource
	logg    *logger.Logger
	metrics *metrics.OrderMetrics

	lineItems   loaded[[]LineItem]
	adjustments loaded[[]Adjustment]
}

// Option configures an Order.
type Option func(*Order)

func WithLogger(logg *logger.Logger) Option {
	return func(o *Order) { o.logg = logg }
}

func WithMetrics(m *metrics.OrderMetrics) Option {
	return func(o *Order) { o.metrics = m }
}

// NewOrder builds an aggregate over the stored fields. source may be nil, in
// which case the order has no children until they are set.
func NewOrder(fields Fields, source ChildSource, opts ...Option) *Order {
	o := &Order{Fields: fields, source: source}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SetLineItems replaces the cached line items.
func (o *Order) SetLineItems(items []LineItem) {
	o.lineItems = loadedWith(cloneSlice(items))
}

// SetAdjustments replaces the cached adjustments.
func (o *Order) SetAdjustments(adjustments []Adjustment) {
	o.adjustments = loadedWith(cloneSlice(adjustments))
}

// Invalidate drops both cache slots so the next read refetches.
func (o *Order) Invalidate() {
	o.lineItems = loaded[[]LineItem]{}
	o.adjustments = loaded[[]Adjustment]{}
}

// Load fetches any slot that is not loaded yet and reports store failures.
func (o *Order) Load(ctx context.Context) error {
	if o.lineItems.ok && o.adjustments.ok {
		return nil
	}
	if o.source == nil {
		o.fill(nil, nil)
		return nil
	}
	items, adjustments, err := o.source.FetchByOrderID(ctx, o.ID)
	o.metrics.IncFetch(err == nil)
	if err != nil {
		return err
	}
	o.fill(items, adjustments)
	return nil
}

func (o *Order) fill(items []LineItem, adjustments []Adjustment) {
	if !o.lineItems.ok {
		if items == nil {
			items = []LineItem{}
		}
		o.lineItems = loadedWith(items)
	}
	if !o.adjustments.ok {
		if adjustments == nil {
			adjustments = []Adjustment{}
		}
		o.adjustments = loadedWith(adjustments)
	}
}

// children returns the current view. A failed fetch is logged and yields
// empty collections for the unloaded slots without caching them.
func (o *Order) children(ctx context.Context) ([]LineItem, []Adjustment) {
	if err := o.Load(ctx); err != nil && o.logg != nil {
		ctx = o.logg.WithOrderID(ctx, o.ID)
		ctx = o.logg.WithField(ctx, "error", err.Error())
		o.logg.Warn(ctx, "fetch order children failed; totals use base fields")
	}
	var items []LineItem
	if o.lineItems.ok {
		items = o.lineItems.value
	}
	var adjustments []Adjustment
	if o.adjustments.ok {
		adjustments = o.adjustments.value
	}
	return items, adjustments
}

// LineItems returns the order's line items in insertion order.
func (o *Order) LineItems(ctx context.Context) []LineItem {
	items, _ := o.children(ctx)
	return cloneSlice(items)
}

// Adjustments returns the order's adjustments.
func (o *Order) Adjustments(ctx context.Context) []Adjustment {
	_, adjustments := o.children(ctx)
	return cloneSlice(adjustments)
}

func (o *Order) TotalTax(ctx context.Context) decimal.Decimal {
	items, _ := o.children(ctx)
	return sumTax(items).Add(o.BaseTax)
}

func (o *Order) TotalTaxIncluded(ctx context.Context) decimal.Decimal {
	items, _ := o.children(ctx)
	return money.SumBy(items, func(li LineItem) decimal.Decimal { return li.TaxIncluded })
}

func (o *Order) TotalDiscount(ctx context.Context) decimal.Decimal {
	items, _ := o.children(ctx)
	return sumDiscount(items).Add(o.BaseDiscount)
}

func (o *Order) TotalShippingCost(ctx context.Context) decimal.Decimal {
	items, _ := o.children(ctx)
	return sumShipping(items).Add(o.BaseShippingCost)
}

func (o *Order) TotalWeight(ctx context.Context) decimal.Decimal {
	items, _ := o.children(ctx)
	return sumPerUnit(items, func(li LineItem) decimal.Decimal { return li.Weight })
}

func (o *Order) TotalLength(ctx context.Context) decimal.Decimal {
	items, _ := o.children(ctx)
	return sumPerUnit(items, func(li LineItem) decimal.Decimal { return li.Length })
}

func (o *Order) TotalWidth(ctx context.Context) decimal.Decimal {
	items, _ := o.children(ctx)
	return sumPerUnit(items, func(li LineItem) decimal.Decimal { return li.Width })
}

func (o *Order) TotalHeight(ctx context.Context) decimal.Decimal {
	items, _ := o.children(ctx)
	return sumPerUnit(items, func(li LineItem) decimal.Decimal { return li.Height })
}

func (o *Order) TotalSaleAmount(ctx context.Context) decimal.Decimal {
	items, _ := o.children(ctx)
	return sumPerUnit(items, func(li LineItem) decimal.Decimal { return li.SaleAmount })
}

func (o *Order) ItemSubtotal(ctx context.Context) decimal.Decimal {
	items, _ := o.children(ctx)
	return money.SumBy(items, LineItem.Subtotal)
}

// AdjustmentSubtotal sums adjustments that are not already part of a price.
func (o *Order) AdjustmentSubtotal(ctx context.Context) decimal.Decimal {
	_, adjustments := o.children(ctx)
	return sumAdjustments(adjustments)
}

func (o *Order) TotalQty(ctx context.Context) int {
	items, _ := o.children(ctx)
	return sumQty(items)
}

func (o *Order) IsEmpty(ctx context.Context) bool {
	return o.TotalQty(ctx) == 0
}

// OutstandingBalance is round(totalPrice) - round(totalPaid) in the order
// currency.
func (o *Order) OutstandingBalance() decimal.Decimal {
	return money.Round(o.TotalPrice, o.Currency).Sub(money.Round(o.TotalPaid, o.Currency))
}

func (o *Order) IsPaid() bool {
	return !o.OutstandingBalance().IsPositive()
}

func (o *Order) IsUnpaid() bool {
	return o.OutstandingBalance().IsPositive()
}

// Totals computes every derived figure from a single view of the children.
func (o *Order) Totals(ctx context.Context) Totals {
	items, adjustments := o.children(ctx)
	qty := sumQty(items)
	return Totals{
		OrderID:            o.ID,
		Currency:           o.Currency,
		TotalTax:           sumTax(items).Add(o.BaseTax),
		TotalTaxIncluded:   money.SumBy(items, func(li LineItem) decimal.Decimal { return li.TaxIncluded }),
		TotalDiscount:      sumDiscount(items).Add(o.BaseDiscount),
		TotalShippingCost:  sumShipping(items).Add(o.BaseShippingCost),
		TotalWeight:        sumPerUnit(items, func(li LineItem) decimal.Decimal { return li.Weight }),
		TotalLength:        sumPerUnit(items, func(li LineItem) decimal.Decimal { return li.Length }),
		TotalWidth:         sumPerUnit(items, func(li LineItem) decimal.Decimal { return li.Width }),
		TotalHeight:        sumPerUnit(items, func(li LineItem) decimal.Decimal { return li.Height }),
		TotalSaleAmount:    sumPerUnit(items, func(li LineItem) decimal.Decimal { return li.SaleAmount }),
		ItemSubtotal:       money.SumBy(items, LineItem.Subtotal),
		AdjustmentSubtotal: sumAdjustments(adjustments),
		TotalQty:           qty,
		IsEmpty:            qty == 0,
		TotalPrice:         o.TotalPrice,
		TotalPaid:          o.TotalPaid,
		OutstandingBalance: o.OutstandingBalance(),
		IsPaid:             o.IsPaid(),
	}
}

func sumTax(items []LineItem) decimal.Decimal {
	return money.SumBy(items, func(li LineItem) decimal.Decimal { return li.Tax })
}

func sumDiscount(items []LineItem) decimal.Decimal {
	return money.SumBy(items, func(li LineItem) decimal.Decimal { return li.Discount })
}

func sumShipping(items []LineItem) decimal.Decimal {
	return money.SumBy(items, func(li LineItem) decimal.Decimal { return li.ShippingCost })
}

func sumPerUnit(items []LineItem, field func(LineItem) decimal.Decimal) decimal.Decimal {
	return money.SumBy(items, func(li LineItem) decimal.Decimal { return money.Times(field(li), li.Qty) })
}

func sumAdjustments(adjustments []Adjustment) decimal.Decimal {
	total := decimal.Zero
	for _, a := range adjustments {
		if a.Included {
			continue
		}
		total = total.Add(a.Amount)
	}
	return total
}

func sumQty(items []LineItem) int {
	qty := 0
	for _, li := range items {
		qty += li.Qty
	}
	return qty
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
