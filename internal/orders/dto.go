package orders

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/angelmondragon/commerce-core/pkg/db/models"
	"github.com/angelmondragon/commerce-core/pkg/enums"
)

// LineItem is one purchasable row of an order as seen by the totals engine.
type LineItem struct {
	ID            int64
	OrderID       int64
	PurchasableID int64
	Description   string
	SKU           string
	Qty           int
	Price         decimal.Decimal
	SaleAmount    decimal.Decimal
	Weight        decimal.Decimal
	Length        decimal.Decimal
	Width         decimal.Decimal
	Height        decimal.Decimal
	Tax           decimal.Decimal
	TaxIncluded   decimal.Decimal
	Discount      decimal.Decimal
	ShippingCost  decimal.Decimal
	Snapshot      datatypes.JSON
	Note          string
}

// SalePrice is the unit price after the sale amount is applied.
func (li LineItem) SalePrice() decimal.Decimal {
	return li.Price.Add(li.SaleAmount)
}

// Subtotal is the sale price times quantity.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.SalePrice().Mul(decimal.NewFromInt(int64(li.Qty)))
}

// Total adds tax, shipping and the signed discount to the subtotal.
func (li LineItem) Total() decimal.Decimal {
	return li.Subtotal().Add(li.Tax).Add(li.ShippingCost).Add(li.Discount)
}

// Adjustment is a tax, discount or shipping amount applied to an order or one
// of its line items.
type Adjustment struct {
	ID             int64
	OrderID        int64
	LineItemID     *int64
	Type           enums.AdjustmentType
	Name           string
	Description    string
	Amount         decimal.Decimal
	Included       bool
	SourceSnapshot datatypes.JSON
}

// Totals is every derived figure of an order computed over one view of its
// children.
type Totals struct {
	OrderID            int64           `json:"order_id"`
	Currency           enums.Currency  `json:"currency"`
	TotalTax           decimal.Decimal `json:"total_tax"`
	TotalTaxIncluded   decimal.Decimal `json:"total_tax_included"`
	TotalDiscount      decimal.Decimal `json:"total_discount"`
	TotalShippingCost  decimal.Decimal `json:"total_shipping_cost"`
	TotalWeight        decimal.Decimal `json:"total_weight"`
	TotalLength        decimal.Decimal `json:"total_length"`
	TotalWidth         decimal.Decimal `json:"total_width"`
	TotalHeight        decimal.Decimal `json:"total_height"`
	TotalSaleAmount    decimal.Decimal `json:"total_sale_amount"`
	ItemSubtotal       decimal.Decimal `json:"item_subtotal"`
	AdjustmentSubtotal decimal.Decimal `json:"adjustment_subtotal"`
	TotalQty           int             `json:"total_qty"`
	IsEmpty            bool            `json:"is_empty"`
	TotalPrice         decimal.Decimal `json:"total_price"`
	TotalPaid          decimal.Decimal `json:"total_paid"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
	IsPaid             bool            `json:"is_paid"`
}

func lineItemFromModel(m models.LineItem) LineItem {
	return LineItem{
		ID:            m.ID,
		OrderID:       m.OrderID,
		PurchasableID: m.PurchasableID,
		Description:   m.Description,
		SKU:           m.SKU,
		Qty:           m.Qty,
		Price:         m.Price,
		SaleAmount:    m.SaleAmount,
		Weight:        m.Weight,
		Length:        m.Length,
		Width:         m.Width,
		Height:        m.Height,
		Tax:           m.Tax,
		TaxIncluded:   m.TaxIncluded,
		Discount:      m.Discount,
		ShippingCost:  m.ShippingCost,
		Snapshot:      m.Snapshot,
		Note:          m.Note,
	}
}

func lineItemToModel(orderID int64, li LineItem) models.LineItem {
	return models.LineItem{
		OrderID:       orderID,
		PurchasableID: li.PurchasableID,
		Description:   li.Description,
		SKU:           li.SKU,
		Qty:           li.Qty,
		Price:         li.Price,
		SaleAmount:    li.SaleAmount,
		Weight:        li.Weight,
		Length:        li.Length,
		Width:         li.Width,
		Height:        li.Height,
		Tax:           li.Tax,
		TaxIncluded:   li.TaxIncluded,
		Discount:      li.Discount,
		ShippingCost:  li.ShippingCost,
		Snapshot:      li.Snapshot,
		Note:          li.Note,
	}
}

func adjustmentFromModel(m models.OrderAdjustment) Adjustment {
	return Adjustment{
		ID:             m.ID,
		OrderID:        m.OrderID,
		LineItemID:     m.LineItemID,
		Type:           m.Type,
		Name:           m.Name,
		Description:    m.Description,
		Amount:         m.Amount,
		Included:       m.Included,
		SourceSnapshot: m.SourceSnapshot,
	}
}

func adjustmentToModel(orderID int64, a Adjustment) models.OrderAdjustment {
	return models.OrderAdjustment{
		OrderID:        orderID,
		LineItemID:     a.LineItemID,
		Type:           a.Type,
		Name:           a.Name,
		Description:    a.Description,
		Amount:         a.Amount,
		Included:       a.Included,
		SourceSnapshot: a.SourceSnapshot,
	}
}

// orderFields copies the persisted base fields onto a fresh aggregate.
func orderFields(m models.Order) Fields {
	return Fields{
		ID:               m.ID,
		Number:           m.Number,
		Reference:        m.Reference,
		Email:            m.Email,
		Currency:         m.Currency,
		PaymentCurrency:  m.PaymentCurrency,
		CouponCode:       m.CouponCode,
		ItemTotal:        m.ItemTotal,
		BaseDiscount:     m.BaseDiscount,
		BaseShippingCost: m.BaseShippingCost,
		BaseTax:          m.BaseTax,
		TotalPrice:       m.TotalPrice,
		TotalPaid:        m.TotalPaid,
		IsCompleted:      m.IsCompleted,
		DateOrdered:      m.DateOrdered,
		DatePaid:         m.DatePaid,
	}
}

// Fields are the stored base values of an order.
type Fields struct {
	ID               int64
	Number           string
	Reference        *string
	Email            string
	Currency         enums.Currency
	PaymentCurrency  enums.Currency
	CouponCode       *string
	ItemTotal        decimal.Decimal
	BaseDiscount     decimal.Decimal
	BaseShippingCost decimal.Decimal
	BaseTax          decimal.Decimal
	TotalPrice       decimal.Decimal
	TotalPaid        decimal.Decimal
	IsCompleted      bool
	DateOrdered      *time.Time
	DatePaid         *time.Time
}
