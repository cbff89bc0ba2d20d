package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/angelmondragon/commerce-core/pkg/enums"
)

// Order holds the stored base fields of a cart or completed order. Derived
// totals are never persisted here.
type Order struct {
	ID               int64           `gorm:"column:id;primaryKey;autoIncrement"`
	Number           string          `gorm:"column:number;not null;uniqueIndex:uq_orders_number"`
	Reference        *string         `gorm:"column:reference"`
	Email            string          `gorm:"column:email"`
	Currency         enums.Currency  `gorm:"column:currency;not null"`
	PaymentCurrency  enums.Currency  `gorm:"column:payment_currency;not null"`
	CouponCode       *string         `gorm:"column:coupon_code"`
	ItemTotal        decimal.Decimal `gorm:"column:item_total;type:numeric(14,4);not null"`
	BaseDiscount     decimal.Decimal `gorm:"column:base_discount;type:numeric(14,4);not null"`
	BaseShippingCost decimal.Decimal `gorm:"column:base_shipping_cost;type:numeric(14,4);not null"`
	BaseTax          decimal.Decimal `gorm:"column:base_tax;type:numeric(14,4);not null"`
	TotalPrice       decimal.Decimal `gorm:"column:total_price;type:numeric(14,4);not null"`
	TotalPaid        decimal.Decimal `gorm:"column:total_paid;type:numeric(14,4);not null"`
	IsCompleted      bool            `gorm:"column:is_completed;not null"`
	DateOrdered      *time.Time      `gorm:"column:date_ordered"`
	DatePaid         *time.Time      `gorm:"column:date_paid"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// LineItem is one purchasable on an order, unique per (order, purchasable).
type LineItem struct {
	ID            int64           `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID       int64           `gorm:"column:order_id;not null;uniqueIndex:uq_line_items_order_purchasable"`
	PurchasableID int64           `gorm:"column:purchasable_id;not null;uniqueIndex:uq_line_items_order_purchasable"`
	Description   string          `gorm:"column:description"`
	SKU           string          `gorm:"column:sku"`
	Qty           int             `gorm:"column:qty;not null"`
	Price         decimal.Decimal `gorm:"column:price;type:numeric(14,4);not null"`
	SaleAmount    decimal.Decimal `gorm:"column:sale_amount;type:numeric(14,4);not null"`
	Weight        decimal.Decimal `gorm:"column:weight;type:numeric(14,4);not null"`
	Length        decimal.Decimal `gorm:"column:length;type:numeric(14,4);not null"`
	Width         decimal.Decimal `gorm:"column:width;type:numeric(14,4);not null"`
	Height        decimal.Decimal `gorm:"column:height;type:numeric(14,4);not null"`
	Tax           decimal.Decimal `gorm:"column:tax;type:numeric(14,4);not null"`
	TaxIncluded   decimal.Decimal `gorm:"column:tax_included;type:numeric(14,4);not null"`
	Discount      decimal.Decimal `gorm:"column:discount;type:numeric(14,4);not null"`
	ShippingCost  decimal.Decimal `gorm:"column:shipping_cost;type:numeric(14,4);not null"`
	Snapshot      datatypes.JSON  `gorm:"column:snapshot"`
	Note          string          `gorm:"column:note"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderAdjustment is a tax, discount or shipping amount applied to an order.
// Included adjustments are already part of a price and are not added again.
type OrderAdjustment struct {
	ID             int64                `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID        int64                `gorm:"column:order_id;not null;index:idx_order_adjustments_order_id"`
	LineItemID     *int64               `gorm:"column:line_item_id"`
	Type           enums.AdjustmentType `gorm:"column:type;not null"`
	Name           string               `gorm:"column:name"`
	Description    string               `gorm:"column:description"`
	Amount         decimal.Decimal      `gorm:"column:amount;type:numeric(14,4);not null"`
	Included       bool                 `gorm:"column:included;not null"`
	SourceSnapshot datatypes.JSON       `gorm:"column:source_snapshot"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
}
