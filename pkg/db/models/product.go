package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog item of exactly one product type.
type Product struct {
	ID                 int64           `gorm:"column:id;primaryKey;autoIncrement"`
	TypeID             int64           `gorm:"column:type_id;not null;index:idx_products_type_id"`
	TaxCategoryID      int64           `gorm:"column:tax_category_id;not null;index"`
	ShippingCategoryID int64           `gorm:"column:shipping_category_id;not null;index"`
	DefaultVariantID   *int64          `gorm:"column:default_variant_id"`
	Title              string          `gorm:"column:title;not null"`
	Enabled            bool            `gorm:"column:enabled;not null"`
	Promotable         bool            `gorm:"column:promotable;not null"`
	FreeShipping       bool            `gorm:"column:free_shipping;not null"`
	PostDate           *time.Time      `gorm:"column:post_date"`
	ExpiryDate         *time.Time      `gorm:"column:expiry_date"`
	DefaultSKU         string          `gorm:"column:default_sku"`
	DefaultPrice       decimal.Decimal `gorm:"column:default_price;type:numeric(14,4);not null"`
	DefaultWeight      decimal.Decimal `gorm:"column:default_weight;type:numeric(14,4);not null"`
	DefaultLength      decimal.Decimal `gorm:"column:default_length;type:numeric(14,4);not null"`
	DefaultWidth       decimal.Decimal `gorm:"column:default_width;type:numeric(14,4);not null"`
	DefaultHeight      decimal.Decimal `gorm:"column:default_height;type:numeric(14,4);not null"`
	CreatedAt          time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time       `gorm:"column:updated_at;autoUpdateTime"`

	Variants []Variant `gorm:"foreignKey:ProductID"`
}

// Variant is a purchasable of a product. Category overrides are optional and
// must stay inside the product type's category sets.
type Variant struct {
	ID                 int64           `gorm:"column:id;primaryKey;autoIncrement"`
	ProductID          int64           `gorm:"column:product_id;not null;index:idx_variants_product_id"`
	SKU                string          `gorm:"column:sku;not null"`
	Title              string          `gorm:"column:title"`
	Price              decimal.Decimal `gorm:"column:price;type:numeric(14,4);not null"`
	Weight             decimal.Decimal `gorm:"column:weight;type:numeric(14,4);not null"`
	Length             decimal.Decimal `gorm:"column:length;type:numeric(14,4);not null"`
	Width              decimal.Decimal `gorm:"column:width;type:numeric(14,4);not null"`
	Height             decimal.Decimal `gorm:"column:height;type:numeric(14,4);not null"`
	Stock              int             `gorm:"column:stock;not null"`
	HasUnlimitedStock  bool            `gorm:"column:has_unlimited_stock;not null"`
	IsDefault          bool            `gorm:"column:is_default;not null"`
	Enabled            bool            `gorm:"column:enabled;not null"`
	SortOrder          int             `gorm:"column:sort_order;not null"`
	TaxCategoryID      *int64          `gorm:"column:tax_category_id"`
	ShippingCategoryID *int64          `gorm:"column:shipping_category_id"`
	CreatedAt          time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// ProductSite carries the per-site slug and URI of a product. A nil URI means
// the product has no URL on that site.
type ProductSite struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ProductID int64     `gorm:"column:product_id;not null;uniqueIndex:uq_product_sites_product_site"`
	SiteID    int64     `gorm:"column:site_id;not null;uniqueIndex:uq_product_sites_product_site"`
	Slug      string    `gorm:"column:slug;not null"`
	URI       *string   `gorm:"column:uri"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
