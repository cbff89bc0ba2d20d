package models

import "time"

// ProductType is the persisted scalar part of a product type. Site settings and
// category associations live in their own tables.
type ProductType struct {
	ID                   int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Name                 string    `gorm:"column:name;not null"`
	Handle               string    `gorm:"column:handle;not null;uniqueIndex:uq_product_types_handle"`
	HasURLs              bool      `gorm:"column:has_urls;not null"`
	HasDimensions        bool      `gorm:"column:has_dimensions;not null"`
	HasVariants          bool      `gorm:"column:has_variants;not null"`
	HasVariantTitleField bool      `gorm:"column:has_variant_title_field;not null"`
	TitleFormat          string    `gorm:"column:title_format;not null"`
	SKUFormat            string    `gorm:"column:sku_format"`
	DescriptionFormat    string    `gorm:"column:description_format"`
	FieldLayoutID        *int64    `gorm:"column:field_layout_id"`
	VariantFieldLayoutID *int64    `gorm:"column:variant_field_layout_id"`
	CreatedAt            time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// ProductTypeSite holds the per-site URL settings of a product type.
type ProductTypeSite struct {
	ID            int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ProductTypeID int64     `gorm:"column:product_type_id;not null;uniqueIndex:uq_product_type_sites_type_site"`
	SiteID        int64     `gorm:"column:site_id;not null;uniqueIndex:uq_product_type_sites_type_site"`
	HasURLs       bool      `gorm:"column:has_urls;not null"`
	URIFormat     *string   `gorm:"column:uri_format"`
	Template      *string   `gorm:"column:template"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// ProductTypeTaxCategory is one (type, tax category) association row.
type ProductTypeTaxCategory struct {
	ID            int64 `gorm:"column:id;primaryKey;autoIncrement"`
	ProductTypeID int64 `gorm:"column:product_type_id;not null;uniqueIndex:uq_product_types_tax_categories"`
	TaxCategoryID int64 `gorm:"column:tax_category_id;not null;uniqueIndex:uq_product_types_tax_categories"`
}

func (ProductTypeTaxCategory) TableName() string { return "product_types_tax_categories" }

// ProductTypeShippingCategory is one (type, shipping category) association row.
type ProductTypeShippingCategory struct {
	ID                 int64 `gorm:"column:id;primaryKey;autoIncrement"`
	ProductTypeID      int64 `gorm:"column:product_type_id;not null;uniqueIndex:uq_product_types_shipping_categories"`
	ShippingCategoryID int64 `gorm:"column:shipping_category_id;not null;uniqueIndex:uq_product_types_shipping_categories"`
}

func (ProductTypeShippingCategory) TableName() string { return "product_types_shipping_categories" }
