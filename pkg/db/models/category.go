package models

import "time"

type TaxCategory struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Name        string    `gorm:"column:name;not null"`
	Handle      string    `gorm:"column:handle;not null;uniqueIndex:uq_tax_categories_handle"`
	Description string    `gorm:"column:description"`
	Default     bool      `gorm:"column:is_default;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

type ShippingCategory struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Name        string    `gorm:"column:name;not null"`
	Handle      string    `gorm:"column:handle;not null;uniqueIndex:uq_shipping_categories_handle"`
	Description string    `gorm:"column:description"`
	Default     bool      `gorm:"column:is_default;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
