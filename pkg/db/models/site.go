package models

import "time"

// Site is a locale-scoped storefront. Product types keep one settings row per site.
type Site struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Handle    string    `gorm:"column:handle;not null;uniqueIndex:uq_sites_handle"`
	Name      string    `gorm:"column:name;not null"`
	Language  string    `gorm:"column:language;not null"`
	BaseURL   string    `gorm:"column:base_url"`
	Primary   bool      `gorm:"column:is_primary;not null"`
	SortOrder int       `gorm:"column:sort_order;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
