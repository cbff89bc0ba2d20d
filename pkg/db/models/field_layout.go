package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/angelmondragon/commerce-core/pkg/enums"
)

// FieldLayout stores the ordered custom-field tabs of a product or variant layout.
type FieldLayout struct {
	ID        int64                 `gorm:"column:id;primaryKey;autoIncrement"`
	Type      enums.FieldLayoutType `gorm:"column:type;not null"`
	Tabs      datatypes.JSON        `gorm:"column:tabs;not null"`
	CreatedAt time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
