// Package fields stores the custom-field layouts attached to product types.
package fields

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/commerce-core/pkg/db/models"
	"github.com/angelmondragon/commerce-core/pkg/enums"
)

// Tab is a named group of field ids, in display order.
type Tab struct {
	Name     string  `json:"name" validate:"required,max=255"`
	FieldIDs []int64 `json:"field_ids"`
}

// Layout is an ordered list of tabs for products or variants.
type Layout struct {
	ID   int64                 `json:"id,omitempty"`
	Type enums.FieldLayoutType `json:"type"`
	Tabs []Tab                 `json:"tabs" validate:"dive"`
}

func (l Layout) Clone() Layout {
	out := Layout{ID: l.ID, Type: l.Type, Tabs: make([]Tab, 0, len(l.Tabs))}
	for _, tab := range l.Tabs {
		out.Tabs = append(out.Tabs, Tab{Name: tab.Name, FieldIDs: append([]int64(nil), tab.FieldIDs...)})
	}
	return out
}

// Repository persists field layouts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Save(ctx context.Context, layout *Layout) (int64, error)
	FindByID(ctx context.Context, id int64) (*Layout, error)
	DeleteByID(ctx context.Context, id int64) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Save inserts the layout when it has no id and overwrites it otherwise. The
// stored id is written back to layout.
func (r *repository) Save(ctx context.Context, layout *Layout) (int64, error) {
	if layout == nil {
		return 0, fmt.Errorf("layout required")
	}
	if !layout.Type.IsValid() {
		return 0, fmt.Errorf("invalid field layout type %q", layout.Type)
	}
	tabs := layout.Tabs
	if tabs == nil {
		tabs = []Tab{}
	}
	encoded, err := json.Marshal(tabs)
	if err != nil {
		return 0, fmt.Errorf("encode layout tabs: %w", err)
	}

	row := models.FieldLayout{ID: layout.ID, Type: layout.Type, Tabs: datatypes.JSON(encoded)}
	db := r.db.WithContext(ctx)
	if row.ID == 0 {
		if err := db.Create(&row).Error; err != nil {
			return 0, err
		}
	} else {
		res := db.Model(&models.FieldLayout{}).
			Where("id = ?", row.ID).
			Updates(map[string]any{"type": row.Type, "tabs": row.Tabs})
		if res.Error != nil {
			return 0, res.Error
		}
		if res.RowsAffected == 0 {
			if err := db.Create(&row).Error; err != nil {
				return 0, err
			}
		}
	}
	layout.ID = row.ID
	return row.ID, nil
}

func (r *repository) FindByID(ctx context.Context, id int64) (*Layout, error) {
	var row models.FieldLayout
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	layout := Layout{ID: row.ID, Type: row.Type}
	if len(row.Tabs) > 0 {
		if err := json.Unmarshal(row.Tabs, &layout.Tabs); err != nil {
			return nil, fmt.Errorf("decode layout %d: %w", id, err)
		}
	}
	return &layout, nil
}

func (r *repository) DeleteByID(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.FieldLayout{}).Error
}
