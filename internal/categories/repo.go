package categories

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/angelmondragon/commerce-core/pkg/db/models"
	"github.com/angelmondragon/commerce-core/pkg/enums"
)

// Category is a tax or shipping category.
type Category struct {
	ID          int64              `json:"id"`
	Kind        enums.CategoryKind `json:"kind"`
	Name        string             `json:"name"`
	Handle      string             `json:"handle"`
	Description string             `json:"description,omitempty"`
	Default     bool               `json:"default"`
}

// Repository persists categories and their product type associations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	List(ctx context.Context, kind enums.CategoryKind) ([]Category, error)
	FindByID(ctx context.Context, kind enums.CategoryKind, id int64) (*Category, error)
	FindByIDs(ctx context.Context, kind enums.CategoryKind, ids []int64) ([]Category, error)
	FindByHandle(ctx context.Context, kind enums.CategoryKind, handle string) (*Category, error)
	Create(ctx context.Context, category *Category) error
	Update(ctx context.Context, category *Category) error
	ClearDefault(ctx context.Context, kind enums.CategoryKind, exceptID int64) error
	Delete(ctx context.Context, kind enums.CategoryKind, id int64) error
	ListByTypeID(ctx context.Context, kind enums.CategoryKind, typeID int64) ([]Category, error)
	ReplaceAssociations(ctx context.Context, kind enums.CategoryKind, typeID int64, categoryIDs []int64) error
	DeleteAssociations(ctx context.Context, kind enums.CategoryKind, typeID int64) error
	CountAssociations(ctx context.Context, kind enums.CategoryKind, categoryID int64) (int64, error)
}

// tables names the storage of one category kind.
type tables struct {
	category    string
	association string
	column      string
}

var kindTables = map[enums.CategoryKind]tables{
	enums.CategoryKindTax: {
		category:    "tax_categories",
		association: models.ProductTypeTaxCategory{}.TableName(),
		column:      "tax_category_id",
	},
	enums.CategoryKindShipping: {
		category:    "shipping_categories",
		association: models.ProductTypeShippingCategory{}.TableName(),
		column:      "shipping_category_id",
	},
}

func tablesFor(kind enums.CategoryKind) (tables, error) {
	t, ok := kindTables[kind]
	if !ok {
		return tables{}, fmt.Errorf("unknown category kind %q", kind)
	}
	return t, nil
}

type categoryRow struct {
	ID          int64
	Name        string
	Handle      string
	Description string
	IsDefault   bool
}

func (r categoryRow) toCategory(kind enums.CategoryKind) Category {
	return Category{
		ID:          r.ID,
		Kind:        kind,
		Name:        r.Name,
		Handle:      r.Handle,
		Description: r.Description,
		Default:     r.IsDefault,
	}
}

func toCategories(kind enums.CategoryKind, rows []categoryRow) []Category {
	out := make([]Category, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toCategory(kind))
	}
	return out
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a categories repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

const categoryColumns = "id, name, handle, description, is_default"

func (r *repository) List(ctx context.Context, kind enums.CategoryKind) ([]Category, error) {
	t, err := tablesFor(kind)
	if err != nil {
		return nil, err
	}
	var rows []categoryRow
	if err := r.db.WithContext(ctx).
		Table(t.category).
		Select(categoryColumns).
		Order("id ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return toCategories(kind, rows), nil
}

func (r *repository) FindByID(ctx context.Context, kind enums.CategoryKind, id int64) (*Category, error) {
	return r.findOne(ctx, kind, "id = ?", id)
}

func (r *repository) FindByHandle(ctx context.Context, kind enums.CategoryKind, handle string) (*Category, error) {
	return r.findOne(ctx, kind, "handle = ?", handle)
}

func (r *repository) findOne(ctx context.Context, kind enums.CategoryKind, where string, arg any) (*Category, error) {
	t, err := tablesFor(kind)
	if err != nil {
		return nil, err
	}
	var row categoryRow
	if err := r.db.WithContext(ctx).
		Table(t.category).
		Select(categoryColumns).
		Where(where, arg).
		Take(&row).Error; err != nil {
		return nil, err
	}
	c := row.toCategory(kind)
	return &c, nil
}

// FindByIDs returns the categories that exist, in the order of ids.
func (r *repository) FindByIDs(ctx context.Context, kind enums.CategoryKind, ids []int64) ([]Category, error) {
	if len(ids) == 0 {
		return []Category{}, nil
	}
	t, err := tablesFor(kind)
	if err != nil {
		return nil, err
	}
	var rows []categoryRow
	if err := r.db.WithContext(ctx).
		Table(t.category).
		Select(categoryColumns).
		Where("id IN ?", ids).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	byID := make(map[int64]categoryRow, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	out := make([]Category, 0, len(rows))
	for _, id := range ids {
		if row, ok := byID[id]; ok {
			out = append(out, row.toCategory(kind))
		}
	}
	return out, nil
}

func (r *repository) Create(ctx context.Context, category *Category) error {
	switch category.Kind {
	case enums.CategoryKindTax:
		row := models.TaxCategory{Name: category.Name, Handle: category.Handle, Description: category.Description, Default: category.Default}
		if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
			return err
		}
		category.ID = row.ID
	case enums.CategoryKindShipping:
		row := models.ShippingCategory{Name: category.Name, Handle: category.Handle, Description: category.Description, Default: category.Default}
		if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
			return err
		}
		category.ID = row.ID
	default:
		return fmt.Errorf("unknown category kind %q", category.Kind)
	}
	return nil
}

func (r *repository) Update(ctx context.Context, category *Category) error {
	t, err := tablesFor(category.Kind)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Table(t.category).
		Where("id = ?", category.ID).
		Updates(map[string]any{
			"name":        category.Name,
			"handle":      category.Handle,
			"description": category.Description,
			"is_default":  category.Default,
			"updated_at":  gorm.Expr("CURRENT_TIMESTAMP"),
		}).Error
}

// ClearDefault unsets the default flag on every category of kind but exceptID.
func (r *repository) ClearDefault(ctx context.Context, kind enums.CategoryKind, exceptID int64) error {
	t, err := tablesFor(kind)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Table(t.category).
		Where("id <> ? AND is_default = ?", exceptID, true).
		Update("is_default", false).Error
}

func (r *repository) Delete(ctx context.Context, kind enums.CategoryKind, id int64) error {
	t, err := tablesFor(kind)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Exec("DELETE FROM "+t.category+" WHERE id = ?", id).Error
}

// ListByTypeID returns the categories associated with a product type in
// association order.
func (r *repository) ListByTypeID(ctx context.Context, kind enums.CategoryKind, typeID int64) ([]Category, error) {
	t, err := tablesFor(kind)
	if err != nil {
		return nil, err
	}
	var rows []categoryRow
	if err := r.db.WithContext(ctx).
		Table(t.association+" AS a").
		Select("c.id, c.name, c.handle, c.description, c.is_default").
		Joins("JOIN "+t.category+" AS c ON c.id = a."+t.column).
		Where("a.product_type_id = ?", typeID).
		Order("a.id ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return toCategories(kind, rows), nil
}

// ReplaceAssociations deletes the type's association rows of kind and inserts
// one row per category id, in order. Call it inside a transaction.
func (r *repository) ReplaceAssociations(ctx context.Context, kind enums.CategoryKind, typeID int64, categoryIDs []int64) error {
	if err := r.DeleteAssociations(ctx, kind, typeID); err != nil {
		return err
	}
	db := r.db.WithContext(ctx)
	for _, categoryID := range categoryIDs {
		var row any
		switch kind {
		case enums.CategoryKindTax:
			row = &models.ProductTypeTaxCategory{ProductTypeID: typeID, TaxCategoryID: categoryID}
		default:
			row = &models.ProductTypeShippingCategory{ProductTypeID: typeID, ShippingCategoryID: categoryID}
		}
		if err := db.Create(row).Error; err != nil {
			return fmt.Errorf("associate %s category %d: %w", kind, categoryID, err)
		}
	}
	return nil
}

func (r *repository) DeleteAssociations(ctx context.Context, kind enums.CategoryKind, typeID int64) error {
	t, err := tablesFor(kind)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Exec("DELETE FROM "+t.association+" WHERE product_type_id = ?", typeID).Error
}

func (r *repository) CountAssociations(ctx context.Context, kind enums.CategoryKind, categoryID int64) (int64, error) {
	t, err := tablesFor(kind)
	if err != nil {
		return 0, err
	}
	var count int64
	err = r.db.WithContext(ctx).
		Table(t.association).
		Where(t.column+" = ?", categoryID).
		Count(&count).Error
	return count, err
}
