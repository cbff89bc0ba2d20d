package products

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/angelmondragon/commerce-core/pkg/db/models"
	"github.com/angelmondragon/commerce-core/pkg/enums"
	"github.com/angelmondragon/commerce-core/pkg/pagination"
)

// Repository provides persistence for products, variants and product sites.
type Repository struct {
	db *gorm.DB
}

// NewRepository returns a repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func preloadVariants(db *gorm.DB) *gorm.DB {
	return db.Order("sort_order ASC, id ASC")
}

// FindByID loads a product with its variants.
func (r *Repository) FindByID(ctx context.Context, id int64) (*Product, error) {
	var row models.Product
	if err := r.db.WithContext(ctx).
		Preload("Variants", preloadVariants).
		Where("id = ?", id).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &Product{Product: row}, nil
}

// ListByTypeID returns one keyset page of the type's products with variants.
func (r *Repository) ListByTypeID(ctx context.Context, typeID int64, includeDisabled bool, params pagination.Params) (pagination.Page[Product], error) {
	query := r.db.WithContext(ctx).
		Preload("Variants", preloadVariants).
		Where("type_id = ?", typeID)
	if !includeDisabled {
		query = query.Where("enabled = ?", true)
	}
	if params.AfterID > 0 {
		query = query.Where("id > ?", params.AfterID)
	}

	var rows []models.Product
	if err := query.Order("id ASC").Limit(pagination.LimitWithBuffer(params.Limit)).Find(&rows).Error; err != nil {
		return pagination.Page[Product]{}, err
	}
	items := make([]Product, 0, len(rows))
	for _, row := range rows {
		items = append(items, Product{Product: row})
	}
	return pagination.BuildPage(items, params.Limit, func(p Product) int64 { return p.ID }), nil
}

// EachByTypeID streams every product of the type, enabled or not, in pages of
// batchSize. fn may modify or delete the products it is handed.
func (r *Repository) EachByTypeID(ctx context.Context, typeID int64, batchSize int, fn func(batch []Product) error) error {
	params := pagination.Params{Limit: batchSize}
	for {
		page, err := r.ListByTypeID(ctx, typeID, true, params)
		if err != nil {
			return err
		}
		if len(page.Items) > 0 {
			if err := fn(page.Items); err != nil {
				return err
			}
		}
		if !page.HasMore {
			return nil
		}
		params.AfterID = page.NextID
	}
}

func (r *Repository) CountByTypeID(ctx context.Context, typeID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).Where("type_id = ?", typeID).Count(&count).Error
	return count, err
}

// Create inserts the product row only. Variants are saved separately.
func (r *Repository) Create(ctx context.Context, p *models.Product) error {
	return r.db.WithContext(ctx).Omit("Variants").Create(p).Error
}

// Update writes every column of the product row.
func (r *Repository) Update(ctx context.Context, p *models.Product) error {
	return r.db.WithContext(ctx).Omit("Variants", "CreatedAt").Save(p).Error
}

// DeleteByID removes the product, its variants and its site rows. It reports
// whether the product existed.
func (r *Repository) DeleteByID(ctx context.Context, id int64) (bool, error) {
	db := r.db.WithContext(ctx)
	if err := db.Model(&models.Product{}).Where("id = ?", id).Update("default_variant_id", nil).Error; err != nil {
		return false, err
	}
	if err := db.Where("product_id = ?", id).Delete(&models.Variant{}).Error; err != nil {
		return false, err
	}
	if err := db.Where("product_id = ?", id).Delete(&models.ProductSite{}).Error; err != nil {
		return false, err
	}
	res := db.Where("id = ?", id).Delete(&models.Product{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// SaveVariant inserts or fully updates a variant.
func (r *Repository) SaveVariant(ctx context.Context, v *models.Variant) error {
	if v.ID == 0 {
		return r.db.WithContext(ctx).Create(v).Error
	}
	return r.db.WithContext(ctx).Omit("CreatedAt").Save(v).Error
}

func (r *Repository) UpdateVariantTitle(ctx context.Context, variantID int64, title string) error {
	return r.db.WithContext(ctx).
		Model(&models.Variant{}).
		Where("id = ?", variantID).
		Update("title", title).Error
}

// PromoteDefaultVariant makes variantID the only default of the product,
// enables it, and points the product at it.
func (r *Repository) PromoteDefaultVariant(ctx context.Context, productID, variantID int64) error {
	db := r.db.WithContext(ctx)
	if err := db.Model(&models.Variant{}).
		Where("product_id = ? AND id <> ?", productID, variantID).
		Update("is_default", false).Error; err != nil {
		return err
	}
	if err := db.Model(&models.Variant{}).
		Where("id = ?", variantID).
		Updates(map[string]any{"is_default": true, "enabled": true}).Error; err != nil {
		return err
	}
	return db.Model(&models.Product{}).
		Where("id = ?", productID).
		Update("default_variant_id", variantID).Error
}

// DeleteVariantsExcept removes every variant of the product not in keep.
func (r *Repository) DeleteVariantsExcept(ctx context.Context, productID int64, keep []int64) (int64, error) {
	query := r.db.WithContext(ctx).Where("product_id = ?", productID)
	if len(keep) > 0 {
		query = query.Where("id NOT IN ?", keep)
	}
	res := query.Delete(&models.Variant{})
	return res.RowsAffected, res.Error
}

// ReassignCategory moves every product of the type, and every variant
// override under those products, from one of from to the category to.
func (r *Repository) ReassignCategory(ctx context.Context, kind enums.CategoryKind, typeID int64, from []int64, to int64) (int64, error) {
	if len(from) == 0 {
		return 0, nil
	}
	var column string
	switch kind {
	case enums.CategoryKindTax:
		column = "tax_category_id"
	case enums.CategoryKindShipping:
		column = "shipping_category_id"
	default:
		return 0, fmt.Errorf("unknown category kind %q", kind)
	}

	db := r.db.WithContext(ctx)
	res := db.Model(&models.Product{}).
		Where("type_id = ? AND "+column+" IN ?", typeID, from).
		Update(column, to)
	if res.Error != nil {
		return 0, res.Error
	}
	affected := res.RowsAffected

	typeProducts := db.Session(&gorm.Session{NewDB: true}).
		Model(&models.Product{}).
		Select("id").
		Where("type_id = ?", typeID)
	res = db.Model(&models.Variant{}).
		Where("product_id IN (?) AND "+column+" IN ?", typeProducts, from).
		Update(column, to)
	if res.Error != nil {
		return 0, res.Error
	}
	return affected + res.RowsAffected, nil
}

// ListSites returns the product's per-site rows keyed by site id.
func (r *Repository) ListSites(ctx context.Context, productID int64) (map[int64]models.ProductSite, error) {
	var rows []models.ProductSite
	if err := r.db.WithContext(ctx).Where("product_id = ?", productID).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[int64]models.ProductSite, len(rows))
	for _, row := range rows {
		out[row.SiteID] = row
	}
	return out, nil
}

// UpsertSite writes the slug and uri of one (product, site) row.
func (r *Repository) UpsertSite(ctx context.Context, row *models.ProductSite) error {
	db := r.db.WithContext(ctx)
	res := db.Model(&models.ProductSite{}).
		Where("product_id = ? AND site_id = ?", row.ProductID, row.SiteID).
		Updates(map[string]any{"slug": row.Slug, "uri": row.URI})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	return db.Create(row).Error
}

// ClearURIs nulls the uri of every product of the type on the given sites.
func (r *Repository) ClearURIs(ctx context.Context, typeID int64, siteIDs []int64) (int64, error) {
	if len(siteIDs) == 0 {
		return 0, nil
	}
	db := r.db.WithContext(ctx)
	typeProducts := db.Session(&gorm.Session{NewDB: true}).
		Model(&models.Product{}).
		Select("id").
		Where("type_id = ?", typeID)
	res := db.Model(&models.ProductSite{}).
		Where("site_id IN ? AND product_id IN (?)", siteIDs, typeProducts).
		Update("uri", nil)
	return res.RowsAffected, res.Error
}
