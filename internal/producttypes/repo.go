package producttypes

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/commerce-core/pkg/db/models"
)

// Repository persists product type rows and their per-site settings rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	List(ctx context.Context) ([]models.ProductType, error)
	FindByID(ctx context.Context, id int64) (*models.ProductType, error)
	FindByIDForUpdate(ctx context.Context, id int64) (*models.ProductType, error)
	FindByHandle(ctx context.Context, handle string) (*models.ProductType, error)
	Create(ctx context.Context, row *models.ProductType) error
	Update(ctx context.Context, row *models.ProductType) error
	Delete(ctx context.Context, id int64) (int64, error)
	ListSites(ctx context.Context, typeID int64) ([]models.ProductTypeSite, error)
	ListSitesBySiteID(ctx context.Context, siteID int64) ([]models.ProductTypeSite, error)
	UpsertSite(ctx context.Context, row *models.ProductTypeSite) error
	DeleteSitesExcept(ctx context.Context, typeID int64, keep []int64) (int64, error)
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

func (r *repository) List(ctx context.Context) ([]models.ProductType, error) {
	var rows []models.ProductType
	err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error
	return rows, err
}

func (r *repository) FindByID(ctx context.Context, id int64) (*models.ProductType, error) {
	var row models.ProductType
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// FindByIDForUpdate re-reads the type row under a row lock. The sqlite
// driver drops the locking clause.
func (r *repository) FindByIDForUpdate(ctx context.Context, id int64) (*models.ProductType, error) {
	var row models.ProductType
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) FindByHandle(ctx context.Context, handle string) (*models.ProductType, error) {
	var row models.ProductType
	if err := r.db.WithContext(ctx).Where("handle = ?", handle).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) Create(ctx context.Context, row *models.ProductType) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) Update(ctx context.Context, row *models.ProductType) error {
	return r.db.WithContext(ctx).Omit("CreatedAt").Save(row).Error
}

func (r *repository) Delete(ctx context.Context, id int64) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ProductType{})
	return res.RowsAffected, res.Error
}

func (r *repository) ListSites(ctx context.Context, typeID int64) ([]models.ProductTypeSite, error) {
	var rows []models.ProductTypeSite
	err := r.db.WithContext(ctx).
		Where("product_type_id = ?", typeID).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListSitesBySiteID(ctx context.Context, siteID int64) ([]models.ProductTypeSite, error) {
	var rows []models.ProductTypeSite
	err := r.db.WithContext(ctx).
		Where("site_id = ?", siteID).
		Order("product_type_id ASC").
		Find(&rows).Error
	return rows, err
}

// UpsertSite updates the (type, site) row in place or inserts it.
func (r *repository) UpsertSite(ctx context.Context, row *models.ProductTypeSite) error {
	db := r.db.WithContext(ctx)
	res := db.Model(&models.ProductTypeSite{}).
		Where("product_type_id = ? AND site_id = ?", row.ProductTypeID, row.SiteID).
		Updates(map[string]any{
			"has_urls":   row.HasURLs,
			"uri_format": row.URIFormat,
			"template":   row.Template,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	return db.Create(row).Error
}

// DeleteSitesExcept removes the type's settings rows for sites not in keep.
// An empty keep removes every row.
func (r *repository) DeleteSitesExcept(ctx context.Context, typeID int64, keep []int64) (int64, error) {
	query := r.db.WithContext(ctx).Where("product_type_id = ?", typeID)
	if len(keep) > 0 {
		query = query.Where("site_id NOT IN ?", keep)
	}
	res := query.Delete(&models.ProductTypeSite{})
	return res.RowsAffected, res.Error
}
