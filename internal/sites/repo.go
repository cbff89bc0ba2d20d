package sites

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/commerce-core/pkg/db/models"
)

// Repository persists sites.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	List(ctx context.Context) ([]models.Site, error)
	AllSiteIDs(ctx context.Context) ([]int64, error)
	FindByID(ctx context.Context, id int64) (*models.Site, error)
	Primary(ctx context.Context) (*models.Site, error)
	Create(ctx context.Context, site *models.Site) error
	Count(ctx context.Context) (int64, error)
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

func (r *repository) List(ctx context.Context) ([]models.Site, error) {
	var rows []models.Site
	err := r.db.WithContext(ctx).Order("sort_order ASC, id ASC").Find(&rows).Error
	return rows, err
}

func (r *repository) AllSiteIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&models.Site{}).
		Order("sort_order ASC, id ASC").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *repository) FindByID(ctx context.Context, id int64) (*models.Site, error) {
	var site models.Site
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&site).Error; err != nil {
		return nil, err
	}
	return &site, nil
}

func (r *repository) Primary(ctx context.Context) (*models.Site, error) {
	var site models.Site
	if err := r.db.WithContext(ctx).Where("is_primary = ?", true).Order("id ASC").First(&site).Error; err != nil {
		return nil, err
	}
	return &site, nil
}

func (r *repository) Create(ctx context.Context, site *models.Site) error {
	return r.db.WithContext(ctx).Create(site).Error
}

func (r *repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Site{}).Count(&count).Error
	return count, err
}
