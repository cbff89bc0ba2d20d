package products

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/commerce-core/pkg/db"
	pkgerrors "github.com/angelmondragon/commerce-core/pkg/errors"
	"github.com/angelmondragon/commerce-core/pkg/logger"
	"github.com/angelmondragon/commerce-core/pkg/pagination"
	"github.com/angelmondragon/commerce-core/pkg/templates"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// SiteURL is the URL setting of a product type on one site.
type SiteURL struct {
	SiteID    int64
	HasURLs   bool
	URIFormat string
}

// TypeSettings is the part of a product type that shapes its products.
type TypeSettings struct {
	ID                   int64
	Name                 string
	HasDimensions        bool
	HasVariants          bool
	HasVariantTitleField bool
	TitleFormat          string
	TaxCategoryIDs       []int64
	ShippingCategoryIDs  []int64
	Sites                []SiteURL
}

// TypeProvider resolves product type settings. Errors are returned unchanged.
type TypeProvider interface {
	ProductTypeSettings(ctx context.Context, typeID int64) (*TypeSettings, error)
}

// Service exposes product operations.
type Service interface {
	Get(ctx context.Context, id int64) (*Product, error)
	ListByType(ctx context.Context, typeID int64, params pagination.Params) (pagination.Page[Product], error)
	Save(ctx context.Context, p *Product) (*Product, error)
	DeleteByID(ctx context.Context, id int64) (bool, error)
}

type service struct {
	repo     *Repository
	tx       txRunner
	types    TypeProvider
	renderer templates.Renderer
	logg     *logger.Logger
}

// NewService constructs a product service instance.
func NewService(repo *Repository, tx txRunner, types TypeProvider, renderer templates.Renderer, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if types == nil {
		return nil, fmt.Errorf("product type provider required")
	}
	if renderer == nil {
		renderer = templates.ObjectRenderer{}
	}
	return &service{repo: repo, tx: tx, types: types, renderer: renderer, logg: logg}, nil
}

func (s *service) Get(ctx context.Context, id int64) (*Product, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return p, nil
}

func (s *service) ListByType(ctx context.Context, typeID int64, params pagination.Params) (pagination.Page[Product], error) {
	page, err := s.repo.ListByTypeID(ctx, typeID, false, params)
	if err != nil {
		return page, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return page, nil
}

// Save validates p against its type, then writes the product, its variants and
// its per-site slug and uri rows in one transaction.
func (s *service) Save(ctx context.Context, p *Product) (*Product, error) {
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	settings, err := s.types.ProductTypeSettings(ctx, p.TypeID)
	if err != nil {
		return nil, err
	}
	if !settings.HasVariants && len(p.Variants) > 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product type does not allow multiple variants")
	}
	if len(settings.TaxCategoryIDs) == 0 || len(settings.ShippingCategoryIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConsistency, "product type has no categories to assign")
	}
	p.EnsureCategories(settings.TaxCategoryIDs, settings.ShippingCategoryIDs)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if p.ID == 0 {
			p.MarkDefault()
			if err := repo.Create(ctx, &p.Product); err != nil {
				return err
			}
		} else if _, err := repo.FindByID(ctx, p.ID); err != nil {
			return err
		}

		keep := make([]int64, 0, len(p.Variants))
		for i := range p.Variants {
			v := &p.Variants[i]
			v.ProductID = p.ID
			v.SortOrder = i
			if !settings.HasVariantTitleField {
				title, err := s.renderer.Render(settings.TitleFormat, TitleVars(p.Product, *v))
				if err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "render variant title")
				}
				v.Title = title
			}
			if err := repo.SaveVariant(ctx, v); err != nil {
				return err
			}
			keep = append(keep, v.ID)
		}
		if _, err := repo.DeleteVariantsExcept(ctx, p.ID, keep); err != nil {
			return err
		}

		p.MarkDefault()
		if err := repo.Update(ctx, &p.Product); err != nil {
			return err
		}

		return s.saveSites(ctx, repo, p, settings.Sites)
	})
	if err != nil {
		switch {
		case pkgerrors.As(err) != nil:
			return nil, err
		case db.IsNotFound(err):
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		default:
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save product")
		}
	}
	return p, nil
}

func (s *service) saveSites(ctx context.Context, repo *Repository, p *Product, sites []SiteURL) error {
	existing, err := repo.ListSites(ctx, p.ID)
	if err != nil {
		return err
	}
	for _, site := range sites {
		row := existing[site.SiteID]
		row.ProductID = p.ID
		row.SiteID = site.SiteID
		row.Slug = SlugOrDefault(row.Slug, p.Product)
		row.URI = nil
		if site.HasURLs && site.URIFormat != "" {
			uri, err := s.renderer.Render(site.URIFormat, URIVars(p.Product, row.Slug))
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "render product uri")
			}
			row.URI = &uri
		}
		if err := repo.UpsertSite(ctx, &row); err != nil {
			return err
		}
	}
	return nil
}

func validateProduct(p *Product) error {
	if p == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product required")
	}
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if p.TypeID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "type id is required")
	}
	if len(p.Variants) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one variant is required")
	}
	for i, v := range p.Variants {
		if strings.TrimSpace(v.SKU) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "variant sku is required").
				WithDetails(map[string]any{"index": i})
		}
	}
	return nil
}

// DeleteByID removes the product with its variants and site rows.
func (s *service) DeleteByID(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		deleted, err = s.repo.WithTx(tx).DeleteByID(ctx, id)
		return err
	})
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	if deleted && s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "product_id", id), "product deleted")
	}
	return deleted, nil
}
