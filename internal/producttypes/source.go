package producttypes

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/commerce-core/internal/categories"
	"github.com/angelmondragon/commerce-core/internal/fields"
	"github.com/angelmondragon/commerce-core/pkg/db"
	"github.com/angelmondragon/commerce-core/pkg/db/models"
	"github.com/angelmondragon/commerce-core/pkg/enums"
)

// dbSource assembles full product types from the type, site, category and
// field layout stores. It backs the Registry and the in-transaction snapshot.
type dbSource struct {
	repo       Repository
	categories categories.Repository
	layouts    fields.Repository
}

func (d dbSource) withTx(tx *gorm.DB) dbSource {
	return dbSource{
		repo:       d.repo.WithTx(tx),
		categories: d.categories.WithTx(tx),
		layouts:    d.layouts.WithTx(tx),
	}
}

func (d dbSource) LoadAll(ctx context.Context) ([]*ProductType, error) {
	rows, err := d.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*ProductType, 0, len(rows))
	for _, row := range rows {
		pt, err := d.hydrate(ctx, row, true)
		if err != nil {
			return nil, err
		}
		out = append(out, pt)
	}
	return out, nil
}

func (d dbSource) LoadByID(ctx context.Context, id int64) (*ProductType, error) {
	row, err := d.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return d.hydrate(ctx, *row, true)
}

func (d dbSource) LoadByHandle(ctx context.Context, handle string) (*ProductType, error) {
	row, err := d.repo.FindByHandle(ctx, handle)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return d.hydrate(ctx, *row, true)
}

// hydrate attaches site settings and category sets to row. Layout tabs are
// only read when withLayouts is set; the save snapshot does not need them.
func (d dbSource) hydrate(ctx context.Context, row models.ProductType, withLayouts bool) (*ProductType, error) {
	pt := fromModel(row)

	siteRows, err := d.repo.ListSites(ctx, row.ID)
	if err != nil {
		return nil, err
	}
	pt.Sites = make([]SiteSettings, 0, len(siteRows))
	for _, siteRow := range siteRows {
		pt.Sites = append(pt.Sites, siteFromModel(siteRow))
	}

	if pt.TaxCategoryIDs, err = d.categoryIDs(ctx, enums.CategoryKindTax, row.ID); err != nil {
		return nil, err
	}
	if pt.ShippingCategoryIDs, err = d.categoryIDs(ctx, enums.CategoryKindShipping, row.ID); err != nil {
		return nil, err
	}

	if withLayouts {
		if err := d.loadLayout(ctx, &pt.ProductFieldLayout); err != nil {
			return nil, err
		}
		if err := d.loadLayout(ctx, &pt.VariantFieldLayout); err != nil {
			return nil, err
		}
	}
	return pt, nil
}

func (d dbSource) categoryIDs(ctx context.Context, kind enums.CategoryKind, typeID int64) ([]int64, error) {
	list, err := d.categories.ListByTypeID(ctx, kind, typeID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(list))
	for _, c := range list {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

func (d dbSource) loadLayout(ctx context.Context, layout *fields.Layout) error {
	if layout.ID == 0 {
		return nil
	}
	stored, err := d.layouts.FindByID(ctx, layout.ID)
	if err != nil {
		if db.IsNotFound(err) {
			layout.ID = 0
			return nil
		}
		return err
	}
	layout.Tabs = stored.Tabs
	return nil
}
