package producttypes

import (
	"context"

	"github.com/angelmondragon/commerce-core/internal/products"
	"github.com/angelmondragon/commerce-core/pkg/db/models"
	"github.com/angelmondragon/commerce-core/pkg/enums"
	pkgerrors "github.com/angelmondragon/commerce-core/pkg/errors"
	"github.com/angelmondragon/commerce-core/pkg/logger"
	"github.com/angelmondragon/commerce-core/pkg/metrics"
	"github.com/angelmondragon/commerce-core/pkg/templates"
	"github.com/angelmondragon/commerce-core/pkg/tracing"
)

const (
	cascadeTitles       = "titles"
	cascadeDowngrade    = "variant_downgrade"
	cascadeTaxReassign  = "tax_category_reassign"
	cascadeShipReassign = "shipping_category_reassign"
	cascadeClearURIs    = "clear_uris"
	cascadeRegenURIs    = "regenerate_uris"
)

// cascadeRun applies the product-level consequences of one type save. Every
// method runs against the products repository bound to the save transaction
// and walks products in id-keyed pages.
type cascadeRun struct {
	typeID    int64
	products  *products.Repository
	renderer  templates.Renderer
	batchSize int
	logg      *logger.Logger
	metrics   *metrics.CatalogMetrics

	ran      []string
	affected int
}

func (c *cascadeRun) record(ctx context.Context, name string, rows int) {
	c.ran = append(c.ran, name)
	c.affected += rows
	c.metrics.AddCascadeRows(name, rows)
	if c.logg != nil {
		c.logg.Info(c.logg.WithFields(ctx, map[string]any{"cascade": name, "rows": rows}), "cascade applied")
	}
}

// titles re-renders the stored title of every variant of the type.
func (c *cascadeRun) titles(ctx context.Context, format string) (err error) {
	ctx, span := tracing.Start(ctx, "producttypes.cascade.titles")
	defer func() { tracing.End(span, err) }()

	rows := 0
	err = c.products.EachByTypeID(ctx, c.typeID, c.batchSize, func(batch []products.Product) error {
		for _, p := range batch {
			for _, v := range p.Variants {
				title, err := c.renderer.Render(format, products.TitleVars(p.Product, v))
				if err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeConsistency, err, "render variant title").
						WithDetails(map[string]any{"product_id": p.ID, "variant_id": v.ID})
				}
				if err := c.products.UpdateVariantTitle(ctx, v.ID, title); err != nil {
					return err
				}
				rows++
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	c.record(ctx, cascadeTitles, rows)
	return nil
}

// downgrade keeps only the default variant of every product, enabled.
func (c *cascadeRun) downgrade(ctx context.Context) (err error) {
	ctx, span := tracing.Start(ctx, "producttypes.cascade.downgrade")
	defer func() { tracing.End(span, err) }()

	var removed int64
	err = c.products.EachByTypeID(ctx, c.typeID, c.batchSize, func(batch []products.Product) error {
		for i := range batch {
			def := batch[i].DefaultVariant()
			if def == nil {
				continue
			}
			if err := c.products.PromoteDefaultVariant(ctx, batch[i].ID, def.ID); err != nil {
				return err
			}
			n, err := c.products.DeleteVariantsExcept(ctx, batch[i].ID, []int64{def.ID})
			if err != nil {
				return err
			}
			removed += n
		}
		return nil
	})
	if err != nil {
		return err
	}
	c.record(ctx, cascadeDowngrade, int(removed))
	return nil
}

// reassign moves products off categories present in before but not in after,
// onto the first category of after.
func (c *cascadeRun) reassign(ctx context.Context, kind enums.CategoryKind, before, after []int64) error {
	removed := difference(before, after)
	if len(removed) == 0 {
		return nil
	}
	if len(after) == 0 {
		return pkgerrors.New(pkgerrors.CodeConsistency, "no remaining "+kind.String()+" category to reassign products to").
			WithDetails(map[string]any{"removed": removed})
	}
	n, err := c.products.ReassignCategory(ctx, kind, c.typeID, removed, after[0])
	if err != nil {
		return err
	}
	name := cascadeTaxReassign
	if kind == enums.CategoryKindShipping {
		name = cascadeShipReassign
	}
	c.record(ctx, name, int(n))
	return nil
}

func (c *cascadeRun) clearURIs(ctx context.Context, siteIDs []int64) error {
	n, err := c.products.ClearURIs(ctx, c.typeID, siteIDs)
	if err != nil {
		return err
	}
	c.record(ctx, cascadeClearURIs, int(n))
	return nil
}

// regenerateURIs rewrites the slug and uri of every product on each site.
func (c *cascadeRun) regenerateURIs(ctx context.Context, sites []SiteSettings) (err error) {
	ctx, span := tracing.Start(ctx, "producttypes.cascade.uris")
	defer func() { tracing.End(span, err) }()

	rows := 0
	err = c.products.EachByTypeID(ctx, c.typeID, c.batchSize, func(batch []products.Product) error {
		for _, p := range batch {
			existing, err := c.products.ListSites(ctx, p.ID)
			if err != nil {
				return err
			}
			for _, site := range sites {
				row := existing[site.SiteID]
				row.ProductID = p.ID
				row.SiteID = site.SiteID
				row.Slug = products.SlugOrDefault(row.Slug, p.Product)
				uri, err := c.renderer.Render(site.URIFormat, products.URIVars(p.Product, row.Slug))
				if err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeConsistency, err, "render product uri").
						WithDetails(map[string]any{"product_id": p.ID, "site_id": site.SiteID})
				}
				row.URI = &uri
				if err := c.products.UpsertSite(ctx, &row); err != nil {
					return err
				}
				rows++
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	c.record(ctx, cascadeRegenURIs, rows)
	return nil
}

func difference(before, after []int64) []int64 {
	keep := make(map[int64]struct{}, len(after))
	for _, id := range after {
		keep[id] = struct{}{}
	}
	var out []int64
	for _, id := range before {
		if _, ok := keep[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// siteTransitions compares old and new site settings. Sites that had URLs
// and no longer do lose their product URIs; sites with URLs whose format
// changed get their product URIs regenerated.
func siteTransitions(old map[int64]models.ProductTypeSite, next []SiteSettings) (lostURLs []int64, newFormats []SiteSettings) {
	for _, site := range next {
		prev, existed := old[site.SiteID]
		if !existed {
			continue
		}
		if prev.HasURLs && !site.HasURLs {
			lostURLs = append(lostURLs, site.SiteID)
		}
		prevFormat := ""
		if prev.URIFormat != nil {
			prevFormat = *prev.URIFormat
		}
		if site.HasURLs && prevFormat != site.URIFormat {
			newFormats = append(newFormats, site)
		}
	}
	return lostURLs, newFormats
}
