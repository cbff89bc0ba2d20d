package producttypes

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/commerce-core/internal/categories"
	"github.com/angelmondragon/commerce-core/internal/fields"
	"github.com/angelmondragon/commerce-core/internal/products"
	"github.com/angelmondragon/commerce-core/internal/sites"
	"github.com/angelmondragon/commerce-core/pkg/db"
	"github.com/angelmondragon/commerce-core/pkg/db/dbtest"
	"github.com/angelmondragon/commerce-core/pkg/db/models"
	"github.com/angelmondragon/commerce-core/pkg/enums"
	pkgerrors "github.com/angelmondragon/commerce-core/pkg/errors"
	"github.com/angelmondragon/commerce-core/pkg/locks"
	"github.com/angelmondragon/commerce-core/pkg/logger"
	"github.com/angelmondragon/commerce-core/pkg/metrics"
	"github.com/angelmondragon/commerce-core/pkg/outbox"
	"github.com/angelmondragon/commerce-core/pkg/templates"
)

type renderSpy struct {
	calls int
}

func (r *renderSpy) Render(format string, vars templates.Vars) (string, error) {
	r.calls++
	return templates.Render(format, vars)
}

type countingTx struct {
	client *db.Client
	calls  int
}

func (c *countingTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	c.calls++
	return c.client.WithTx(ctx, fn)
}

type busyLocker struct{}

func (busyLocker) Acquire(context.Context, string) (locks.Lock, error) {
	return nil, locks.ErrNotAcquired
}

type fixture struct {
	client     *db.Client
	svc        Service
	repo       Repository
	categories categories.Repository
	layouts    fields.Repository
	sites      sites.Repository
	products   *products.Repository
	events     *outbox.Repository
	renders    *renderSpy
	tx         *countingTx

	siteID int64
	tax    map[string]int64
	ship   map[string]int64
}

func newFixture(t *testing.T, opts ...func(*ServiceParams)) *fixture {
	t.Helper()
	client := dbtest.Open(t)
	ctx := context.Background()

	f := &fixture{
		client:     client,
		repo:       NewRepository(client.DB()),
		categories: categories.NewRepository(client.DB()),
		layouts:    fields.NewRepository(client.DB()),
		sites:      sites.NewRepository(client.DB()),
		products:   products.NewRepository(client.DB()),
		events:     outbox.NewRepository(client.DB()),
		renders:    &renderSpy{},
		tx:         &countingTx{client: client},
		tax:        map[string]int64{},
		ship:       map[string]int64{},
	}

	site := &models.Site{Handle: "en", Name: "English", Language: "en-US", Primary: true}
	require.NoError(t, f.sites.Create(ctx, site))
	f.siteID = site.ID

	for _, handle := range []string{"A", "B", "C", "D", "E"} {
		c := &categories.Category{Kind: enums.CategoryKindTax, Name: "Tax " + handle, Handle: "tax-" + handle}
		require.NoError(t, f.categories.Create(ctx, c))
		f.tax[handle] = c.ID
	}
	for _, handle := range []string{"X", "Y", "Z"} {
		c := &categories.Category{Kind: enums.CategoryKindShipping, Name: "Ship " + handle, Handle: "ship-" + handle}
		require.NoError(t, f.categories.Create(ctx, c))
		f.ship[handle] = c.ID
	}

	params := ServiceParams{
		Repo:       f.repo,
		Categories: f.categories,
		Layouts:    f.layouts,
		Sites:      f.sites,
		Products:   f.products,
		Tx:         f.tx,
		Outbox:     outbox.NewService(f.events, logger.Nop()),
		Renderer:   f.renders,
		Metrics:    metrics.NewCatalogMetrics(prometheus.NewRegistry()),
		Logger:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(&params)
	}
	svc, err := NewService(params)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) shirts() *ProductType {
	return &ProductType{
		Name:                "Shirts",
		Handle:              "shirts",
		HasVariants:         true,
		Sites:               []SiteSettings{{SiteID: f.siteID, HasURLs: true, URIFormat: "shop/{product.slug}"}},
		TaxCategoryIDs:      []int64{f.tax["A"], f.tax["B"]},
		ShippingCategoryIDs: []int64{f.ship["X"]},
	}
}

func (f *fixture) create(t *testing.T, pt *ProductType) *ProductType {
	t.Helper()
	ok, err := f.svc.Save(context.Background(), pt, true)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotZero(t, pt.ID)
	return pt
}

// seedProduct writes a product of the type with its variants and one site row.
// The default variant is the one flagged IsDefault, or the first.
func (f *fixture) seedProduct(t *testing.T, typeID int64, title string, taxID, shipID int64, variants ...models.Variant) *products.Product {
	t.Helper()
	ctx := context.Background()
	p := &products.Product{Product: models.Product{
		TypeID:             typeID,
		Title:              title,
		Enabled:            true,
		TaxCategoryID:      taxID,
		ShippingCategoryID: shipID,
	}}
	require.NoError(t, f.products.Create(ctx, &p.Product))
	for i := range variants {
		variants[i].ProductID = p.ID
		variants[i].SortOrder = i
		require.NoError(t, f.products.SaveVariant(ctx, &variants[i]))
	}
	p.Variants = variants
	if def := p.DefaultVariant(); def != nil {
		require.NoError(t, f.client.DB().Model(&models.Product{}).Where("id = ?", p.ID).Update("default_variant_id", def.ID).Error)
		require.NoError(t, f.products.UpdateVariantTitle(ctx, def.ID, title))
	}
	slug := products.Slugify(title)
	uri := "shop/" + slug
	require.NoError(t, f.products.UpsertSite(ctx, &models.ProductSite{ProductID: p.ID, SiteID: f.siteID, Slug: slug, URI: &uri}))
	return p
}

func (f *fixture) reload(t *testing.T, id int64) *products.Product {
	t.Helper()
	p, err := f.products.FindByID(context.Background(), id)
	require.NoError(t, err)
	return p
}

func variant(sku string, enabled, isDefault bool) models.Variant {
	return models.Variant{SKU: sku, Price: decimal.NewFromInt(10), Enabled: enabled, IsDefault: isDefault}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	client := dbtest.Open(t)
	full := ServiceParams{
		Repo:       NewRepository(client.DB()),
		Categories: categories.NewRepository(client.DB()),
		Layouts:    fields.NewRepository(client.DB()),
		Sites:      sites.NewRepository(client.DB()),
		Products:   products.NewRepository(client.DB()),
		Tx:         client,
		Outbox:     outbox.NewService(outbox.NewRepository(client.DB()), nil),
	}
	_, err := NewService(full)
	require.NoError(t, err)

	for name, drop := range map[string]func(p *ServiceParams){
		"repo":       func(p *ServiceParams) { p.Repo = nil },
		"categories": func(p *ServiceParams) { p.Categories = nil },
		"layouts":    func(p *ServiceParams) { p.Layouts = nil },
		"sites":      func(p *ServiceParams) { p.Sites = nil },
		"products":   func(p *ServiceParams) { p.Products = nil },
		"tx":         func(p *ServiceParams) { p.Tx = nil },
		"outbox":     func(p *ServiceParams) { p.Outbox = nil },
	} {
		params := full
		drop(&params)
		_, err := NewService(params)
		assert.Error(t, err, name)
	}
}

func TestSaveCreatesTypeWithSettings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pt := f.shirts()
	pt.ProductFieldLayout = fields.Layout{Tabs: []fields.Tab{{Name: "Content", FieldIDs: []int64{4, 2}}}}
	f.create(t, pt)
	assert.Equal(t, DefaultTitleFormat, pt.TitleFormat)
	assert.NotZero(t, pt.ProductFieldLayout.ID)
	assert.NotZero(t, pt.VariantFieldLayout.ID)
	assert.Equal(t, 1, f.tx.calls)
	assert.Zero(t, f.renders.calls)

	f.svc.Refresh()
	got, err := f.svc.GetByHandle(ctx, "shirts")
	require.NoError(t, err)
	assert.Equal(t, pt.ID, got.ID)
	assert.True(t, got.HasURLs())
	assert.Equal(t, []int64{f.tax["A"], f.tax["B"]}, got.TaxCategoryIDs)
	assert.Equal(t, []int64{f.ship["X"]}, got.ShippingCategoryIDs)
	require.Len(t, got.Sites, 1)
	assert.Equal(t, "shop/{product.slug}", got.Sites[0].URIFormat)
	require.Len(t, got.ProductFieldLayout.Tabs, 1)
	assert.Equal(t, []int64{4, 2}, got.ProductFieldLayout.Tabs[0].FieldIDs)

	events, err := f.events.ListForAggregate(ctx, enums.AggregateProductType, pt.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventProductTypeSaved, events[0].EventType)
}

func TestSaveRejectsBeforeOpeningTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	existing := f.create(t, f.shirts())
	f.tx.calls = 0

	cases := []struct {
		name     string
		mutate   func(pt *ProductType)
		validate bool
		code     pkgerrors.Code
	}{
		{name: "invalid handle", mutate: func(pt *ProductType) { pt.Handle = "9lives" }, validate: true, code: pkgerrors.CodeValidation},
		{name: "handle taken", mutate: func(pt *ProductType) {}, validate: true, code: pkgerrors.CodeValidation},
		{name: "unknown title variable", mutate: func(pt *ProductType) { pt.Handle = "tees"; pt.TitleFormat = "{product.size}" }, validate: true, code: pkgerrors.CodeValidation},
		{name: "missing site settings", mutate: func(pt *ProductType) { pt.Handle = "tees"; pt.Sites = nil }, validate: true, code: pkgerrors.CodeValidation},
		{name: "unknown site", mutate: func(pt *ProductType) {
			pt.Handle = "tees"
			pt.Sites = append(pt.Sites, SiteSettings{SiteID: 777})
		}, validate: true, code: pkgerrors.CodeNotFound},
		{name: "unknown tax category", mutate: func(pt *ProductType) { pt.Handle = "tees"; pt.TaxCategoryIDs = []int64{999} }, validate: false, code: pkgerrors.CodeNotFound},
		{name: "unknown shipping category", mutate: func(pt *ProductType) { pt.Handle = "tees"; pt.ShippingCategoryIDs = []int64{999} }, validate: true, code: pkgerrors.CodeNotFound},
		{name: "unknown layout", mutate: func(pt *ProductType) { pt.Handle = "tees"; pt.VariantFieldLayout.ID = 555 }, validate: true, code: pkgerrors.CodeNotFound},
		{name: "unknown id", mutate: func(pt *ProductType) { pt.ID = existing.ID + 100 }, validate: false, code: pkgerrors.CodeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pt := f.shirts()
			tc.mutate(pt)
			ok, err := f.svc.Save(ctx, pt, tc.validate)
			require.Error(t, err)
			assert.False(t, ok)
			assert.True(t, pkgerrors.IsCode(err, tc.code), "got %v", err)
		})
	}
	assert.Zero(t, f.tx.calls)
	assert.Zero(t, f.renders.calls)
}

func TestSaveWithoutValidationMapsHandleCollision(t *testing.T) {
	f := newFixture(t)
	f.create(t, f.shirts())

	dup := f.shirts()
	ok, err := f.svc.Save(context.Background(), dup, false)
	require.Error(t, err)
	assert.False(t, ok)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	assert.Zero(t, dup.ID, "caller's type is restored")
}

func TestDowngradeKeepsOnlyDefaultVariant(t *testing.T) {
	f := newFixture(t)
	pt := f.create(t, f.shirts())

	shirt := f.seedProduct(t, pt.ID, "Shirt", f.tax["A"], f.ship["X"],
		variant("V1", true, false),
		variant("V2", false, true),
	)
	f.renders.calls = 0

	pt.HasVariants = false
	pt.HasVariantTitleField = true
	pt.TitleFormat = "{sku}"
	f.create(t, pt)
	assert.False(t, pt.HasVariantTitleField)
	assert.Equal(t, DefaultTitleFormat, pt.TitleFormat)

	got := f.reload(t, shirt.ID)
	require.Len(t, got.Variants, 1)
	assert.Equal(t, "V2", got.Variants[0].SKU)
	assert.True(t, got.Variants[0].Enabled)
	assert.True(t, got.Variants[0].IsDefault)
	require.NotNil(t, got.DefaultVariantID)
	assert.Equal(t, got.Variants[0].ID, *got.DefaultVariantID)
	assert.Zero(t, f.renders.calls, "title format did not change")
}

func TestDowngradeWalksEveryProductInBatches(t *testing.T) {
	f := newFixture(t, func(p *ServiceParams) { p.BatchSize = 2 })
	ctx := context.Background()
	pt := f.create(t, f.shirts())

	const productCount, variantCount = 5, 4
	ids := make([]int64, 0, productCount)
	for i := 0; i < productCount; i++ {
		vs := make([]models.Variant, 0, variantCount)
		for j := 0; j < variantCount; j++ {
			vs = append(vs, variant(fmt.Sprintf("P%d-V%d", i, j), j%2 == 0, j == i%variantCount))
		}
		ids = append(ids, f.seedProduct(t, pt.ID, fmt.Sprintf("Product %d", i), f.tax["A"], f.ship["X"], vs...).ID)
	}

	pt.HasVariants = false
	f.create(t, pt)

	for i, id := range ids {
		got := f.reload(t, id)
		require.Len(t, got.Variants, 1, "product %d", i)
		assert.Equal(t, fmt.Sprintf("P%d-V%d", i, i%variantCount), got.Variants[0].SKU)
		assert.True(t, got.Variants[0].Enabled)
	}

	var remaining int64
	require.NoError(t, f.client.DB().WithContext(ctx).Model(&models.Variant{}).Count(&remaining).Error)
	assert.Equal(t, int64(productCount), remaining)
}

func TestTitleCascadeOnlyRunsWhenFormatChanges(t *testing.T) {
	f := newFixture(t)
	pt := f.create(t, f.shirts())

	a := f.seedProduct(t, pt.ID, "Oxford", f.tax["A"], f.ship["X"], variant("S", true, true), variant("M", true, false))
	b := f.seedProduct(t, pt.ID, "Flannel", f.tax["A"], f.ship["X"], variant("L", true, true), variant("XL", true, false))
	f.renders.calls = 0

	f.create(t, pt)
	assert.Zero(t, f.renders.calls)

	pt.TitleFormat = "{product.title} ({sku})"
	f.create(t, pt)
	assert.Equal(t, 4, f.renders.calls)
	assert.Equal(t, "Oxford (M)", f.reload(t, a.ID).Variants[1].Title)
	assert.Equal(t, "Flannel (L)", f.reload(t, b.ID).Variants[0].Title)

	f.renders.calls = 0
	pt.HasVariantTitleField = true
	pt.TitleFormat = "{sku}"
	f.create(t, pt)
	assert.Zero(t, f.renders.calls, "types with a variant title field keep manual titles")
	assert.Equal(t, "Oxford (M)", f.reload(t, a.ID).Variants[1].Title)
}

func TestRemovedCategoriesAreReassigned(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pt := f.shirts()
	pt.TaxCategoryIDs = []int64{f.tax["A"], f.tax["B"], f.tax["C"]}
	pt.ShippingCategoryIDs = []int64{f.ship["X"], f.ship["Y"]}
	f.create(t, pt)

	override := f.tax["A"]
	onB := f.seedProduct(t, pt.ID, "On B", f.tax["B"], f.ship["Y"], models.Variant{SKU: "1", TaxCategoryID: &override})
	onC := f.seedProduct(t, pt.ID, "On C", f.tax["C"], f.ship["X"], variant("2", true, true))

	pt.TaxCategoryIDs = []int64{f.tax["D"], f.tax["C"]}
	pt.ShippingCategoryIDs = []int64{f.ship["Z"], f.ship["X"]}
	f.create(t, pt)

	gotB := f.reload(t, onB.ID)
	assert.Equal(t, f.tax["D"], gotB.TaxCategoryID)
	assert.Equal(t, f.ship["Z"], gotB.ShippingCategoryID)
	require.NotNil(t, gotB.Variants[0].TaxCategoryID)
	assert.Equal(t, f.tax["D"], *gotB.Variants[0].TaxCategoryID)

	gotC := f.reload(t, onC.ID)
	assert.Equal(t, f.tax["C"], gotC.TaxCategoryID)
	assert.Equal(t, f.ship["X"], gotC.ShippingCategoryID)

	stored, err := f.categories.ListByTypeID(ctx, enums.CategoryKindTax, pt.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, f.tax["D"], stored[0].ID)
}

func TestEmptyCategorySetWithProductsIsInconsistent(t *testing.T) {
	f := newFixture(t)
	pt := f.create(t, f.shirts())
	p := f.seedProduct(t, pt.ID, "Tee", f.tax["B"], f.ship["X"], variant("1", true, true))

	pt.TaxCategoryIDs = nil
	ok, err := f.svc.Save(context.Background(), pt, false)
	require.Error(t, err)
	assert.False(t, ok)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConsistency))
	assert.Equal(t, []int64{f.tax["A"], f.tax["B"]}, f.mustGet(t, pt.ID).TaxCategoryIDs)
	assert.Equal(t, f.tax["B"], f.reload(t, p.ID).TaxCategoryID)
}

func (f *fixture) mustGet(t *testing.T, id int64) *ProductType {
	t.Helper()
	f.svc.Refresh()
	got, err := f.svc.GetByID(context.Background(), id)
	require.NoError(t, err)
	return got
}

func TestFailureMidCascadeRollsBackEverything(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pt := f.create(t, f.shirts())
	p := f.seedProduct(t, pt.ID, "Henley", f.tax["B"], f.ship["X"], variant("H1", true, true), variant("H2", true, false))

	inserts := 0
	taxTable := models.ProductTypeTaxCategory{}.TableName()
	require.NoError(t, f.client.DB().Callback().Create().Before("gorm:create").Register("test:fail_tax_association", func(tx *gorm.DB) {
		if tx.Statement.Table != taxTable {
			return
		}
		inserts++
		if inserts == 3 {
			tx.AddError(errors.New("injected insert failure"))
		}
	}))

	update := f.mustGet(t, pt.ID)
	update.Name = "Renamed"
	update.TitleFormat = "{product.title}: {sku}"
	update.TaxCategoryIDs = []int64{f.tax["C"], f.tax["D"], f.tax["E"], f.tax["A"], f.tax["B"]}
	ok, err := f.svc.Save(ctx, update, true)
	require.Error(t, err)
	assert.False(t, ok)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.Equal(t, 3, inserts)
	assert.Equal(t, "Renamed", update.Name, "caller keeps its pending edit")

	got := f.mustGet(t, pt.ID)
	assert.Equal(t, "Shirts", got.Name)
	assert.Equal(t, DefaultTitleFormat, got.TitleFormat)
	assert.Equal(t, []int64{f.tax["A"], f.tax["B"]}, got.TaxCategoryIDs)

	reloaded := f.reload(t, p.ID)
	assert.Equal(t, "Henley", reloaded.Variants[0].Title)
	assert.Empty(t, reloaded.Variants[1].Title, "title cascade was rolled back")

	events, err := f.events.ListForAggregate(ctx, enums.AggregateProductType, pt.ID)
	require.NoError(t, err)
	assert.Len(t, events, 1, "only the create event committed")
}

func TestSiteURIRegenerationAndClearing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pt := f.create(t, f.shirts())
	p := f.seedProduct(t, pt.ID, "Polo Shirt", f.tax["A"], f.ship["X"], variant("P", true, true))
	f.renders.calls = 0

	pt.Sites[0].URIFormat = "store/{product.slug}/{id}"
	f.create(t, pt)
	assert.Equal(t, 1, f.renders.calls)

	rows, err := f.products.ListSites(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, rows[f.siteID].URI)
	assert.Equal(t, fmt.Sprintf("store/polo-shirt/%d", p.ID), *rows[f.siteID].URI)
	assert.Equal(t, "polo-shirt", rows[f.siteID].Slug)

	pt.Sites[0].HasURLs = false
	f.create(t, pt)
	assert.Equal(t, 1, f.renders.calls)

	rows, err = f.products.ListSites(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, rows[f.siteID].URI)
	assert.False(t, f.mustGet(t, pt.ID).HasURLs())
}

func TestLostURLsTakePrecedenceOverFormatChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	de := &models.Site{Handle: "de", Name: "Deutsch", Language: "de-DE"}
	require.NoError(t, f.sites.Create(ctx, de))

	pt := f.shirts()
	pt.Sites = append(pt.Sites, SiteSettings{SiteID: de.ID, HasURLs: true, URIFormat: "de/{product.slug}"})
	f.create(t, pt)
	p := f.seedProduct(t, pt.ID, "Polo Shirt", f.tax["A"], f.ship["X"], variant("P", true, true))
	deURI := "de/polo-shirt"
	require.NoError(t, f.products.UpsertSite(ctx, &models.ProductSite{ProductID: p.ID, SiteID: de.ID, Slug: "polo-shirt", URI: &deURI}))
	f.renders.calls = 0

	pt.Sites[0].HasURLs = false
	pt.Sites[1].URIFormat = "kaufen/{product.slug}"
	f.create(t, pt)

	rows, err := f.products.ListSites(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, rows[f.siteID].URI, "site that lost urls is cleared")
	require.NotNil(t, rows[de.ID].URI)
	assert.Equal(t, "de/polo-shirt", *rows[de.ID].URI, "regeneration does not run in the same save")
	assert.Zero(t, f.renders.calls)

	stored := f.mustGet(t, pt.ID)
	settings, ok := stored.Site(de.ID)
	require.True(t, ok)
	assert.Equal(t, "kaufen/{product.slug}", settings.URIFormat)
}

func TestDeleteByIDRemovesTypeAndProducts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pt := f.shirts()
	pt.VariantFieldLayout = fields.Layout{Tabs: []fields.Tab{{Name: "Sizes"}}}
	f.create(t, pt)
	f.seedProduct(t, pt.ID, "One", f.tax["A"], f.ship["X"], variant("1a", true, true), variant("1b", true, false))
	f.seedProduct(t, pt.ID, "Two", f.tax["A"], f.ship["X"], variant("2a", true, true))

	other := f.shirts()
	other.Name = "Hats"
	other.Handle = "hats"
	f.create(t, other)
	survivor := f.seedProduct(t, other.ID, "Cap", f.tax["A"], f.ship["X"], variant("cap", true, true))

	_, err := f.svc.GetByID(ctx, pt.ID)
	require.NoError(t, err)

	ok, err := f.svc.DeleteByID(ctx, pt.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	count, err := f.products.CountByTypeID(ctx, pt.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
	var variants, siteRows int64
	require.NoError(t, f.client.DB().Model(&models.Variant{}).Count(&variants).Error)
	require.NoError(t, f.client.DB().Model(&models.ProductTypeSite{}).Where("product_type_id = ?", pt.ID).Count(&siteRows).Error)
	assert.Equal(t, int64(1), variants)
	assert.Zero(t, siteRows)
	assigned, err := f.categories.ListByTypeID(ctx, enums.CategoryKindTax, pt.ID)
	require.NoError(t, err)
	assert.Empty(t, assigned)

	_, err = f.layouts.FindByID(ctx, pt.VariantFieldLayout.ID)
	assert.True(t, db.IsNotFound(err))
	assert.Len(t, f.reload(t, survivor.ID).Variants, 1)

	_, err = f.svc.GetByID(ctx, pt.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	events, err := f.events.ListForAggregate(ctx, enums.AggregateProductType, pt.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	types := []enums.OutboxEventType{events[0].EventType, events[1].EventType}
	assert.ElementsMatch(t, []enums.OutboxEventType{enums.EventProductTypeSaved, enums.EventProductTypeDeleted}, types)

	ok, err = f.svc.DeleteByID(ctx, pt.ID)
	assert.False(t, ok)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestSaveHooks(t *testing.T) {
	var saved []int64
	f := newFixture(t, func(p *ServiceParams) {
		p.BeforeSave = []BeforeSaveFunc{func(_ context.Context, pt *ProductType, _ bool) error {
			if pt.Handle == "blocked" {
				return errors.New("handle is blocked")
			}
			return nil
		}}
		p.AfterSave = []AfterSaveFunc{func(_ context.Context, pt *ProductType, isNew bool) {
			assert.True(t, isNew)
			saved = append(saved, pt.ID)
		}}
	})

	blocked := f.shirts()
	blocked.Handle = "blocked"
	ok, err := f.svc.Save(context.Background(), blocked, true)
	assert.False(t, ok)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Zero(t, f.tx.calls)

	pt := f.create(t, f.shirts())
	assert.Equal(t, []int64{pt.ID}, saved)
}

func TestRegistryFollowsSaves(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pt := f.create(t, f.shirts())

	all, err := f.svc.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	pt.Handle = "tees"
	pt.Name = "Tees"
	f.create(t, pt)

	_, err = f.svc.GetByHandle(ctx, "shirts")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	got, err := f.svc.GetByHandle(ctx, "tees")
	require.NoError(t, err)
	assert.Equal(t, "Tees", got.Name)

	other := f.shirts()
	other.Name = "Bags"
	other.Handle = "bags"
	f.create(t, other)
	all, err = f.svc.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Bags", all[0].Name)
}

func TestAddSiteCopiesPrimarySettings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pt := f.create(t, f.shirts())

	siteSvc, err := sites.NewService(f.sites, f.client, logger.Nop(), f.svc)
	require.NoError(t, err)
	de, err := siteSvc.Create(ctx, sites.CreateInput{Handle: "de", Name: "Deutsch", Language: "de-DE"})
	require.NoError(t, err)

	got, err := f.svc.GetByID(ctx, pt.ID)
	require.NoError(t, err)
	copied, ok := got.Site(de.ID)
	require.True(t, ok)
	assert.True(t, copied.HasURLs)
	assert.Equal(t, "shop/{product.slug}", copied.URIFormat)

	got.Name = "Shirts v2"
	ok, err = f.svc.Save(ctx, got, true)
	require.NoError(t, err)
	assert.True(t, ok, "new site settings satisfy the per-site check")
}

func TestAddSiteLeavesRegistryUntilCommit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pt := f.create(t, f.shirts())
	reg := f.svc.(*service).registry

	cached := func() bool {
		reg.mu.RLock()
		defer reg.mu.RUnlock()
		_, ok := reg.byID[pt.ID]
		return ok
	}
	require.True(t, cached())

	err := f.client.WithTx(ctx, func(tx *gorm.DB) error {
		de := &models.Site{Handle: "de", Name: "Deutsch", Language: "de-DE"}
		if err := f.sites.WithTx(tx).Create(ctx, de); err != nil {
			return err
		}
		if err := f.svc.AddSite(ctx, tx, de.ID); err != nil {
			return err
		}
		assert.True(t, cached(), "registry untouched before commit")
		return errors.New("abort")
	})
	require.Error(t, err)
	assert.True(t, cached())

	got, err := f.svc.GetByID(ctx, pt.ID)
	require.NoError(t, err)
	assert.Len(t, got.Sites, 1, "rolled back site never reaches the registry")

	f.svc.SiteAdded(ctx, 0)
	assert.False(t, cached(), "post-commit notification refreshes the registry")
}

func TestLockContentionIsConflict(t *testing.T) {
	f := newFixture(t, func(p *ServiceParams) { p.Locker = busyLocker{} })
	ok, err := f.svc.Save(context.Background(), f.shirts(), true)
	assert.False(t, ok)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	assert.Zero(t, f.tx.calls)
}

func TestServesProductTypeSettingsToProductSaves(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pt := f.shirts()
	pt.TitleFormat = "{product.title} / {sku}"
	f.create(t, pt)

	productSvc, err := products.NewService(f.products, f.client, f.svc, templates.ObjectRenderer{}, logger.Nop())
	require.NoError(t, err)
	saved, err := productSvc.Save(ctx, &products.Product{Product: models.Product{
		TypeID:             pt.ID,
		Title:              "Tank Top",
		Enabled:            true,
		TaxCategoryID:      f.tax["E"],
		ShippingCategoryID: f.ship["X"],
		Variants:           []models.Variant{variant("T1", true, true)},
	}})
	require.NoError(t, err)

	got := f.reload(t, saved.ID)
	assert.Equal(t, f.tax["A"], got.TaxCategoryID)
	assert.Equal(t, "Tank Top / T1", got.Variants[0].Title)

	settings, err := f.svc.ProductTypeSettings(ctx, pt.ID+1)
	assert.Nil(t, settings)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
