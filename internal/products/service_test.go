package products

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/commerce-core/pkg/db"
	"github.com/angelmondragon/commerce-core/pkg/db/dbtest"
	"github.com/angelmondragon/commerce-core/pkg/db/models"
	pkgerrors "github.com/angelmondragon/commerce-core/pkg/errors"
	"github.com/angelmondragon/commerce-core/pkg/logger"
	"github.com/angelmondragon/commerce-core/pkg/templates"
)

type stubTypes struct {
	settings map[int64]*TypeSettings
}

func (s stubTypes) ProductTypeSettings(_ context.Context, typeID int64) (*TypeSettings, error) {
	if settings, ok := s.settings[typeID]; ok {
		return settings, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product type not found")
}

func shirtSettings() *TypeSettings {
	return &TypeSettings{
		ID:                  1,
		Name:                "Shirts",
		HasVariants:         true,
		TitleFormat:         "{product.title} - {sku}",
		TaxCategoryIDs:      []int64{3, 4},
		ShippingCategoryIDs: []int64{7},
		Sites: []SiteURL{
			{SiteID: 1, HasURLs: true, URIFormat: "shop/{product.slug}"},
			{SiteID: 2},
		},
	}
}

func newProductService(t *testing.T, types TypeProvider) (Service, *Repository, *db.Client) {
	t.Helper()
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	svc, err := NewService(repo, client, types, templates.ObjectRenderer{}, logger.Nop())
	require.NoError(t, err)
	return svc, repo, client
}

func shirt() *Product {
	return &Product{Product: models.Product{
		TypeID:             1,
		Title:              "Linen Shirt",
		Enabled:            true,
		TaxCategoryID:      9,
		ShippingCategoryID: 7,
		Variants: []models.Variant{
			{SKU: "S", Price: decimal.NewFromInt(20), Enabled: true},
			{SKU: "M", Price: decimal.NewFromInt(22), Enabled: true, IsDefault: true},
			{SKU: "L", Price: decimal.NewFromInt(24), Enabled: true},
		},
	}}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	client := dbtest.Open(t)
	_, err := NewService(nil, client, stubTypes{}, nil, nil)
	assert.Error(t, err)
	_, err = NewService(NewRepository(client.DB()), nil, stubTypes{}, nil, nil)
	assert.Error(t, err)
	_, err = NewService(NewRepository(client.DB()), client, nil, nil, nil)
	assert.Error(t, err)
}

func TestSaveCreatesProductVariantsAndSites(t *testing.T) {
	svc, repo, _ := newProductService(t, stubTypes{settings: map[int64]*TypeSettings{1: shirtSettings()}})
	ctx := context.Background()

	saved, err := svc.Save(ctx, shirt())
	require.NoError(t, err)
	require.NotZero(t, saved.ID)

	got, err := svc.Get(ctx, saved.ID)
	require.NoError(t, err)
	require.Len(t, got.Variants, 3)
	assert.Equal(t, int64(3), got.TaxCategoryID, "moved onto the type's first tax category")
	assert.Equal(t, "Linen Shirt - S", got.Variants[0].Title)
	assert.Equal(t, "Linen Shirt - L", got.Variants[2].Title)
	require.NotNil(t, got.DefaultVariantID)
	assert.Equal(t, got.Variants[1].ID, *got.DefaultVariantID)
	assert.Equal(t, "M", got.DefaultSKU)
	assert.True(t, got.DefaultPrice.Equal(decimal.NewFromInt(22)))

	sites, err := repo.ListSites(ctx, saved.ID)
	require.NoError(t, err)
	require.Len(t, sites, 2)
	assert.Equal(t, "linen-shirt", sites[1].Slug)
	require.NotNil(t, sites[1].URI)
	assert.Equal(t, "shop/linen-shirt", *sites[1].URI)
	assert.Nil(t, sites[2].URI)
}

func TestSaveUpdateDropsRemovedVariants(t *testing.T) {
	svc, _, _ := newProductService(t, stubTypes{settings: map[int64]*TypeSettings{1: shirtSettings()}})
	ctx := context.Background()

	saved, err := svc.Save(ctx, shirt())
	require.NoError(t, err)

	got, err := svc.Get(ctx, saved.ID)
	require.NoError(t, err)
	got.Variants = got.Variants[:2]
	got.Variants[0].IsDefault = true
	got.Variants[1].IsDefault = false

	_, err = svc.Save(ctx, got)
	require.NoError(t, err)

	reloaded, err := svc.Get(ctx, saved.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Variants, 2)
	assert.Equal(t, "S", reloaded.DefaultSKU)
	assert.True(t, reloaded.Variants[0].IsDefault)
	assert.False(t, reloaded.Variants[1].IsDefault)
}

func TestSaveRejectsInvalidProducts(t *testing.T) {
	single := shirtSettings()
	single.ID = 2
	single.HasVariants = false
	bare := shirtSettings()
	bare.ID = 3
	bare.TaxCategoryIDs = nil

	svc, _, client := newProductService(t, stubTypes{settings: map[int64]*TypeSettings{2: single, 3: bare}})
	ctx := context.Background()

	_, err := svc.Save(ctx, &Product{Product: models.Product{TypeID: 1}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	p := shirt()
	p.Variants[1].SKU = " "
	_, err = svc.Save(ctx, p)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	p = shirt()
	_, err = svc.Save(ctx, p)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	p = shirt()
	p.TypeID = 2
	_, err = svc.Save(ctx, p)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	p = shirt()
	p.TypeID = 3
	_, err = svc.Save(ctx, p)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConsistency))

	var count int64
	require.NoError(t, client.DB().Model(&models.Product{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSaveRollsBackWhenTitleFormatFails(t *testing.T) {
	broken := shirtSettings()
	broken.TitleFormat = "{product.colour}"
	svc, _, client := newProductService(t, stubTypes{settings: map[int64]*TypeSettings{1: broken}})

	_, err := svc.Save(context.Background(), shirt())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	var products, variants int64
	require.NoError(t, client.DB().Model(&models.Product{}).Count(&products).Error)
	require.NoError(t, client.DB().Model(&models.Variant{}).Count(&variants).Error)
	assert.Zero(t, products)
	assert.Zero(t, variants)
}

func TestSaveKeepsManualTitlesWhenTypeHasTitleField(t *testing.T) {
	manual := shirtSettings()
	manual.HasVariantTitleField = true
	svc, _, _ := newProductService(t, stubTypes{settings: map[int64]*TypeSettings{1: manual}})
	ctx := context.Background()

	p := shirt()
	p.Variants[0].Title = "Small"
	saved, err := svc.Save(ctx, p)
	require.NoError(t, err)

	got, err := svc.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "Small", got.Variants[0].Title)
	assert.Equal(t, "", got.Variants[1].Title)
}

func TestDeleteByIDRemovesEverything(t *testing.T) {
	svc, repo, client := newProductService(t, stubTypes{settings: map[int64]*TypeSettings{1: shirtSettings()}})
	ctx := context.Background()

	saved, err := svc.Save(ctx, shirt())
	require.NoError(t, err)

	deleted, err := svc.DeleteByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = svc.Get(ctx, saved.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	sites, err := repo.ListSites(ctx, saved.ID)
	require.NoError(t, err)
	assert.Empty(t, sites)

	var variants int64
	require.NoError(t, client.DB().Model(&models.Variant{}).Count(&variants).Error)
	assert.Zero(t, variants)

	deleted, err = svc.DeleteByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}
