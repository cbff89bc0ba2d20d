package products

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/commerce-core/pkg/db/models"
	"github.com/angelmondragon/commerce-core/pkg/enums"
)

func int64Ptr(v int64) *int64 { return &v }

func TestDefaultVariantLastFlaggedWins(t *testing.T) {
	cases := []struct {
		name     string
		variants []models.Variant
		want     int
	}{
		{name: "none", variants: nil, want: -1},
		{name: "first when unflagged", variants: []models.Variant{{SKU: "a"}, {SKU: "b"}}, want: 0},
		{name: "single flagged", variants: []models.Variant{{SKU: "a"}, {SKU: "b", IsDefault: true}}, want: 1},
		{name: "last flagged wins", variants: []models.Variant{{SKU: "a", IsDefault: true}, {SKU: "b"}, {SKU: "c", IsDefault: true}}, want: 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DefaultVariantIndex(tc.variants))
		})
	}
}

func TestMarkDefaultCopiesSharedFields(t *testing.T) {
	p := &Product{Product: models.Product{Variants: []models.Variant{
		{ID: 1, SKU: "A", Price: decimal.NewFromInt(5), IsDefault: true},
		{ID: 2, SKU: "B", Price: decimal.NewFromInt(7), IsDefault: true},
	}}}
	p.MarkDefault()

	assert.False(t, p.Variants[0].IsDefault)
	assert.True(t, p.Variants[1].IsDefault)
	require.NotNil(t, p.DefaultVariantID)
	assert.Equal(t, int64(2), *p.DefaultVariantID)
	assert.Equal(t, "B", p.DefaultSKU)
	assert.True(t, p.DefaultPrice.Equal(decimal.NewFromInt(7)))
	assert.Equal(t, "B", p.DefaultVariant().SKU)
}

func TestEnsureCategoriesFallsBackToFirst(t *testing.T) {
	p := &Product{Product: models.Product{
		TaxCategoryID:      9,
		ShippingCategoryID: 20,
		Variants: []models.Variant{
			{SKU: "a", TaxCategoryID: int64Ptr(9)},
			{SKU: "b", ShippingCategoryID: int64Ptr(21)},
			{SKU: "c"},
		},
	}}

	changed := p.EnsureCategories([]int64{3, 4}, []int64{20, 21})
	assert.True(t, changed)
	assert.Equal(t, int64(3), p.TaxCategoryID)
	assert.Equal(t, int64(20), p.ShippingCategoryID)
	assert.Equal(t, int64(3), *p.Variants[0].TaxCategoryID)
	assert.Equal(t, int64(21), *p.Variants[1].ShippingCategoryID)
	assert.Nil(t, p.Variants[2].TaxCategoryID)

	assert.False(t, p.EnsureCategories([]int64{3, 4}, []int64{20, 21}))
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "creme-brulee-t-shirt", Slugify("Crème Brûlée T-Shirt!"))
	assert.Equal(t, "a-b", Slugify("  a   b  "))
	assert.Equal(t, "", Slugify("!!!"))
	assert.Equal(t, "product-7", SlugOrDefault("", models.Product{ID: 7, Title: "!!!"}))
	assert.Equal(t, "kept", SlugOrDefault("kept", models.Product{Title: "Other"}))
}

func TestProductFormattersCoverEveryAttribute(t *testing.T) {
	for attr := enums.ProductAttribute(0); attr < enums.ProductAttributeCount; attr++ {
		assert.NotNil(t, productFormatters[attr], "missing formatter for %s", attr)
	}
}

func TestProductAttributeValues(t *testing.T) {
	p := &Product{Product: models.Product{
		Title:         "Tee",
		DefaultSKU:    "TEE-M",
		DefaultPrice:  decimal.RequireFromString("19.9"),
		DefaultWeight: decimal.RequireFromString("0.25"),
		DefaultLength: decimal.NewFromInt(30),
		DefaultWidth:  decimal.NewFromInt(20),
		DefaultHeight: decimal.NewFromInt(1),
		Variants:      []models.Variant{{SKU: "TEE-M", Title: "Tee M"}},
	}}
	values := p.AttributeValues(AttributeContext{
		TypeName:        "Shirts",
		HasDimensions:   true,
		TaxCategoryName: "General",
		WeightUnit:      "kg",
		DimensionUnit:   "cm",
	}, enums.ProductAttrTitle, enums.ProductAttrType, enums.ProductAttrPrice, enums.ProductAttrDefaultVariant,
		enums.ProductAttrTaxCategory, enums.ProductAttrShippingCategory, enums.ProductAttrWeight, enums.ProductAttrDimensions)

	assert.Equal(t, "Tee", values["title"])
	assert.Equal(t, "Shirts", values["type"])
	assert.Equal(t, "$19.90", values["price"])
	assert.Equal(t, "Tee M", values["defaultVariant"])
	assert.Equal(t, "General", values["taxCategory"])
	assert.Equal(t, "", values["shippingCategory"])
	assert.Equal(t, "0.25 kg", values["weight"])
	assert.Equal(t, "30 × 20 × 1 cm", values["dimensions"])

	values = p.AttributeValues(AttributeContext{}, enums.ProductAttrWeight)
	assert.Equal(t, "", values["weight"])
}
