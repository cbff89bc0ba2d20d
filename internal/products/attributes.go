package products

import (
	"fmt"

	"github.com/angelmondragon/commerce-core/pkg/enums"
	"github.com/angelmondragon/commerce-core/pkg/money"
)

// AttributeContext carries the lookups the product index needs beyond the
// product row itself.
type AttributeContext struct {
	TypeName             string
	HasDimensions        bool
	TaxCategoryName      string
	ShippingCategoryName string
	Currency             enums.Currency
	WeightUnit           string
	DimensionUnit        string
}

type productFormatter func(p *Product, c AttributeContext) string

var productFormatters = [enums.ProductAttributeCount]productFormatter{
	enums.ProductAttrTitle: func(p *Product, _ AttributeContext) string { return p.Title },
	enums.ProductAttrType:  func(_ *Product, c AttributeContext) string { return c.TypeName },
	enums.ProductAttrSKU:   func(p *Product, _ AttributeContext) string { return p.DefaultSKU },
	enums.ProductAttrPrice: func(p *Product, c AttributeContext) string {
		return money.Format(p.DefaultPrice, c.Currency)
	},
	enums.ProductAttrDefaultVariant: func(p *Product, _ AttributeContext) string {
		v := p.DefaultVariant()
		if v == nil {
			return ""
		}
		if v.Title != "" {
			return v.Title
		}
		return v.SKU
	},
	enums.ProductAttrTaxCategory:      func(_ *Product, c AttributeContext) string { return c.TaxCategoryName },
	enums.ProductAttrShippingCategory: func(_ *Product, c AttributeContext) string { return c.ShippingCategoryName },
	enums.ProductAttrWeight: func(p *Product, c AttributeContext) string {
		if !c.HasDimensions {
			return ""
		}
		return fmt.Sprintf("%s %s", p.DefaultWeight.String(), c.WeightUnit)
	},
	enums.ProductAttrDimensions: func(p *Product, c AttributeContext) string {
		if !c.HasDimensions {
			return ""
		}
		return fmt.Sprintf("%s × %s × %s %s", p.DefaultLength.String(), p.DefaultWidth.String(), p.DefaultHeight.String(), c.DimensionUnit)
	},
}

// AttributeValues renders the requested product index columns.
func (p *Product) AttributeValues(c AttributeContext, attrs ...enums.ProductAttribute) map[string]string {
	if c.Currency == "" {
		c.Currency = enums.CurrencyUSD
	}
	out := make(map[string]string, len(attrs))
	for _, attr := range attrs {
		if attr < 0 || attr >= enums.ProductAttributeCount {
			continue
		}
		out[attr.String()] = productFormatters[attr](p, c)
	}
	return out
}
