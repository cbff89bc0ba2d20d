package products

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/angelmondragon/commerce-core/pkg/db/models"
	"github.com/angelmondragon/commerce-core/pkg/templates"
)

// Product is a catalog item with its variants in display order.
type Product struct {
	models.Product
}

// DefaultVariantIndex picks the first variant, overridden by the last one flagged
// IsDefault. It returns -1 when there are no variants.
func DefaultVariantIndex(variants []models.Variant) int {
	if len(variants) == 0 {
		return -1
	}
	idx := 0
	for i, v := range variants {
		if v.IsDefault {
			idx = i
		}
	}
	return idx
}

// DefaultVariant returns the product's default variant, or nil.
func (p *Product) DefaultVariant() *models.Variant {
	idx := DefaultVariantIndex(p.Variants)
	if idx < 0 {
		return nil
	}
	return &p.Variants[idx]
}

// MarkDefault flags exactly one variant as default and copies its shared
// fields onto the product.
func (p *Product) MarkDefault() {
	idx := DefaultVariantIndex(p.Variants)
	for i := range p.Variants {
		p.Variants[i].IsDefault = i == idx
	}
	if idx < 0 {
		p.DefaultVariantID = nil
		return
	}
	v := p.Variants[idx]
	if v.ID != 0 {
		id := v.ID
		p.DefaultVariantID = &id
	}
	p.DefaultSKU = v.SKU
	p.DefaultPrice = v.Price
	p.DefaultWeight = v.Weight
	p.DefaultLength = v.Length
	p.DefaultWidth = v.Width
	p.DefaultHeight = v.Height
}

// EnsureCategories moves the product and every variant override onto the
// type's category sets, falling back to the first allowed category. It
// reports whether anything changed.
func (p *Product) EnsureCategories(taxIDs, shippingIDs []int64) bool {
	changed := false
	if len(taxIDs) > 0 && !containsID(taxIDs, p.TaxCategoryID) {
		p.TaxCategoryID = taxIDs[0]
		changed = true
	}
	if len(shippingIDs) > 0 && !containsID(shippingIDs, p.ShippingCategoryID) {
		p.ShippingCategoryID = shippingIDs[0]
		changed = true
	}
	for i := range p.Variants {
		v := &p.Variants[i]
		if v.TaxCategoryID != nil && len(taxIDs) > 0 && !containsID(taxIDs, *v.TaxCategoryID) {
			first := taxIDs[0]
			v.TaxCategoryID = &first
			changed = true
		}
		if v.ShippingCategoryID != nil && len(shippingIDs) > 0 && !containsID(shippingIDs, *v.ShippingCategoryID) {
			first := shippingIDs[0]
			v.ShippingCategoryID = &first
			changed = true
		}
	}
	return changed
}

func containsID(ids []int64, id int64) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// ProductVars exposes a product to title and URI templates as {product.*}.
func ProductVars(p models.Product, slug string) templates.Vars {
	return templates.Vars{
		"id":    p.ID,
		"title": p.Title,
		"slug":  slug,
		"sku":   p.DefaultSKU,
		"price": p.DefaultPrice,
	}
}

// TitleVars is the object a variant title format renders against. Variant
// attributes are available at the top level, the product under "product".
func TitleVars(p models.Product, v models.Variant) templates.Vars {
	return templates.Vars{
		"id":      v.ID,
		"sku":     v.SKU,
		"price":   v.Price,
		"weight":  v.Weight,
		"length":  v.Length,
		"width":   v.Width,
		"height":  v.Height,
		"stock":   v.Stock,
		"product": ProductVars(p, ""),
	}
}

// URIVars is the object a site URI format renders against.
func URIVars(p models.Product, slug string) templates.Vars {
	return templates.Vars{
		"id":      p.ID,
		"slug":    slug,
		"product": ProductVars(p, slug),
	}
}

var slugFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify lowercases title, strips accents and joins words with dashes.
func Slugify(title string) string {
	folded, _, err := transform.String(slugFold, title)
	if err != nil {
		folded = title
	}
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// SlugOrDefault returns slug, or one derived from the title and id.
func SlugOrDefault(slug string, p models.Product) string {
	if s := strings.TrimSpace(slug); s != "" {
		return s
	}
	if s := Slugify(p.Title); s != "" {
		return s
	}
	return "product-" + strconv.FormatInt(p.ID, 10)
}
