package producttypes

import (
	"strings"

	"github.com/angelmondragon/commerce-core/internal/fields"
	"github.com/angelmondragon/commerce-core/internal/products"
	"github.com/angelmondragon/commerce-core/pkg/db/models"
	"github.com/angelmondragon/commerce-core/pkg/enums"
)

// DefaultTitleFormat renders a variant title as its product's title.
const DefaultTitleFormat = "{product.title}"

// SiteSettings is the URL configuration of a product type on one site.
type SiteSettings struct {
	SiteID    int64  `json:"site_id" validate:"required,gt=0"`
	HasURLs   bool   `json:"has_urls"`
	URIFormat string `json:"uri_format" validate:"required_if=HasURLs true,max=255"`
	Template  string `json:"template" validate:"max=500"`
}

// ProductType is a catalog type definition together with its site settings,
// field layouts and category sets.
type ProductType struct {
	ID                   int64          `json:"id"`
	Name                 string         `json:"name" validate:"required,max=255"`
	Handle               string         `json:"handle" validate:"required,max=255,handle"`
	HasDimensions        bool           `json:"has_dimensions"`
	HasVariants          bool           `json:"has_variants"`
	HasVariantTitleField bool           `json:"has_variant_title_field"`
	TitleFormat          string         `json:"title_format" validate:"max=255"`
	SKUFormat            string         `json:"sku_format,omitempty" validate:"max=255"`
	DescriptionFormat    string         `json:"description_format,omitempty" validate:"max=255"`
	ProductFieldLayout   fields.Layout  `json:"product_field_layout"`
	VariantFieldLayout   fields.Layout  `json:"variant_field_layout"`
	Sites                []SiteSettings `json:"sites" validate:"dive"`
	TaxCategoryIDs       []int64        `json:"tax_category_ids" validate:"min=1,dive,gt=0"`
	ShippingCategoryIDs  []int64        `json:"shipping_category_ids" validate:"min=1,dive,gt=0"`
}

// HasURLs reports whether products of the type have URLs on any site.
func (pt *ProductType) HasURLs() bool {
	for _, site := range pt.Sites {
		if site.HasURLs {
			return true
		}
	}
	return false
}

// Site returns the settings for siteID.
func (pt *ProductType) Site(siteID int64) (SiteSettings, bool) {
	for _, site := range pt.Sites {
		if site.SiteID == siteID {
			return site, true
		}
	}
	return SiteSettings{}, false
}

// Clone returns a deep copy. Registry entries are only handed out as clones.
func (pt *ProductType) Clone() *ProductType {
	if pt == nil {
		return nil
	}
	out := *pt
	out.ProductFieldLayout = pt.ProductFieldLayout.Clone()
	out.VariantFieldLayout = pt.VariantFieldLayout.Clone()
	out.Sites = append([]SiteSettings(nil), pt.Sites...)
	out.TaxCategoryIDs = append([]int64(nil), pt.TaxCategoryIDs...)
	out.ShippingCategoryIDs = append([]int64(nil), pt.ShippingCategoryIDs...)
	return &out
}

// normalize trims input and applies the title format rules. A type without
// variants cannot carry a variant title field.
func (pt *ProductType) normalize(isNew bool) {
	pt.Name = strings.TrimSpace(pt.Name)
	pt.Handle = strings.TrimSpace(pt.Handle)
	pt.TitleFormat = strings.TrimSpace(pt.TitleFormat)
	for i := range pt.Sites {
		pt.Sites[i].URIFormat = strings.TrimSpace(pt.Sites[i].URIFormat)
		pt.Sites[i].Template = strings.TrimSpace(pt.Sites[i].Template)
	}
	if !isNew && !pt.HasVariants {
		pt.HasVariantTitleField = false
		pt.TitleFormat = DefaultTitleFormat
	}
	if pt.TitleFormat == "" {
		pt.TitleFormat = DefaultTitleFormat
	}
	pt.ProductFieldLayout.Type = enums.FieldLayoutProduct
	pt.VariantFieldLayout.Type = enums.FieldLayoutVariant
}

func (pt *ProductType) toModel() models.ProductType {
	row := models.ProductType{
		ID:                   pt.ID,
		Name:                 pt.Name,
		Handle:               pt.Handle,
		HasURLs:              pt.HasURLs(),
		HasDimensions:        pt.HasDimensions,
		HasVariants:          pt.HasVariants,
		HasVariantTitleField: pt.HasVariantTitleField,
		TitleFormat:          pt.TitleFormat,
		SKUFormat:            pt.SKUFormat,
		DescriptionFormat:    pt.DescriptionFormat,
	}
	if id := pt.ProductFieldLayout.ID; id != 0 {
		row.FieldLayoutID = &id
	}
	if id := pt.VariantFieldLayout.ID; id != 0 {
		row.VariantFieldLayoutID = &id
	}
	return row
}

func fromModel(row models.ProductType) *ProductType {
	pt := &ProductType{
		ID:                   row.ID,
		Name:                 row.Name,
		Handle:               row.Handle,
		HasDimensions:        row.HasDimensions,
		HasVariants:          row.HasVariants,
		HasVariantTitleField: row.HasVariantTitleField,
		TitleFormat:          row.TitleFormat,
		SKUFormat:            row.SKUFormat,
		DescriptionFormat:    row.DescriptionFormat,
		ProductFieldLayout:   fields.Layout{Type: enums.FieldLayoutProduct},
		VariantFieldLayout:   fields.Layout{Type: enums.FieldLayoutVariant},
	}
	if row.FieldLayoutID != nil {
		pt.ProductFieldLayout.ID = *row.FieldLayoutID
	}
	if row.VariantFieldLayoutID != nil {
		pt.VariantFieldLayout.ID = *row.VariantFieldLayoutID
	}
	return pt
}

func siteToModel(typeID int64, s SiteSettings) models.ProductTypeSite {
	row := models.ProductTypeSite{ProductTypeID: typeID, SiteID: s.SiteID, HasURLs: s.HasURLs}
	if s.URIFormat != "" {
		uri := s.URIFormat
		row.URIFormat = &uri
	}
	if s.Template != "" {
		tmpl := s.Template
		row.Template = &tmpl
	}
	return row
}

func siteFromModel(row models.ProductTypeSite) SiteSettings {
	s := SiteSettings{SiteID: row.SiteID, HasURLs: row.HasURLs}
	if row.URIFormat != nil {
		s.URIFormat = *row.URIFormat
	}
	if row.Template != nil {
		s.Template = *row.Template
	}
	return s
}

// Settings projects the type onto what product saves need.
func (pt *ProductType) Settings() *products.TypeSettings {
	out := &products.TypeSettings{
		ID:                   pt.ID,
		Name:                 pt.Name,
		HasDimensions:        pt.HasDimensions,
		HasVariants:          pt.HasVariants,
		HasVariantTitleField: pt.HasVariantTitleField,
		TitleFormat:          pt.TitleFormat,
		TaxCategoryIDs:       append([]int64(nil), pt.TaxCategoryIDs...),
		ShippingCategoryIDs:  append([]int64(nil), pt.ShippingCategoryIDs...),
		Sites:                make([]products.SiteURL, 0, len(pt.Sites)),
	}
	for _, site := range pt.Sites {
		out.Sites = append(out.Sites, products.SiteURL{SiteID: site.SiteID, HasURLs: site.HasURLs, URIFormat: site.URIFormat})
	}
	return out
}
