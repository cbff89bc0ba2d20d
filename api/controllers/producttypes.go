package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/commerce-core/api/responses"
	"github.com/angelmondragon/commerce-core/api/validators"
	"github.com/angelmondragon/commerce-core/internal/fields"
	"github.com/angelmondragon/commerce-core/internal/producttypes"
	pkgerrors "github.com/angelmondragon/commerce-core/pkg/errors"
	"github.com/angelmondragon/commerce-core/pkg/logger"
)

type productTypeSiteRequest struct {
	SiteID    int64  `json:"site_id" validate:"required,gt=0"`
	HasURLs   bool   `json:"has_urls"`
	URIFormat string `json:"uri_format"`
	Template  string `json:"template"`
}

type productTypeRequest struct {
	Name                 string                   `json:"name" validate:"required,max=255"`
	Handle               string                   `json:"handle" validate:"required,max=255"`
	HasDimensions        bool                     `json:"has_dimensions"`
	HasVariants          bool                     `json:"has_variants"`
	HasVariantTitleField bool                     `json:"has_variant_title_field"`
	TitleFormat          string                   `json:"title_format"`
	SKUFormat            string                   `json:"sku_format"`
	DescriptionFormat    string                   `json:"description_format"`
	ProductFieldLayout   fields.Layout            `json:"product_field_layout"`
	VariantFieldLayout   fields.Layout            `json:"variant_field_layout"`
	Sites                []productTypeSiteRequest `json:"sites" validate:"dive"`
	TaxCategoryIDs       []int64                  `json:"tax_category_ids"`
	ShippingCategoryIDs  []int64                  `json:"shipping_category_ids"`
}

func (p productTypeRequest) toProductType(id int64) *producttypes.ProductType {
	pt := &producttypes.ProductType{
		ID:                   id,
		Name:                 p.Name,
		Handle:               p.Handle,
		HasDimensions:        p.HasDimensions,
		HasVariants:          p.HasVariants,
		HasVariantTitleField: p.HasVariantTitleField,
		TitleFormat:          p.TitleFormat,
		SKUFormat:            p.SKUFormat,
		DescriptionFormat:    p.DescriptionFormat,
		ProductFieldLayout:   p.ProductFieldLayout,
		VariantFieldLayout:   p.VariantFieldLayout,
		TaxCategoryIDs:       p.TaxCategoryIDs,
		ShippingCategoryIDs:  p.ShippingCategoryIDs,
	}
	for _, site := range p.Sites {
		pt.Sites = append(pt.Sites, producttypes.SiteSettings{
			SiteID:    site.SiteID,
			HasURLs:   site.HasURLs,
			URIFormat: site.URIFormat,
			Template:  site.Template,
		})
	}
	return pt
}

func ListProductTypes(svc producttypes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		types, err := svc.GetAll(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if types == nil {
			types = []*producttypes.ProductType{}
		}
		responses.WriteSuccess(w, types)
	}
}

func GetProductType(svc producttypes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		pt, err := svc.GetByID(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if pt == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "product type not found"))
			return
		}
		responses.WriteSuccess(w, pt)
	}
}

func GetProductTypeByHandle(svc producttypes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		handle := strings.TrimSpace(chi.URLParam(r, "handle"))
		if handle == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "handle is required"))
			return
		}
		pt, err := svc.GetByHandle(r.Context(), handle)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if pt == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "product type not found"))
			return
		}
		responses.WriteSuccess(w, pt)
	}
}

// CreateProductType saves a new type and answers 201 with the stored record.
func CreateProductType(svc producttypes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload productTypeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		saveProductType(w, r, svc, logg, payload.toProductType(0), http.StatusCreated)
	}
}

// UpdateProductType replaces a type's definition. Dependent products are
// brought in line before the response is written.
func UpdateProductType(svc producttypes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload productTypeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		saveProductType(w, r, svc, logg, payload.toProductType(id), http.StatusOK)
	}
}

func saveProductType(w http.ResponseWriter, r *http.Request, svc producttypes.Service, logg *logger.Logger, pt *producttypes.ProductType, status int) {
	ctx := logg.WithProductTypeID(r.Context(), pt.ID)
	if _, err := svc.Save(ctx, pt, true); err != nil {
		responses.WriteError(ctx, logg, w, err)
		return
	}
	saved, err := svc.GetByID(ctx, pt.ID)
	if err != nil {
		responses.WriteError(ctx, logg, w, err)
		return
	}
	if saved == nil {
		saved = pt
	}
	responses.WriteSuccessStatus(w, status, saved)
}

func DeleteProductType(svc producttypes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := logg.WithProductTypeID(r.Context(), id)
		deleted, err := svc.DeleteByID(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": id, "deleted": deleted})
	}
}
