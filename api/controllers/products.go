package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/commerce-core/api/responses"
	"github.com/angelmondragon/commerce-core/api/validators"
	"github.com/angelmondragon/commerce-core/internal/products"
	"github.com/angelmondragon/commerce-core/pkg/db/models"
	"github.com/angelmondragon/commerce-core/pkg/logger"
	"github.com/angelmondragon/commerce-core/pkg/pagination"
)

type variantRequest struct {
	ID                 int64           `json:"id"`
	SKU                string          `json:"sku" validate:"required,max=255"`
	Title              string          `json:"title" validate:"max=255"`
	Price              decimal.Decimal `json:"price"`
	Weight             decimal.Decimal `json:"weight"`
	Length             decimal.Decimal `json:"length"`
	Width              decimal.Decimal `json:"width"`
	Height             decimal.Decimal `json:"height"`
	Stock              int             `json:"stock" validate:"gte=0"`
	HasUnlimitedStock  bool            `json:"has_unlimited_stock"`
	IsDefault          bool            `json:"is_default"`
	Enabled            bool            `json:"enabled"`
	TaxCategoryID      *int64          `json:"tax_category_id,omitempty"`
	ShippingCategoryID *int64          `json:"shipping_category_id,omitempty"`
}

type productRequest struct {
	TypeID             int64            `json:"type_id" validate:"required,gt=0"`
	Title              string           `json:"title" validate:"required,max=255"`
	Enabled            bool             `json:"enabled"`
	Promotable         bool             `json:"promotable"`
	FreeShipping       bool             `json:"free_shipping"`
	TaxCategoryID      int64            `json:"tax_category_id"`
	ShippingCategoryID int64            `json:"shipping_category_id"`
	Variants           []variantRequest `json:"variants" validate:"required,min=1,dive"`
}

func (p productRequest) toProduct() *products.Product {
	out := &products.Product{Product: models.Product{
		TypeID:             p.TypeID,
		Title:              p.Title,
		Enabled:            p.Enabled,
		Promotable:         p.Promotable,
		FreeShipping:       p.FreeShipping,
		TaxCategoryID:      p.TaxCategoryID,
		ShippingCategoryID: p.ShippingCategoryID,
	}}
	for _, v := range p.Variants {
		out.Variants = append(out.Variants, models.Variant{
			ID:                 v.ID,
			SKU:                v.SKU,
			Title:              v.Title,
			Price:              v.Price,
			Weight:             v.Weight,
			Length:             v.Length,
			Width:              v.Width,
			Height:             v.Height,
			Stock:              v.Stock,
			HasUnlimitedStock:  v.HasUnlimitedStock,
			IsDefault:          v.IsDefault,
			Enabled:            v.Enabled,
			TaxCategoryID:      v.TaxCategoryID,
			ShippingCategoryID: v.ShippingCategoryID,
		})
	}
	return out
}

type variantResponse struct {
	ID                 int64           `json:"id"`
	SKU                string          `json:"sku"`
	Title              string          `json:"title"`
	Price              decimal.Decimal `json:"price"`
	Stock              int             `json:"stock"`
	HasUnlimitedStock  bool            `json:"has_unlimited_stock"`
	IsDefault          bool            `json:"is_default"`
	Enabled            bool            `json:"enabled"`
	TaxCategoryID      *int64          `json:"tax_category_id,omitempty"`
	ShippingCategoryID *int64          `json:"shipping_category_id,omitempty"`
}

type productResponse struct {
	ID                 int64             `json:"id"`
	TypeID             int64             `json:"type_id"`
	Title              string            `json:"title"`
	Enabled            bool              `json:"enabled"`
	TaxCategoryID      int64             `json:"tax_category_id"`
	ShippingCategoryID int64             `json:"shipping_category_id"`
	DefaultVariantID   *int64            `json:"default_variant_id,omitempty"`
	DefaultSKU         string            `json:"default_sku"`
	DefaultPrice       decimal.Decimal   `json:"default_price"`
	Variants           []variantResponse `json:"variants"`
}

func toProductResponse(p products.Product) productResponse {
	out := productResponse{
		ID:                 p.ID,
		TypeID:             p.TypeID,
		Title:              p.Title,
		Enabled:            p.Enabled,
		TaxCategoryID:      p.TaxCategoryID,
		ShippingCategoryID: p.ShippingCategoryID,
		DefaultVariantID:   p.DefaultVariantID,
		DefaultSKU:         p.DefaultSKU,
		DefaultPrice:       p.DefaultPrice,
		Variants:           make([]variantResponse, 0, len(p.Variants)),
	}
	for _, v := range p.Variants {
		out.Variants = append(out.Variants, variantResponse{
			ID:                 v.ID,
			SKU:                v.SKU,
			Title:              v.Title,
			Price:              v.Price,
			Stock:              v.Stock,
			HasUnlimitedStock:  v.HasUnlimitedStock,
			IsDefault:          v.IsDefault,
			Enabled:            v.Enabled,
			TaxCategoryID:      v.TaxCategoryID,
			ShippingCategoryID: v.ShippingCategoryID,
		})
	}
	return out
}

type productPageResponse struct {
	Items      []productResponse `json:"items"`
	NextCursor string            `json:"next_cursor,omitempty"`
	HasMore    bool              `json:"has_more"`
}

// ListProductsByType pages through a type's products by id.
func ListProductsByType(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		typeID, err := validators.ParseIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := logg.WithProductTypeID(r.Context(), typeID)
		page, err := svc.ListByType(ctx, typeID, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		out := productPageResponse{Items: make([]productResponse, 0, len(page.Items)), HasMore: page.HasMore}
		for _, p := range page.Items {
			out.Items = append(out.Items, toProductResponse(p))
		}
		if page.HasMore {
			out.NextCursor = pagination.EncodeCursor(page.NextID)
		}
		responses.WriteSuccess(w, out)
	}
}

func GetProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		p, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toProductResponse(*p))
	}
}

func CreateProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload productRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		saved, err := svc.Save(r.Context(), payload.toProduct())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toProductResponse(*saved))
	}
}

func DeleteProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		deleted, err := svc.DeleteByID(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": id, "deleted": deleted})
	}
}
