package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/commerce-core/api/responses"
	"github.com/angelmondragon/commerce-core/api/validators"
	"github.com/angelmondragon/commerce-core/internal/categories"
	"github.com/angelmondragon/commerce-core/internal/sites"
	"github.com/angelmondragon/commerce-core/pkg/db/models"
	"github.com/angelmondragon/commerce-core/pkg/enums"
	pkgerrors "github.com/angelmondragon/commerce-core/pkg/errors"
	"github.com/angelmondragon/commerce-core/pkg/logger"
)

type categoryRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Handle      string `json:"handle" validate:"required,max=255"`
	Description string `json:"description" validate:"max=1000"`
	Default     bool   `json:"default"`
}

func categoryKindParam(r *http.Request) (enums.CategoryKind, error) {
	kind, err := enums.ParseCategoryKind(strings.ToLower(strings.TrimSpace(chi.URLParam(r, "kind"))))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category kind").
			WithDetails(map[string]any{"field": "kind", "allowed": []string{enums.CategoryKindTax.String(), enums.CategoryKindShipping.String()}})
	}
	return kind, nil
}

func ListCategories(svc categories.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind, err := categoryKindParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.GetAll(r.Context(), kind)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if list == nil {
			list = []categories.Category{}
		}
		responses.WriteSuccess(w, list)
	}
}

func CreateCategory(svc categories.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind, err := categoryKindParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload categoryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		saved, err := svc.Save(r.Context(), &categories.Category{
			Kind:        kind,
			Name:        payload.Name,
			Handle:      payload.Handle,
			Description: payload.Description,
			Default:     payload.Default,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, saved)
	}
}

func DeleteCategory(svc categories.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind, err := categoryKindParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParseIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteByID(r.Context(), kind, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type siteResponse struct {
	ID        int64     `json:"id"`
	Handle    string    `json:"handle"`
	Name      string    `json:"name"`
	Language  string    `json:"language"`
	BaseURL   string    `json:"base_url,omitempty"`
	Primary   bool      `json:"primary"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
}

func toSiteResponse(site models.Site) siteResponse {
	return siteResponse{
		ID:        site.ID,
		Handle:    site.Handle,
		Name:      site.Name,
		Language:  site.Language,
		BaseURL:   site.BaseURL,
		Primary:   site.Primary,
		SortOrder: site.SortOrder,
		CreatedAt: site.CreatedAt,
	}
}

func ListSites(svc sites.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]siteResponse, 0, len(list))
		for _, site := range list {
			out = append(out, toSiteResponse(site))
		}
		responses.WriteSuccess(w, out)
	}
}

// CreateSite adds a site. Every product type gains settings for it in the
// same transaction.
func CreateSite(svc sites.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload sites.CreateInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		site, err := svc.Create(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toSiteResponse(*site))
	}
}
