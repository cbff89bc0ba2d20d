package producttypes

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/angelmondragon/commerce-core/pkg/errors"
)

var (
	handlePattern   = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_\-]*$`)
	reservedHandles = []string{"id", "dateCreated", "dateUpdated", "uid", "title"}
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	if err := v.RegisterValidation("handle", validateHandle); err != nil {
		panic(fmt.Sprintf("register handle validation: %v", err))
	}
	v.RegisterStructValidation(productTypeStructValidation, ProductType{})
	return v
}

func validateHandle(fl validator.FieldLevel) bool {
	handle := fl.Field().String()
	if !handlePattern.MatchString(handle) {
		return false
	}
	for _, reserved := range reservedHandles {
		if strings.EqualFold(handle, reserved) {
			return false
		}
	}
	return true
}

// productTypeStructValidation rejects duplicate site and category entries,
// which would otherwise surface as unique index violations mid-transaction.
func productTypeStructValidation(sl validator.StructLevel) {
	pt := sl.Current().Interface().(ProductType)

	seenSites := make(map[int64]struct{}, len(pt.Sites))
	for _, site := range pt.Sites {
		if _, dup := seenSites[site.SiteID]; dup {
			sl.ReportError(pt.Sites, "sites", "Sites", "unique_site", fmt.Sprint(site.SiteID))
			break
		}
		seenSites[site.SiteID] = struct{}{}
	}
	if hasDuplicate(pt.TaxCategoryIDs) {
		sl.ReportError(pt.TaxCategoryIDs, "tax_category_ids", "TaxCategoryIDs", "unique", "")
	}
	if hasDuplicate(pt.ShippingCategoryIDs) {
		sl.ReportError(pt.ShippingCategoryIDs, "shipping_category_ids", "ShippingCategoryIDs", "unique", "")
	}
}

func hasDuplicate(ids []int64) bool {
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return true
		}
		seen[id] = struct{}{}
	}
	return false
}

func (s *service) validate(pt *ProductType) error {
	err := s.validator.Struct(pt)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product type")
	}
	details := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fieldPath(fe)] = validationMessage(fe)
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid product type").WithDetails(details)
}

// fieldPath drops the root struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "is required"
	case "min":
		return fmt.Sprintf("must have at least %s entries", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "gt":
		return "must be a positive id"
	case "handle":
		return "must start with a letter, contain only letters, digits, '-' or '_', and not be a reserved word"
	case "unique", "unique_site":
		return "must not contain duplicates"
	}
	return "is invalid"
}
