package enums

import "fmt"

// CategoryKind distinguishes the two category sets a product type owns.
type CategoryKind string

const (
	CategoryKindTax      CategoryKind = "tax"
	CategoryKindShipping CategoryKind = "shipping"
)

var validCategoryKinds = []CategoryKind{
	CategoryKindTax,
	CategoryKindShipping,
}

func (k CategoryKind) String() string {
	return string(k)
}

func (k CategoryKind) IsValid() bool {
	for _, candidate := range validCategoryKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

func ParseCategoryKind(value string) (CategoryKind, error) {
	for _, candidate := range validCategoryKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid category kind %q", value)
}
