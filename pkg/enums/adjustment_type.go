package enums

import "fmt"

// AdjustmentType labels what an order adjustment represents.
type AdjustmentType string

const (
	AdjustmentTypeTax      AdjustmentType = "tax"
	AdjustmentTypeDiscount AdjustmentType = "discount"
	AdjustmentTypeShipping AdjustmentType = "shipping"
)

var validAdjustmentTypes = []AdjustmentType{
	AdjustmentTypeTax,
	AdjustmentTypeDiscount,
	AdjustmentTypeShipping,
}

func (a AdjustmentType) String() string {
	return string(a)
}

func (a AdjustmentType) IsValid() bool {
	for _, candidate := range validAdjustmentTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

func ParseAdjustmentType(value string) (AdjustmentType, error) {
	for _, candidate := range validAdjustmentTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid adjustment type %q", value)
}
