package enums

import "fmt"

// OrderAttribute identifies a column of the order index table. Values are
// dense so they can index a fixed-size formatter table.
type OrderAttribute int

const (
	OrderAttrNumber OrderAttribute = iota
	OrderAttrReference
	OrderAttrEmail
	OrderAttrTotalPrice
	OrderAttrTotalPaid
	OrderAttrTotalDiscount
	OrderAttrTotalShippingCost
	OrderAttrOutstandingBalance
	OrderAttrIsPaid
	OrderAttrDateOrdered
	OrderAttrDatePaid

	OrderAttributeCount
)

var orderAttributeNames = [OrderAttributeCount]string{
	OrderAttrNumber:             "number",
	OrderAttrReference:          "reference",
	OrderAttrEmail:              "email",
	OrderAttrTotalPrice:         "totalPrice",
	OrderAttrTotalPaid:          "totalPaid",
	OrderAttrTotalDiscount:      "totalDiscount",
	OrderAttrTotalShippingCost:  "totalShippingCost",
	OrderAttrOutstandingBalance: "outstandingBalance",
	OrderAttrIsPaid:             "isPaid",
	OrderAttrDateOrdered:        "dateOrdered",
	OrderAttrDatePaid:           "datePaid",
}

func (a OrderAttribute) String() string {
	if a < 0 || a >= OrderAttributeCount {
		return fmt.Sprintf("OrderAttribute(%d)", int(a))
	}
	return orderAttributeNames[a]
}

func ParseOrderAttribute(value string) (OrderAttribute, error) {
	for i, name := range orderAttributeNames {
		if name == value {
			return OrderAttribute(i), nil
		}
	}
	return 0, fmt.Errorf("invalid order attribute %q", value)
}

// ProductAttribute identifies a column of the product index table.
type ProductAttribute int

const (
	ProductAttrTitle ProductAttribute = iota
	ProductAttrType
	ProductAttrSKU
	ProductAttrPrice
	ProductAttrDefaultVariant
	ProductAttrTaxCategory
	ProductAttrShippingCategory
	ProductAttrWeight
	ProductAttrDimensions

	ProductAttributeCount
)

var productAttributeNames = [ProductAttributeCount]string{
	ProductAttrTitle:            "title",
	ProductAttrType:             "type",
	ProductAttrSKU:              "sku",
	ProductAttrPrice:            "price",
	ProductAttrDefaultVariant:   "defaultVariant",
	ProductAttrTaxCategory:      "taxCategory",
	ProductAttrShippingCategory: "shippingCategory",
	ProductAttrWeight:           "weight",
	ProductAttrDimensions:       "dimensions",
}

func (a ProductAttribute) String() string {
	if a < 0 || a >= ProductAttributeCount {
		return fmt.Sprintf("ProductAttribute(%d)", int(a))
	}
	return productAttributeNames[a]
}

func ParseProductAttribute(value string) (ProductAttribute, error) {
	for i, name := range productAttributeNames {
		if name == value {
			return ProductAttribute(i), nil
		}
	}
	return 0, fmt.Errorf("invalid product attribute %q", value)
}
