package models

// All lists every persisted model. Used by dev auto-migration on sqlite and by tests.
func All() []any {
	return []any{
		&Site{},
		&FieldLayout{},
		&TaxCategory{},
		&ShippingCategory{},
		&ProductType{},
		&ProductTypeSite{},
		&ProductTypeTaxCategory{},
		&ProductTypeShippingCategory{},
		&Product{},
		&Variant{},
		&ProductSite{},
		&Order{},
		&LineItem{},
		&OrderAdjustment{},
		&OutboxEvent{},
	}
}
