package enums

// FieldLayoutType records which element kind a field layout is attached to.
type FieldLayoutType string

const (
	FieldLayoutProduct FieldLayoutType = "product"
	FieldLayoutVariant FieldLayoutType = "variant"
)

func (f FieldLayoutType) IsValid() bool {
	return f == FieldLayoutProduct || f == FieldLayoutVariant
}
