package document

// Type is a SPIRAL type descriptor, spec.md §6: every Type has a Kind plus
// variant-specific fields. Unannotated positions carry a nil *Type.
type Type struct {
	Kind string // bool|int|float|string|void|set|list|map|option|opaque|fn|ref|future|channel|task|async

	Of     *Type // list/option element type; set element type (see ElementType)
	Elem   *Type // set element type, alternate key
	EltTyp *Type // set element type, alternate key ("elementType")

	Key   *Type // map key type (always string-shaped in practice)
	Value *Type // map value type

	Params  []*Type // fn parameter types
	Returns *Type   // fn return type

	Name string // opaque type name
}

// ElementType returns the declared element type for a set/list/option
// Type, accepting any of the three equivalent JSON keys documented in
// spec.md §6 ("of", "elem", or "elementType").
func (t *Type) ElementType() *Type {
	if t == nil {
		return nil
	}
	if t.Of != nil {
		return t.Of
	}
	if t.Elem != nil {
		return t.Elem
	}
	return t.EltTyp
}
