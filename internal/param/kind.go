package param

// Kind identifies the variant stored in a Parameter.
type Kind int

const (
	// KindUnset is a Parameter with no value (a null literal, or a schema
	// entry that accepts anything).
	KindUnset Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindObject
)

var kindNames = [...]string{
	KindUnset:  "unset",
	KindBool:   "bool",
	KindInt:    "int",
	KindFloat:  "float",
	KindString: "string",
	KindArray:  "array",
	KindObject: "object",
}

// String returns the lower-case kind name used in error messages and schema docs.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "invalid"
	}
	return kindNames[k]
}

// IsNumeric reports whether the kind holds a number.
func (k Kind) IsNumeric() bool {
	return k == KindInt || k == KindFloat
}

// IsContainer reports whether the kind holds child Parameters.
func (k Kind) IsContainer() bool {
	return k == KindArray || k == KindObject
}
