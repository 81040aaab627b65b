package param

import (
	"fmt"
	"math"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Declaration describes one schema entry.
type Declaration struct {
	Name        string
	Kind        Kind
	Required    bool
	Default     *Parameter // nil for required entries
	Description string
}

// InputParameters is an ordered schema for a constructible type.
//
// Schemas compose by calling the parent type's provider and then declaring
// more entries. Re-declaring a name replaces the earlier entry in place.
type InputParameters struct {
	decls *orderedmap.OrderedMap[string, *Declaration]
}

// NewInputParameters returns an empty schema.
func NewInputParameters() *InputParameters {
	return &InputParameters{decls: orderedmap.New[string, *Declaration]()}
}

// DeclareRequired adds a required entry of the given kind.
func (s *InputParameters) DeclareRequired(name string, kind Kind, description string) {
	s.decls.Set(name, &Declaration{
		Name:        name,
		Kind:        kind,
		Required:    true,
		Description: description,
	})
}

// DeclareOptional adds an optional entry whose kind is taken from def.
// A nil default declares an entry that accepts any value.
//
// Panics if def is not a representable literal: schemas are built by code,
// so a bad default is a programming error.
func (s *InputParameters) DeclareOptional(name string, def any, description string) {
	p, err := New(name, def)
	if err != nil {
		panic(fmt.Sprintf("param: invalid default for %q: %v", name, err))
	}
	s.decls.Set(name, &Declaration{
		Name:        name,
		Kind:        p.Kind(),
		Default:     p,
		Description: description,
	})
}

// Lookup returns the declaration for name.
func (s *InputParameters) Lookup(name string) (*Declaration, bool) {
	return s.decls.Get(name)
}

// Names returns declared names in declaration order.
func (s *InputParameters) Names() []string {
	names := make([]string, 0, s.decls.Len())
	for pair := s.decls.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// Declarations returns the entries in declaration order.
func (s *InputParameters) Declarations() []*Declaration {
	out := make([]*Declaration, 0, s.decls.Len())
	for pair := s.decls.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// Len returns the number of declared entries.
func (s *InputParameters) Len() int {
	return s.decls.Len()
}

// Validate materializes raw against the schema and returns a new tree.
//
// Required entries must be present and non-null; absent optional entries
// get a copy of their default; present values must match the declared kind
// (ints and floats interconvert, numbers read as bools, a lone string stands
// in for a one-element array). Fields not in the schema are kept as is.
// raw is not modified.
func (s *InputParameters) Validate(owner string, raw *Parameter) (*Parameter, error) {
	var out *Parameter
	switch {
	case raw.IsUnset():
		out = EmptyObject(owner)
	case raw.Kind() != KindObject:
		return nil, &ValidationError{Owner: owner, Reason: fmt.Sprintf("parameters must be an object, got %s", raw.Kind())}
	default:
		out = raw.Clone()
	}

	for pair := s.decls.Oldest(); pair != nil; pair = pair.Next() {
		decl := pair.Value
		child, ok := out.fields.Get(decl.Name)
		if !ok || child.IsUnset() {
			if decl.Required {
				return nil, &ValidationError{Owner: owner, Field: decl.Name, Reason: "required parameter is missing"}
			}
			def := decl.Default.Clone()
			def.name = decl.Name
			out.fields.Set(decl.Name, def)
			continue
		}
		if err := conform(child, decl.Kind); err != nil {
			return nil, &ValidationError{Owner: owner, Field: decl.Name, Reason: err.Error()}
		}
	}
	return out, nil
}

// conform coerces p in place to kind, or explains why it cannot.
func conform(p *Parameter, kind Kind) error {
	if kind == KindUnset || p.kind == kind {
		return nil
	}
	switch kind {
	case KindInt:
		if p.kind == KindFloat {
			f := p.scalar.(float64)
			if f != math.Trunc(f) {
				return fmt.Errorf("expected int, got non-integral float %v", f)
			}
			n, ok := floatToInt(f)
			if !ok {
				return &TypeError{Name: p.name, Kind: KindFloat, Want: KindInt}
			}
			p.kind, p.scalar = KindInt, n
			return nil
		}
	case KindFloat:
		if p.kind == KindInt {
			p.kind, p.scalar = KindFloat, float64(p.scalar.(int64))
			return nil
		}
	case KindBool:
		if p.kind.IsNumeric() {
			b, _ := p.AsBool()
			p.kind, p.scalar = KindBool, b
			return nil
		}
	case KindArray:
		if p.kind == KindString {
			elem := &Parameter{name: "0", kind: KindString, scalar: p.scalar}
			p.kind, p.scalar, p.items = KindArray, nil, []*Parameter{elem}
			return nil
		}
	}
	return fmt.Errorf("expected %s, got %s", kind, p.kind)
}
