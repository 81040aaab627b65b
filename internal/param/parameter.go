package param

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"golang.org/x/text/unicode/norm"
)

// Object is the ordered mapping used for Object-kind literals.
type Object = orderedmap.OrderedMap[string, any]

// NewObject returns an empty ordered Object literal.
func NewObject() *Object {
	return orderedmap.New[string, any]()
}

// Parameter is a named, typed node in a configuration tree.
//
// Exactly one of scalar, items or fields is meaningful, selected by kind.
// A Parameter exclusively owns its children; trees never share nodes.
type Parameter struct {
	name   string
	kind   Kind
	scalar any // bool, int64, float64 or string
	items  []*Parameter
	fields *orderedmap.OrderedMap[string, *Parameter]
}

// New converts a raw literal into a Parameter tree.
//
// Accepted literals: nil, bool, any Go integer or float, json.Number,
// string, []any, []string, []*Parameter, map[string]any (keys sorted),
// *Object (order kept) and *Parameter (deep copied). Anything else is a
// TypeError.
func New(name string, raw any) (*Parameter, error) {
	return convert(name, raw)
}

// MustNew is like New but panics on error.
// Use only in tests or for literals known to be valid.
func MustNew(name string, raw any) *Parameter {
	p, err := New(name, raw)
	if err != nil {
		panic(err)
	}
	return p
}

// EmptyObject returns an Object-kind Parameter with no fields.
func EmptyObject(name string) *Parameter {
	return &Parameter{name: name, kind: KindObject, fields: orderedmap.New[string, *Parameter]()}
}

func convert(name string, raw any) (*Parameter, error) {
	p := &Parameter{name: name}
	switch v := raw.(type) {
	case nil:
		p.kind = KindUnset
	case *Parameter:
		if v == nil {
			p.kind = KindUnset
			return p, nil
		}
		c := v.Clone()
		c.name = name
		return c, nil
	case bool:
		p.kind, p.scalar = KindBool, v
	case int:
		p.kind, p.scalar = KindInt, int64(v)
	case int8:
		p.kind, p.scalar = KindInt, int64(v)
	case int16:
		p.kind, p.scalar = KindInt, int64(v)
	case int32:
		p.kind, p.scalar = KindInt, int64(v)
	case int64:
		p.kind, p.scalar = KindInt, v
	case uint:
		return convertUint(p, uint64(v))
	case uint8:
		p.kind, p.scalar = KindInt, int64(v)
	case uint16:
		p.kind, p.scalar = KindInt, int64(v)
	case uint32:
		p.kind, p.scalar = KindInt, int64(v)
	case uint64:
		return convertUint(p, v)
	case float32:
		p.kind, p.scalar = KindFloat, float64(v)
	case float64:
		p.kind, p.scalar = KindFloat, v
	case json.Number:
		if n, err := v.Int64(); err == nil {
			p.kind, p.scalar = KindInt, n
		} else if f, err := v.Float64(); err == nil {
			p.kind, p.scalar = KindFloat, f
		} else {
			return nil, &TypeError{Name: name, GoType: "json.Number(" + v.String() + ")"}
		}
	case string:
		p.kind, p.scalar = KindString, v
	case []any:
		p.kind = KindArray
		p.items = make([]*Parameter, 0, len(v))
		for i, elem := range v {
			child, err := convert(strconv.Itoa(i), elem)
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", name, i, err)
			}
			p.items = append(p.items, child)
		}
	case []string:
		p.kind = KindArray
		p.items = make([]*Parameter, 0, len(v))
		for i, s := range v {
			p.items = append(p.items, &Parameter{name: strconv.Itoa(i), kind: KindString, scalar: s})
		}
	case []*Parameter:
		p.kind = KindArray
		p.items = make([]*Parameter, 0, len(v))
		for i, elem := range v {
			child, err := convert(strconv.Itoa(i), elem)
			if err != nil {
				return nil, err
			}
			p.items = append(p.items, child)
		}
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		p.kind = KindObject
		p.fields = orderedmap.New[string, *Parameter]()
		for _, k := range keys {
			if err := p.addField(k, v[k]); err != nil {
				return nil, err
			}
		}
	case *Object:
		p.kind = KindObject
		if v == nil {
			p.fields = orderedmap.New[string, *Parameter]()
			return p, nil
		}
		p.fields = orderedmap.New[string, *Parameter]()
		for pair := v.Oldest(); pair != nil; pair = pair.Next() {
			if err := p.addField(pair.Key, pair.Value); err != nil {
				return nil, err
			}
		}
	default:
		return nil, &TypeError{Name: name, GoType: fmt.Sprintf("%T", raw)}
	}
	return p, nil
}

func convertUint(p *Parameter, v uint64) (*Parameter, error) {
	if v > math.MaxInt64 {
		return nil, &TypeError{Name: p.name, GoType: "uint64 out of range"}
	}
	p.kind, p.scalar = KindInt, int64(v)
	return p, nil
}

func (p *Parameter) addField(key string, raw any) error {
	key = norm.NFC.String(key)
	child, err := convert(key, raw)
	if err != nil {
		return fmt.Errorf("%s.%s: %w", p.name, key, err)
	}
	p.fields.Set(key, child)
	return nil
}

// Name returns the Parameter's name.
func (p *Parameter) Name() string { return p.name }

// Kind returns the stored kind.
func (p *Parameter) Kind() Kind { return p.kind }

// IsUnset reports whether the Parameter holds no value.
func (p *Parameter) IsUnset() bool { return p == nil || p.kind == KindUnset }

// Get looks up a child by name (Object) or by index (Array).
func (p *Parameter) Get(key any) (*Parameter, error) {
	switch k := key.(type) {
	case string:
		return p.Field(k)
	case int:
		return p.Index(k)
	default:
		return nil, &LookupError{Name: p.name, Key: key, Reason: fmt.Sprintf("unsupported key type %T", key)}
	}
}

// Path walks a sequence of Get keys from p.
func (p *Parameter) Path(keys ...any) (*Parameter, error) {
	cur := p
	for _, k := range keys {
		next, err := cur.Get(k)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// Field returns the named child of an Object-kind Parameter.
func (p *Parameter) Field(name string) (*Parameter, error) {
	if p.kind != KindObject {
		return nil, &LookupError{Name: p.name, Key: name, Reason: fmt.Sprintf("%s is not an object", p.kind)}
	}
	child, ok := p.fields.Get(norm.NFC.String(name))
	if !ok {
		return nil, &LookupError{Name: p.name, Key: name, Reason: "no such field"}
	}
	return child, nil
}

// Index returns the i-th child of an Array-kind Parameter.
func (p *Parameter) Index(i int) (*Parameter, error) {
	if p.kind != KindArray {
		return nil, &LookupError{Name: p.name, Key: i, Reason: fmt.Sprintf("%s is not an array", p.kind)}
	}
	if i < 0 || i >= len(p.items) {
		return nil, &LookupError{Name: p.name, Key: i, Reason: fmt.Sprintf("index out of range [0,%d)", len(p.items))}
	}
	return p.items[i], nil
}

// Has reports whether an Object-kind Parameter has the named field.
func (p *Parameter) Has(name string) bool {
	if p == nil || p.kind != KindObject {
		return false
	}
	_, ok := p.fields.Get(norm.NFC.String(name))
	return ok
}

// Keys returns the field names of an Object in insertion order.
func (p *Parameter) Keys() []string {
	if p == nil || p.kind != KindObject {
		return nil
	}
	keys := make([]string, 0, p.fields.Len())
	for pair := p.fields.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Items returns the children of an Array.
func (p *Parameter) Items() []*Parameter {
	if p == nil || p.kind != KindArray {
		return nil
	}
	out := make([]*Parameter, len(p.items))
	copy(out, p.items)
	return out
}

// Len returns the number of children of a container, or 0.
func (p *Parameter) Len() int {
	switch {
	case p == nil:
		return 0
	case p.kind == KindArray:
		return len(p.items)
	case p.kind == KindObject:
		return p.fields.Len()
	default:
		return 0
	}
}

// AsBool reads a boolean. Numbers are true iff non-zero.
func (p *Parameter) AsBool() (bool, error) {
	switch p.kind {
	case KindBool:
		return p.scalar.(bool), nil
	case KindInt:
		return p.scalar.(int64) != 0, nil
	case KindFloat:
		return p.scalar.(float64) != 0, nil
	default:
		return false, &TypeError{Name: p.name, Kind: p.kind, Want: KindBool}
	}
}

// AsInt reads an integer. Floats with no fractional part are accepted when
// they fit in an int64.
func (p *Parameter) AsInt() (int, error) {
	switch p.kind {
	case KindInt:
		return int(p.scalar.(int64)), nil
	case KindFloat:
		if n, ok := floatToInt(p.scalar.(float64)); ok {
			return int(n), nil
		}
	}
	return 0, &TypeError{Name: p.name, Kind: p.kind, Want: KindInt}
}

// floatToInt converts an integral float that fits in an int64.
func floatToInt(f float64) (int64, bool) {
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// AsFloat reads a number as float64.
func (p *Parameter) AsFloat() (float64, error) {
	switch p.kind {
	case KindFloat:
		return p.scalar.(float64), nil
	case KindInt:
		return float64(p.scalar.(int64)), nil
	default:
		return 0, &TypeError{Name: p.name, Kind: p.kind, Want: KindFloat}
	}
}

// AsString reads a string. No other kind is converted.
func (p *Parameter) AsString() (string, error) {
	if p.kind != KindString {
		return "", &TypeError{Name: p.name, Kind: p.kind, Want: KindString}
	}
	return p.scalar.(string), nil
}

// AsStrings reads an Array of strings. An unset Parameter yields nil.
func (p *Parameter) AsStrings() ([]string, error) {
	if p.kind == KindUnset {
		return nil, nil
	}
	if p.kind != KindArray {
		return nil, &TypeError{Name: p.name, Kind: p.kind, Want: KindArray}
	}
	out := make([]string, 0, len(p.items))
	for _, item := range p.items {
		s, err := item.AsString()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p.name, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// Set replaces the value in place and re-derives the kind from raw.
// The Parameter keeps its name and its position in the parent.
func (p *Parameter) Set(raw any) error {
	next, err := convert(p.name, raw)
	if err != nil {
		return err
	}
	*p = *next
	return nil
}

// SetField sets (or adds) a field of an Object-kind Parameter.
// An unset Parameter becomes an empty Object first.
func (p *Parameter) SetField(name string, raw any) error {
	if p.kind == KindUnset {
		*p = *EmptyObject(p.name)
	}
	if p.kind != KindObject {
		return &LookupError{Name: p.name, Key: name, Reason: fmt.Sprintf("%s is not an object", p.kind)}
	}
	name = norm.NFC.String(name)
	if existing, ok := p.fields.Get(name); ok {
		return existing.Set(raw)
	}
	return p.addField(name, raw)
}

// DeleteField removes a field from an Object. It reports whether the field existed.
func (p *Parameter) DeleteField(name string) bool {
	if p.kind != KindObject {
		return false
	}
	_, ok := p.fields.Delete(norm.NFC.String(name))
	return ok
}

// Clone returns a deep copy of the tree rooted at p.
func (p *Parameter) Clone() *Parameter {
	if p == nil {
		return nil
	}
	c := &Parameter{name: p.name, kind: p.kind, scalar: p.scalar}
	switch p.kind {
	case KindArray:
		c.items = make([]*Parameter, len(p.items))
		for i, item := range p.items {
			c.items[i] = item.Clone()
		}
	case KindObject:
		c.fields = orderedmap.New[string, *Parameter]()
		for pair := p.fields.Oldest(); pair != nil; pair = pair.Next() {
			c.fields.Set(pair.Key, pair.Value.Clone())
		}
	}
	return c
}

// Literal converts the tree back to plain values: nil, bool, int64, float64,
// string, []any and *Object. New(name, p.Literal()) reproduces p.
func (p *Parameter) Literal() any {
	switch p.kind {
	case KindArray:
		out := make([]any, len(p.items))
		for i, item := range p.items {
			out[i] = item.Literal()
		}
		return out
	case KindObject:
		obj := orderedmap.New[string, any]()
		for pair := p.fields.Oldest(); pair != nil; pair = pair.Next() {
			obj.Set(pair.Key, pair.Value.Literal())
		}
		return obj
	case KindUnset:
		return nil
	default:
		return p.scalar
	}
}

// MarshalJSON renders the tree as JSON, keeping Object field order.
func (p *Parameter) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := p.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (p *Parameter) writeJSON(buf *bytes.Buffer) error {
	switch p.kind {
	case KindUnset:
		buf.WriteString("null")
	case KindArray:
		buf.WriteByte('[')
		for i, item := range p.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		first := true
		for pair := p.fields.Oldest(); pair != nil; pair = pair.Next() {
			if !first {
				buf.WriteByte(',')
			}
			first = false
			key, err := json.Marshal(pair.Key)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := pair.Value.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		b, err := json.Marshal(p.scalar)
		if err != nil {
			return fmt.Errorf("%s: %w", p.name, err)
		}
		buf.Write(b)
	}
	return nil
}

// String renders the Parameter as compact JSON.
func (p *Parameter) String() string {
	b, err := p.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<%s: %v>", p.name, err)
	}
	return string(b)
}
