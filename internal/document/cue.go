package document

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/tfc/internal/param"
)

// decodeCUE evaluates a single CUE file. Definitions, hidden and optional
// fields are not exported; everything else must be concrete.
func decodeCUE(name string, data []byte) (any, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(name))
	if err := v.Err(); err != nil {
		return nil, err
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, err
	}
	return cueToLiteral(v)
}

func cueToLiteral(v cue.Value) (any, error) {
	if d, ok := v.Default(); ok {
		v = d
	}
	switch v.Kind() {
	case cue.NullKind:
		return nil, nil
	case cue.BoolKind:
		return v.Bool()
	case cue.IntKind:
		return v.Int64()
	case cue.FloatKind:
		return v.Float64()
	case cue.StringKind:
		return v.String()
	case cue.BytesKind:
		b, err := v.Bytes()
		return string(b), err
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, err
		}
		var out []any
		for iter.Next() {
			elem, err := cueToLiteral(iter.Value())
			if err != nil {
				return nil, err
			}
			out = append(out, elem)
		}
		if out == nil {
			out = []any{}
		}
		return out, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, err
		}
		obj := param.NewObject()
		for iter.Next() {
			label := iter.Selector().Unquoted()
			elem, err := cueToLiteral(iter.Value())
			if err != nil {
				return nil, fmt.Errorf("%s: %w", label, err)
			}
			obj.Set(label, elem)
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("%v: non-concrete value of kind %s", v.Pos(), v.Kind())
	}
}
