package param

import (
	"errors"
	"fmt"
)

// TypeError reports a value whose kind cannot be read or converted as requested.
type TypeError struct {
	// Name is the Parameter name.
	Name string

	// Kind is the stored kind (for reads).
	Kind Kind

	// Want is the requested kind (for reads).
	Want Kind

	// GoType is set when a raw literal has no representable kind.
	GoType string
}

// Error implements the error interface.
func (e *TypeError) Error() string {
	if e.GoType != "" {
		return fmt.Sprintf("parameter %q: cannot convert literal of type %s", e.Name, e.GoType)
	}
	return fmt.Sprintf("parameter %q: cannot read %s value as %s", e.Name, e.Kind, e.Want)
}

// LookupError reports a missing key or index, or a key used on the wrong container kind.
type LookupError struct {
	Name   string // Parameter the lookup was performed on
	Key    any    // string name or int index
	Reason string
}

// Error implements the error interface.
func (e *LookupError) Error() string {
	return fmt.Sprintf("parameter %q: lookup %v: %s", e.Name, e.Key, e.Reason)
}

// ValidationError reports a schema violation.
//
// Owner is the object being built; Type is filled in by the factory once the
// descriptor is known.
type ValidationError struct {
	Owner  string
	Type   string
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	owner := e.Owner
	if e.Type != "" {
		owner = fmt.Sprintf("%s (%s)", e.Owner, e.Type)
	}
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", owner, e.Reason)
	}
	return fmt.Sprintf("%s: parameter %q: %s", owner, e.Field, e.Reason)
}

// IsTypeError returns true if err wraps a TypeError.
func IsTypeError(err error) bool {
	var te *TypeError
	return errors.As(err, &te)
}

// IsLookupError returns true if err wraps a LookupError.
func IsLookupError(err error) bool {
	var le *LookupError
	return errors.As(err, &le)
}

// IsValidationError returns true if err wraps a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
