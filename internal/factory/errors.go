package factory

import (
	"errors"
	"fmt"
)

// RegistrationError reports a rejected descriptor.
type RegistrationError struct {
	TypeName string
	Reason   string
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("register %q: %s", e.TypeName, e.Reason)
}

// UnknownTypeError reports a definition whose "type" is absent or not registered.
type UnknownTypeError struct {
	Object   string
	TypeName string
	Reason   string
}

func (e *UnknownTypeError) Error() string {
	if e.TypeName != "" {
		return fmt.Sprintf("%s: unknown type %q", e.Object, e.TypeName)
	}
	return fmt.Sprintf("%s: %s", e.Object, e.Reason)
}

// IsRegistrationError returns true if err wraps a RegistrationError.
func IsRegistrationError(err error) bool {
	var re *RegistrationError
	return errors.As(err, &re)
}

// IsUnknownTypeError returns true if err wraps an UnknownTypeError.
func IsUnknownTypeError(err error) bool {
	var ue *UnknownTypeError
	return errors.As(err, &ue)
}
