package unit

import (
	"errors"
	"fmt"
)

// ProcessError reports a failure while polling a running child. It is not
// isolated to the unit: the scheduler stops when it sees one.
type ProcessError struct {
	Unit string
	Err  error
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("poll %s: %v", e.Unit, e.Err)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// IsProcessError returns true if err wraps a ProcessError.
func IsProcessError(err error) bool {
	var pe *ProcessError
	return errors.As(err, &pe)
}
