package loader

import (
	"fmt"
	"log/slog"

	"github.com/hashicorp/go-multierror"
)

// Problem is a definition file or entry that could not be loaded. The
// rest of the batch is unaffected.
type Problem struct {
	File  string
	Entry string // empty when the whole file failed
	Err   error
}

func (p *Problem) Error() string {
	if p.Entry == "" {
		return fmt.Sprintf("%s: %v", p.File, p.Err)
	}
	return fmt.Sprintf("%s: %s: %v", p.File, p.Entry, p.Err)
}

func (p *Problem) Unwrap() error {
	return p.Err
}

// Err aggregates the problems, or returns nil.
func (r *Result) Err() error {
	var errs *multierror.Error
	for _, p := range r.Problems {
		errs = multierror.Append(errs, p)
	}
	return errs.ErrorOrNil()
}

func (r *Result) add(logger *slog.Logger, p *Problem) {
	logger.Warn("skipping definition", "file", p.File, "entry", p.Entry, "error", p.Err)
	r.Problems = append(r.Problems, p)
}
