package factory

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/roach88/tfc/internal/document"
	"github.com/roach88/tfc/internal/param"
)

// Built is one successfully constructed batch entry.
type Built struct {
	Name   string
	Object any
}

// EntryError is one failed batch entry.
type EntryError struct {
	Name string
	Err  error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

func (e *EntryError) Unwrap() error {
	return e.Err
}

// BatchResult collects the outcome of ReadBatch in source order.
type BatchResult struct {
	Objects []Built
	Errors  []*EntryError
}

// Err aggregates the entry errors, or returns nil.
func (b *BatchResult) Err() error {
	var errs *multierror.Error
	for _, e := range b.Errors {
		errs = multierror.Append(errs, e)
	}
	return errs.ErrorOrNil()
}

// ReadBatch builds one object per field of source (name -> definition).
// A failing entry is recorded and the batch continues.
func (r *Registry) ReadBatch(source *param.Parameter) (*BatchResult, error) {
	if source.Kind() != param.KindObject {
		return nil, fmt.Errorf("batch %q: expected object of definitions, got %s", source.Name(), source.Kind())
	}

	res := &BatchResult{}
	for _, name := range source.Keys() {
		def, err := source.Field(name)
		if err != nil {
			return nil, err
		}
		obj, err := r.MakeObject(name, def)
		if err != nil {
			r.logger.Debug("failed to build object", "name", name, "error", err)
			res.Errors = append(res.Errors, &EntryError{Name: name, Err: err})
			continue
		}
		res.Objects = append(res.Objects, Built{Name: name, Object: obj})
	}
	return res, nil
}

// ReadFile decodes a definition document and builds every top-level entry.
func (r *Registry) ReadFile(path string) (*BatchResult, error) {
	doc, err := document.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return r.ReadBatch(doc)
}
