// Package param implements the typed configuration tree every definition
// passes through, and the schemas that validate it.
//
// A Parameter is a named node of one Kind. Scalars hold a bool, an int64,
// a float64 or a string; arrays and objects own their children, and object
// fields keep the order they were read in. Trees never share nodes: New
// and Clone deep copy, so editing one unit's fields cannot leak into
// another unit built from the same template.
//
// # Schemas
//
// InputParameters is the schema of one constructible type. Subtypes build
// theirs by calling the parent provider and declaring more entries:
//
//	s := factory.BaseParameters()
//	s.DeclareRequired("args", param.KindString, "arguments passed to the executable")
//	s.DeclareOptional("num_procs", 1, "process slots the unit occupies")
//
// Validate returns a new tree with defaults filled in and values coerced
// to the declared kinds. Integral floats become ints when they fit in an
// int64, numbers read as bools, and a lone string stands in for a
// one-element array. Fields the schema does not declare pass through.
//
// # Errors
//
// TypeError reports a read or conversion the stored kind cannot satisfy.
// LookupError reports a missing key or index. ValidationError names the
// owning object and field so a bad definition can be located.
//
// Hash gives a stable content hash of a tree, recorded with each unit
// result in the run history.
package param
