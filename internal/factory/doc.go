// Package factory maps type names to constructors and schemas, and is the
// only path through which definition data becomes runtime objects.
//
// A Descriptor pairs a type name with a SchemaProvider and a Constructor.
// Modules register descriptors into a Registry; the CLI installs the
// built-in check and unit modules on startup.
//
// MakeObject reads the "type" field of a definition, validates the data
// against that type's schema and hands the materialized tree to the
// constructor. Constructors receive the registry too, so a unit builds
// its checks through the same path. Make is the generic form that also
// asserts the result type.
//
// ReadBatch builds one object per field of a mapping. A failing entry is
// recorded as an EntryError and the batch carries on; BatchResult.Err
// folds the failures into one error for logging.
package factory
