package factory

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/roach88/tfc/internal/param"
)

// TypeKey is the reserved field that selects a descriptor.
const TypeKey = "type"

// Constructor builds an object from a validated parameter tree. The
// registry is passed so constructors can build nested objects (a unit
// building its checks) through the same path.
type Constructor func(r *Registry, name string, params *param.Parameter) (any, error)

// SchemaProvider returns a fresh schema for a type. Providers for subtypes
// call their parent's provider first and then declare more entries.
type SchemaProvider func() *param.InputParameters

// Descriptor is a registered type.
type Descriptor struct {
	TypeName    string
	Description string
	Construct   Constructor
	Schema      SchemaProvider
}

// Module registers one or more types.
type Module interface {
	Register(r *Registry) error
}

// Registry holds the descriptors for one application instance.
//
// Registration is append-only. Lookups and construction are safe for
// concurrent use, though the scheduler only uses it from one goroutine.
type Registry struct {
	mu     sync.RWMutex
	types  map[string]*Descriptor
	logger *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		types:  make(map[string]*Descriptor),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// BaseParameters is the schema every registered type starts from.
func BaseParameters() *param.InputParameters {
	s := param.NewInputParameters()
	s.DeclareRequired(TypeKey, param.KindString, "registered type name of the object")
	return s
}

// Register adds a descriptor. Registering a name twice is an error.
func (r *Registry) Register(d Descriptor) error {
	if d.TypeName == "" {
		return &RegistrationError{TypeName: d.TypeName, Reason: "empty type name"}
	}
	if d.Construct == nil || d.Schema == nil {
		return &RegistrationError{TypeName: d.TypeName, Reason: "constructor and schema provider are required"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.types[d.TypeName]; exists {
		return &RegistrationError{TypeName: d.TypeName, Reason: "type already registered"}
	}
	desc := d
	r.types[d.TypeName] = &desc
	r.logger.Debug("registered type", "type", d.TypeName)
	return nil
}

// Install registers every module in order, stopping at the first error.
func (r *Registry) Install(modules ...Module) error {
	for _, m := range modules {
		if err := m.Register(r); err != nil {
			return err
		}
	}
	return nil
}

// Lookup returns the descriptor for typeName.
func (r *Registry) Lookup(typeName string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.types[typeName]
	return d, ok
}

// Types returns the registered type names, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MakeObject builds the object named name from raw definition data.
//
// raw may be a *param.Parameter or any literal param.New accepts. The
// "type" field selects the descriptor; the data is validated against its
// schema and the constructor receives the materialized tree.
func (r *Registry) MakeObject(name string, raw any) (any, error) {
	p, ok := raw.(*param.Parameter)
	if !ok {
		var err error
		p, err = param.New(name, raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}

	typeName, err := typeOf(name, p)
	if err != nil {
		return nil, err
	}
	d, ok := r.Lookup(typeName)
	if !ok {
		return nil, &UnknownTypeError{Object: name, TypeName: typeName}
	}

	validated, err := d.Schema().Validate(name, p)
	if err != nil {
		var ve *param.ValidationError
		if errors.As(err, &ve) {
			ve.Type = typeName
		}
		return nil, err
	}

	obj, err := d.Construct(r, name, validated)
	if err != nil {
		return nil, fmt.Errorf("construct %s (%s): %w", name, typeName, err)
	}
	return obj, nil
}

// Make is MakeObject with a type assertion on the result.
func Make[T any](r *Registry, name string, raw any) (T, error) {
	var zero T
	obj, err := r.MakeObject(name, raw)
	if err != nil {
		return zero, err
	}
	t, ok := obj.(T)
	if !ok {
		return zero, fmt.Errorf("%s: constructed %T, want %T", name, obj, zero)
	}
	return t, nil
}

func typeOf(name string, p *param.Parameter) (string, error) {
	if p.Kind() != param.KindObject {
		return "", &UnknownTypeError{Object: name, Reason: fmt.Sprintf("definition is %s, not an object", p.Kind())}
	}
	field, err := p.Field(TypeKey)
	if err != nil {
		return "", &UnknownTypeError{Object: name, Reason: "missing \"type\" field"}
	}
	typeName, err := field.AsString()
	if err != nil {
		return "", &UnknownTypeError{Object: name, Reason: "\"type\" field is not a string"}
	}
	return typeName, nil
}
