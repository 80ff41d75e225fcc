package schema

import (
	"fmt"
	"sort"
	"sync"

	hambavro "github.com/hamba/avro/v2"
	"github.com/samber/lo"
)

// Binding ties an Avro schema to its compiled Descriptor.
type Binding struct {
	// SchemaJSON is the Avro schema in JSON format
	SchemaJSON []byte
	// SchemaName is the full name of the Avro schema (namespace.name).
	// Filled from the parsed schema when empty.
	SchemaName string
	// avroSchema and descriptor are populated by Register
	avroSchema hambavro.Schema
	descriptor *Descriptor
}

// AvroSchema returns the parsed Avro schema.
func (b *Binding) AvroSchema() hambavro.Schema {
	return b.avroSchema
}

// Descriptor returns the compiled descriptor.
func (b *Binding) Descriptor() *Descriptor {
	return b.descriptor
}

// Registry is a local, concurrency-safe lookup of schema bindings by full name.
type Registry struct {
	mu       sync.RWMutex
	bindings map[string]*Binding
	opts     []CompileOption
}

// NewRegistry creates an empty registry. The compile options apply to every registered schema.
func NewRegistry(opts ...CompileOption) *Registry {
	return &Registry{
		bindings: make(map[string]*Binding),
		opts:     opts,
	}
}

// Register parses and compiles the binding's schema and stores it under its full name.
// Registering the same name again replaces the previous binding.
func (r *Registry) Register(b Binding) (*Binding, error) {
	if len(b.SchemaJSON) == 0 {
		return nil, fmt.Errorf("schemaJSON cannot be empty")
	}

	desc, parsed, err := ParseAvro(string(b.SchemaJSON), r.opts...)
	if err != nil {
		return nil, err
	}

	name := b.SchemaName
	if name == "" {
		name = desc.Name()
	}
	if name != desc.Name() {
		return nil, fmt.Errorf("schema name mismatch: binding declares %s, schema is %s", name, desc.Name())
	}

	binding := &Binding{
		SchemaJSON: b.SchemaJSON,
		SchemaName: name,
		avroSchema: parsed,
		descriptor: desc,
	}

	r.mu.Lock()
	r.bindings[name] = binding
	r.mu.Unlock()

	return binding, nil
}

// RegisterJSON is a shorthand for Register with only the schema JSON.
func (r *Registry) RegisterJSON(schemaJSON []byte) (*Binding, error) {
	return r.Register(Binding{SchemaJSON: schemaJSON})
}

// Get returns the binding registered under name.
func (r *Registry) Get(name string) (*Binding, error) {
	r.mu.RLock()
	b, ok := r.bindings[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("no schema registered for schema name: %s, registered: %v", name, r.Names())
	}
	return b, nil
}

// Names returns the registered schema names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := lo.Keys(r.bindings)
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}
