package schema

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// Kind is the value kind of a field.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInt64
	KindUInt64
	KindDouble
	KindFloat
	KindBool
	KindString
	KindBytes
	KindMessage
)

var kindNames = [...]string{
	KindInvalid: "invalid",
	KindInt64:   "int64",
	KindUInt64:  "uint64",
	KindDouble:  "double",
	KindFloat:   "float",
	KindBool:    "bool",
	KindString:  "string",
	KindBytes:   "bytes",
	KindMessage: "message",
}

// String returns the lower-case kind name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// IsValid reports whether k is one of the declared kinds.
func (k Kind) IsValid() bool {
	return k > KindInvalid && k <= KindMessage
}

// FieldDescriptor describes a single field of a message type.
type FieldDescriptor struct {
	// ID identifies the field inside message instances. Unique per descriptor.
	ID int32
	// Name is the human-readable field name used in rendered output.
	Name string
	// Kind is the element kind. For repeated fields it is the kind of each element.
	Kind Kind
	// Repeated marks list-valued fields.
	Repeated bool
	// Nested is the descriptor of the sub-message. Set iff Kind is KindMessage.
	Nested *Descriptor
}

// Validate checks the field-local invariants.
func (f FieldDescriptor) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("field %d: name cannot be empty", f.ID)
	}
	if !f.Kind.IsValid() {
		return fmt.Errorf("field %q: invalid kind %s", f.Name, f.Kind)
	}
	if f.Kind == KindMessage && f.Nested == nil {
		return fmt.Errorf("field %q: message field requires a nested descriptor", f.Name)
	}
	if f.Kind != KindMessage && f.Nested != nil {
		return fmt.Errorf("field %q: %s field cannot have a nested descriptor", f.Name, f.Kind)
	}
	return nil
}

var (
	// ErrAlreadyDefined is returned when Define is called on a sealed descriptor.
	ErrAlreadyDefined = errors.New("descriptor already defined")
	// ErrNotDefined is returned when an undefined descriptor is used.
	ErrNotDefined = errors.New("descriptor not defined")
)

// Descriptor is an immutable, ordered description of a message type.
//
// A Descriptor is created with Declare and becomes usable after a single
// successful Define. Declaring before defining allows a field to reference
// the descriptor it belongs to, which is how recursive message types are built.
// Once defined, a Descriptor is safe for concurrent use.
type Descriptor struct {
	name    string
	fields  []FieldDescriptor
	byID    map[int32]int
	mu      sync.Mutex
	defined atomic.Bool
}

// Declare returns an empty descriptor with the given full name.
func Declare(name string) *Descriptor {
	return &Descriptor{name: name}
}

// New declares and defines a descriptor in one step.
func New(name string, fields ...FieldDescriptor) (*Descriptor, error) {
	d := Declare(name)
	if err := d.Define(fields...); err != nil {
		return nil, err
	}
	return d, nil
}

// MustNew is like New but panics on error. Intended for static schemas and tests.
func MustNew(name string, fields ...FieldDescriptor) *Descriptor {
	d, err := New(name, fields...)
	if err != nil {
		panic(err)
	}
	return d
}

// Define sets the fields of the descriptor and seals it.
// Fields keep the order they are given in.
func (d *Descriptor) Define(fields ...FieldDescriptor) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.defined.Load() {
		return fmt.Errorf("%s: %w", d.name, ErrAlreadyDefined)
	}

	byID := make(map[int32]int, len(fields))
	names := make(map[string]struct{}, len(fields))
	for i, f := range fields {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		if _, dup := byID[f.ID]; dup {
			return fmt.Errorf("%s: duplicate field id %d", d.name, f.ID)
		}
		if _, dup := names[f.Name]; dup {
			return fmt.Errorf("%s: duplicate field name %q", d.name, f.Name)
		}
		byID[f.ID] = i
		names[f.Name] = struct{}{}
	}

	d.fields = append([]FieldDescriptor(nil), fields...)
	d.byID = byID
	d.defined.Store(true)
	return nil
}

// Name returns the full name of the message type.
func (d *Descriptor) Name() string {
	return d.name
}

// Defined reports whether Define has completed.
func (d *Descriptor) Defined() bool {
	return d.defined.Load()
}

// NumFields returns the number of declared fields.
func (d *Descriptor) NumFields() int {
	return len(d.fields)
}

// Field returns the i-th field in declaration order.
func (d *Descriptor) Field(i int) FieldDescriptor {
	return d.fields[i]
}

// Fields returns a copy of the fields in declaration order.
func (d *Descriptor) Fields() []FieldDescriptor {
	return append([]FieldDescriptor(nil), d.fields...)
}

// FieldByID looks up a field by id.
func (d *Descriptor) FieldByID(id int32) (FieldDescriptor, bool) {
	i, ok := d.byID[id]
	if !ok {
		return FieldDescriptor{}, false
	}
	return d.fields[i], true
}

// FieldByName looks up a field by name.
func (d *Descriptor) FieldByName(name string) (FieldDescriptor, bool) {
	for _, f := range d.fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDescriptor{}, false
}

// Scalar builds a singular non-message field.
func Scalar(id int32, name string, kind Kind) FieldDescriptor {
	return FieldDescriptor{ID: id, Name: name, Kind: kind}
}

// List builds a repeated non-message field.
func List(id int32, name string, kind Kind) FieldDescriptor {
	return FieldDescriptor{ID: id, Name: name, Kind: kind, Repeated: true}
}

// Message builds a singular sub-message field.
func Message(id int32, name string, nested *Descriptor) FieldDescriptor {
	return FieldDescriptor{ID: id, Name: name, Kind: KindMessage, Nested: nested}
}

// MessageList builds a repeated sub-message field.
func MessageList(id int32, name string, nested *Descriptor) FieldDescriptor {
	return FieldDescriptor{ID: id, Name: name, Kind: KindMessage, Repeated: true, Nested: nested}
}
