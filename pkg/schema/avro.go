package schema

import (
	"fmt"

	"github.com/ettle/strcase"
	hambavro "github.com/hamba/avro/v2"
)

// FieldIDProp is the optional Avro field property carrying an explicit field id.
// Fields without it are numbered by position, starting at 1.
const FieldIDProp = "field-id"

type compileOptions struct {
	snakeCase bool
}

// CompileOption configures FromAvro.
type CompileOption func(*compileOptions)

// WithSnakeCaseNames renders Avro field names in snake_case (e.g. "createdAt" -> "created_at").
func WithSnakeCaseNames() CompileOption {
	return func(o *compileOptions) {
		o.snakeCase = true
	}
}

// FromAvro builds a Descriptor from a parsed Avro record schema.
//
// Supported Avro types: boolean, int, long, float, double, string, bytes,
// enum (as string), fixed (as bytes), decimal (as string), record, array of any of these, and
// nullable unions ["null", T]. Maps and multi-branch unions are rejected.
// Recursive records are supported: every record full name maps to a single Descriptor.
func FromAvro(s hambavro.Schema, opts ...CompileOption) (*Descriptor, error) {
	c := &avroCompiler{
		records: make(map[string]*Descriptor),
	}
	for _, opt := range opts {
		opt(&c.opts)
	}

	rec, ok := unwrapRecord(s)
	if !ok {
		return nil, fmt.Errorf("expected record schema, got %s", s.Type())
	}
	return c.record(rec)
}

// ParseAvro parses Avro schema JSON and compiles it with FromAvro.
func ParseAvro(schemaJSON string, opts ...CompileOption) (*Descriptor, hambavro.Schema, error) {
	parsed, err := hambavro.Parse(schemaJSON)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse avro schema: %w", err)
	}
	desc, err := FromAvro(parsed, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compile avro schema: %w", err)
	}
	return desc, parsed, nil
}

type avroCompiler struct {
	opts    compileOptions
	records map[string]*Descriptor
}

func (c *avroCompiler) record(rec *hambavro.RecordSchema) (*Descriptor, error) {
	if d, ok := c.records[rec.FullName()]; ok {
		return d, nil
	}

	d := Declare(rec.FullName())
	c.records[rec.FullName()] = d

	fields := make([]FieldDescriptor, 0, len(rec.Fields()))
	origin := make(map[string]string, len(rec.Fields()))
	for i, f := range rec.Fields() {
		fd, err := c.field(i, f)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", rec.FullName(), f.Name(), err)
		}
		if prev, dup := origin[fd.Name]; dup {
			return nil, fmt.Errorf("%s: fields %q and %q both render as %q with snake_case names",
				rec.FullName(), prev, f.Name(), fd.Name)
		}
		origin[fd.Name] = f.Name()
		fields = append(fields, fd)
	}

	if err := d.Define(fields...); err != nil {
		return nil, err
	}
	return d, nil
}

func (c *avroCompiler) field(pos int, f *hambavro.Field) (FieldDescriptor, error) {
	id, err := fieldID(pos, f)
	if err != nil {
		return FieldDescriptor{}, err
	}

	name := f.Name()
	if c.opts.snakeCase {
		name = strcase.ToSnake(name)
	}

	fd := FieldDescriptor{ID: id, Name: name}

	typ := UnwrapNullable(f.Type())
	if arr, ok := typ.(*hambavro.ArraySchema); ok {
		fd.Repeated = true
		typ = UnwrapNullable(arr.Items())
		if _, nested := typ.(*hambavro.ArraySchema); nested {
			return FieldDescriptor{}, fmt.Errorf("nested arrays are not supported")
		}
	}

	if rec, ok := unwrapRecord(typ); ok {
		nested, err := c.record(rec)
		if err != nil {
			return FieldDescriptor{}, err
		}
		fd.Kind = KindMessage
		fd.Nested = nested
		return fd, nil
	}

	kind, err := avroKind(typ)
	if err != nil {
		return FieldDescriptor{}, err
	}
	fd.Kind = kind
	return fd, nil
}

func fieldID(pos int, f *hambavro.Field) (int32, error) {
	raw := f.Prop(FieldIDProp)
	if raw == nil {
		return int32(pos + 1), nil
	}
	switch v := raw.(type) {
	case float64:
		if v != float64(int32(v)) {
			return 0, fmt.Errorf("%s must be an integer, got %v", FieldIDProp, v)
		}
		return int32(v), nil
	case int:
		return int32(v), nil
	case int64:
		return int32(v), nil
	default:
		return 0, fmt.Errorf("%s must be a number, got %T", FieldIDProp, raw)
	}
}

func avroKind(s hambavro.Schema) (Kind, error) {
	switch s.Type() {
	case hambavro.Boolean:
		return KindBool, nil
	case hambavro.Int, hambavro.Long:
		return KindInt64, nil
	case hambavro.Float:
		return KindFloat, nil
	case hambavro.Double:
		return KindDouble, nil
	case hambavro.String, hambavro.Enum:
		return KindString, nil
	case hambavro.Bytes, hambavro.Fixed:
		if IsDecimal(s) {
			return KindString, nil
		}
		return KindBytes, nil
	case hambavro.Ref:
		return avroKind(s.(*hambavro.RefSchema).Schema())
	default:
		return KindInvalid, fmt.Errorf("unsupported avro type %s", s.Type())
	}
}

// IsDecimal reports whether s is bytes or fixed with the decimal logical type.
// Decimals are rendered as their exact decimal string.
func IsDecimal(s hambavro.Schema) bool {
	ls, ok := s.(hambavro.LogicalTypeSchema)
	if !ok || ls.Logical() == nil {
		return false
	}
	return ls.Logical().Type() == hambavro.Decimal
}

// UnwrapNullable returns T for a ["null", T] union and s otherwise.
func UnwrapNullable(s hambavro.Schema) hambavro.Schema {
	u, ok := s.(*hambavro.UnionSchema)
	if !ok || !u.Nullable() {
		return s
	}
	for _, t := range u.Types() {
		if t.Type() != hambavro.Null {
			return t
		}
	}
	return s
}

func unwrapRecord(s hambavro.Schema) (*hambavro.RecordSchema, bool) {
	if ref, ok := s.(*hambavro.RefSchema); ok {
		s = ref.Schema()
	}
	rec, ok := s.(*hambavro.RecordSchema)
	return rec, ok
}
