package message

import (
	"fmt"
	"math/big"
	"reflect"
	"time"

	"github.com/Sokol111/ecommerce-debugtext/pkg/schema"
	hambavro "github.com/hamba/avro/v2"
)

// Decoder decodes Avro data into message instances.
type Decoder interface {
	// Decode deserializes Avro bytes written with writerSchema into an Instance
	// laid out by desc. desc must have been compiled from writerSchema.
	Decode(payload []byte, writerSchema hambavro.Schema, desc *schema.Descriptor) (*Instance, error)
}

type hambaDecoder struct{}

// NewHambaDecoder creates an Avro decoder using hamba/avro library.
func NewHambaDecoder() Decoder {
	return &hambaDecoder{}
}

func (d *hambaDecoder) Decode(payload []byte, writerSchema hambavro.Schema, desc *schema.Descriptor) (*Instance, error) {
	rec, ok := recordOf(writerSchema)
	if !ok {
		return nil, fmt.Errorf("writer schema is not a record: %s", writerSchema.Type())
	}

	var native any
	if err := hambavro.Unmarshal(writerSchema, payload, &native); err != nil {
		return nil, fmt.Errorf("failed to unmarshal avro data: %w", err)
	}

	fields, ok := native.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("decoded %s into %T, expected a record", rec.FullName(), native)
	}

	return fromRecord(rec, desc, fields)
}

// FromNative converts a generic Avro record (as produced by hamba/avro when
// decoding into any) into an Instance.
func FromNative(writerSchema hambavro.Schema, desc *schema.Descriptor, native map[string]any) (*Instance, error) {
	rec, ok := recordOf(writerSchema)
	if !ok {
		return nil, fmt.Errorf("writer schema is not a record: %s", writerSchema.Type())
	}
	return fromRecord(rec, desc, native)
}

func fromRecord(rec *hambavro.RecordSchema, desc *schema.Descriptor, native map[string]any) (*Instance, error) {
	if len(rec.Fields()) != desc.NumFields() {
		return nil, fmt.Errorf("descriptor %s has %d fields, avro record %s has %d",
			desc.Name(), desc.NumFields(), rec.FullName(), len(rec.Fields()))
	}

	msg := New()
	for i, f := range rec.Fields() {
		raw, ok := native[f.Name()]
		if !ok {
			continue
		}
		raw = unwrapUnion(f.Type(), raw)
		if raw == nil {
			continue
		}

		fd := desc.Field(i)
		v, err := convertField(fd, schema.UnwrapNullable(f.Type()), raw)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", rec.FullName(), f.Name(), err)
		}
		if v != nil {
			msg.Set(fd.ID, v)
		}
	}
	return msg, nil
}

func convertField(fd schema.FieldDescriptor, typ hambavro.Schema, raw any) (any, error) {
	if !fd.Repeated {
		return convertValue(fd, typ, raw)
	}

	arr, ok := typ.(*hambavro.ArraySchema)
	if !ok {
		return nil, fmt.Errorf("repeated field %s is not an avro array", fd.Name)
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("expected array, got %T", raw)
	}
	if len(items) == 0 {
		return nil, nil
	}

	out := make([]any, 0, len(items))
	for i, item := range items {
		item = unwrapUnion(arr.Items(), item)
		v, err := convertValue(fd, schema.UnwrapNullable(arr.Items()), item)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func convertValue(fd schema.FieldDescriptor, typ hambavro.Schema, raw any) (any, error) {
	if fd.Kind == schema.KindMessage {
		rec, ok := recordOf(typ)
		if !ok {
			return nil, fmt.Errorf("message field %s is not an avro record", fd.Name)
		}
		native, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expected record, got %T", raw)
		}
		return fromRecord(rec, fd.Nested, native)
	}

	switch v := raw.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64, float32, float64, bool, string, []byte:
		return v, nil
	case time.Time:
		return timeValue(typ, v), nil
	case *big.Rat:
		return v.FloatString(decimalScale(typ)), nil
	case time.Duration:
		if logicalType(typ) == hambavro.TimeMicros {
			return v.Microseconds(), nil
		}
		return v.Milliseconds(), nil
	}

	// fixed decodes into a byte array
	rv := reflect.ValueOf(raw)
	if rv.Kind() == reflect.Array && rv.Type().Elem().Kind() == reflect.Uint8 {
		b := make([]byte, rv.Len())
		reflect.Copy(reflect.ValueOf(b), rv)
		return b, nil
	}

	return nil, fmt.Errorf("unsupported decoded value %T for %s field", raw, fd.Kind)
}

func timeValue(typ hambavro.Schema, t time.Time) int64 {
	switch logicalType(typ) {
	case hambavro.Date:
		return t.Unix() / 86400
	case hambavro.TimestampMicros, hambavro.LocalTimestampMicros:
		return t.UnixMicro()
	default:
		return t.UnixMilli()
	}
}

func decimalScale(typ hambavro.Schema) int {
	ls, ok := typ.(hambavro.LogicalTypeSchema)
	if !ok {
		return 0
	}
	if dec, ok := ls.Logical().(*hambavro.DecimalLogicalSchema); ok {
		return dec.Scale()
	}
	return 0
}

func logicalType(typ hambavro.Schema) hambavro.LogicalType {
	ls, ok := typ.(hambavro.LogicalTypeSchema)
	if !ok || ls.Logical() == nil {
		return ""
	}
	return ls.Logical().Type()
}

// unwrapUnion strips the single-key map hamba/avro uses for union values it
// cannot resolve to a registered Go type.
func unwrapUnion(typ hambavro.Schema, raw any) any {
	u, ok := typ.(*hambavro.UnionSchema)
	if !ok {
		return raw
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return raw
	}
	if m == nil {
		return nil
	}
	if len(m) != 1 {
		return raw
	}
	for _, branch := range u.Types() {
		if v, ok := m[branchName(branch)]; ok {
			return v
		}
	}
	return raw
}

func branchName(s hambavro.Schema) string {
	if ref, ok := s.(*hambavro.RefSchema); ok {
		return ref.Schema().FullName()
	}
	if named, ok := s.(hambavro.NamedSchema); ok {
		return named.FullName()
	}
	if ls, ok := s.(hambavro.LogicalTypeSchema); ok && ls.Logical() != nil {
		return string(s.Type()) + "." + string(ls.Logical().Type())
	}
	return string(s.Type())
}

func recordOf(s hambavro.Schema) (*hambavro.RecordSchema, bool) {
	if ref, ok := s.(*hambavro.RefSchema); ok {
		s = ref.Schema()
	}
	rec, ok := s.(*hambavro.RecordSchema)
	return rec, ok
}
