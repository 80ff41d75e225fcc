// Package render formats decoded messages as human-readable debug strings.
//
// The output grammar:
//
//	name: 37                       scalar
//	name: "Ada"                    string or bytes, escaped
//	name {                         sub-message
//	  field: 1
//	}
//	name: [                        repeated scalar
//	  1,
//	  2
//	]
//	name: <truncated>              sub-message beyond the depth limit
//
// Fields follow descriptor declaration order. Repeated sub-messages render
// one block per element. With Options.Compact the same tokens are separated
// by single spaces on one line, e.g. `a: 1 b { c: 2 } d: [1, 2]`.
//
// All entry points follow the measure-or-fill convention: the returned length
// is always the length of the complete rendering, no matter how much of it
// fit in the buffer.
package render

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"

	"github.com/Sokol111/ecommerce-debugtext/pkg/message"
	"github.com/Sokol111/ecommerce-debugtext/pkg/schema"
)

// Render writes the debug string of msg into out and returns the full length
// of the rendering. At most len(out) bytes are written; truncation is silent,
// so callers compare the result against len(out) to detect it.
//
// On error Render returns Failed and leaves out untouched.
func Render(msg *message.Instance, desc *schema.Descriptor, opts Options, out []byte) (int, error) {
	measure := newPrinter(nil, opts)
	if err := measure.root(msg, desc); err != nil {
		return Failed, err
	}
	if len(out) == 0 {
		return measure.w.n, nil
	}

	fill := newPrinter(out, opts)
	if err := fill.root(msg, desc); err != nil {
		return Failed, err
	}
	return fill.w.n, nil
}

// Measure returns the length Render would report, without writing anything.
func Measure(msg *message.Instance, desc *schema.Descriptor, opts Options) (int, error) {
	return Render(msg, desc, opts, nil)
}

// Append renders msg and appends the result to dst.
func Append(dst []byte, msg *message.Instance, desc *schema.Descriptor, opts Options) ([]byte, error) {
	n, err := Measure(msg, desc, opts)
	if err != nil {
		return dst, err
	}

	start := len(dst)
	if cap(dst)-start < n {
		grown := make([]byte, start, start+n)
		copy(grown, dst)
		dst = grown
	}
	dst = dst[:start+n]
	if _, err := Render(msg, desc, opts, dst[start:]); err != nil {
		return dst[:start], err
	}
	return dst, nil
}

// String renders msg into a new string.
func String(msg *message.Instance, desc *schema.Descriptor, opts Options) (string, error) {
	b, err := Append(nil, msg, desc, opts)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type printer struct {
	w       writer
	compact bool
	limit   int
	scratch [64]byte
}

func newPrinter(out []byte, opts Options) *printer {
	return &printer{
		w:       writer{out: out},
		compact: opts.Compact,
		limit:   opts.depthLimit(),
	}
}

func (p *printer) root(msg *message.Instance, desc *schema.Descriptor) error {
	if msg == nil {
		return fmt.Errorf("%w: nil message", ErrCorruptMessage)
	}
	if desc == nil {
		return fmt.Errorf("%w: nil descriptor", ErrCorruptMessage)
	}
	_, err := p.message(msg, desc, 0)
	return err
}

// message writes the present fields of msg at the given depth and returns
// how many were written.
func (p *printer) message(msg *message.Instance, desc *schema.Descriptor, depth int) (int, error) {
	if !desc.Defined() {
		return 0, fmt.Errorf("%w: %s: %w", ErrSchemaMismatch, desc.Name(), schema.ErrNotDefined)
	}
	for i := 0; i < msg.Len(); i++ {
		id := msg.IDAt(i)
		if _, ok := desc.FieldByID(id); !ok {
			return 0, fmt.Errorf("%w: field id %d is not declared by %s", ErrSchemaMismatch, id, desc.Name())
		}
	}

	written := 0
	for i := 0; i < desc.NumFields(); i++ {
		f := desc.Field(i)
		v, ok := msg.Get(f.ID)
		if !ok {
			continue
		}

		var err error
		if f.Repeated {
			err = p.repeated(f, v, depth, written == 0)
		} else {
			p.separate(depth, written == 0)
			err = p.singular(f, v, depth)
		}
		if err != nil {
			if errors.Is(err, errEmpty) {
				continue
			}
			return 0, fmt.Errorf("%s: %w", desc.Name(), err)
		}
		written++
	}
	return written, nil
}

// separate writes what goes in front of a field: nothing for the first
// top-level field, otherwise a newline and indentation, or a space when compact.
func (p *printer) separate(depth int, first bool) {
	if first && depth == 0 {
		return
	}
	if p.compact {
		p.w.writeByte(' ')
		return
	}
	p.w.writeByte('\n')
	p.w.writeIndent(depth)
}

func (p *printer) close(depth int, written int, bracket byte) {
	if written > 0 {
		if p.compact {
			p.w.writeByte(' ')
		} else {
			p.w.writeByte('\n')
			p.w.writeIndent(depth)
		}
	}
	p.w.writeByte(bracket)
}

func (p *printer) singular(f schema.FieldDescriptor, v any, depth int) error {
	p.w.writeString(f.Name)
	if f.Kind == schema.KindMessage {
		return p.submessage(f, v, depth)
	}
	p.w.writeString(": ")
	return p.scalar(f, v)
}

func (p *printer) submessage(f schema.FieldDescriptor, v any, depth int) error {
	nested, ok := v.(*message.Instance)
	if !ok || nested == nil {
		return corrupt(f, v)
	}
	if depth+1 >= p.limit {
		p.w.writeString(": ")
		p.w.writeString(Placeholder)
		return nil
	}

	p.w.writeString(" {")
	written, err := p.message(nested, f.Nested, depth+1)
	if err != nil {
		return fmt.Errorf("%s: %w", f.Name, err)
	}
	p.close(depth, written, '}')
	return nil
}

// errEmpty marks a repeated field with no elements, which counts as absent.
var errEmpty = errors.New("empty repeated field")

func (p *printer) repeated(f schema.FieldDescriptor, v any, depth int, first bool) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return corrupt(f, v)
	}
	if rv.Len() == 0 {
		return errEmpty
	}

	if f.Kind == schema.KindMessage {
		if depth+1 >= p.limit {
			p.separate(depth, first)
			p.w.writeString(f.Name)
			p.w.writeString(": ")
			p.w.writeString(Placeholder)
			return nil
		}
		for i := 0; i < rv.Len(); i++ {
			p.separate(depth, first && i == 0)
			p.w.writeString(f.Name)
			if err := p.submessage(f, rv.Index(i).Interface(), depth); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
		return nil
	}

	p.separate(depth, first)
	p.w.writeString(f.Name)
	p.w.writeString(": [")
	for i := 0; i < rv.Len(); i++ {
		if i > 0 {
			p.w.writeByte(',')
		}
		if p.compact {
			if i > 0 {
				p.w.writeByte(' ')
			}
		} else {
			p.w.writeByte('\n')
			p.w.writeIndent(depth + 1)
		}
		if err := p.scalar(f, rv.Index(i).Interface()); err != nil {
			return fmt.Errorf("[%d]: %w", i, err)
		}
	}
	if p.compact {
		p.w.writeByte(']')
	} else {
		p.close(depth, rv.Len(), ']')
	}
	return nil
}

func (p *printer) scalar(f schema.FieldDescriptor, v any) error {
	buf := p.scratch[:0]
	switch f.Kind {
	case schema.KindInt64:
		switch n := v.(type) {
		case int64:
			p.w.write(strconv.AppendInt(buf, n, 10))
		case int32:
			p.w.write(strconv.AppendInt(buf, int64(n), 10))
		case int:
			p.w.write(strconv.AppendInt(buf, int64(n), 10))
		default:
			return corrupt(f, v)
		}
	case schema.KindUInt64:
		switch n := v.(type) {
		case uint64:
			p.w.write(strconv.AppendUint(buf, n, 10))
		case uint32:
			p.w.write(strconv.AppendUint(buf, uint64(n), 10))
		case uint:
			p.w.write(strconv.AppendUint(buf, uint64(n), 10))
		default:
			return corrupt(f, v)
		}
	case schema.KindDouble:
		n, ok := v.(float64)
		if !ok {
			return corrupt(f, v)
		}
		p.w.write(appendFloat(buf, n, 64))
	case schema.KindFloat:
		n, ok := v.(float32)
		if !ok {
			return corrupt(f, v)
		}
		p.w.write(appendFloat(buf, float64(n), 32))
	case schema.KindBool:
		b, ok := v.(bool)
		if !ok {
			return corrupt(f, v)
		}
		p.w.write(strconv.AppendBool(buf, b))
	case schema.KindString:
		s, ok := v.(string)
		if !ok {
			return corrupt(f, v)
		}
		p.w.writeQuotedString(s)
	case schema.KindBytes:
		b, ok := v.([]byte)
		if !ok {
			return corrupt(f, v)
		}
		p.w.writeQuotedBytes(b)
	default:
		return corrupt(f, v)
	}
	return nil
}

func corrupt(f schema.FieldDescriptor, v any) error {
	want := f.Kind.String()
	if f.Repeated {
		want = "repeated " + want
	}
	return fmt.Errorf("%w: field %s (%d) holds %T, want %s", ErrCorruptMessage, f.Name, f.ID, v, want)
}
