package render

import (
	"math"
	"strconv"
	"unicode/utf8"
)

const hexDigits = "0123456789abcdef"

// writer copies output into a bounded buffer while counting the full length.
type writer struct {
	out []byte
	n   int
}

func (w *writer) writeString(s string) {
	if w.n < len(w.out) {
		copy(w.out[w.n:], s)
	}
	w.n += len(s)
}

func (w *writer) write(b []byte) {
	if w.n < len(w.out) {
		copy(w.out[w.n:], b)
	}
	w.n += len(b)
}

func (w *writer) writeByte(c byte) {
	if w.n < len(w.out) {
		w.out[w.n] = c
	}
	w.n++
}

func (w *writer) writeIndent(depth int) {
	for i := 0; i < depth; i++ {
		w.writeString("  ")
	}
}

// writeQuotedString writes s as a double-quoted string. Valid multi-byte
// UTF-8 sequences are kept; invalid bytes are hex-escaped.
func (w *writer) writeQuotedString(s string) {
	w.writeByte('"')
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			w.writeEscapedASCII(c)
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			w.writeHexEscape(c)
			i++
			continue
		}
		w.writeString(s[i : i+size])
		i += size
	}
	w.writeByte('"')
}

// writeQuotedBytes writes b as a double-quoted string with every non-ASCII byte hex-escaped.
func (w *writer) writeQuotedBytes(b []byte) {
	w.writeByte('"')
	for _, c := range b {
		if c >= utf8.RuneSelf {
			w.writeHexEscape(c)
			continue
		}
		w.writeEscapedASCII(c)
	}
	w.writeByte('"')
}

func (w *writer) writeEscapedASCII(c byte) {
	switch c {
	case '"':
		w.writeString(`\"`)
	case '\\':
		w.writeString(`\\`)
	case '\n':
		w.writeString(`\n`)
	case '\r':
		w.writeString(`\r`)
	case '\t':
		w.writeString(`\t`)
	default:
		if c < 0x20 || c == 0x7f {
			w.writeHexEscape(c)
			return
		}
		w.writeByte(c)
	}
}

func (w *writer) writeHexEscape(c byte) {
	w.writeString(`\x`)
	w.writeByte(hexDigits[c>>4])
	w.writeByte(hexDigits[c&0x0f])
}

// appendFloat formats f in the shortest representation that round-trips at
// the given bit size. Output does not depend on locale.
func appendFloat(dst []byte, f float64, bitSize int) []byte {
	switch {
	case math.IsNaN(f):
		return append(dst, "nan"...)
	case math.IsInf(f, 1):
		return append(dst, "inf"...)
	case math.IsInf(f, -1):
		return append(dst, "-inf"...)
	}
	return strconv.AppendFloat(dst, f, 'g', -1, bitSize)
}
