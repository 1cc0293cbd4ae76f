package payload

import (
	"math"
	"strconv"
	"unicode/utf8"
)

// BigIntMarker is appended to the decimal digits of a big integer.
const BigIntMarker = 'n'

// Canonicalize is the single serialization choke point for shard payloads.
//
// The output is compact JSON: map fields in insertion order, numbers in ES
// number-to-string form, strings escaped as JSON.stringify does, big integers
// as the JSON string "<digits>n". It fails with a KindSerialization *Error for
// non-finite numbers and duplicate map keys and returns no partial output.
func Canonicalize(v Value) ([]byte, error) {
	var w canonicalWriter
	if err := w.value(v, "$"); err != nil {
		return nil, err
	}
	return w.buf, nil
}

// Marshal converts a Go value with FromGo and canonicalizes it.
func Marshal(x any) ([]byte, error) {
	v, err := FromGo(x)
	if err != nil {
		return nil, err
	}
	return Canonicalize(v)
}

type canonicalWriter struct {
	buf []byte
}

func (w *canonicalWriter) value(v Value, path string) error {
	switch v.typ {
	case TypeNull:
		w.buf = append(w.buf, "null"...)
	case TypeBool:
		if v.b {
			w.buf = append(w.buf, "true"...)
		} else {
			w.buf = append(w.buf, "false"...)
		}
	case TypeNumber:
		if math.IsInf(v.num, 0) || math.IsNaN(v.num) {
			return serializationError("SHARD-SER-001", path, "non-finite number "+strconv.FormatFloat(v.num, 'g', -1, 64))
		}
		w.buf = appendNumber(w.buf, v.num)
	case TypeString:
		w.buf = appendString(w.buf, v.str)
	case TypeBigInt:
		digits := v.big.Append(nil, 10)
		w.buf = appendString(w.buf, string(append(digits, BigIntMarker)))
	case TypeList:
		w.buf = append(w.buf, '[')
		for i, item := range v.items {
			if i > 0 {
				w.buf = append(w.buf, ',')
			}
			if err := w.value(item, path+"["+strconv.Itoa(i)+"]"); err != nil {
				return err
			}
		}
		w.buf = append(w.buf, ']')
	case TypeMap:
		seen := make(map[string]struct{}, len(v.fields))
		w.buf = append(w.buf, '{')
		for i, f := range v.fields {
			if _, dup := seen[f.Key]; dup {
				return serializationError("SHARD-SER-004", path, "duplicate map key "+strconv.Quote(f.Key))
			}
			seen[f.Key] = struct{}{}
			if i > 0 {
				w.buf = append(w.buf, ',')
			}
			w.buf = appendString(w.buf, f.Key)
			w.buf = append(w.buf, ':')
			if err := w.value(f.Value, path+"."+f.Key); err != nil {
				return err
			}
		}
		w.buf = append(w.buf, '}')
	default:
		return serializationError("SHARD-SER-002", path, "unsupported value type "+v.typ.String())
	}
	return nil
}

// appendNumber formats f the way ECMAScript Number::toString does for finite
// values: shortest round-trip digits, exponent form outside [1e-6, 1e21).
func appendNumber(b []byte, f float64) []byte {
	if f == 0 {
		// Covers -0, which JSON.stringify renders as 0.
		return append(b, '0')
	}
	abs := math.Abs(f)
	format := byte('f')
	if abs < 1e-6 || abs >= 1e21 {
		format = 'e'
	}
	b = strconv.AppendFloat(b, f, format, -1, 64)
	if format == 'e' {
		// 1e-07 -> 1e-7
		n := len(b)
		if n >= 4 && b[n-4] == 'e' && b[n-3] == '-' && b[n-2] == '0' {
			b[n-2] = b[n-1]
			b = b[:n-1]
		}
	}
	return b
}

const hexDigits = "0123456789abcdef"

func appendString(b []byte, s string) []byte {
	b = append(b, '"')
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			switch c {
			case '"':
				b = append(b, '\\', '"')
			case '\\':
				b = append(b, '\\', '\\')
			case '\b':
				b = append(b, '\\', 'b')
			case '\f':
				b = append(b, '\\', 'f')
			case '\n':
				b = append(b, '\\', 'n')
			case '\r':
				b = append(b, '\\', 'r')
			case '\t':
				b = append(b, '\\', 't')
			default:
				if c < 0x20 {
					b = append(b, '\\', 'u', '0', '0', hexDigits[c>>4], hexDigits[c&0xf])
				} else {
					b = append(b, c)
				}
			}
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			b = append(b, "\ufffd"...)
			i++
			continue
		}
		b = append(b, s[i:i+size]...)
		i += size
	}
	return append(b, '"')
}
