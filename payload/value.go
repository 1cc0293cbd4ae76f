package payload

import "math/big"

// Type enumerates the supported value kinds.
type Type uint8

const (
	TypeNull Type = iota
	TypeBool
	TypeNumber
	TypeString
	TypeBigInt
	TypeList
	TypeMap
)

func (t Type) String() string {
	switch t {
	case TypeNull:
		return "null"
	case TypeBool:
		return "bool"
	case TypeNumber:
		return "number"
	case TypeString:
		return "string"
	case TypeBigInt:
		return "bigint"
	case TypeList:
		return "list"
	case TypeMap:
		return "map"
	default:
		return "unknown"
	}
}

// Value is an immutable payload value. The zero Value is null.
type Value struct {
	typ    Type
	b      bool
	num    float64
	str    string
	big    *big.Int
	items  []Value
	fields []Field
}

// Field is one key/value entry of a map.
type Field struct {
	Key   string
	Value Value
}

// F is shorthand for a Field literal.
func F(key string, v Value) Field { return Field{Key: key, Value: v} }

func Null() Value { return Value{} }
func Bool(b bool) Value { return Value{typ: TypeBool, b: b} }
func Number(f float64) Value { return Value{typ: TypeNumber, num: f} }
func String(s string) Value { return Value{typ: TypeString, str: s} }
func List(items ...Value) Value {
	return Value{typ: TypeList, items: append([]Value(nil), items...)}
}

// Map builds a map value whose fields serialize in the given order. Keys must be
// unique; duplicates are reported by Canonicalize.
func Map(fields ...Field) Value {
	return Value{typ: TypeMap, fields: append([]Field(nil), fields...)}
}

// BigInt builds an arbitrary-precision integer value. The argument is copied;
// nil yields null.
func BigInt(i *big.Int) Value {
	if i == nil {
		return Null()
	}
	return Value{typ: TypeBigInt, big: new(big.Int).Set(i)}
}

// BigIntFromString parses a base-10 integer.
func BigIntFromString(s string) (Value, bool) {
	i, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Value{}, false
	}
	return Value{typ: TypeBigInt, big: i}, true
}

func (v Value) Type() Type { return v.typ }
func (v Value) IsNull() bool { return v.typ == TypeNull }

func (v Value) AsBool() (bool, bool) { return v.b, v.typ == TypeBool }
func (v Value) AsNumber() (float64, bool) { return v.num, v.typ == TypeNumber }
func (v Value) AsString() (string, bool) { return v.str, v.typ == TypeString }

// AsBigInt returns a copy of the integer.
func (v Value) AsBigInt() (*big.Int, bool) {
	if v.typ != TypeBigInt {
		return nil, false
	}
	return new(big.Int).Set(v.big), true
}

// Items returns a copy of the list elements.
func (v Value) Items() []Value { return append([]Value(nil), v.items...) }

// Fields returns a copy of the map fields in order.
func (v Value) Fields() []Field { return append([]Field(nil), v.fields...) }

// Len returns the number of list items or map fields.
func (v Value) Len() int {
	switch v.typ {
	case TypeList:
		return len(v.items)
	case TypeMap:
		return len(v.fields)
	default:
		return 0
	}
}

// Get returns the first field named key of a map value.
func (v Value) Get(key string) (Value, bool) {
	for _, f := range v.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Index returns list item i.
func (v Value) Index(i int) (Value, bool) {
	if v.typ != TypeList || i < 0 || i >= len(v.items) {
		return Value{}, false
	}
	return v.items[i], true
}
