package payload

import (
	"encoding"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// maxSafeInteger is the largest integer a float64 number holds exactly (2^53).
const maxSafeInteger = 1 << 53

var (
	valueType         = reflect.TypeOf(Value{})
	bigIntType        = reflect.TypeOf(big.Int{})
	jsonNumberType    = reflect.TypeOf(json.Number(""))
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

// FromGo converts an ordinary Go value into a Value.
//
// Conversion follows encoding/json conventions: struct fields in declaration
// order with json tags honored, []byte as base64, nil slices/maps/pointers as
// null, encoding.TextMarshaler as its text. Go maps have no order, so their keys
// are sorted. *big.Int becomes a big integer. Integers larger than 2^53 in
// magnitude are rejected rather than silently rounded; pass a *big.Int instead.
// Cycles, channels, functions and complex numbers are serialization errors.
func FromGo(x any) (Value, error) {
	c := converter{active: make(map[visit]struct{})}
	return c.convert(reflect.ValueOf(x), "$")
}

type visit struct {
	ptr uintptr
	typ reflect.Type
	len int
}

type converter struct {
	active map[visit]struct{}
}

func (c *converter) enter(rv reflect.Value, n int, path string) (func(), error) {
	k := visit{ptr: rv.Pointer(), typ: rv.Type(), len: n}
	if _, cyclic := c.active[k]; cyclic {
		return nil, serializationError("SHARD-SER-003", path, "cyclic reference")
	}
	c.active[k] = struct{}{}
	return func() { delete(c.active, k) }, nil
}

func (c *converter) convert(rv reflect.Value, path string) (Value, error) {
	if !rv.IsValid() {
		return Null(), nil
	}
	switch rv.Kind() {
	case reflect.Interface:
		if rv.IsNil() {
			return Null(), nil
		}
		return c.convert(rv.Elem(), path)
	case reflect.Pointer:
		if rv.IsNil() {
			return Null(), nil
		}
	}

	t := rv.Type()
	switch {
	case t == valueType && rv.CanInterface():
		return rv.Interface().(Value), nil
	case t == bigIntType && rv.CanInterface():
		i := rv.Interface().(big.Int)
		return BigInt(&i), nil
	case t.Kind() == reflect.Pointer && t.Elem() == bigIntType && rv.CanInterface():
		return BigInt(rv.Interface().(*big.Int)), nil
	case t == jsonNumberType:
		f, err := strconv.ParseFloat(rv.String(), 64)
		if err != nil {
			return Value{}, &Error{Kind: KindSerialization, RuleID: "SHARD-SER-002", Path: path, Message: "invalid json.Number", Cause: err}
		}
		return Number(f), nil
	case rv.CanInterface() && t.Implements(textMarshalerType):
		text, err := rv.Interface().(encoding.TextMarshaler).MarshalText()
		if err != nil {
			return Value{}, &Error{Kind: KindSerialization, RuleID: "SHARD-SER-007", Path: path, Message: "MarshalText failed", Cause: err}
		}
		return String(string(text)), nil
	}

	switch rv.Kind() {
	case reflect.Pointer:
		leave, err := c.enter(rv, 0, path)
		if err != nil {
			return Value{}, err
		}
		defer leave()
		return c.convert(rv.Elem(), path)
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i := rv.Int()
		if i > maxSafeInteger || i < -maxSafeInteger {
			return Value{}, serializationError("SHARD-SER-005", path, "integer "+strconv.FormatInt(i, 10)+" exceeds 2^53")
		}
		return Number(float64(i)), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > maxSafeInteger {
			return Value{}, serializationError("SHARD-SER-005", path, "integer "+strconv.FormatUint(u, 10)+" exceeds 2^53")
		}
		return Number(float64(u)), nil
	case reflect.Float32, reflect.Float64:
		return Number(rv.Float()), nil
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Slice:
		if rv.IsNil() {
			return Null(), nil
		}
		if t.Elem().Kind() == reflect.Uint8 && !reflect.PointerTo(t.Elem()).Implements(textMarshalerType) {
			return String(base64.StdEncoding.EncodeToString(rv.Bytes())), nil
		}
		if rv.Len() > 0 {
			leave, err := c.enter(rv, rv.Len(), path)
			if err != nil {
				return Value{}, err
			}
			defer leave()
		}
		return c.list(rv, path)
	case reflect.Array:
		return c.list(rv, path)
	case reflect.Map:
		if rv.IsNil() {
			return Null(), nil
		}
		leave, err := c.enter(rv, 0, path)
		if err != nil {
			return Value{}, err
		}
		defer leave()
		return c.mapValue(rv, path)
	case reflect.Struct:
		var fields []Field
		names := map[string]struct{}{}
		if err := c.structFields(rv, path, &fields, names); err != nil {
			return Value{}, err
		}
		return Value{typ: TypeMap, fields: fields}, nil
	default:
		return Value{}, serializationError("SHARD-SER-002", path, "unsupported Go kind "+rv.Kind().String())
	}
}

func (c *converter) list(rv reflect.Value, path string) (Value, error) {
	items := make([]Value, rv.Len())
	for i := range items {
		v, err := c.convert(rv.Index(i), path+"["+strconv.Itoa(i)+"]")
		if err != nil {
			return Value{}, err
		}
		items[i] = v
	}
	return Value{typ: TypeList, items: items}, nil
}

func (c *converter) mapValue(rv reflect.Value, path string) (Value, error) {
	type entry struct {
		key string
		val reflect.Value
	}
	entries := make([]entry, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k := iter.Key()
		var key string
		switch k.Kind() {
		case reflect.String:
			key = k.String()
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			key = strconv.FormatInt(k.Int(), 10)
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			key = strconv.FormatUint(k.Uint(), 10)
		default:
			return Value{}, serializationError("SHARD-SER-006", path, "unsupported map key type "+k.Type().String())
		}
		entries = append(entries, entry{key: key, val: iter.Value()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	fields := make([]Field, len(entries))
	for i, e := range entries {
		v, err := c.convert(e.val, path+"."+e.key)
		if err != nil {
			return Value{}, err
		}
		fields[i] = Field{Key: e.key, Value: v}
	}
	return Value{typ: TypeMap, fields: fields}, nil
}

// structFields appends exported fields in declaration order. Untagged embedded
// structs are flattened; on a name collision the first field wins.
func (c *converter) structFields(rv reflect.Value, path string, fields *[]Field, names map[string]struct{}) error {
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag := sf.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		fv := rv.Field(i)

		if sf.Anonymous && name == "" {
			ft := sf.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				if fv.Kind() == reflect.Pointer {
					if fv.IsNil() {
						continue
					}
					fv = fv.Elem()
				}
				if err := c.structFields(fv, path, fields, names); err != nil {
					return err
				}
				continue
			}
		}
		if !sf.IsExported() {
			continue
		}
		if name == "" {
			name = sf.Name
		}
		if hasOption(opts, "omitempty") && isEmptyValue(fv) {
			continue
		}
		if _, dup := names[name]; dup {
			continue
		}
		v, err := c.convert(fv, path+"."+name)
		if err != nil {
			return err
		}
		names[name] = struct{}{}
		*fields = append(*fields, Field{Key: name, Value: v})
	}
	return nil
}

func hasOption(opts, want string) bool {
	for opts != "" {
		var o string
		o, opts, _ = strings.Cut(opts, ",")
		if o == want {
			return true
		}
	}
	return false
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Pointer:
		return v.IsNil()
	}
	return false
}
