package payload

import (
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/tidwall/jsonc"
)

// ParseJSON decodes JSON text into a Value, keeping object keys in document
// order. Comments and trailing commas are tolerated. When a key repeats, the
// field stays at its first position and takes the last value, as JSON.parse
// does.
//
// Numbers decode to float64. Big integers cannot be expressed in JSON input;
// build them with BigInt or FromGo.
func ParseJSON(data []byte) (Value, error) {
	clean := jsonc.ToJSON(data)

	iter := jsoniter.ConfigDefault.BorrowIterator(clean)
	defer jsoniter.ConfigDefault.ReturnIterator(iter)

	v := readValue(iter)
	if iter.Error != nil && iter.Error != io.EOF {
		return Value{}, &Error{Kind: KindParse, RuleID: "SHARD-PARSE-001", Message: "invalid JSON payload", Cause: iter.Error}
	}
	// Skipping to the next token sets io.EOF only when nothing but
	// whitespace is left.
	iter.WhatIsNext()
	if iter.Error != io.EOF {
		return Value{}, &Error{Kind: KindParse, RuleID: "SHARD-PARSE-002", Message: "trailing data after JSON value"}
	}
	return v, nil
}

func ok(iter *jsoniter.Iterator) bool {
	return iter.Error == nil || iter.Error == io.EOF
}

func readValue(iter *jsoniter.Iterator) Value {
	switch iter.WhatIsNext() {
	case jsoniter.NilValue:
		iter.ReadNil()
		return Null()
	case jsoniter.BoolValue:
		return Bool(iter.ReadBool())
	case jsoniter.NumberValue:
		n := iter.ReadNumber()
		f, err := n.Float64()
		if err != nil {
			iter.ReportError("ParseJSON", "number out of range: "+string(n))
			return Value{}
		}
		return Number(f)
	case jsoniter.StringValue:
		return String(iter.ReadString())
	case jsoniter.ArrayValue:
		items := []Value{}
		iter.ReadArrayCB(func(it *jsoniter.Iterator) bool {
			items = append(items, readValue(it))
			return ok(it)
		})
		return Value{typ: TypeList, items: items}
	case jsoniter.ObjectValue:
		fields := []Field{}
		index := map[string]int{}
		iter.ReadObjectCB(func(it *jsoniter.Iterator, key string) bool {
			v := readValue(it)
			if i, dup := index[key]; dup {
				fields[i].Value = v
			} else {
				index[key] = len(fields)
				fields = append(fields, Field{Key: key, Value: v})
			}
			return ok(it)
		})
		return Value{typ: TypeMap, fields: fields}
	default:
		iter.ReportError("ParseJSON", "expected a JSON value")
		return Value{}
	}
}
