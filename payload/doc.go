// Package payload models the structured values that are encoded into shards
// and defines their canonical serialization.
//
// A Value is a closed tagged variant (null, bool, number, string, big integer,
// list, map). Map fields keep their insertion order; this package never sorts
// keys of a Value. Canonicalize renders a Value as compact JSON text that is
// byte-compatible with JSON.stringify, except that big integers are rendered as
// the JSON string "<digits>n" and non-finite numbers are rejected.
package payload
