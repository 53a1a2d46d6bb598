package value

import (
	"encoding/json"
	"fmt"
	"time"
)

// Value is a sealed interface representing the constrained set of value types
// that can cross the mapping boundary. Only Null, String, Int, Double, Bool,
// Date, Bytes, Array, and Object implement it. Attribute values on records are
// always one of the scalar variants; Object and Array only appear in incoming
// and outgoing JSON structures.
type Value interface {
	value() // Sealed - only these types implement it
}

// Null represents a JSON null. Using an explicit type keeps nil out of the
// union: a missing key is Go nil, an explicit null is Null{}.
type Null struct{}

func (Null) value() {}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// String represents a string value.
type String string

func (String) value() {}

// Int represents an integer value. Always int64 internally; the narrower
// Int16/Int32 primitive types share this representation.
type Int int64

func (Int) value() {}

// Double represents a floating-point value. Decimal and Float primitive
// types share this representation.
type Double float64

func (Double) value() {}

// Bool represents a boolean value.
type Bool bool

func (Bool) value() {}

// Date represents a point in time.
type Date time.Time

func (Date) value() {}

// Bytes represents a binary blob.
type Bytes []byte

func (Bytes) value() {}

// Array represents an ordered list of values.
type Array []Value

func (Array) value() {}

// Object represents a string-keyed map of values. Incoming JSON documents and
// serializer output are Objects.
type Object map[string]Value

func (Object) value() {}

// FromAny converts a plain Go value (as produced by encoding/json with
// UseNumber, or built by hand) into a Value. Unsupported dynamic types are an
// error, never a panic.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case int:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case float32:
		return Double(val), nil
	case float64:
		return Double(val), nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("number out of range: %s", val)
		}
		return Double(f), nil
	case time.Time:
		return Date(val), nil
	case []byte:
		return Bytes(val), nil
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			ev, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = ev
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			ev, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = ev
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// MustObject converts a map[string]any into an Object and panics on
// unsupported types. Intended for hand-written literals in tests and examples.
func MustObject(m map[string]any) Object {
	v, err := FromAny(m)
	if err != nil {
		panic(err)
	}
	return v.(Object)
}

// ToAny converts a Value back into plain Go types suitable for encoding/json.
// Dates render through the shared formatter so round-trips stay consistent
// within one process lifetime.
func ToAny(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Double:
		return float64(val)
	case Bool:
		return bool(val)
	case Date:
		return time.Time(val).Format(DateFormat())
	case Bytes:
		return []byte(val)
	case Array:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToAny(elem)
		}
		return out
	case Object:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = ToAny(elem)
		}
		return out
	default:
		return nil
	}
}

// Equal reports whether two values are equal. Dates compare by instant,
// Bytes by content, Object and Array structurally.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case Null:
		_, ok := b.(Null)
		return ok
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Int:
		bv, ok := b.(Int)
		return ok && av == bv
	case Double:
		bv, ok := b.(Double)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Date:
		bv, ok := b.(Date)
		return ok && time.Time(av).Equal(time.Time(bv))
	case Bytes:
		bv, ok := b.(Bytes)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	case Array:
		bv, ok := b.(Array)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Object:
		bv, ok := b.(Object)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, elem := range av {
			other, present := bv[k]
			if !present || !Equal(elem, other) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
