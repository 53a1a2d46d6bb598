package store

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ml-archive/dandy/internal/value"
)

// taggedValue is the storage form of an attribute value: a type tag plus a
// JSON-friendly payload. Field order is fixed by the struct, so the encoded
// text is deterministic and usable for equality matching in SQL.
type taggedValue struct {
	T string `json:"t"`
	V any    `json:"v,omitempty"`
}

// storedDateLayout pins the persistence format for dates. The process-wide
// display formatter is caller-configurable; rows on disk are not.
const storedDateLayout = time.RFC3339Nano

// encodeValue renders a scalar attribute value as tagged JSON text. Object
// and Array are not storable attribute values.
func encodeValue(v value.Value) (string, error) {
	var tagged taggedValue
	switch val := v.(type) {
	case value.String:
		tagged = taggedValue{T: "String", V: string(val)}
	case value.Int:
		tagged = taggedValue{T: "Int", V: int64(val)}
	case value.Double:
		tagged = taggedValue{T: "Double", V: float64(val)}
	case value.Bool:
		tagged = taggedValue{T: "Bool", V: bool(val)}
	case value.Date:
		tagged = taggedValue{T: "Date", V: time.Time(val).UTC().Format(storedDateLayout)}
	case value.Bytes:
		tagged = taggedValue{T: "Bytes", V: base64.StdEncoding.EncodeToString(val)}
	case value.Null:
		tagged = taggedValue{T: "Null"}
	default:
		return "", fmt.Errorf("unstorable attribute value type %T", v)
	}

	data, err := json.Marshal(tagged)
	if err != nil {
		return "", fmt.Errorf("encode attribute value: %w", err)
	}
	return string(data), nil
}

// decodeValue parses tagged JSON text back into a scalar value.
func decodeValue(s string) (value.Value, error) {
	var tagged struct {
		T string          `json:"t"`
		V json.RawMessage `json:"v"`
	}
	if err := json.Unmarshal([]byte(s), &tagged); err != nil {
		return nil, fmt.Errorf("decode attribute value: %w", err)
	}

	switch tagged.T {
	case "String":
		var v string
		if err := json.Unmarshal(tagged.V, &v); err != nil {
			return nil, err
		}
		return value.String(v), nil
	case "Int":
		var v int64
		if err := json.Unmarshal(tagged.V, &v); err != nil {
			return nil, err
		}
		return value.Int(v), nil
	case "Double":
		var v float64
		if err := json.Unmarshal(tagged.V, &v); err != nil {
			return nil, err
		}
		return value.Double(v), nil
	case "Bool":
		var v bool
		if err := json.Unmarshal(tagged.V, &v); err != nil {
			return nil, err
		}
		return value.Bool(v), nil
	case "Date":
		var v string
		if err := json.Unmarshal(tagged.V, &v); err != nil {
			return nil, err
		}
		t, err := time.Parse(storedDateLayout, v)
		if err != nil {
			return nil, fmt.Errorf("decode stored date: %w", err)
		}
		return value.Date(t), nil
	case "Bytes":
		var v string
		if err := json.Unmarshal(tagged.V, &v); err != nil {
			return nil, err
		}
		raw, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("decode stored bytes: %w", err)
		}
		return value.Bytes(raw), nil
	case "Null":
		return value.Null{}, nil
	default:
		return nil, fmt.Errorf("unknown stored value tag %q", tagged.T)
	}
}
