package value

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Convert coerces v into the representation required by the target primitive
// type. The second return is false when no conversion exists for the
// (source, target) pair or when a parse fails - never a panic, never an error
// value. Same-type conversion is always a no-op success.
//
// Deliberate contracts, all covered by tests:
//   - Numeric -> Boolean: 0 is false, >= 1 is true, negative fails.
//   - String -> Boolean: case-insensitive yes/true/1 and no/false/0.
//   - String -> Int: a leading numeric prefix parses ("456abc" -> 456); a
//     string with no leading digits fails (it does not default to 0).
//   - Numeric <-> Date: the number is a Unix epoch offset in seconds.
//   - Date <-> String: always through the shared process-wide layout.
//   - TypeUndefined rejects every input.
func Convert(v Value, t PrimitiveType) (Value, bool) {
	if v == nil {
		return nil, false
	}
	switch t {
	case TypeInt16, TypeInt32, TypeInt64:
		return toInt(v)
	case TypeDecimal, TypeDouble, TypeFloat:
		return toDouble(v)
	case TypeString:
		return toString(v)
	case TypeBoolean:
		return toBool(v)
	case TypeDate:
		return toDate(v)
	case TypeBinary:
		return toBytes(v)
	default:
		return nil, false
	}
}

func toInt(v Value) (Value, bool) {
	switch val := v.(type) {
	case Int:
		return val, true
	case Double:
		return Int(int64(val)), true
	case Bool:
		if val {
			return Int(1), true
		}
		return Int(0), true
	case String:
		n, ok := leadingInt(string(val))
		if !ok {
			return nil, false
		}
		return Int(n), true
	case Date:
		return Int(time.Time(val).Unix()), true
	default:
		return nil, false
	}
}

func toDouble(v Value) (Value, bool) {
	switch val := v.(type) {
	case Double:
		return val, true
	case Int:
		return Double(float64(val)), true
	case Bool:
		if val {
			return Double(1), true
		}
		return Double(0), true
	case String:
		f, ok := leadingFloat(string(val))
		if !ok {
			return nil, false
		}
		return Double(f), true
	case Date:
		t := time.Time(val)
		return Double(float64(t.UnixNano()) / float64(time.Second)), true
	default:
		return nil, false
	}
}

func toString(v Value) (Value, bool) {
	switch val := v.(type) {
	case String:
		return val, true
	case Int:
		return String(strconv.FormatInt(int64(val), 10)), true
	case Double:
		return String(strconv.FormatFloat(float64(val), 'f', -1, 64)), true
	case Bool:
		return String(strconv.FormatBool(bool(val))), true
	case Date:
		return String(time.Time(val).Format(dateLayout)), true
	case Bytes:
		if !utf8.Valid(val) {
			return nil, false
		}
		return String(val), true
	default:
		return nil, false
	}
}

func toBool(v Value) (Value, bool) {
	switch val := v.(type) {
	case Bool:
		return val, true
	case Int:
		return numericBool(int64(val))
	case Double:
		if val < 0 {
			return nil, false
		}
		return numericBool(int64(val))
	case String:
		switch strings.ToLower(string(val)) {
		case "yes", "true", "1":
			return Bool(true), true
		case "no", "false", "0":
			return Bool(false), true
		}
		return nil, false
	default:
		return nil, false
	}
}

// numericBool maps 0 to false and anything >= 1 to true. Negative numbers
// fail rather than rounding toward either answer.
func numericBool(n int64) (Value, bool) {
	switch {
	case n == 0:
		return Bool(false), true
	case n >= 1:
		return Bool(true), true
	default:
		return nil, false
	}
}

func toDate(v Value) (Value, bool) {
	switch val := v.(type) {
	case Date:
		return val, true
	case Int:
		return Date(time.Unix(int64(val), 0).UTC()), true
	case Double:
		sec := int64(val)
		nsec := int64((float64(val) - float64(sec)) * float64(time.Second))
		return Date(time.Unix(sec, nsec).UTC()), true
	case String:
		t, err := time.Parse(dateLayout, string(val))
		if err != nil {
			return nil, false
		}
		return Date(t), true
	default:
		return nil, false
	}
}

func toBytes(v Value) (Value, bool) {
	switch val := v.(type) {
	case Bytes:
		return val, true
	case String:
		return Bytes(val), true
	default:
		return nil, false
	}
}

// leadingInt parses the longest numeric prefix of s, honoring one optional
// leading sign. No digits at the front means failure.
func leadingInt(s string) (int64, bool) {
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0, false
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// leadingFloat parses the longest floating-point prefix of s.
func leadingFloat(s string) (float64, bool) {
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	start := end
	seenDot := false
	for end < len(s) {
		c := s[end]
		if c >= '0' && c <= '9' {
			end++
			continue
		}
		if c == '.' && !seenDot {
			seenDot = true
			end++
			continue
		}
		break
	}
	if end == start {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(s[:end], "."), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
