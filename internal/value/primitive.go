package value

import "fmt"

// PrimitiveType tags the storage type of a schema attribute.
type PrimitiveType int

const (
	TypeUndefined PrimitiveType = iota
	TypeInt16
	TypeInt32
	TypeInt64
	TypeDecimal
	TypeDouble
	TypeFloat
	TypeString
	TypeBoolean
	TypeDate
	TypeBinary
)

var primitiveNames = map[PrimitiveType]string{
	TypeUndefined: "Undefined",
	TypeInt16:     "Int16",
	TypeInt32:     "Int32",
	TypeInt64:     "Int64",
	TypeDecimal:   "Decimal",
	TypeDouble:    "Double",
	TypeFloat:     "Float",
	TypeString:    "String",
	TypeBoolean:   "Boolean",
	TypeDate:      "Date",
	TypeBinary:    "Binary",
}

func (t PrimitiveType) String() string {
	if name, ok := primitiveNames[t]; ok {
		return name
	}
	return "Undefined"
}

// ParsePrimitiveType resolves a type tag name as written in a model file.
// Unknown names resolve to TypeUndefined with ok=false.
func ParsePrimitiveType(name string) (PrimitiveType, bool) {
	for t, n := range primitiveNames {
		if n == name {
			return t, true
		}
	}
	return TypeUndefined, false
}

// MarshalText implements encoding.TextMarshaler so archived descriptors stay
// human-inspectable.
func (t PrimitiveType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *PrimitiveType) UnmarshalText(text []byte) error {
	parsed, ok := ParsePrimitiveType(string(text))
	if !ok {
		return fmt.Errorf("unknown primitive type %q", string(text))
	}
	*t = parsed
	return nil
}
