package schema

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ml-archive/dandy/internal/value"
)

// PropertyKind classifies the source of a PropertyDescription.
type PropertyKind int

const (
	KindUnknown PropertyKind = iota
	KindAttribute
	KindRelationship
)

var kindNames = map[PropertyKind]string{
	KindUnknown:      "unknown",
	KindAttribute:    "attribute",
	KindRelationship: "relationship",
}

func (k PropertyKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (k PropertyKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *PropertyKind) UnmarshalText(text []byte) error {
	for kind, name := range kindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown property kind %q", string(text))
}

// PropertyDescription is a normalized, comparable snapshot of one attribute
// or relationship. Equality is full-tuple: two descriptions are equal iff
// every field matches, which plain struct comparison gives us. The zero value
// is the Unknown fallback.
type PropertyDescription struct {
	Name        string              `json:"name"`
	Kind        PropertyKind        `json:"kind"`
	Type        value.PrimitiveType `json:"type,omitempty"`
	Destination string              `json:"destination,omitempty"`
	Ordered     bool                `json:"ordered,omitempty"`
	ToMany      bool                `json:"to_many,omitempty"`
}

// Describe normalizes an attribute or relationship description. It is total:
// a source that is neither yields the Unknown fallback plus a diagnostic,
// never an error. The fallback is defensive, not a valid operating state.
func Describe(source any, log *zap.SugaredLogger) PropertyDescription {
	switch src := source.(type) {
	case Attribute:
		return PropertyDescription{
			Name: src.Name,
			Kind: KindAttribute,
			Type: src.Type,
		}
	case Relationship:
		return PropertyDescription{
			Name:        src.Name,
			Kind:        KindRelationship,
			Destination: src.Destination,
			Ordered:     src.Ordered,
			ToMany:      src.ToMany,
		}
	default:
		if log != nil {
			log.Warnw("property description from unrecognized source", "source", fmt.Sprintf("%T", source))
		}
		return PropertyDescription{Kind: KindUnknown}
	}
}
