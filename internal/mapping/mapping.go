// Package mapping derives and caches per-entity mappings between external
// JSON keys and internal schema properties.
package mapping

import (
	"go.uber.org/zap"

	"github.com/ml-archive/dandy/internal/schema"
)

// Mapping maps an external key (the JSON key expected in incoming and
// outgoing documents) to the description of the internal property it feeds.
// Properties annotated with the no-mapping sentinel are absent entirely:
// invisible to both materialization and serialization.
type Mapping map[string]schema.PropertyDescription

// Build derives the mapping for an entity from its flattened attributes and
// relationships. An @mapping annotation on a property renames its external
// key; the "@false" sentinel excludes the property; everything else maps
// under its own name.
func Build(e *schema.Entity, log *zap.SugaredLogger) Mapping {
	m := make(Mapping)

	for name, attr := range e.FlattenedAttributes() {
		key, ok := externalKey(name, attr.Annotations)
		if !ok {
			continue
		}
		m[key] = schema.Describe(attr, log)
	}
	for name, rel := range e.FlattenedRelationships() {
		key, ok := externalKey(name, rel.Annotations)
		if !ok {
			continue
		}
		m[key] = schema.Describe(rel, log)
	}

	return m
}

// externalKey resolves the mapped key for a property, or ok=false when the
// property is excluded from mapping.
func externalKey(name string, annotations map[string]string) (string, bool) {
	rename, present := annotations[schema.AnnotationMapping]
	if !present {
		return name, true
	}
	if rename == schema.NoMappingSentinel {
		return "", false
	}
	return rename, true
}

// DescriptionForProperty finds the mapping entry whose underlying property
// name is name, returning its external key and description. The property may
// be mapped under a renamed key, so callers cannot index by name directly.
func (m Mapping) DescriptionForProperty(name string) (string, schema.PropertyDescription, bool) {
	for key, desc := range m {
		if desc.Name == name {
			return key, desc, true
		}
	}
	return "", schema.PropertyDescription{}, false
}
