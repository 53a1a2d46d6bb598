package schema

import (
	"fmt"
	"sort"

	"github.com/ml-archive/dandy/internal/value"
)

// Annotation keys and sentinel values recognized in entity and property
// annotation maps.
const (
	// AnnotationMapping renames the external JSON key a property maps to.
	AnnotationMapping = "@mapping"
	// NoMappingSentinel as an @mapping value excludes the property from
	// mapping entirely.
	NoMappingSentinel = "@false"
	// AnnotationPrimaryKey names the primary-key property on an entity.
	AnnotationPrimaryKey = "@primaryKey"
	// SingletonSentinel as an @primaryKey value marks the entity as a
	// singleton: at most one record may ever exist.
	SingletonSentinel = "@singleton"
)

// Attribute describes one direct attribute of an entity.
type Attribute struct {
	Name        string
	Type        value.PrimitiveType
	Annotations map[string]string
}

// Relationship describes one direct relationship of an entity.
type Relationship struct {
	Name        string
	Destination string // destination entity name
	ToMany      bool
	Ordered     bool
	Annotations map[string]string
}

// Entity is the immutable schema description of one entity. Parent names a
// superentity; the chain is resolved through the owning Model and must not
// form a cycle (NewModel rejects cyclic models).
type Entity struct {
	Name          string
	Parent        string
	Attributes    []Attribute
	Relationships []Relationship
	Annotations   map[string]string
	Unique        []string // natively uniqueness-constrained property names

	model *Model
}

// Model is a resolved set of entity descriptions. Read-only after NewModel.
type Model struct {
	entities map[string]*Entity
}

// NewModel resolves a set of entity definitions into a Model. Parent
// references must name a defined entity and must not form a cycle;
// relationship destinations must name a defined entity.
func NewModel(entities ...*Entity) (*Model, error) {
	m := &Model{entities: make(map[string]*Entity, len(entities))}
	for _, e := range entities {
		if e.Name == "" {
			return nil, fmt.Errorf("entity with empty name")
		}
		if _, dup := m.entities[e.Name]; dup {
			return nil, fmt.Errorf("duplicate entity %q", e.Name)
		}
		e.model = m
		m.entities[e.Name] = e
	}
	for _, e := range m.entities {
		if e.Parent != "" {
			if _, ok := m.entities[e.Parent]; !ok {
				return nil, fmt.Errorf("entity %q: unknown parent %q", e.Name, e.Parent)
			}
		}
		for _, r := range e.Relationships {
			if _, ok := m.entities[r.Destination]; !ok {
				return nil, fmt.Errorf("entity %q: relationship %q: unknown destination %q", e.Name, r.Name, r.Destination)
			}
		}
	}
	// Reject superentity cycles so chain walks terminate.
	for _, e := range m.entities {
		seen := map[string]bool{e.Name: true}
		for p := e.Super(); p != nil; p = p.Super() {
			if seen[p.Name] {
				return nil, fmt.Errorf("entity %q: superentity cycle through %q", e.Name, p.Name)
			}
			seen[p.Name] = true
		}
	}
	return m, nil
}

// Entity returns the schema description for name, or nil if the name is
// unknown to the model.
func (m *Model) Entity(name string) *Entity {
	if m == nil {
		return nil
	}
	return m.entities[name]
}

// Entities returns every entity description in name order.
func (m *Model) Entities() []*Entity {
	out := make([]*Entity, 0, len(m.entities))
	for _, e := range m.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Super returns the superentity, or nil at the top of the chain.
func (e *Entity) Super() *Entity {
	if e.Parent == "" || e.model == nil {
		return nil
	}
	return e.model.entities[e.Parent]
}

// chain returns the superentity chain ordered most-ancestral first, the
// entity itself last. This ordering is load-bearing: flattened merges apply
// ancestors first so a descendant's entry always overwrites an ancestor's.
func (e *Entity) chain() []*Entity {
	var out []*Entity
	for cur := e; cur != nil; cur = cur.Super() {
		out = append([]*Entity{cur}, out...)
	}
	return out
}

// FlattenedAnnotations merges each level's annotation map ancestor-first,
// descendant-last, so a descendant's value for a key overwrites an
// ancestor's.
func (e *Entity) FlattenedAnnotations() map[string]string {
	out := make(map[string]string)
	for _, level := range e.chain() {
		for k, v := range level.Annotations {
			out[k] = v
		}
	}
	return out
}

// FlattenedAttributes merges attribute descriptions down the superentity
// chain; name collisions resolve in favor of the subclass.
func (e *Entity) FlattenedAttributes() map[string]Attribute {
	out := make(map[string]Attribute)
	for _, level := range e.chain() {
		for _, a := range level.Attributes {
			out[a.Name] = a
		}
	}
	return out
}

// FlattenedRelationships merges relationship descriptions down the
// superentity chain; name collisions resolve in favor of the subclass.
func (e *Entity) FlattenedRelationships() map[string]Relationship {
	out := make(map[string]Relationship)
	for _, level := range e.chain() {
		for _, r := range level.Relationships {
			out[r.Name] = r
		}
	}
	return out
}

// PrimaryKey resolves the primary-key property name for the entity. The
// native uniqueness list wins, checked child-first up the superentity chain;
// the @primaryKey annotation on the flattened annotation map is the
// fallback. Singleton entities have no key property and report false here.
func (e *Entity) PrimaryKey() (string, bool) {
	for cur := e; cur != nil; cur = cur.Super() {
		if len(cur.Unique) > 0 {
			return cur.Unique[0], true
		}
	}
	pk, ok := e.FlattenedAnnotations()[AnnotationPrimaryKey]
	if !ok || pk == SingletonSentinel {
		return "", false
	}
	return pk, true
}

// IsSingleton reports whether the entity carries the singleton sentinel: at
// most one record of it may ever exist.
func (e *Entity) IsSingleton() bool {
	return e.FlattenedAnnotations()[AnnotationPrimaryKey] == SingletonSentinel
}

// IsUnique reports whether materialization must upsert rather than insert:
// true for entities with a resolvable primary key and for singletons.
func (e *Entity) IsUnique() bool {
	if e.IsSingleton() {
		return true
	}
	_, ok := e.PrimaryKey()
	return ok
}
