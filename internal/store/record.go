package store

import (
	"github.com/ml-archive/dandy/internal/schema"
	"github.com/ml-archive/dandy/internal/value"
)

// Record is one live persistent object. Records are created through
// Store.Insert or hydrated by Store.Fetch and stay registered with their
// store until deleted and saved.
type Record struct {
	id     string
	entity *schema.Entity
	store  *Store

	attrs  map[string]value.Value
	toOne  map[string]*Record
	toMany map[string]Collection

	// loaded tracks which relationships have been hydrated from disk.
	loaded map[string]bool

	persisted bool // a row exists on disk
	dirty     bool
	deleted   bool
}

// ID returns the record's store identity.
func (r *Record) ID() string { return r.id }

// Entity returns the record's schema description.
func (r *Record) Entity() *schema.Entity { return r.entity }

// Deleted reports whether the record is tombstoned pending save.
func (r *Record) Deleted() bool { return r.deleted }

// AttributeValue returns the record's current value for an attribute, or nil
// when the attribute is unset or the name is unknown to the schema.
func (r *Record) AttributeValue(name string) value.Value {
	if _, ok := r.entity.FlattenedAttributes()[name]; !ok {
		r.store.log.Warnw("attribute read for unknown property",
			"entity", r.entity.Name, "property", name)
		return nil
	}
	return r.attrs[name]
}

// SetAttributeValue writes an attribute value. Unknown property names are
// rejected with a diagnostic; this replaces string-keyed reflection with a
// schema-checked write. A nil value unsets the attribute.
func (r *Record) SetAttributeValue(name string, v value.Value) bool {
	if _, ok := r.entity.FlattenedAttributes()[name]; !ok {
		r.store.log.Warnw("attribute write for unknown property",
			"entity", r.entity.Name, "property", name)
		return false
	}
	if v == nil {
		delete(r.attrs, name)
	} else {
		r.attrs[name] = v
	}
	r.dirty = true
	return true
}

// ToOne returns the target of a to-one relationship, or nil when unset. The
// relationship is hydrated from disk on first access.
func (r *Record) ToOne(name string) *Record {
	rel, ok := r.relationship(name, false)
	if !ok {
		return nil
	}
	r.hydrate(rel)
	return r.toOne[name]
}

// SetToOne assigns the target of a to-one relationship. A nil target clears
// it.
func (r *Record) SetToOne(name string, target *Record) bool {
	rel, ok := r.relationship(name, false)
	if !ok {
		return false
	}
	r.loaded[rel.Name] = true
	if target == nil {
		delete(r.toOne, name)
	} else {
		r.toOne[name] = target
	}
	r.dirty = true
	return true
}

// ToMany returns the collection backing a to-many relationship, hydrating it
// from disk on first access. An unset relationship returns an empty
// collection of the flavor the schema prescribes.
func (r *Record) ToMany(name string) Collection {
	rel, ok := r.relationship(name, true)
	if !ok {
		return nil
	}
	r.hydrate(rel)
	if c, present := r.toMany[name]; present {
		return c
	}
	if rel.Ordered {
		return NewRecordList()
	}
	return NewRecordSet()
}

// SetToMany replaces the collection backing a to-many relationship. A nil
// collection empties it.
func (r *Record) SetToMany(name string, c Collection) bool {
	rel, ok := r.relationship(name, true)
	if !ok {
		return false
	}
	r.loaded[rel.Name] = true
	if c == nil {
		delete(r.toMany, name)
	} else {
		r.toMany[name] = c
	}
	r.dirty = true
	return true
}

// ClearRelationship interprets a JSON null for the named relationship:
// to-one becomes unset, to-many becomes empty.
func (r *Record) ClearRelationship(name string) bool {
	rels := r.entity.FlattenedRelationships()
	rel, ok := rels[name]
	if !ok {
		r.store.log.Warnw("relationship clear for unknown property",
			"entity", r.entity.Name, "property", name)
		return false
	}
	r.loaded[rel.Name] = true
	if rel.ToMany {
		if rel.Ordered {
			r.toMany[name] = NewRecordList()
		} else {
			r.toMany[name] = NewRecordSet()
		}
	} else {
		delete(r.toOne, name)
	}
	r.dirty = true
	return true
}

// relationship resolves and cardinality-checks a relationship access.
func (r *Record) relationship(name string, wantMany bool) (schema.Relationship, bool) {
	rel, ok := r.entity.FlattenedRelationships()[name]
	if !ok {
		r.store.log.Warnw("relationship access for unknown property",
			"entity", r.entity.Name, "property", name)
		return schema.Relationship{}, false
	}
	if rel.ToMany != wantMany {
		r.store.log.Warnw("relationship access with wrong cardinality",
			"entity", r.entity.Name, "property", name, "toMany", rel.ToMany)
		return schema.Relationship{}, false
	}
	return rel, true
}

// Collection is the read surface shared by the two to-many containers.
type Collection interface {
	// Records returns the members. For RecordList the order is the
	// relationship's order; for RecordSet it is insertion order.
	Records() []*Record
	Len() int
	Ordered() bool
	Contains(r *Record) bool
}

// RecordList is the ordered-sequence container for ordered to-many
// relationships. Duplicates are allowed.
type RecordList struct {
	members []*Record
}

// NewRecordList builds an ordered collection.
func NewRecordList(records ...*Record) *RecordList {
	return &RecordList{members: append([]*Record(nil), records...)}
}

func (l *RecordList) Records() []*Record { return l.members }
func (l *RecordList) Len() int           { return len(l.members) }
func (l *RecordList) Ordered() bool      { return true }

func (l *RecordList) Contains(r *Record) bool {
	for _, m := range l.members {
		if m == r {
			return true
		}
	}
	return false
}

// Append adds a record to the end of the list.
func (l *RecordList) Append(r *Record) {
	l.members = append(l.members, r)
}

// RecordSet is the unordered container for plain to-many relationships.
// Members are unique by record identity; insertion order is retained only to
// keep iteration deterministic.
type RecordSet struct {
	members []*Record
	present map[string]bool
}

// NewRecordSet builds an unordered collection, dropping duplicates.
func NewRecordSet(records ...*Record) *RecordSet {
	s := &RecordSet{present: make(map[string]bool)}
	for _, r := range records {
		s.Add(r)
	}
	return s
}

func (s *RecordSet) Records() []*Record { return s.members }
func (s *RecordSet) Len() int           { return len(s.members) }
func (s *RecordSet) Ordered() bool      { return false }

func (s *RecordSet) Contains(r *Record) bool {
	return r != nil && s.present[r.id]
}

// Add inserts a record unless it is already a member.
func (s *RecordSet) Add(r *Record) {
	if r == nil || s.present[r.id] {
		return
	}
	s.present[r.id] = true
	s.members = append(s.members, r)
}
