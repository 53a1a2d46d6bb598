package dandy

import (
	"fmt"

	"github.com/ml-archive/dandy/internal/mapping"
	"github.com/ml-archive/dandy/internal/schema"
	"github.com/ml-archive/dandy/internal/store"
	"github.com/ml-archive/dandy/internal/value"
)

// session tracks records already being materialized in the current top-level
// call, keyed by entity and primary-key value. Revisiting an in-flight pair
// returns the existing record instead of recursing, which keeps cyclic
// schemas fed cyclic JSON from looping forever.
type session struct {
	inFlight map[string]*store.Record
}

func newSession() *session {
	return &session{inFlight: make(map[string]*store.Record)}
}

func sessionKey(entityName string, pk value.Value) string {
	return fmt.Sprintf("%s\x00%v", entityName, value.ToAny(pk))
}

// Materialize creates-or-fetches a record of the named entity from a JSON
// object and populates it, recursively materializing nested relationships.
// Every failure mode is non-fatal and logged; nil means no record could be
// produced at all.
func (d *Dandy) Materialize(entityName string, json value.Object) *store.Record {
	return d.materialize(entityName, json, newSession())
}

// MaterializeAll materializes one record per element of a JSON array.
// Individual element failures are skipped with a diagnostic; the call
// returns nil only when zero elements succeeded.
func (d *Dandy) MaterializeAll(entityName string, json value.Array) []*store.Record {
	sess := newSession()
	var out []*store.Record
	for i, elem := range json {
		obj, ok := elem.(value.Object)
		if !ok {
			d.log.Warnw("array element is not an object", "entity", entityName, "index", i)
			continue
		}
		if r := d.materialize(entityName, obj, sess); r != nil {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (d *Dandy) materialize(entityName string, json value.Object, sess *session) *store.Record {
	e, m, ok := d.entityAndMapping(entityName)
	if !ok {
		return nil
	}

	record, ok := d.resolveRecord(e, m, json, sess)
	if !ok {
		return nil
	}

	d.build(record, m, json, sess)

	if finalize, ok := d.finalizers[e.Name]; ok {
		finalize(record, json)
	}
	return record
}

// resolveRecord finds or creates the record the JSON feeds. Unique entities
// upsert by primary key; singletons reuse the sole existing record;
// everything else inserts unconditionally.
func (d *Dandy) resolveRecord(e *schema.Entity, m mapping.Mapping, json value.Object, sess *session) (*store.Record, bool) {
	if e.IsSingleton() {
		key := sessionKey(e.Name, nil)
		if r, visiting := sess.inFlight[key]; visiting {
			return r, true
		}
		existing, err := d.store.Fetch(e, nil)
		if err != nil {
			d.log.Warnw("singleton fetch failed", "entity", e.Name, "error", err)
			return nil, false
		}
		var r *store.Record
		if len(existing) > 0 {
			r = existing[0]
		} else {
			r = d.store.Insert(e)
		}
		sess.inFlight[key] = r
		return r, true
	}

	pkProperty, unique := e.PrimaryKey()
	if !unique {
		return d.store.Insert(e), true
	}

	// The primary key may itself be renamed, so resolve its external key
	// through the mapping.
	externalKey, desc, ok := m.DescriptionForProperty(pkProperty)
	if !ok {
		d.log.Warnw("primary key property is not mapped", "entity", e.Name, "property", pkProperty)
		return nil, false
	}
	raw, found := resolveKeyPath(json, externalKey)
	if !found {
		d.log.Warnw("json lacks a primary key value", "entity", e.Name, "key", externalKey)
		return nil, false
	}
	pk, ok := value.Convert(raw, desc.Type)
	if !ok {
		d.log.Warnw("primary key value failed coercion", "entity", e.Name, "key", externalKey)
		return nil, false
	}

	key := sessionKey(e.Name, pk)
	if r, visiting := sess.inFlight[key]; visiting {
		return r, true
	}

	existing, err := d.store.Fetch(e, &store.Predicate{Property: pkProperty, Value: pk})
	if err != nil {
		d.log.Warnw("primary key fetch failed", "entity", e.Name, "error", err)
		return nil, false
	}
	var r *store.Record
	if len(existing) > 0 {
		r = existing[0]
	} else {
		r = d.store.Insert(e)
		r.SetAttributeValue(pkProperty, pk)
	}
	sess.inFlight[key] = r
	return r, true
}

// Build maps a JSON object onto an already-resolved record in place. Keys
// absent from the JSON leave the corresponding properties untouched:
// absence is not erasure.
func (d *Dandy) Build(record *store.Record, json value.Object) *store.Record {
	_, m, ok := d.entityAndMapping(record.Entity().Name)
	if !ok {
		return record
	}
	d.build(record, m, json, newSession())
	return record
}

func (d *Dandy) build(record *store.Record, m mapping.Mapping, json value.Object, sess *session) {
	for externalKey, desc := range m {
		raw, found := resolveKeyPath(json, externalKey)
		if !found {
			continue
		}

		switch desc.Kind {
		case schema.KindAttribute:
			coerced, ok := value.Convert(raw, desc.Type)
			if !ok {
				// Failed coercion leaves the existing value in place.
				d.log.Warnw("attribute value failed coercion",
					"entity", record.Entity().Name, "key", externalKey, "type", desc.Type)
				continue
			}
			record.SetAttributeValue(desc.Name, coerced)

		case schema.KindRelationship:
			if _, isNull := raw.(value.Null); isNull {
				record.ClearRelationship(desc.Name)
				continue
			}
			d.buildRelationship(desc, record, raw, sess)

		default:
			d.log.Warnw("mapping entry with unknown kind skipped",
				"entity", record.Entity().Name, "key", externalKey)
		}
	}
}

// BuildRelationship materializes a relationship's JSON onto owner. Shape
// validation is strict: an object feeds only to-one, an array only to-many;
// mismatches leave the relationship unmodified with a diagnostic. The owner
// is always returned, changed or not.
func (d *Dandy) BuildRelationship(desc schema.PropertyDescription, owner *store.Record, json value.Value) *store.Record {
	return d.buildRelationship(desc, owner, json, newSession())
}

func (d *Dandy) buildRelationship(desc schema.PropertyDescription, owner *store.Record, json value.Value, sess *session) *store.Record {
	dest := d.store.Model().Entity(desc.Destination)
	if dest == nil {
		d.log.Warnw("relationship destination is not in the model",
			"entity", owner.Entity().Name, "property", desc.Name, "destination", desc.Destination)
		return owner
	}

	switch payload := json.(type) {
	case value.Null:
		owner.ClearRelationship(desc.Name)

	case value.Object:
		if desc.ToMany {
			d.log.Warnw("object rejected for to-many relationship",
				"entity", owner.Entity().Name, "property", desc.Name)
			return owner
		}
		child := d.materialize(dest.Name, payload, sess)
		if child == nil {
			// Failed target materialization leaves the relationship as it was.
			return owner
		}
		owner.SetToOne(desc.Name, child)

	case value.Array:
		if !desc.ToMany {
			d.log.Warnw("array rejected for to-one relationship",
				"entity", owner.Entity().Name, "property", desc.Name)
			return owner
		}
		var members []*store.Record
		for i, elem := range payload {
			obj, ok := elem.(value.Object)
			if !ok {
				d.log.Warnw("relationship array element is not an object",
					"entity", owner.Entity().Name, "property", desc.Name, "index", i)
				continue
			}
			child := d.materialize(dest.Name, obj, sess)
			if child == nil {
				d.log.Warnw("relationship array element skipped",
					"entity", owner.Entity().Name, "property", desc.Name, "index", i)
				continue
			}
			members = append(members, child)
		}
		if desc.Ordered {
			owner.SetToMany(desc.Name, store.NewRecordList(members...))
		} else {
			owner.SetToMany(desc.Name, store.NewRecordSet(members...))
		}

	default:
		d.log.Warnw("relationship value has unusable shape",
			"entity", owner.Entity().Name, "property", desc.Name, "shape", fmt.Sprintf("%T", json))
	}

	return owner
}
