package dandy

import (
	"github.com/ml-archive/dandy/internal/schema"
	"github.com/ml-archive/dandy/internal/store"
	"github.com/ml-archive/dandy/internal/value"
)

// Serialize walks a record and emits a JSON-compatible object. Attributes
// with nil values are omitted entirely. Relationships appear only when named
// in including, directly or as a keypath prefix; nested keypaths drive
// recursion. A record that yields zero keys cannot be usefully serialized
// and returns nil.
//
// Two deliberate asymmetries, both load-bearing for callers:
//   - a nil to-one relationship serializes to {}, not an omission, not null;
//   - an empty to-many relationship serializes to [{}], not [].
func (d *Dandy) Serialize(record *store.Record, including []string) value.Object {
	if record == nil {
		return nil
	}
	_, m, ok := d.entityAndMapping(record.Entity().Name)
	if !ok {
		return nil
	}

	out := make(value.Object)
	for externalKey, desc := range m {
		switch desc.Kind {
		case schema.KindAttribute:
			v := record.AttributeValue(desc.Name)
			if v == nil {
				continue // nil attributes emit no key at all
			}
			out[externalKey] = v

		case schema.KindRelationship:
			if !relationshipRequested(desc.Name, including) {
				continue
			}
			nested := nestedSerializationTargets(desc.Name, including)
			if desc.ToMany {
				out[externalKey] = d.serializeToMany(record, desc, nested)
			} else {
				out[externalKey] = d.serializeToOne(record, desc, nested)
			}
		}
	}

	if len(out) == 0 {
		d.log.Warnw("record serialized to zero keys", "entity", record.Entity().Name)
		return nil
	}
	return out
}

// SerializeAll serializes a batch, skipping records that fail individually.
// It returns nil when zero records produced output.
func (d *Dandy) SerializeAll(records []*store.Record, including []string) []value.Object {
	var out []value.Object
	for _, r := range records {
		if obj := d.Serialize(r, including); obj != nil {
			out = append(out, obj)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (d *Dandy) serializeToOne(record *store.Record, desc schema.PropertyDescription, nested []string) value.Value {
	target := record.ToOne(desc.Name)
	if target == nil {
		return value.Object{}
	}
	obj := d.Serialize(target, nested)
	if obj == nil {
		return value.Object{}
	}
	return obj
}

func (d *Dandy) serializeToMany(record *store.Record, desc schema.PropertyDescription, nested []string) value.Value {
	collection := record.ToMany(desc.Name)
	if collection == nil || collection.Len() == 0 {
		return value.Array{value.Object{}}
	}

	var out value.Array
	for _, member := range collection.Records() {
		if obj := d.Serialize(member, nested); obj != nil {
			out = append(out, obj)
		}
	}
	if len(out) == 0 {
		return value.Array{value.Object{}}
	}
	return out
}

// relationshipRequested reports whether the caller asked for the
// relationship, by exact name or as the head of a dotted keypath.
func relationshipRequested(name string, including []string) bool {
	for _, path := range including {
		if path == name {
			return true
		}
	}
	return nestedSerializationTargets(name, including) != nil
}
