package dandy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ml-archive/dandy/internal/schema"
	"github.com/ml-archive/dandy/internal/store"
	"github.com/ml-archive/dandy/internal/value"
)

func TestMaterializeWritesMappedAttributes(t *testing.T) {
	d := newTestDandy(t)

	r := d.Materialize("Dandy", value.MustObject(map[string]any{
		"id":   "WILDE",
		"name": "Oscar Wilde",
	}))
	require.NotNil(t, r)
	assert.True(t, value.Equal(value.String("WILDE"), r.AttributeValue("id")))
	assert.True(t, value.Equal(value.String("Oscar Wilde"), r.AttributeValue("name")))
}

func TestMaterializeUnknownEntityFails(t *testing.T) {
	d := newTestDandy(t)

	assert.Nil(t, d.Materialize("Anomaly", value.Object{}))
}

func TestMaterializeUniqueEntityRequiresPrimaryKey(t *testing.T) {
	d := newTestDandy(t)

	r := d.Materialize("Dandy", value.MustObject(map[string]any{"name": "no key"}))
	assert.Nil(t, r, "a primary key is mandatory for unique entities")
}

func TestMaterializeUpsertIsIdempotent(t *testing.T) {
	d := newTestDandy(t)

	first := d.Materialize("Dandy", value.MustObject(map[string]any{"id": "WILDE"}))
	second := d.Materialize("Dandy", value.MustObject(map[string]any{"id": "WILDE", "name": "Oscar"}))
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Same(t, first, second)

	records, err := d.Store().Fetch(d.Store().Model().Entity("Dandy"), nil)
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.True(t, value.Equal(value.String("Oscar"), first.AttributeValue("name")),
		"second materialization updates the same record")
}

func TestMaterializeNonUniqueEntityAlwaysInserts(t *testing.T) {
	d := newTestDandy(t)

	doc := value.MustObject(map[string]any{"details": "delicious"})
	require.NotNil(t, d.Materialize("Gossip", doc))
	require.NotNil(t, d.Materialize("Gossip", doc))

	records, err := d.Store().Fetch(d.Store().Model().Entity("Gossip"), nil)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestMaterializeSingleton(t *testing.T) {
	d := newTestDandy(t)

	first := d.Materialize("Space", value.MustObject(map[string]any{"name": "outer", "spaceState": true}))
	second := d.Materialize("Space", value.MustObject(map[string]any{"name": "inner"}))
	require.NotNil(t, first)
	assert.Same(t, first, second, "at most one record of a singleton entity may exist")
	assert.True(t, value.Equal(value.String("inner"), first.AttributeValue("name")))
}

func TestMaterializeRenamedKey(t *testing.T) {
	d := newTestDandy(t)

	r := d.Materialize("Hat", value.MustObject(map[string]any{
		"name":  "bowler",
		"style": "billycock",
	}))
	require.NotNil(t, r)
	assert.True(t, value.Equal(value.String("billycock"), r.AttributeValue("styleDescription")))
}

func TestMaterializeIgnoresExcludedProperty(t *testing.T) {
	d := newTestDandy(t)

	r := d.Materialize("Gossip", value.MustObject(map[string]any{
		"details": "juicy",
		"secret":  "not for mapping",
	}))
	require.NotNil(t, r)
	assert.Nil(t, r.AttributeValue("secret"), "no-mapping properties are invisible to materialization")
}

func TestMaterializeAbsenceIsNotErasure(t *testing.T) {
	d := newTestDandy(t)

	r := d.Materialize("Dandy", value.MustObject(map[string]any{"id": "WILDE", "name": "Oscar"}))
	require.NotNil(t, r)

	again := d.Materialize("Dandy", value.MustObject(map[string]any{"id": "WILDE"}))
	require.Same(t, r, again)
	assert.True(t, value.Equal(value.String("Oscar"), r.AttributeValue("name")),
		"keys absent from the JSON leave properties untouched")
}

func TestBuildCoercionFailureLeavesValue(t *testing.T) {
	d := newTestDandy(t)

	r := d.Materialize("Space", value.MustObject(map[string]any{"spaceState": true}))
	require.NotNil(t, r)

	d.Build(r, value.MustObject(map[string]any{"spaceState": "undecided"}))
	assert.True(t, value.Equal(value.Bool(true), r.AttributeValue("spaceState")),
		"failed coercion leaves the existing value in place")
}

func TestBuildCoercesAttributeTypes(t *testing.T) {
	d := newTestDandy(t)

	r := d.Materialize("Space", value.MustObject(map[string]any{"spaceState": "yes"}))
	require.NotNil(t, r)
	assert.True(t, value.Equal(value.Bool(true), r.AttributeValue("spaceState")))
}

func TestBuildDottedKeypathReachesNestedJSON(t *testing.T) {
	model, err := schema.NewModel(
		&schema.Entity{
			Name: "Profile",
			Attributes: []schema.Attribute{
				{Name: "alias", Type: value.TypeString,
					Annotations: map[string]string{schema.AnnotationMapping: "meta.alias"}},
			},
		},
	)
	require.NoError(t, err)
	d := newDandyWithModel(t, model)

	r := d.Materialize("Profile", value.MustObject(map[string]any{
		"meta": map[string]any{"alias": "The Incomparable"},
	}))
	require.NotNil(t, r)
	assert.True(t, value.Equal(value.String("The Incomparable"), r.AttributeValue("alias")),
		"dotted external keys resolve into nested objects without a relationship")
}

func TestBuildRelationshipRejectsArrayForToOne(t *testing.T) {
	d := newTestDandy(t)

	r := d.Materialize("Gossip", value.MustObject(map[string]any{
		"details": "suspicious",
		"purveyor": []any{
			map[string]any{"id": "1"},
			map[string]any{"id": "2"},
		},
	}))
	require.NotNil(t, r)
	assert.Nil(t, r.ToOne("purveyor"), "array rejected for to-one leaves the relationship unset")
}

func TestBuildRelationshipRejectsObjectForToMany(t *testing.T) {
	d := newTestDandy(t)

	r := d.Materialize("Dandy", value.MustObject(map[string]any{
		"id":   "WILDE",
		"hats": map[string]any{"name": "bowler"},
	}))
	require.NotNil(t, r)
	assert.Equal(t, 0, r.ToMany("hats").Len(), "object rejected for to-many")
}

func TestBuildRelationshipNullClears(t *testing.T) {
	d := newTestDandy(t)

	r := d.Materialize("Dandy", value.MustObject(map[string]any{
		"id":     "WILDE",
		"hats":   []any{map[string]any{"name": "bowler"}},
		"gossip": map[string]any{"details": "juicy"},
	}))
	require.NotNil(t, r)
	require.Equal(t, 1, r.ToMany("hats").Len())
	require.NotNil(t, r.ToOne("gossip"))

	again := d.Materialize("Dandy", value.MustObject(map[string]any{
		"id":     "WILDE",
		"hats":   nil,
		"gossip": nil,
	}))
	require.Same(t, r, again)
	assert.Equal(t, 0, r.ToMany("hats").Len(), "null empties a to-many relationship")
	assert.Nil(t, r.ToOne("gossip"), "null unsets a to-one relationship")
}

func TestBuildRelationshipSkipsBadElements(t *testing.T) {
	d := newTestDandy(t)

	r := d.Materialize("Dandy", value.MustObject(map[string]any{
		"id": "WILDE",
		"hats": []any{
			map[string]any{"name": "bowler"},
			"not an object",
			map[string]any{"style": "keyless hat"}, // Hat is unique; no name, no record
			map[string]any{"name": "topper"},
		},
	}))
	require.NotNil(t, r)

	hats := r.ToMany("hats")
	require.Equal(t, 2, hats.Len(), "one bad element does not abort the collection")
	assert.True(t, value.Equal(value.String("bowler"), hats.Records()[0].AttributeValue("name")))
	assert.True(t, value.Equal(value.String("topper"), hats.Records()[1].AttributeValue("name")))
}

func TestMaterializeNestedGraph(t *testing.T) {
	d := newTestDandy(t)

	gossip := d.Materialize("Gossip", value.MustObject(map[string]any{
		"details": "Brummell has a new hat",
		"purveyor": map[string]any{
			"id":   "BRUMMELL",
			"name": "Beau Brummell",
			"hats": []any{
				map[string]any{
					"name":  "bowler",
					"style": "billycock",
					"material": map[string]any{
						"name":   "felt",
						"origin": "Rome",
					},
				},
			},
		},
	}))
	require.NotNil(t, gossip)

	purveyor := gossip.ToOne("purveyor")
	require.NotNil(t, purveyor)
	assert.True(t, value.Equal(value.String("Beau Brummell"), purveyor.AttributeValue("name")))

	hats := purveyor.ToMany("hats")
	require.Equal(t, 1, hats.Len())
	hat := hats.Records()[0]
	assert.True(t, value.Equal(value.String("billycock"), hat.AttributeValue("styleDescription")))

	material := hat.ToOne("material")
	require.NotNil(t, material)
	assert.True(t, value.Equal(value.String("Rome"), material.AttributeValue("origin")))
}

func TestMaterializeCyclicJSONTerminates(t *testing.T) {
	d := newTestDandy(t)

	r := d.Materialize("Dandy", value.MustObject(map[string]any{
		"id": "WILDE",
		"successor": map[string]any{
			"id":          "BOSIE",
			"predecessor": map[string]any{"id": "WILDE"},
		},
	}))
	require.NotNil(t, r)

	successor := r.ToOne("successor")
	require.NotNil(t, successor)
	assert.Same(t, r, successor.ToOne("predecessor"),
		"revisiting an in-flight (entity, key) pair reuses the record instead of recursing")

	records, err := d.Store().Fetch(d.Store().Model().Entity("Dandy"), nil)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestMaterializeAllPartialBatch(t *testing.T) {
	d := newTestDandy(t)

	out := d.MaterializeAll("Dandy", value.Array{
		value.MustObject(map[string]any{"id": "WILDE"}),
		value.String("not an object"),
		value.MustObject(map[string]any{"name": "keyless"}),
		value.MustObject(map[string]any{"id": "BRUMMELL"}),
	})
	require.Len(t, out, 2, "individual failures are skipped")

	none := d.MaterializeAll("Dandy", value.Array{
		value.MustObject(map[string]any{"name": "keyless"}),
	})
	assert.Nil(t, none, "nil only when zero elements succeeded")
}

func TestFinalizerReceivesOriginalJSON(t *testing.T) {
	d := newTestDandy(t)

	var got value.Object
	d.RegisterFinalizer("Dandy", func(r *store.Record, json value.Object) {
		got = json
		r.SetAttributeValue("name", value.String("finalized"))
	})

	doc := value.MustObject(map[string]any{"id": "WILDE", "name": "Oscar"})
	r := d.Materialize("Dandy", doc)
	require.NotNil(t, r)
	assert.True(t, value.Equal(doc, got))
	assert.True(t, value.Equal(value.String("finalized"), r.AttributeValue("name")),
		"finalizer runs after all mapping completes")
}

func TestBuildRelationshipUnorderedUsesSet(t *testing.T) {
	model, err := schema.NewModel(
		&schema.Entity{
			Name:        "Club",
			Annotations: map[string]string{schema.AnnotationPrimaryKey: "name"},
			Attributes:  []schema.Attribute{{Name: "name", Type: value.TypeString}},
			Relationships: []schema.Relationship{
				{Name: "members", Destination: "Member", ToMany: true},
			},
		},
		&schema.Entity{
			Name:        "Member",
			Annotations: map[string]string{schema.AnnotationPrimaryKey: "id"},
			Attributes:  []schema.Attribute{{Name: "id", Type: value.TypeString}},
		},
	)
	require.NoError(t, err)
	d := newDandyWithModel(t, model)

	r := d.Materialize("Club", value.MustObject(map[string]any{
		"name": "Watier's",
		"members": []any{
			map[string]any{"id": "1"},
			map[string]any{"id": "2"},
			map[string]any{"id": "1"}, // same record twice
		},
	}))
	require.NotNil(t, r)

	members := r.ToMany("members")
	assert.False(t, members.Ordered())
	assert.Equal(t, 2, members.Len(), "unordered collections are unique by record")
}
