package dandy

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ml-archive/dandy/internal/store"
	"github.com/ml-archive/dandy/internal/value"
)

func TestSerializeRoundTrip(t *testing.T) {
	d := newTestDandy(t)

	r := d.Materialize("Dandy", value.MustObject(map[string]any{
		"id":   "X",
		"name": "N",
	}))
	require.NotNil(t, r)

	out := d.Serialize(r, nil)
	require.NotNil(t, out)
	assert.True(t, value.Equal(value.MustObject(map[string]any{
		"id":   "X",
		"name": "N",
	}), out), "no additional or missing keys, nil attributes omitted")
}

func TestSerializeOmitsNilAttributes(t *testing.T) {
	d := newTestDandy(t)

	r := d.Materialize("Dandy", value.MustObject(map[string]any{"id": "WILDE"}))
	require.NotNil(t, r)

	out := d.Serialize(r, nil)
	require.NotNil(t, out)
	assert.Contains(t, out, "id")
	assert.NotContains(t, out, "name")
	assert.NotContains(t, out, "dateOfBirth")
}

func TestSerializeSkipsUnrequestedRelationships(t *testing.T) {
	d := newTestDandy(t)

	r := d.Materialize("Dandy", value.MustObject(map[string]any{
		"id":   "WILDE",
		"hats": []any{map[string]any{"name": "bowler"}},
	}))
	require.NotNil(t, r)

	out := d.Serialize(r, nil)
	require.NotNil(t, out)
	assert.NotContains(t, out, "hats")
	assert.NotContains(t, out, "gossip")
}

func TestSerializeEmptyToManyYieldsArrayWithEmptyObject(t *testing.T) {
	d := newTestDandy(t)

	r := d.Materialize("Dandy", value.MustObject(map[string]any{"id": "WILDE"}))
	require.NotNil(t, r)

	out := d.Serialize(r, []string{"hats"})
	require.NotNil(t, out)
	assert.True(t, value.Equal(value.Array{value.Object{}}, out["hats"]),
		`zero related records serialize to [{}], not []`)
}

func TestSerializeNilToOneYieldsEmptyObject(t *testing.T) {
	d := newTestDandy(t)

	r := d.Materialize("Dandy", value.MustObject(map[string]any{"id": "WILDE"}))
	require.NotNil(t, r)

	out := d.Serialize(r, []string{"gossip"})
	require.NotNil(t, out)
	assert.True(t, value.Equal(value.Object{}, out["gossip"]),
		"a nil to-one serializes to {}, not an omission, not null")
}

func TestSerializeOrderedToManyKeepsOrder(t *testing.T) {
	d := newTestDandy(t)

	r := d.Materialize("Dandy", value.MustObject(map[string]any{
		"id": "WILDE",
		"hats": []any{
			map[string]any{"name": "bowler"},
			map[string]any{"name": "topper"},
			map[string]any{"name": "fez"},
		},
	}))
	require.NotNil(t, r)

	out := d.Serialize(r, []string{"hats"})
	require.NotNil(t, out)
	hats, ok := out["hats"].(value.Array)
	require.True(t, ok)
	require.Len(t, hats, 3)
	assert.True(t, value.Equal(value.String("bowler"), hats[0].(value.Object)["name"]))
	assert.True(t, value.Equal(value.String("topper"), hats[1].(value.Object)["name"]))
	assert.True(t, value.Equal(value.String("fez"), hats[2].(value.Object)["name"]))
}

func TestSerializeNestedKeypaths(t *testing.T) {
	d := newTestDandy(t)

	gossip := d.Materialize("Gossip", value.MustObject(map[string]any{
		"details": "new hat in town",
		"purveyor": map[string]any{
			"id": "BRUMMELL",
			"hats": []any{
				map[string]any{
					"name":     "bowler",
					"material": map[string]any{"name": "felt"},
				},
			},
		},
	}))
	require.NotNil(t, gossip)

	out := d.Serialize(gossip, []string{"purveyor.hats.material"})
	require.NotNil(t, out)

	purveyor, ok := out["purveyor"].(value.Object)
	require.True(t, ok, "keypath prefix requests the relationship")
	hats, ok := purveyor["hats"].(value.Array)
	require.True(t, ok)
	require.Len(t, hats, 1)

	hat := hats[0].(value.Object)
	material, ok := hat["material"].(value.Object)
	require.True(t, ok)
	assert.True(t, value.Equal(value.String("felt"), material["name"]))

	// The recursion stops where the keypaths stop.
	assert.NotContains(t, hat, "owner")
}

func TestSerializeZeroKeysFails(t *testing.T) {
	d := newTestDandy(t)

	r := d.Materialize("Gossip", value.Object{})
	require.NotNil(t, r, "non-unique entities materialize from empty JSON")

	assert.Nil(t, d.Serialize(r, nil),
		"an entity with no mappable attributes and no requested relationships cannot be serialized")
}

func TestSerializeNilRecord(t *testing.T) {
	d := newTestDandy(t)
	assert.Nil(t, d.Serialize(nil, nil))
}

func TestSerializeAllSkipsFailures(t *testing.T) {
	d := newTestDandy(t)

	good := d.Materialize("Gossip", value.MustObject(map[string]any{"details": "juicy"}))
	empty := d.Materialize("Gossip", value.Object{})
	require.NotNil(t, good)
	require.NotNil(t, empty)

	out := d.SerializeAll([]*store.Record{good, empty}, nil)
	require.Len(t, out, 1)

	assert.Nil(t, d.SerializeAll([]*store.Record{empty}, nil),
		"nil when zero records serialized")
}

func TestSerializeGraphGolden(t *testing.T) {
	d := newTestDandy(t)

	r := d.Materialize("Dandy", value.MustObject(map[string]any{
		"id":   "WILDE",
		"name": "Oscar Wilde",
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
	}))
	require.NotNil(t, r)

	out := d.Serialize(r, []string{"hats.material"})
	require.NotNil(t, out)

	data, err := json.MarshalIndent(value.ToAny(out), "", "  ")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "serialized_graph", data)
}
