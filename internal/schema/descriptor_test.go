package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ml-archive/dandy/internal/value"
)

func TestDescribeAttribute(t *testing.T) {
	desc := Describe(Attribute{Name: "name", Type: value.TypeString}, nil)

	assert.Equal(t, PropertyDescription{
		Name: "name",
		Kind: KindAttribute,
		Type: value.TypeString,
	}, desc)
}

func TestDescribeRelationship(t *testing.T) {
	desc := Describe(Relationship{
		Name:        "hats",
		Destination: "Hat",
		ToMany:      true,
		Ordered:     true,
	}, nil)

	assert.Equal(t, PropertyDescription{
		Name:        "hats",
		Kind:        KindRelationship,
		Destination: "Hat",
		ToMany:      true,
		Ordered:     true,
	}, desc)
}

func TestDescribeUnknownSourceFallsBack(t *testing.T) {
	desc := Describe("not a property", zap.NewNop().Sugar())

	assert.Equal(t, PropertyDescription{Kind: KindUnknown}, desc)
}

func TestPropertyDescriptionEqualityIsFullTuple(t *testing.T) {
	a := Describe(Attribute{Name: "name", Type: value.TypeString}, nil)
	b := Describe(Attribute{Name: "name", Type: value.TypeString}, nil)
	c := Describe(Attribute{Name: "name", Type: value.TypeInt64}, nil)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	// Comparable: usable as a map key.
	set := map[PropertyDescription]bool{a: true}
	assert.True(t, set[b])
	assert.False(t, set[c])
}

func TestPropertyDescriptionJSONRoundTrip(t *testing.T) {
	orig := Describe(Relationship{Name: "material", Destination: "Material"}, nil)

	data, err := json.Marshal(orig)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"kind":"relationship"`)

	var back PropertyDescription
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, orig, back)
}
