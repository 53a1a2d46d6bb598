package dandy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ml-archive/dandy/internal/value"
)

func TestResolveKeyPathDirect(t *testing.T) {
	obj := value.MustObject(map[string]any{"name": "Oscar"})

	v, ok := resolveKeyPath(obj, "name")
	require.True(t, ok)
	assert.True(t, value.Equal(value.String("Oscar"), v))

	_, ok = resolveKeyPath(obj, "absent")
	assert.False(t, ok)
}

func TestResolveKeyPathDotted(t *testing.T) {
	obj := value.MustObject(map[string]any{
		"meta": map[string]any{
			"nested": map[string]any{"alias": "The Incomparable"},
		},
	})

	v, ok := resolveKeyPath(obj, "meta.nested.alias")
	require.True(t, ok)
	assert.True(t, value.Equal(value.String("The Incomparable"), v))

	_, ok = resolveKeyPath(obj, "meta.absent.alias")
	assert.False(t, ok)

	// A path segment landing on a scalar cannot descend further.
	_, ok = resolveKeyPath(obj, "meta.nested.alias.deeper")
	assert.False(t, ok)
}

func TestResolveKeyPathLiteralDottedKeyWins(t *testing.T) {
	obj := value.MustObject(map[string]any{
		"meta.alias": "literal",
		"meta":       map[string]any{"alias": "nested"},
	})

	v, ok := resolveKeyPath(obj, "meta.alias")
	require.True(t, ok)
	assert.True(t, value.Equal(value.String("literal"), v))
}

func TestResolveKeyPathNormalizesUnicode(t *testing.T) {
	// "café" with a decomposed e + combining acute in the document,
	// composed form in the mapping key.
	obj := value.MustObject(map[string]any{"café": "Royale"})

	v, ok := resolveKeyPath(obj, "café")
	require.True(t, ok)
	assert.True(t, value.Equal(value.String("Royale"), v))
}

func TestNestedSerializationTargets(t *testing.T) {
	got := nestedSerializationTargets("purveyor",
		[]string{"purveyor.successor", "purveyor.hats.material", "anomaly"})
	assert.Equal(t, []string{"successor", "hats.material"}, got)
}

func TestNestedSerializationTargetsNilMeansStop(t *testing.T) {
	got := nestedSerializationTargets("hats", []string{"hats", "gossip", "predecessor"})
	assert.Nil(t, got, "no dotted entries reference the relationship")
}
