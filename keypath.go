package dandy

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/ml-archive/dandy/internal/value"
)

// resolveKeyPath looks key up in json, treating dots as a path into nested
// objects. A direct hit on the whole key wins, so a literal dotted key still
// resolves. Keys compare NFC-normalized, since external documents do not
// agree on Unicode normalization.
func resolveKeyPath(json value.Object, key string) (value.Value, bool) {
	if v, ok := lookupKey(json, key); ok {
		return v, ok
	}
	if !strings.Contains(key, ".") {
		return nil, false
	}

	segments := strings.Split(key, ".")
	var current value.Value = json
	for _, segment := range segments {
		obj, ok := current.(value.Object)
		if !ok {
			return nil, false
		}
		current, ok = lookupKey(obj, segment)
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func lookupKey(obj value.Object, key string) (value.Value, bool) {
	if v, ok := obj[key]; ok {
		return v, true
	}
	want := norm.NFC.String(key)
	for k, v := range obj {
		if norm.NFC.String(k) == want {
			return v, true
		}
	}
	return nil, false
}

// nestedSerializationTargets filters the caller-supplied relationship
// keypaths down to those nested under relationshipName, with the prefix
// stripped. A nil return means "do not recurse further" - deliberately
// distinct from recursing into nothing.
func nestedSerializationTargets(relationshipName string, including []string) []string {
	var nested []string
	prefix := relationshipName + "."
	for _, path := range including {
		if strings.HasPrefix(path, prefix) && len(path) > len(prefix) {
			nested = append(nested, strings.TrimPrefix(path, prefix))
		}
	}
	return nested
}
