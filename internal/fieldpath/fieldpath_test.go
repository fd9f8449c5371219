package fieldpath

import (
	"testing"
)

// lookupFrom builds a Lookup over a flat field map.
func lookupFrom(fields map[string]interface{}) Lookup {
	return func(name string) (interface{}, bool) {
		v, ok := fields[name]
		return v, ok
	}
}

// TestResolveNestedPath walks maps and lists mixed along one path.
func TestResolveNestedPath(t *testing.T) {
	fields := map[string]interface{}{
		"video": map[string]interface{}{
			"meta": map[string]interface{}{
				"title": "Nested Title",
			},
			"sources": []interface{}{
				map[string]interface{}{"url": "https://example.com/a.mp4"},
				map[string]interface{}{"url": "https://example.com/b.mp4"},
			},
		},
	}
	lookup := lookupFrom(fields)

	v, ok := Resolve(lookup, "video.meta.title")
	if !ok || v != "Nested Title" {
		t.Errorf("Resolve(video.meta.title) = %v, %v; want Nested Title, true", v, ok)
	}

	// Numeric string segments address list elements
	v, ok = Resolve(lookup, "video.sources.1.url")
	if !ok || v != "https://example.com/b.mp4" {
		t.Errorf("Resolve(video.sources.1.url) = %v, %v; want second source URL, true", v, ok)
	}
}

// TestResolveMisses covers the definite-negative cases: absent keys, out of
// range indexes, and scalar values with segments left to walk.
func TestResolveMisses(t *testing.T) {
	lookup := lookupFrom(map[string]interface{}{
		"video": map[string]interface{}{
			"title": "Plain",
			"tags":  []interface{}{"a", "b"},
		},
	})

	cases := []string{
		"",                // empty path
		"missing",         // absent root field
		"video.nope",      // absent nested key
		"video.title.sub", // scalar with segments remaining
		"video.tags.2",    // index out of range
		"video.tags.x",    // non-numeric list key
	}
	for _, path := range cases {
		if v, ok := Resolve(lookup, path); ok {
			t.Errorf("Resolve(%q) = %v, true; want miss", path, v)
		}
	}
}

// TestResolveSingleSegment goes straight through the provider lookup.
func TestResolveSingleSegment(t *testing.T) {
	lookup := lookupFrom(map[string]interface{}{"duration": 90})

	v, ok := Resolve(lookup, "duration")
	if !ok || v != 90 {
		t.Errorf("Resolve(duration) = %v, %v; want 90, true", v, ok)
	}
}

// TestResolveNilLookup verifies a missing provider is a miss, not a panic.
func TestResolveNilLookup(t *testing.T) {
	if v, ok := Resolve(nil, "video.title"); ok {
		t.Errorf("Resolve(nil lookup) = %v, true; want miss", v)
	}
}

// TestWalkPreservesNullValues verifies an explicitly present nil survives the
// walk: presence and value are separate concerns at this layer.
func TestWalkPreservesNullValues(t *testing.T) {
	root := map[string]interface{}{"caption": nil}

	v, ok := Walk(root, []string{"caption"})
	if !ok || v != nil {
		t.Errorf("Walk(caption) = %v, %v; want nil, true", v, ok)
	}
}
