// internal/fieldpath/fieldpath.go
// Package fieldpath resolves dot-path expressions against nested key-value
// structures. A miss is a definite negative result, never an error.
package fieldpath

import (
	"strconv"
	"strings"
)

// Lookup resolves the first path segment: a provider-level field lookup by
// name. The lookup itself may fail and report a miss.
type Lookup func(name string) (interface{}, bool)

// Resolve splits path on "." and walks the structure one segment at a time.
// The first segment goes through lookup; subsequent segments are pure
// structural lookups. Any miss short-circuits the remaining path.
func Resolve(lookup Lookup, path string) (interface{}, bool) {
	if lookup == nil || path == "" {
		return nil, false
	}
	segments := strings.Split(path, ".")

	current, ok := lookup(segments[0])
	if !ok {
		return nil, false
	}
	return Walk(current, segments[1:])
}

// Walk resolves the remaining segments against a value. A segment step
// succeeds only if the current value is a key-addressable container and the
// segment key is explicitly present in it. Numeric string keys address list
// elements, so there is no separate wildcard/index syntax.
func Walk(root interface{}, segments []string) (interface{}, bool) {
	current := root
	for _, seg := range segments {
		switch container := current.(type) {
		case map[string]interface{}:
			next, exists := container[seg]
			if !exists {
				return nil, false
			}
			current = next
		case []interface{}:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(container) {
				return nil, false
			}
			current = container[idx]
		default:
			// Non-container value with segments left to walk
			return nil, false
		}
	}
	return current, true
}
