// internal/rawvalue/rawvalue.go
// Package rawvalue classifies heterogeneous raw field values once at the
// provider boundary so mappers and normalizers branch on a closed set of
// kinds instead of re-inspecting shape repeatedly.
package rawvalue

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Kind is the closed set of shapes a resolved raw field value can take.
type Kind int

const (
	KindMiss    Kind = iota // nil or empty string
	KindScalar              // string, bool, or non-integral number
	KindImageRef            // numeric attachment identifier
	KindObject              // structured key-value object
	KindList                // list of values (image items, URL strings, rows)
)

// Classify maps a raw value onto its Kind.
func Classify(v interface{}) Kind {
	switch t := v.(type) {
	case nil:
		return KindMiss
	case string:
		if t == "" {
			return KindMiss
		}
		if _, ok := AsID(t); ok {
			return KindImageRef
		}
		return KindScalar
	case map[string]interface{}:
		return KindObject
	case []interface{}:
		return KindList
	default:
		if _, ok := AsID(v); ok {
			return KindImageRef
		}
		return KindScalar
	}
}

// AsID interprets a value as a numeric attachment identifier. JSON numbers
// arrive as float64; admin-entered values arrive as digit strings.
func AsID(v interface{}) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), t > 0
	case int32:
		return int64(t), t > 0
	case int64:
		return t, t > 0
	case float64:
		if t != float64(int64(t)) {
			return 0, false
		}
		return int64(t), t > 0
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, false
		}
		return id, id > 0
	default:
		return 0, false
	}
}

// AsInt truncates a numeric or numeric-string value to an integer.
func AsInt(v interface{}) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return int(f), true
	default:
		return 0, false
	}
}

// IsURL reports whether s parses as a valid absolute URL.
func IsURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}

// ObjectURL extracts an explicit URL field from a structured image object.
// The key lookup is case-insensitive.
func ObjectURL(obj map[string]interface{}) (string, bool) {
	for k, v := range obj {
		if strings.EqualFold(k, "url") {
			if s, ok := v.(string); ok && IsURL(s) {
				return strings.TrimSpace(s), true
			}
		}
	}
	return "", false
}

// ObjectID extracts an explicit numeric identifier field from a structured
// image object. The key lookup is case-insensitive.
func ObjectID(obj map[string]interface{}) (int64, bool) {
	for k, v := range obj {
		if strings.EqualFold(k, "id") {
			return AsID(v)
		}
	}
	return 0, false
}

// ObjectSizeURL extracts a URL from an alternate-sizes collection, preferring
// a size named "full" and otherwise taking the first available size in
// deterministic key order.
func ObjectSizeURL(obj map[string]interface{}) (string, bool) {
	sizes, ok := obj["sizes"].(map[string]interface{})
	if !ok || len(sizes) == 0 {
		return "", false
	}
	if full, exists := sizes["full"]; exists {
		if s, ok := sizeURL(full); ok {
			return s, true
		}
	}
	keys := make([]string, 0, len(sizes))
	for k := range sizes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if s, ok := sizeURL(sizes[k]); ok {
			return s, true
		}
	}
	return "", false
}

// sizeURL pulls the URL out of one size entry, which is either a bare URL
// string or an object with its own URL field.
func sizeURL(v interface{}) (string, bool) {
	switch t := v.(type) {
	case string:
		if IsURL(t) {
			return strings.TrimSpace(t), true
		}
	case map[string]interface{}:
		return ObjectURL(t)
	}
	return "", false
}
