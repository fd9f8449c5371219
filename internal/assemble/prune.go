// internal/assemble/prune.go
// Document pruning and small value-normalization helpers shared by the
// assembly steps.
package assemble

import (
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/SchemaPress/schemapress-vsd-go/internal/model"
	"github.com/SchemaPress/schemapress-vsd-go/internal/rawvalue"
)

// Prune recursively removes every key whose value is an empty string, nil,
// or an empty array. It works bottom-up so nested structures that empty out
// propagate upward.
func Prune(doc model.Document) model.Document {
	pruned, _ := pruneValue(map[string]interface{}(doc))
	if pruned == nil {
		return model.Document{}
	}
	return model.Document(pruned.(map[string]interface{}))
}

// pruneValue prunes one value; the second result reports whether the value
// survives.
func pruneValue(v interface{}) (interface{}, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case string:
		if t == "" {
			return nil, false
		}
		return t, true
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, inner := range t {
			if kept, ok := pruneValue(inner); ok {
				out[k] = kept
			}
		}
		if len(out) == 0 {
			return nil, false
		}
		return out, true
	case []interface{}:
		out := make([]interface{}, 0, len(t))
		for _, inner := range t {
			if kept, ok := pruneValue(inner); ok {
				out = append(out, kept)
			}
		}
		if len(out) == 0 {
			return nil, false
		}
		return out, true
	default:
		// Numbers, booleans and other leaves always survive
		return v, true
	}
}

// normalizeDoc flattens typed sub-shapes (ImageObject, MediaObject, Clip)
// into plain maps through their JSON form so pruning and the augmentation
// hook see one uniform representation.
func normalizeDoc(doc model.Document) model.Document {
	raw, err := json.Marshal(doc)
	if err != nil {
		return doc
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return doc
	}
	return model.Document(out)
}

// tagPattern matches HTML/XML tags for markup stripping.
var tagPattern = regexp.MustCompile(`<[^>]*>`)

// stripMarkup removes tags and decodes entities from inline text values.
func stripMarkup(s string) string {
	return strings.TrimSpace(html.UnescapeString(tagPattern.ReplaceAllString(s, "")))
}

// durationClock matches h:mm:ss and m:ss clock-style durations.
var durationClock = regexp.MustCompile(`^(\d+):(\d{1,2})(?::(\d{1,2}))?$`)

// normalizeDuration canonicalizes a mapped duration into ISO-8601. Values
// already in ISO form pass through; integer seconds and clock-style strings
// are converted; anything else passes through unchanged.
func normalizeDuration(v interface{}) string {
	if s, isStr := v.(string); isStr {
		trimmed := strings.TrimSpace(s)
		if trimmed == "" {
			return ""
		}
		if strings.HasPrefix(strings.ToUpper(trimmed), "P") {
			return trimmed
		}
		if m := durationClock.FindStringSubmatch(trimmed); m != nil {
			first, _ := rawvalue.AsInt(m[1])
			second, _ := rawvalue.AsInt(m[2])
			if m[3] == "" {
				// m:ss
				return isoDuration(first*60 + second)
			}
			third, _ := rawvalue.AsInt(m[3])
			// h:mm:ss
			return isoDuration(first*3600 + second*60 + third)
		}
		if secs, ok := rawvalue.AsInt(trimmed); ok {
			return isoDuration(secs)
		}
		return trimmed
	}
	if secs, ok := rawvalue.AsInt(v); ok {
		return isoDuration(secs)
	}
	return ""
}

// isoDuration renders a second count as an ISO-8601 duration.
func isoDuration(totalSeconds int) string {
	if totalSeconds < 0 {
		return ""
	}
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	out := "PT"
	if hours > 0 {
		out += fmt.Sprintf("%dH", hours)
	}
	if minutes > 0 {
		out += fmt.Sprintf("%dM", minutes)
	}
	if seconds > 0 || out == "PT" {
		out += fmt.Sprintf("%dS", seconds)
	}
	return out
}

// asString extracts a trimmed string from a resolved value; misses and
// non-strings read as empty.
func asString(v interface{}, ok bool) string {
	if !ok {
		return ""
	}
	if s, isStr := v.(string); isStr {
		return strings.TrimSpace(s)
	}
	return ""
}

// isTruthy interprets flag-like mapped values.
func isTruthy(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "1", "true", "yes", "on":
			return true
		}
		return false
	case float64:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	default:
		return false
	}
}
