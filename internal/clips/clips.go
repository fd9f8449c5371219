// internal/clips/clips.go
// Package clips parses chapter/clip data from a structured repeating-group
// source or a serialized JSON source into an ordered sequence of Clip
// records. Parsing is fail-soft: malformed input loses the clips feature for
// the item, it never blocks document generation.
package clips

import (
	"encoding/json"
	"fmt"

	"github.com/SchemaPress/schemapress-vsd-go/internal/model"
	"github.com/SchemaPress/schemapress-vsd-go/internal/rawvalue"
)

// ParseRows maps a list of heterogeneous row structures to Clip records in
// source order. Rows that are not structured objects are skipped silently.
func ParseRows(rows []interface{}, permalink string) []model.Clip {
	out := make([]model.Clip, 0, len(rows))
	for _, row := range rows {
		obj, isObj := row.(map[string]interface{})
		if !isObj {
			continue
		}
		out = append(out, parseRow(obj, permalink))
	}
	return out
}

// ParseJSON parses a serialized JSON array of clip rows. A parse failure or
// a non-array top level returns an empty sequence, never an error.
func ParseJSON(serialized string, permalink string) []model.Clip {
	var rows []interface{}
	if err := json.Unmarshal([]byte(serialized), &rows); err != nil {
		return []model.Clip{}
	}
	return ParseRows(rows, permalink)
}

// parseRow maps one row using tolerant key aliases. startOffset defaults to
// 0 when absent or non-numeric (numeric strings truncate to integers);
// endOffset stays nil when absent; url defaults to the permalink with a
// timestamp query.
func parseRow(obj map[string]interface{}, permalink string) model.Clip {
	clip := model.Clip{Type: model.TypeClip}

	if name, ok := firstString(obj, "name", "clip_name"); ok {
		clip.Name = name
	}

	if start, ok := firstInt(obj, "start", "startOffset"); ok && start >= 0 {
		clip.StartOffset = start
	}

	if end, ok := firstInt(obj, "end", "endOffset"); ok {
		clip.EndOffset = &end
	}

	if u, ok := firstString(obj, "url"); ok && u != "" {
		clip.URL = u
	} else if permalink != "" {
		clip.URL = fmt.Sprintf("%s?t=%d", permalink, clip.StartOffset)
	}

	return clip
}

// firstString returns the first alias present with a string value.
func firstString(obj map[string]interface{}, aliases ...string) (string, bool) {
	for _, key := range aliases {
		if v, exists := obj[key]; exists {
			if s, isStr := v.(string); isStr {
				return s, true
			}
		}
	}
	return "", false
}

// firstInt returns the first alias present with a numeric value, truncated
// to an integer.
func firstInt(obj map[string]interface{}, aliases ...string) (int, bool) {
	for _, key := range aliases {
		if v, exists := obj[key]; exists {
			if i, ok := rawvalue.AsInt(v); ok {
				return i, true
			}
		}
	}
	return 0, false
}
