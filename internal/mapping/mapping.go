// internal/mapping/mapping.go
// Package mapping resolves logical keys against the ordered list of mapping
// sources: per-item override, persisted configuration, the filter extension
// point, and the naming-convention fallback. The first non-miss source wins.
package mapping

import (
	"github.com/SchemaPress/schemapress-vsd-go/internal/fieldpath"
	"github.com/SchemaPress/schemapress-vsd-go/internal/model"
	"github.com/SchemaPress/schemapress-vsd-go/internal/rawvalue"
)

// Source identifies which mapping source produced a resolved value.
type Source int

const (
	SourceNone       Source = iota // No source resolved the key
	SourceOverride                 // Per-item override set
	SourceConfig                   // Persisted mapping configuration
	SourceFilter                   // Filter extension point
	SourceConvention               // video_<key> naming-convention fallback
)

// FilterFunc is the filter-style extension point, invoked once per logical
// key during resolution. It returns a rule (path, coercion, or callable) or
// reports no interest in the key. A panicking filter is treated as a miss.
type FilterFunc func(key model.LogicalKey) (model.MappingRule, bool)

// FieldLookup is the naming-convention fallback provider: a direct field
// lookup by name with no path traversal. Nil when no compatible provider
// exists for the item.
type FieldLookup func(name string) (interface{}, bool)

// Mapper resolves logical keys for one item. It is request-scoped and holds
// only read-only views of the configuration and provider state.
type Mapper struct {
	itemID    string
	config    model.MappingConfig
	overrides *model.OverrideSet
	lookup    fieldpath.Lookup // Provider-level field lookup (dot-path first segment)
	filter    FilterFunc
	custom    FieldLookup
}

// Options carries the optional mapping collaborators.
type Options struct {
	Filter FilterFunc  // Filter extension point, nil when none registered
	Custom FieldLookup // ACF-like field provider, nil when unavailable
}

// New builds a Mapper for one item.
func New(itemID string, cfg model.MappingConfig, overrides *model.OverrideSet, lookup fieldpath.Lookup, opts Options) *Mapper {
	return &Mapper{
		itemID:    itemID,
		config:    cfg,
		overrides: overrides,
		lookup:    lookup,
		filter:    opts.Filter,
		custom:    opts.Custom,
	}
}

// HasFieldProvider reports whether a compatible naming-convention field
// provider is available for the item.
func (m *Mapper) HasFieldProvider() bool {
	return m.custom != nil
}

// Resolve returns the mapped value for a logical key, or a miss when every
// source comes up empty. Callers apply their own defaults on a miss.
func (m *Mapper) Resolve(key model.LogicalKey) (interface{}, bool) {
	v, _, ok := m.ResolveSource(key)
	return v, ok
}

// ResolveSource resolves a logical key and reports which source won.
func (m *Mapper) ResolveSource(key model.LogicalKey) (interface{}, Source, bool) {
	// 1. Override source: verbatim, no path resolution
	if v, ok := m.overrides.Value(key); ok {
		return v, SourceOverride, true
	}

	// 2. Persisted mapping
	if rule := m.config.Rule(key); !rule.IsEmpty() {
		if v, ok := m.applyRule(rule); ok {
			return v, SourceConfig, true
		}
	}

	// 3. Filter extension point
	if m.filter != nil {
		if rule, ok := m.callFilter(key); ok && !rule.IsEmpty() {
			if v, ok := m.applyRule(rule); ok {
				return v, SourceFilter, true
			}
		}
	}

	// 4. Naming-convention fallback. A provider result of exactly false is a
	// miss; everything else, including nil and empty values, passes through.
	if m.custom != nil {
		if v, found := m.custom("video_" + string(key)); found {
			if b, isBool := v.(bool); !isBool || b {
				return v, SourceConvention, true
			}
		}
	}

	return nil, SourceNone, false
}

// applyRule evaluates one mapping rule. The sentinel token resolves to
// itself; its replacement with the item's primary image is deferred to the
// media normalizer.
func (m *Mapper) applyRule(rule model.MappingRule) (interface{}, bool) {
	switch rule.Kind {
	case model.RuleSentinel:
		return model.SentinelFeaturedImage, true
	case model.RulePath:
		return m.resolvePath(rule.Path)
	case model.RulePathWithCoercion:
		v, ok := m.resolvePath(rule.Path)
		if !ok {
			return nil, false
		}
		return Coerce(v, rule.Coercion), true
	case model.RuleCallable:
		return m.callRule(rule.Fn)
	default:
		return nil, false
	}
}

// resolvePath resolves a dot-path and filters out explicit null/false
// results, which count as misses and fall through to the next source.
func (m *Mapper) resolvePath(path string) (interface{}, bool) {
	v, ok := fieldpath.Resolve(m.lookup, path)
	if !ok || v == nil {
		return nil, false
	}
	if b, isBool := v.(bool); isBool && !b {
		return nil, false
	}
	return v, true
}

// callFilter invokes the filter extension point inside a failure boundary.
func (m *Mapper) callFilter(key model.LogicalKey) (rule model.MappingRule, ok bool) {
	defer func() {
		if recover() != nil {
			rule, ok = model.MappingRule{}, false
		}
	}()
	return m.filter(key)
}

// callRule invokes an injected callable resolver inside a failure boundary.
func (m *Mapper) callRule(fn model.RuleFunc) (v interface{}, ok bool) {
	defer func() {
		if recover() != nil {
			v, ok = nil, false
		}
	}()
	if fn == nil {
		return nil, false
	}
	v, ok = fn(m.itemID)
	if !ok || v == nil {
		return nil, false
	}
	if b, isBool := v.(bool); isBool && !b {
		return nil, false
	}
	return v, true
}

// Coerce reshapes an image-bearing resolved value into url, array, or id
// form. A branch that cannot match degrades to the raw value unchanged so a
// legitimate admin-provided value is never silently dropped.
func Coerce(v interface{}, c model.ImageCoercion) interface{} {
	switch c {
	case model.CoerceURL:
		if obj, isObj := v.(map[string]interface{}); isObj {
			if u, ok := rawvalue.ObjectURL(obj); ok {
				return u
			}
			if u, ok := rawvalue.ObjectSizeURL(obj); ok {
				return u
			}
			return v
		}
		if s, isStr := v.(string); isStr && rawvalue.IsURL(s) {
			return s
		}
		return v
	case model.CoerceID:
		if obj, isObj := v.(map[string]interface{}); isObj {
			if id, ok := rawvalue.ObjectID(obj); ok {
				return id
			}
			return v
		}
		if id, ok := rawvalue.AsID(v); ok {
			return id
		}
		return v
	case model.CoerceArray:
		// The structured value passes through unchanged
		return v
	default:
		return v
	}
}
