// internal/model/mapping.go
// Package model defines the data structures used throughout the VSD service.
// These structures represent the mapping configuration, resolved media shapes,
// and the assembled structured-data document.
package model

import (
	"encoding/json"
	"fmt"
)

// LogicalKey identifies one piece of structured-data content independent of
// how it is sourced. The set is fixed and enumerable.
type LogicalKey string

const (
	KeyTitle             LogicalKey = "title"              // VideoObject name
	KeyDescription       LogicalKey = "description"        // VideoObject description
	KeyUploadDate        LogicalKey = "upload_date"        // ISO-8601 publish time
	KeyDurationISO       LogicalKey = "duration_iso"       // ISO-8601 duration
	KeyThumbnailURL      LogicalKey = "thumbnail_url"      // Thumbnail image source
	KeyMainTitleImage    LogicalKey = "main_title_image"   // Secondary title image
	KeyContentURL        LogicalKey = "content_url"        // Direct media file URL (legacy)
	KeyEmbedURL          LogicalKey = "embed_url"          // Third-party player URL
	KeyTranscriptURL     LogicalKey = "transcript_url"     // Transcript URL or inline text
	KeyLanguage          LogicalKey = "language"           // BCP-47 language tag
	KeyClips             LogicalKey = "clips"              // Chapter/clip markers
	KeySeekToAction      LogicalKey = "seektoaction"       // Seek-to-offset action flag
	KeyVisualDescription LogicalKey = "visual_description" // Accessibility annotation
	KeyHTML5MP4          LogicalKey = "html5_mp4"          // MP4 encoding attachment id
	KeyHTML5WebM         LogicalKey = "html5_webm"         // WebM encoding attachment id
)

// LogicalKeys lists every logical key in resolution order.
var LogicalKeys = []LogicalKey{
	KeyTitle,
	KeyDescription,
	KeyUploadDate,
	KeyDurationISO,
	KeyThumbnailURL,
	KeyMainTitleImage,
	KeyContentURL,
	KeyEmbedURL,
	KeyTranscriptURL,
	KeyLanguage,
	KeyClips,
	KeySeekToAction,
	KeyVisualDescription,
	KeyHTML5MP4,
	KeyHTML5WebM,
}

// SentinelFeaturedImage is the reserved mapping value signaling "resolve this
// field to the item's primary designated image" rather than a literal value.
const SentinelFeaturedImage = "featured_image"

// ImageCoercion selects the output shape of an image-bearing mapped value.
// It is only meaningful for image-bearing keys; non-image keys ignore it.
type ImageCoercion string

const (
	CoerceNone  ImageCoercion = ""      // No coercion requested
	CoerceURL   ImageCoercion = "url"   // Reduce to a single URL string
	CoerceArray ImageCoercion = "array" // Keep the structured value as-is
	CoerceID    ImageCoercion = "id"    // Reduce to a numeric attachment id
)

// RuleKind discriminates the variants of a MappingRule.
type RuleKind int

const (
	RuleEmpty            RuleKind = iota // No mapping configured
	RulePath                             // Dot-path into the item's raw fields
	RuleSentinel                         // The featured-image sentinel token
	RulePathWithCoercion                 // Dot-path plus an image coercion
	RuleCallable                         // Injected resolver (extension point only)
)

// RuleFunc is an injected resolver supplied through the filter extension
// point. A panic inside the callable is caught by the mapper and treated as
// a miss.
type RuleFunc func(itemID string) (interface{}, bool)

// MappingRule is one mapping for a logical key. It is a tagged variant:
// exactly one of the shapes implied by Kind is meaningful.
type MappingRule struct {
	Kind     RuleKind      `json:"-"`
	Path     string        `json:"path,omitempty"`      // For RulePath / RulePathWithCoercion
	Coercion ImageCoercion `json:"imageType,omitempty"` // For RulePathWithCoercion
	Fn       RuleFunc      `json:"-"`                   // For RuleCallable, never persisted
}

// PathRule builds a plain dot-path rule.
func PathRule(path string) MappingRule {
	return MappingRule{Kind: RulePath, Path: path}
}

// CoercedRule builds a dot-path rule with an image coercion.
func CoercedRule(path string, c ImageCoercion) MappingRule {
	if c == CoerceNone {
		return PathRule(path)
	}
	return MappingRule{Kind: RulePathWithCoercion, Path: path, Coercion: c}
}

// SentinelRule builds the featured-image sentinel rule.
func SentinelRule() MappingRule {
	return MappingRule{Kind: RuleSentinel}
}

// CallableRule wraps an injected resolver as a rule.
func CallableRule(fn RuleFunc) MappingRule {
	return MappingRule{Kind: RuleCallable, Fn: fn}
}

// IsEmpty reports whether the rule carries no mapping.
func (r MappingRule) IsEmpty() bool {
	return r.Kind == RuleEmpty
}

// UnmarshalJSON accepts the two persisted encodings of a rule: a bare string
// (empty, sentinel token, or dot-path) or an object {"path": ..., "imageType": ...}.
func (r *MappingRule) UnmarshalJSON(b []byte) error {
	// Try the bare-string form first
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		switch s {
		case "":
			*r = MappingRule{Kind: RuleEmpty}
		case SentinelFeaturedImage:
			*r = MappingRule{Kind: RuleSentinel}
		default:
			*r = MappingRule{Kind: RulePath, Path: s}
		}
		return nil
	}

	// Fall back to the structured form
	var obj struct {
		Path      string        `json:"path"`
		ImageType ImageCoercion `json:"imageType"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return fmt.Errorf("invalid mapping rule: %w", err)
	}
	switch {
	case obj.Path == "":
		*r = MappingRule{Kind: RuleEmpty}
	case obj.Path == SentinelFeaturedImage:
		*r = MappingRule{Kind: RuleSentinel}
	case obj.ImageType == CoerceNone:
		*r = MappingRule{Kind: RulePath, Path: obj.Path}
	default:
		*r = MappingRule{Kind: RulePathWithCoercion, Path: obj.Path, Coercion: obj.ImageType}
	}
	return nil
}

// MarshalJSON writes the compact persisted encoding: bare strings where the
// rule has no coercion, the structured object otherwise. Callable rules are
// runtime-only and persist as empty.
func (r MappingRule) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case RulePath:
		return json.Marshal(r.Path)
	case RuleSentinel:
		return json.Marshal(SentinelFeaturedImage)
	case RulePathWithCoercion:
		return json.Marshal(struct {
			Path      string        `json:"path"`
			ImageType ImageCoercion `json:"imageType"`
		}{r.Path, r.Coercion})
	default:
		return json.Marshal("")
	}
}

// MappingConfig maps logical keys to their persisted rules. It is created by
// the administrative surface and read-only during assembly.
type MappingConfig map[LogicalKey]MappingRule

// Rule returns the configured rule for a key, or an empty rule.
func (c MappingConfig) Rule(key LogicalKey) MappingRule {
	if c == nil {
		return MappingRule{}
	}
	return c[key]
}
