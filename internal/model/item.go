// internal/model/item.go
// Content items, per-item overrides and attachment metadata as exposed by
// the external content and attachment providers.
package model

import (
	"time"
)

// Item is the provider-level view of one content item. The core reads it;
// the embedding host owns it.
type Item struct {
	ID              string                 `json:"id" db:"id"`                             // Item identifier
	Title           string                 `json:"title" db:"title"`                       // Item's own title
	Excerpt         string                 `json:"excerpt" db:"excerpt"`                   // Stripped excerpt
	PublishedAt     time.Time              `json:"publishedAt" db:"published_at"`          // Publish time
	Permalink       string                 `json:"permalink" db:"permalink"`               // Canonical page URL
	ContentType     string                 `json:"contentType" db:"content_type"`          // Content-type identifier (e.g. post, page)
	FeaturedImageID int64                  `json:"featuredImageId" db:"featured_image_id"` // Primary designated image, 0 when absent
	Fields          map[string]interface{} `json:"fields" db:"fields"`                     // Arbitrary nested metadata by field name
}

// OverrideSet holds values entered directly for one item. Values are already
// scalar/structured; no path resolution applies. Highest mapping precedence.
type OverrideSet struct {
	ItemID  string                        `json:"itemId" db:"item_id"`  // Owning item
	Enabled bool                          `json:"enabled" db:"enabled"` // Explicit per-item opt-in flag
	Values  map[LogicalKey]interface{}    `json:"values" db:"values"`   // Per-key raw values
}

// Value returns the override for a key. Empty strings and nils count as
// absent so they fall through to the next mapping source.
func (o *OverrideSet) Value(key LogicalKey) (interface{}, bool) {
	if o == nil || o.Values == nil {
		return nil, false
	}
	v, exists := o.Values[key]
	if !exists || v == nil {
		return nil, false
	}
	if s, isStr := v.(string); isStr && s == "" {
		return nil, false
	}
	return v, true
}

// Attachment is the external attachment provider's view of one file.
type Attachment struct {
	ID       int64  `json:"id" db:"id"`              // Numeric attachment identifier
	URL      string `json:"url" db:"url"`            // Resolvable file URL
	MimeType string `json:"mimeType" db:"mime_type"` // MIME type
	Size     int64  `json:"size" db:"size"`          // Size in bytes
	Width    int    `json:"width" db:"width"`        // Pixel width, 0 when unknown
	Height   int    `json:"height" db:"height"`      // Pixel height, 0 when unknown
}

// TypeAllowlist is the set of content types eligible for document output.
type TypeAllowlist []string

// DefaultTypeAllowlist applies when no allowlist has been configured.
var DefaultTypeAllowlist = TypeAllowlist{"post", "page"}

// Contains reports whether the content type is allowed.
func (a TypeAllowlist) Contains(contentType string) bool {
	for _, t := range a {
		if t == contentType {
			return true
		}
	}
	return false
}

// DocumentResponse wraps an assembled document in the standard data envelope.
type DocumentResponse struct {
	Data Document `json:"data"`
}

// PreviewResponse is the administrative preview of an assembly run: the
// document as assembled (possibly ineligible), the missing required fields,
// and any schema-validation findings.
type PreviewResponse struct {
	Data PreviewData `json:"data"`
}

// PreviewData carries the preview payload.
type PreviewData struct {
	Document      Document `json:"document,omitempty"`      // Assembled document, absent when gating withheld it
	Eligible      bool     `json:"eligible"`                // Display-eligibility verdict
	MissingFields []string `json:"missingFields,omitempty"` // Required properties still empty
	SchemaErrors  []string `json:"schemaErrors,omitempty"`  // JSON-schema validation findings
}

// PutItemRequest is the ingest fixture for a content item.
type PutItemRequest struct {
	ID              string                 `json:"id,omitempty"` // Optional; minted when empty
	Title           string                 `json:"title"`
	Excerpt         string                 `json:"excerpt,omitempty"`
	PublishedAt     *time.Time             `json:"publishedAt,omitempty"`
	Permalink       string                 `json:"permalink"`
	ContentType     string                 `json:"contentType"`
	FeaturedImageID int64                  `json:"featuredImageId,omitempty"`
	Fields          map[string]interface{} `json:"fields,omitempty"`
}

// PutOverridesRequest replaces the per-item override set.
type PutOverridesRequest struct {
	Enabled bool                       `json:"enabled"`
	Values  map[LogicalKey]interface{} `json:"values,omitempty"`
}

// PutMappingRequest replaces the persisted mapping configuration.
type PutMappingRequest struct {
	Mapping MappingConfig `json:"mapping"`
}

// PutTypesRequest replaces the content-type allowlist.
type PutTypesRequest struct {
	Types TypeAllowlist `json:"types"`
}
