// internal/model/document.go
// Output shapes for the assembled structured-data document: the document
// itself plus the Clip, ImageObject and MediaObject sub-shapes consuming
// systems expect.
package model

// Schema.org type names emitted in "@type" fields.
const (
	TypeVideoObject  = "VideoObject"
	TypeImageObject  = "ImageObject"
	TypeMediaObject  = "MediaObject"
	TypeClip         = "Clip"
	TypeSeekToAction = "SeekToAction"

	// SchemaContext is the vocabulary URL for the top-level document.
	SchemaContext = "https://schema.org"
)

// Document is the assembled structured-data record. Keys are schema.org
// property names; values are strings, numbers, arrays, or nested documents.
// Empty strings, nils and empty arrays are pruned before output.
type Document map[string]interface{}

// Clip is one chapter/clip marker in source order.
type Clip struct {
	Type        string `json:"@type"`                 // Always "Clip"
	Name        string `json:"name,omitempty"`        // Display name
	StartOffset int    `json:"startOffset"`           // Seconds from start, >= 0
	EndOffset   *int   `json:"endOffset,omitempty"`   // Seconds from start, nil when open-ended
	URL         string `json:"url,omitempty"`         // Deep link, defaults to permalink?t=<start>
}

// ImageObject is the structured thumbnail shape. Width, height and
// encodingFormat are included only when the attachment provider supplies
// them, never synthesized.
type ImageObject struct {
	Type           string `json:"@type"`                    // Always "ImageObject"
	URL            string `json:"url"`                      // Image URL
	Width          int    `json:"width,omitempty"`          // Pixel width
	Height         int    `json:"height,omitempty"`         // Pixel height
	EncodingFormat string `json:"encodingFormat,omitempty"` // MIME type
}

// MediaObject is the structured shape for a resolved media file encoding.
type MediaObject struct {
	Type           string `json:"@type"`                    // Always "MediaObject"
	ContentURL     string `json:"contentUrl"`               // Media file URL
	EncodingFormat string `json:"encodingFormat,omitempty"` // MIME type
	ContentSize    string `json:"contentSize,omitempty"`    // Decimal byte count
	Width          int    `json:"width,omitempty"`          // Pixel width
	Height         int    `json:"height,omitempty"`         // Pixel height
}
