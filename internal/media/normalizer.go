// internal/media/normalizer.go
// Package media normalizes raw thumbnail/media values into their canonical
// output shapes: a single URL, an array of unique URLs, or a structured
// ImageObject/MediaObject with optional dimensions and encoding metadata.
package media

import (
	"context"
	"strconv"
	"strings"

	"github.com/SchemaPress/schemapress-vsd-go/internal/model"
	"github.com/SchemaPress/schemapress-vsd-go/internal/rawvalue"
)

// Attachments is the external attachment provider: given a numeric
// identifier it exposes a URL, MIME type, byte size, and optional
// dimensions. A provider failure is treated as a miss, never propagated.
type Attachments interface {
	Attachment(ctx context.Context, id int64) (*model.Attachment, error)
}

// Normalizer turns raw mapped media values into canonical shapes.
type Normalizer struct {
	attachments Attachments
}

// New builds a Normalizer over the given attachment provider. The provider
// may be nil, in which case numeric identifiers never resolve.
func New(attachments Attachments) *Normalizer {
	return &Normalizer{attachments: attachments}
}

// ResolveSentinel replaces the featured-image sentinel token with the item's
// primary designated image identifier before normalization. Absence of a
// primary image yields nil, which fails eligibility downstream.
func (n *Normalizer) ResolveSentinel(raw interface{}, featuredImageID int64) interface{} {
	s, isStr := raw.(string)
	if !isStr || s != model.SentinelFeaturedImage {
		return raw
	}
	if featuredImageID <= 0 {
		return nil
	}
	return featuredImageID
}

// NormalizeThumbnail normalizes a raw thumbnail value. The result is one of:
// nil, a URL string, a []string of unique URLs in first-seen order, or a
// model.ImageObject when a bare numeric identifier resolved with metadata.
func (n *Normalizer) NormalizeThumbnail(ctx context.Context, raw interface{}) interface{} {
	switch rawvalue.Classify(raw) {
	case rawvalue.KindMiss:
		return nil

	case rawvalue.KindObject:
		obj := raw.(map[string]interface{})
		// Explicit URL field wins
		if u, ok := rawvalue.ObjectURL(obj); ok {
			return u
		}
		// Alternate-sizes collection: "full" if named, else first available
		if u, ok := rawvalue.ObjectSizeURL(obj); ok {
			return u
		}
		return nil

	case rawvalue.KindList:
		return collapseURLs(collectURLs(raw.([]interface{})))

	case rawvalue.KindImageRef:
		// Opaque file identifier: resolve through the attachment provider.
		// Metadata-bearing results promote to a structured ImageObject.
		id, _ := rawvalue.AsID(raw)
		return n.normalizeAttachment(ctx, id)

	default:
		s, isStr := raw.(string)
		if !isStr {
			return nil
		}
		// Comma-list of URLs
		if strings.Contains(s, ",") {
			parts := strings.Split(s, ",")
			urls := make([]string, 0, len(parts))
			for _, p := range parts {
				p = strings.TrimSpace(p)
				if rawvalue.IsURL(p) {
					urls = append(urls, p)
				}
			}
			return collapseURLs(dedupe(urls))
		}
		// Plain string: keep only valid absolute URLs
		if rawvalue.IsURL(s) {
			return strings.TrimSpace(s)
		}
		return nil
	}
}

// normalizeAttachment resolves a file identifier to a URL, promoting to an
// ImageObject when the provider supplies dimensions or a MIME type.
func (n *Normalizer) normalizeAttachment(ctx context.Context, id int64) interface{} {
	att := n.lookup(ctx, id)
	if att == nil || att.URL == "" {
		return nil
	}
	if att.Width > 0 || att.Height > 0 || att.MimeType != "" {
		return model.ImageObject{
			Type:           model.TypeImageObject,
			URL:            att.URL,
			Width:          att.Width,
			Height:         att.Height,
			EncodingFormat: att.MimeType,
		}
	}
	return att.URL
}

// FileToMediaObject resolves a file identifier into a structured MediaObject.
// Returns nil when the provider cannot resolve a URL. contentSize is the
// decimal byte count; width, height and encodingFormat are included only
// when the provider supplies them, never synthesized.
func (n *Normalizer) FileToMediaObject(ctx context.Context, id int64) *model.MediaObject {
	att := n.lookup(ctx, id)
	if att == nil || att.URL == "" {
		return nil
	}
	obj := &model.MediaObject{
		Type:           model.TypeMediaObject,
		ContentURL:     att.URL,
		EncodingFormat: att.MimeType,
		Width:          att.Width,
		Height:         att.Height,
	}
	if att.Size > 0 {
		obj.ContentSize = strconv.FormatInt(att.Size, 10)
	}
	return obj
}

// lookup wraps the provider call, degrading any failure to a miss.
func (n *Normalizer) lookup(ctx context.Context, id int64) *model.Attachment {
	if n.attachments == nil || id <= 0 {
		return nil
	}
	att, err := n.attachments.Attachment(ctx, id)
	if err != nil {
		return nil
	}
	return att
}

// collectURLs gathers valid URLs from a list of image items or URL strings.
func collectURLs(items []interface{}) []string {
	urls := make([]string, 0, len(items))
	for _, item := range items {
		switch t := item.(type) {
		case string:
			if rawvalue.IsURL(t) {
				urls = append(urls, strings.TrimSpace(t))
			}
		case map[string]interface{}:
			if u, ok := rawvalue.ObjectURL(t); ok {
				urls = append(urls, u)
			} else if u, ok := rawvalue.ObjectSizeURL(t); ok {
				urls = append(urls, u)
			}
		}
	}
	return dedupe(urls)
}

// dedupe removes duplicate URLs preserving first-seen order.
func dedupe(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	out := urls[:0]
	for _, u := range urls {
		if !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}
	return out
}

// collapseURLs applies the single-URL shortcut: one URL returns the bare
// string, several return the array, none returns nil.
func collapseURLs(urls []string) interface{} {
	switch len(urls) {
	case 0:
		return nil
	case 1:
		return urls[0]
	default:
		return urls
	}
}
