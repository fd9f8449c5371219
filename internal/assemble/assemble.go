// internal/assemble/assemble.go
// Package assemble builds the final structured-data document for one item:
// eligibility gating, per-property mapping resolution, media and clip
// normalization, pruning, and the augmentation extension point.
package assemble

import (
	"context"
	"errors"
	"time"

	"github.com/SchemaPress/schemapress-vsd-go/internal/clips"
	"github.com/SchemaPress/schemapress-vsd-go/internal/mapping"
	"github.com/SchemaPress/schemapress-vsd-go/internal/media"
	"github.com/SchemaPress/schemapress-vsd-go/internal/metrics"
	"github.com/SchemaPress/schemapress-vsd-go/internal/model"
	"github.com/SchemaPress/schemapress-vsd-go/internal/oembed"
	"github.com/SchemaPress/schemapress-vsd-go/internal/provider"
	"github.com/SchemaPress/schemapress-vsd-go/internal/rawvalue"
	"github.com/SchemaPress/schemapress-vsd-go/internal/storage"
)

// requiredProperties must all be present and non-empty for a document to be
// eligible for public display.
var requiredProperties = []string{"name", "thumbnailUrl", "uploadDate"}

// AugmentFunc is the post-assembly extension point. It receives the pruned
// document and may return a replacement. A panic inside the hook keeps the
// unaugmented document. Augmented additions are not re-pruned, so hooks may
// intentionally emit values pruning would otherwise drop.
type AugmentFunc func(doc model.Document, itemID string) model.Document

// Options carries the optional assembly collaborators.
type Options struct {
	Filter  mapping.FilterFunc // Mapping filter extension point
	Augment AugmentFunc        // Post-assembly document hook
	Metrics *metrics.Metrics   // Nil disables instrumentation
}

// Assembler builds documents. It is safe for concurrent use; all per-item
// state lives in the assembly run.
type Assembler struct {
	store        storage.Store
	content      provider.Content
	media        *media.Normalizer
	defaultTypes model.TypeAllowlist
	opts         Options
}

// New builds an Assembler.
// Parameters:
//   - store: Configuration and override persistence
//   - content: External content provider for items and field lookups
//   - normalizer: Media normalizer backed by the attachment provider
//   - defaultTypes: Allowlist applied when none has been configured
//   - opts: Optional filter, augmentation hook and metrics
func New(store storage.Store, content provider.Content, normalizer *media.Normalizer, defaultTypes model.TypeAllowlist, opts Options) *Assembler {
	if defaultTypes == nil {
		defaultTypes = model.DefaultTypeAllowlist
	}
	return &Assembler{
		store:        store,
		content:      content,
		media:        normalizer,
		defaultTypes: defaultTypes,
		opts:         opts,
	}
}

// Assemble builds the document for one item with eligibility gating applied.
// Returns:
//   - model.Document: The pruned document, or nil when gating withheld it
//   - error: provider.ErrNotFound when the item does not exist, or a
//     storage failure
func (a *Assembler) Assemble(ctx context.Context, itemID string) (model.Document, error) {
	start := time.Now()
	doc, err := a.assemble(ctx, itemID, true)
	a.observeRun(start, doc, err)
	return doc, err
}

// Preview builds the document for one item without eligibility gating, for
// the administrative preview surface. Pair it with IsEligibleForDisplay and
// MissingRequiredFields for the full diagnostic picture.
func (a *Assembler) Preview(ctx context.Context, itemID string) (model.Document, error) {
	return a.assemble(ctx, itemID, false)
}

// assemble is the shared assembly run. gated selects whether the minimum
// mapping / opt-in check may withhold the document.
func (a *Assembler) assemble(ctx context.Context, itemID string, gated bool) (model.Document, error) {
	// 1. Resolve the item through the content provider
	item, err := a.content.Item(ctx, itemID)
	if err != nil {
		return nil, err
	}

	// 2. Load the persisted mapping and the per-item override set
	cfg, err := a.store.GetMappingConfig(ctx)
	if err != nil {
		return nil, err
	}
	overrides, err := a.store.GetOverrides(ctx, itemID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	// 3. Build the request-scoped mapper. The naming-convention fallback is
	// wired only when a compatible field provider backs the item.
	lookup := func(name string) (interface{}, bool) {
		return a.content.Field(ctx, itemID, name)
	}
	var custom mapping.FieldLookup
	if a.content.HasFieldProvider(ctx, itemID) {
		custom = lookup
	}
	mapper := mapping.New(itemID, cfg, overrides, lookup, mapping.Options{
		Filter: a.opts.Filter,
		Custom: custom,
	})

	// 4. Eligibility gate. An item qualifies outright when a field provider
	// exists and at least one core key resolves; otherwise it must be
	// explicitly enabled and of an allowlisted content type.
	if gated && !a.hasMinimumMapping(mapper) {
		if overrides == nil || !overrides.Enabled {
			return nil, nil
		}
		allowlist, err := a.allowlist(ctx)
		if err != nil {
			return nil, err
		}
		if !allowlist.Contains(item.ContentType) {
			return nil, nil
		}
	}

	doc := model.Document{
		"@context": model.SchemaContext,
		"@type":    model.TypeVideoObject,
	}

	// 5. Textual properties, falling back to the item's own fields
	if name := asString(a.resolve(mapper, model.KeyTitle)); name != "" {
		doc["name"] = name
	} else {
		doc["name"] = item.Title
	}
	if desc := asString(a.resolve(mapper, model.KeyDescription)); desc != "" {
		doc["description"] = desc
	} else {
		doc["description"] = item.Excerpt
	}
	if uploaded := asString(a.resolve(mapper, model.KeyUploadDate)); uploaded != "" {
		doc["uploadDate"] = uploaded
	} else if !item.PublishedAt.IsZero() {
		doc["uploadDate"] = item.PublishedAt.Format(time.RFC3339)
	}
	if raw, ok := a.resolve(mapper, model.KeyDurationISO); ok {
		doc["duration"] = normalizeDuration(raw)
	}

	// 6. Thumbnail and secondary title image. The featured-image sentinel is
	// replaced with the item's primary image identifier before normalization.
	thumb := a.normalizeImage(ctx, mapper, model.KeyThumbnailURL, item.FeaturedImageID)
	a.observeThumbnail(thumb)
	doc["thumbnailUrl"] = thumb
	doc["image"] = a.normalizeImage(ctx, mapper, model.KeyMainTitleImage, item.FeaturedImageID)

	// 7. Embed URL, rewritten to the provider's embeddable-player form
	if embed := asString(a.resolve(mapper, model.KeyEmbedURL)); embed != "" {
		doc["embedUrl"] = oembed.ToEmbedURL(embed)
	}

	// 8. Self-hosted media encodings. A single resolved encoding promotes its
	// URL, format and size to the top level; all resolved encodings join the
	// parts list. Only when no encoding resolves does the legacy direct URL
	// apply.
	parts := a.mediaParts(ctx, mapper)
	if len(parts) == 1 {
		doc["contentUrl"] = parts[0].ContentURL
		doc["encodingFormat"] = parts[0].EncodingFormat
		doc["contentSize"] = parts[0].ContentSize
	}
	if len(parts) == 0 {
		if legacy := asString(a.resolve(mapper, model.KeyContentURL)); rawvalue.IsURL(legacy) {
			doc["contentUrl"] = legacy
		}
	}

	// 9. Parts list: media encodings first, then clips in source order
	hasPart := make([]interface{}, 0, len(parts))
	for _, p := range parts {
		hasPart = append(hasPart, p)
	}
	for _, clip := range a.clips(mapper, item.Permalink) {
		hasPart = append(hasPart, clip)
	}
	if len(hasPart) > 0 {
		doc["hasPart"] = hasPart
	}

	// 10. Transcript, language, accessibility annotation
	if transcript := asString(a.resolve(mapper, model.KeyTranscriptURL)); transcript != "" {
		if rawvalue.IsURL(transcript) {
			doc["transcript"] = transcript
		} else {
			doc["transcript"] = stripMarkup(transcript)
		}
	}
	doc["inLanguage"] = asString(a.resolve(mapper, model.KeyLanguage))
	if visual := asString(a.resolve(mapper, model.KeyVisualDescription)); visual != "" {
		doc["accessibilitySummary"] = stripMarkup(visual)
	}

	// 11. Seek-to-offset action, flag-gated and anchored on the permalink
	if flag, ok := a.resolve(mapper, model.KeySeekToAction); ok && isTruthy(flag) && item.Permalink != "" {
		doc["potentialAction"] = model.Document{
			"@type":             model.TypeSeekToAction,
			"target":            item.Permalink + "?t={seek_to_second_number}",
			"startOffset-input": "required name=seek_to_second_number",
		}
	}

	// 12. Prune, then hand the finished document to the augmentation hook
	doc = Prune(normalizeDoc(doc))
	if a.opts.Augment != nil {
		doc = a.safeAugment(doc, itemID)
	}
	return doc, nil
}

// hasMinimumMapping reports whether the item qualifies for output without an
// explicit opt-in: a compatible field provider exists and at least one of
// the core keys resolves through the mapping sources.
func (a *Assembler) hasMinimumMapping(mapper *mapping.Mapper) bool {
	if !mapper.HasFieldProvider() {
		return false
	}
	for _, key := range []model.LogicalKey{model.KeyTitle, model.KeyThumbnailURL, model.KeyUploadDate} {
		if _, ok := a.resolve(mapper, key); ok {
			return true
		}
	}
	return false
}

// allowlist returns the configured content-type allowlist, or the defaults
// when none has been set.
func (a *Assembler) allowlist(ctx context.Context) (model.TypeAllowlist, error) {
	types, err := a.store.GetTypeAllowlist(ctx)
	if err != nil {
		return nil, err
	}
	if types == nil {
		return a.defaultTypes, nil
	}
	return types, nil
}

// resolve resolves one logical key and records which source won.
func (a *Assembler) resolve(mapper *mapping.Mapper, key model.LogicalKey) (interface{}, bool) {
	v, source, ok := mapper.ResolveSource(key)
	if a.opts.Metrics != nil && ok {
		a.opts.Metrics.MappingResolutionTotal.WithLabelValues(string(key), sourceLabel(source)).Inc()
	}
	return v, ok
}

// sourceLabel renders a mapping source as a metric label value.
func sourceLabel(s mapping.Source) string {
	switch s {
	case mapping.SourceOverride:
		return "override"
	case mapping.SourceConfig:
		return "config"
	case mapping.SourceFilter:
		return "filter"
	case mapping.SourceConvention:
		return "convention"
	default:
		return "none"
	}
}

// normalizeImage resolves and normalizes one image-bearing key.
func (a *Assembler) normalizeImage(ctx context.Context, mapper *mapping.Mapper, key model.LogicalKey, featuredImageID int64) interface{} {
	raw, ok := a.resolve(mapper, key)
	if !ok {
		return nil
	}
	raw = a.media.ResolveSentinel(raw, featuredImageID)
	return a.media.NormalizeThumbnail(ctx, raw)
}

// mediaParts resolves the self-hosted encodings into MediaObjects. Keys that
// do not carry a usable numeric identifier are skipped.
func (a *Assembler) mediaParts(ctx context.Context, mapper *mapping.Mapper) []model.MediaObject {
	parts := make([]model.MediaObject, 0, 2)
	for _, key := range []model.LogicalKey{model.KeyHTML5MP4, model.KeyHTML5WebM} {
		raw, ok := a.resolve(mapper, key)
		if !ok {
			continue
		}
		id, ok := rawvalue.AsID(raw)
		if !ok {
			continue
		}
		if obj := a.media.FileToMediaObject(ctx, id); obj != nil {
			parts = append(parts, *obj)
		}
	}
	return parts
}

// clips resolves and parses the chapter/clip markers. Both the structured
// repeating-group shape and the serialized-JSON shape are accepted.
func (a *Assembler) clips(mapper *mapping.Mapper, permalink string) []model.Clip {
	raw, ok := a.resolve(mapper, model.KeyClips)
	if !ok {
		return nil
	}
	switch t := raw.(type) {
	case []interface{}:
		return clips.ParseRows(t, permalink)
	case string:
		return clips.ParseJSON(t, permalink)
	default:
		return nil
	}
}

// safeAugment runs the augmentation hook inside a failure boundary. A panic
// or a nil result keeps the unaugmented document.
func (a *Assembler) safeAugment(doc model.Document, itemID string) (out model.Document) {
	out = doc
	defer func() {
		if recover() != nil {
			out = doc
		}
	}()
	if augmented := a.opts.Augment(doc, itemID); augmented != nil {
		out = augmented
	}
	return out
}

// observeRun records the outcome and duration of a gated assembly run.
func (a *Assembler) observeRun(start time.Time, doc model.Document, err error) {
	if a.opts.Metrics == nil {
		return
	}
	outcome := "assembled"
	switch {
	case err != nil:
		outcome = "error"
	case doc == nil:
		outcome = "withheld"
	}
	a.opts.Metrics.AssemblyTotal.WithLabelValues(outcome).Inc()
	a.opts.Metrics.AssemblyDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}

// observeThumbnail records the normalized thumbnail's output shape.
func (a *Assembler) observeThumbnail(thumb interface{}) {
	if a.opts.Metrics == nil {
		return
	}
	shape := "none"
	switch thumb.(type) {
	case string:
		shape = "url"
	case []string:
		shape = "url_list"
	case model.ImageObject:
		shape = "image_object"
	}
	a.opts.Metrics.ThumbnailShapeTotal.WithLabelValues(shape).Inc()
}

// IsEligibleForDisplay reports whether a document carries every required
// property with a usable value. A nil document is never eligible.
func IsEligibleForDisplay(doc model.Document) bool {
	return doc != nil && len(missingRequired(doc)) == 0
}

// MissingRequiredFields lists the required properties a document lacks, for
// the administrative preview. A nil document misses everything.
func MissingRequiredFields(doc model.Document) []string {
	if doc == nil {
		return append([]string{}, requiredProperties...)
	}
	return missingRequired(doc)
}

// missingRequired checks each required property for a non-empty value.
func missingRequired(doc model.Document) []string {
	missing := []string{}
	for _, prop := range requiredProperties {
		v, exists := doc[prop]
		if !exists || v == nil {
			missing = append(missing, prop)
			continue
		}
		if s, isStr := v.(string); isStr && s == "" {
			missing = append(missing, prop)
		}
	}
	return missing
}
