package assemble

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SchemaPress/schemapress-vsd-go/internal/media"
	"github.com/SchemaPress/schemapress-vsd-go/internal/model"
	"github.com/SchemaPress/schemapress-vsd-go/internal/provider"
	"github.com/SchemaPress/schemapress-vsd-go/internal/storage"
)

// newTestAssembler wires a store-backed assembler over seeded fixtures.
func newTestAssembler(t *testing.T, cfg model.MappingConfig, items []model.Item, attachments []model.Attachment, opts Options) (*Assembler, storage.Store) {
	t.Helper()
	ctx := context.Background()
	store := storage.NewMemory()

	if cfg != nil {
		if err := store.SetMappingConfig(ctx, cfg); err != nil {
			t.Fatalf("failed to seed mapping: %v", err)
		}
	}
	for _, item := range items {
		if err := store.PutItem(ctx, item); err != nil {
			t.Fatalf("failed to seed item %s: %v", item.ID, err)
		}
	}
	for _, att := range attachments {
		if err := store.PutAttachment(ctx, att); err != nil {
			t.Fatalf("failed to seed attachment %d: %v", att.ID, err)
		}
	}

	content := provider.NewStoreContent(store)
	normalizer := media.New(provider.NewStoreAttachments(store, nil))
	return New(store, content, normalizer, nil, opts), store
}

// TestAssembleDocument drives a full run: mapped title, numeric thumbnail
// resolving to a structured image, item fallbacks, and pruning of everything
// the item does not carry.
func TestAssembleDocument(t *testing.T) {
	cfg := model.MappingConfig{
		model.KeyTitle:        model.PathRule("video.title"),
		model.KeyThumbnailURL: model.PathRule("video.poster_id"),
	}
	item := model.Item{
		ID:          "demo-1",
		Title:       "Item Fallback",
		Excerpt:     "A short demo video.",
		PublishedAt: time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC),
		Permalink:   "https://example.com/videos/demo-1",
		ContentType: "post",
		Fields: map[string]interface{}{
			"video": map[string]interface{}{
				"title":     "Demo",
				"poster_id": float64(10),
			},
		},
	}
	att := model.Attachment{
		ID: 10, URL: "https://cdn.example.com/10.jpg",
		MimeType: "image/jpeg", Width: 800, Height: 450,
	}
	a, _ := newTestAssembler(t, cfg, []model.Item{item}, []model.Attachment{att}, Options{})

	doc, err := a.Assemble(context.Background(), "demo-1")
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if doc == nil {
		t.Fatal("Assemble() withheld an eligible document")
	}

	if doc["@context"] != "https://schema.org" || doc["@type"] != "VideoObject" {
		t.Errorf("document header = %v / %v, want schema.org VideoObject", doc["@context"], doc["@type"])
	}
	if doc["name"] != "Demo" {
		t.Errorf("name = %v, want the mapped title", doc["name"])
	}
	if doc["description"] != "A short demo video." {
		t.Errorf("description = %v, want the excerpt fallback", doc["description"])
	}
	if doc["uploadDate"] != "2025-03-15T12:00:00Z" {
		t.Errorf("uploadDate = %v, want the publish time", doc["uploadDate"])
	}

	// The numeric thumbnail resolved with metadata, so it is a structured image
	thumb, ok := doc["thumbnailUrl"].(map[string]interface{})
	if !ok {
		t.Fatalf("thumbnailUrl = %T, want a structured image", doc["thumbnailUrl"])
	}
	if thumb["@type"] != "ImageObject" || thumb["url"] != "https://cdn.example.com/10.jpg" {
		t.Errorf("thumbnail = %v, want ImageObject with the attachment URL", thumb)
	}
	if thumb["width"] != float64(800) || thumb["height"] != float64(450) || thumb["encodingFormat"] != "image/jpeg" {
		t.Errorf("thumbnail metadata = %v, want provider-supplied values", thumb)
	}

	// Unmapped properties are pruned, never emitted empty
	for _, absent := range []string{"duration", "embedUrl", "contentUrl", "hasPart", "inLanguage", "image", "potentialAction"} {
		if _, exists := doc[absent]; exists {
			t.Errorf("document carries %q = %v, want pruned", absent, doc[absent])
		}
	}

	if !IsEligibleForDisplay(doc) {
		t.Error("IsEligibleForDisplay() = false for a complete document")
	}
}

// TestAssembleGating covers the withhold paths: no field provider and no
// opt-in, opt-in with a disallowed type, and opt-in with an allowed type.
func TestAssembleGating(t *testing.T) {
	ctx := context.Background()
	item := model.Item{
		ID:          "gated-1",
		Title:       "No Metadata",
		PublishedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Permalink:   "https://example.com/gated-1",
		ContentType: "post",
		// No Fields: no compatible field provider backs this item
	}
	a, store := newTestAssembler(t, nil, []model.Item{item}, nil, Options{})

	doc, err := a.Assemble(ctx, "gated-1")
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if doc != nil {
		t.Errorf("Assemble() = %v, want withheld without mapping or opt-in", doc)
	}

	// Preview ignores the gate entirely
	doc, err = a.Preview(ctx, "gated-1")
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	if doc == nil {
		t.Fatal("Preview() withheld the document")
	}
	if missing := MissingRequiredFields(doc); len(missing) != 1 || missing[0] != "thumbnailUrl" {
		t.Errorf("MissingRequiredFields() = %v, want [thumbnailUrl]", missing)
	}

	// Explicit opt-in lifts the gate for allowlisted content types
	if err := store.PutOverrides(ctx, model.OverrideSet{
		ItemID:  "gated-1",
		Enabled: true,
		Values: map[model.LogicalKey]interface{}{
			model.KeyThumbnailURL: "https://example.com/override.jpg",
		},
	}); err != nil {
		t.Fatalf("failed to seed overrides: %v", err)
	}
	doc, err = a.Assemble(ctx, "gated-1")
	if err != nil {
		t.Fatalf("Assemble() after opt-in error = %v", err)
	}
	if doc == nil {
		t.Fatal("Assemble() withheld an opted-in item")
	}
	if doc["thumbnailUrl"] != "https://example.com/override.jpg" {
		t.Errorf("thumbnailUrl = %v, want the override value", doc["thumbnailUrl"])
	}

	// A configured allowlist that excludes the type withholds again
	if err := store.SetTypeAllowlist(ctx, model.TypeAllowlist{"page"}); err != nil {
		t.Fatalf("failed to set allowlist: %v", err)
	}
	doc, err = a.Assemble(ctx, "gated-1")
	if err != nil {
		t.Fatalf("Assemble() with restricted allowlist error = %v", err)
	}
	if doc != nil {
		t.Errorf("Assemble() = %v, want withheld for a non-allowlisted type", doc)
	}
}

// TestAssembleNotFound propagates the provider miss untouched.
func TestAssembleNotFound(t *testing.T) {
	a, _ := newTestAssembler(t, nil, nil, nil, Options{})
	if _, err := a.Assemble(context.Background(), "missing"); !errors.Is(err, provider.ErrNotFound) {
		t.Errorf("Assemble(missing) error = %v, want provider.ErrNotFound", err)
	}
}

// TestAssembleMediaEncodings checks the single-encoding promotion, the
// multi-encoding parts list, and the legacy direct URL fallback.
func TestAssembleMediaEncodings(t *testing.T) {
	ctx := context.Background()
	attachments := []model.Attachment{
		{ID: 20, URL: "https://cdn.example.com/v.mp4", MimeType: "video/mp4", Size: 2048},
		{ID: 21, URL: "https://cdn.example.com/v.webm", MimeType: "video/webm", Size: 4096},
	}
	baseFields := func(extra map[string]interface{}) map[string]interface{} {
		fields := map[string]interface{}{
			"video": map[string]interface{}{"title": "Encoded"},
		}
		for k, v := range extra {
			fields[k] = v
		}
		return fields
	}
	cfg := model.MappingConfig{
		model.KeyTitle:      model.PathRule("video.title"),
		model.KeyHTML5MP4:   model.PathRule("mp4_id"),
		model.KeyHTML5WebM:  model.PathRule("webm_id"),
		model.KeyContentURL: model.PathRule("legacy_url"),
	}

	t.Run("SingleEncodingPromotes", func(t *testing.T) {
		item := model.Item{
			ID: "enc-1", Title: "Encoded", ContentType: "post",
			PublishedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			Fields:      baseFields(map[string]interface{}{"mp4_id": float64(20)}),
		}
		a, _ := newTestAssembler(t, cfg, []model.Item{item}, attachments, Options{})

		doc, err := a.Preview(ctx, "enc-1")
		if err != nil {
			t.Fatalf("Preview() error = %v", err)
		}
		if doc["contentUrl"] != "https://cdn.example.com/v.mp4" {
			t.Errorf("contentUrl = %v, want the promoted encoding URL", doc["contentUrl"])
		}
		if doc["encodingFormat"] != "video/mp4" || doc["contentSize"] != "2048" {
			t.Errorf("promoted metadata = %v / %v, want mp4 format and byte size", doc["encodingFormat"], doc["contentSize"])
		}
		parts, ok := doc["hasPart"].([]interface{})
		if !ok || len(parts) != 1 {
			t.Fatalf("hasPart = %v, want the single encoding", doc["hasPart"])
		}
	})

	t.Run("MultipleEncodingsStayInParts", func(t *testing.T) {
		item := model.Item{
			ID: "enc-2", Title: "Encoded", ContentType: "post",
			PublishedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			Fields: baseFields(map[string]interface{}{
				"mp4_id":  float64(20),
				"webm_id": float64(21),
			}),
		}
		a, _ := newTestAssembler(t, cfg, []model.Item{item}, attachments, Options{})

		doc, err := a.Preview(ctx, "enc-2")
		if err != nil {
			t.Fatalf("Preview() error = %v", err)
		}
		if _, exists := doc["contentUrl"]; exists {
			t.Errorf("contentUrl = %v, want no promotion with two encodings", doc["contentUrl"])
		}
		parts, ok := doc["hasPart"].([]interface{})
		if !ok || len(parts) != 2 {
			t.Fatalf("hasPart = %v, want both encodings", doc["hasPart"])
		}
		first, _ := parts[0].(map[string]interface{})
		if first["@type"] != "MediaObject" || first["contentUrl"] != "https://cdn.example.com/v.mp4" {
			t.Errorf("first part = %v, want the mp4 MediaObject", first)
		}
	})

	t.Run("LegacyURLOnlyWithoutEncodings", func(t *testing.T) {
		item := model.Item{
			ID: "enc-3", Title: "Encoded", ContentType: "post",
			PublishedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			Fields:      baseFields(map[string]interface{}{"legacy_url": "https://example.com/direct.mp4"}),
		}
		a, _ := newTestAssembler(t, cfg, []model.Item{item}, attachments, Options{})

		doc, err := a.Preview(ctx, "enc-3")
		if err != nil {
			t.Fatalf("Preview() error = %v", err)
		}
		if doc["contentUrl"] != "https://example.com/direct.mp4" {
			t.Errorf("contentUrl = %v, want the legacy direct URL", doc["contentUrl"])
		}
		if _, exists := doc["hasPart"]; exists {
			t.Errorf("hasPart = %v, want none", doc["hasPart"])
		}
	})
}

// TestAssembleClipsAndAction covers the clip markers and the flag-gated
// seek action. A clip starting at zero keeps its startOffset through pruning.
func TestAssembleClipsAndAction(t *testing.T) {
	cfg := model.MappingConfig{
		model.KeyTitle:        model.PathRule("video.title"),
		model.KeyClips:        model.PathRule("video.chapters"),
		model.KeySeekToAction: model.PathRule("video.seekable"),
	}
	item := model.Item{
		ID: "clip-1", Title: "Chaptered", ContentType: "post",
		PublishedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Permalink:   "https://example.com/videos/clip-1",
		Fields: map[string]interface{}{
			"video": map[string]interface{}{
				"title":    "Chaptered",
				"seekable": true,
				"chapters": []interface{}{
					map[string]interface{}{"name": "Intro", "start": float64(0), "end": float64(30)},
					map[string]interface{}{"name": "Main", "start": float64(30)},
				},
			},
		},
	}
	a, _ := newTestAssembler(t, cfg, []model.Item{item}, nil, Options{})

	doc, err := a.Preview(context.Background(), "clip-1")
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}

	parts, ok := doc["hasPart"].([]interface{})
	if !ok || len(parts) != 2 {
		t.Fatalf("hasPart = %v, want two clips", doc["hasPart"])
	}
	intro, _ := parts[0].(map[string]interface{})
	if intro["@type"] != "Clip" || intro["name"] != "Intro" {
		t.Errorf("first clip = %v, want Clip named Intro", intro)
	}
	// startOffset zero is meaningful and survives pruning
	if v, exists := intro["startOffset"]; !exists || v != float64(0) {
		t.Errorf("intro startOffset = %v, want 0 retained", v)
	}
	if intro["url"] != "https://example.com/videos/clip-1?t=0" {
		t.Errorf("intro url = %v, want the timestamped permalink", intro["url"])
	}

	action, ok := doc["potentialAction"].(map[string]interface{})
	if !ok {
		t.Fatalf("potentialAction = %T, want the seek action", doc["potentialAction"])
	}
	if action["@type"] != "SeekToAction" {
		t.Errorf("action type = %v, want SeekToAction", action["@type"])
	}
	if action["target"] != "https://example.com/videos/clip-1?t={seek_to_second_number}" {
		t.Errorf("action target = %v, want the templated permalink", action["target"])
	}
	if action["startOffset-input"] != "required name=seek_to_second_number" {
		t.Errorf("action input annotation = %v", action["startOffset-input"])
	}
}

// TestAssembleAugmentBoundary keeps the pruned document when the hook panics
// and applies a replacement when it returns one.
func TestAssembleAugmentBoundary(t *testing.T) {
	cfg := model.MappingConfig{
		model.KeyTitle: model.PathRule("video.title"),
	}
	item := model.Item{
		ID: "aug-1", Title: "Hooked", ContentType: "post",
		PublishedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Fields: map[string]interface{}{
			"video": map[string]interface{}{"title": "Hooked"},
		},
	}

	t.Run("PanicKeepsDocument", func(t *testing.T) {
		a, _ := newTestAssembler(t, cfg, []model.Item{item}, nil, Options{
			Augment: func(doc model.Document, itemID string) model.Document {
				panic("hook exploded")
			},
		})
		doc, err := a.Assemble(context.Background(), "aug-1")
		if err != nil {
			t.Fatalf("Assemble() error = %v", err)
		}
		if doc == nil || doc["name"] != "Hooked" {
			t.Errorf("document after hook panic = %v, want the unaugmented document", doc)
		}
	})

	t.Run("AdditionsSurviveUnpruned", func(t *testing.T) {
		a, _ := newTestAssembler(t, cfg, []model.Item{item}, nil, Options{
			Augment: func(doc model.Document, itemID string) model.Document {
				// Hooks may deliberately emit values pruning would drop
				doc["regionsAllowed"] = ""
				doc["itemRef"] = itemID
				return doc
			},
		})
		doc, err := a.Assemble(context.Background(), "aug-1")
		if err != nil {
			t.Fatalf("Assemble() error = %v", err)
		}
		if v, exists := doc["regionsAllowed"]; !exists || v != "" {
			t.Errorf("augmented empty value = %v, %v; want retained", v, exists)
		}
		if doc["itemRef"] != "aug-1" {
			t.Errorf("augmented itemRef = %v, want the item id", doc["itemRef"])
		}
	})
}

// TestNormalizeDuration covers the accepted arrival forms.
func TestNormalizeDuration(t *testing.T) {
	cases := []struct {
		name string
		in   interface{}
		want string
	}{
		{"iso passes through", "PT1M30S", "PT1M30S"},
		{"iso lowercase prefix", "pT2M", "pT2M"},
		{"clock m:ss", "1:30", "PT1M30S"},
		{"clock h:mm:ss", "1:02:03", "PT1H2M3S"},
		{"integer seconds", float64(90), "PT1M30S"},
		{"numeric string seconds", "3725", "PT1H2M5S"},
		{"zero seconds", float64(0), "PT0S"},
		{"free text passes through", "about an hour", "about an hour"},
		{"empty", "", ""},
		{"non-numeric non-string", true, ""},
	}
	for _, tc := range cases {
		if got := normalizeDuration(tc.in); got != tc.want {
			t.Errorf("%s: normalizeDuration(%v) = %q, want %q", tc.name, tc.in, got, tc.want)
		}
	}
}

// TestStripMarkup removes tags and decodes entities from inline text.
func TestStripMarkup(t *testing.T) {
	in := "  <p>Ben &amp; Jerry&#39;s <strong>story</strong></p> "
	if got := stripMarkup(in); got != "Ben & Jerry's story" {
		t.Errorf("stripMarkup = %q", got)
	}
}

// TestPrune drops empty leaves bottom-up and keeps zero-valued numbers.
func TestPrune(t *testing.T) {
	doc := model.Document{
		"name":  "Kept",
		"empty": "",
		"nil":   nil,
		"list":  []interface{}{"", nil},
		"nested": map[string]interface{}{
			"inner": map[string]interface{}{"gone": ""},
		},
		"offset": float64(0),
		"flag":   false,
	}
	pruned := Prune(doc)

	if pruned["name"] != "Kept" {
		t.Errorf("name = %v, want retained", pruned["name"])
	}
	for _, gone := range []string{"empty", "nil", "list", "nested"} {
		if _, exists := pruned[gone]; exists {
			t.Errorf("%q survived pruning", gone)
		}
	}
	// Numbers and booleans always survive, zero-valued or not
	if v, exists := pruned["offset"]; !exists || v != float64(0) {
		t.Errorf("offset = %v, %v; want 0 retained", v, exists)
	}
	if v, exists := pruned["flag"]; !exists || v != false {
		t.Errorf("flag = %v, %v; want false retained", v, exists)
	}
}
