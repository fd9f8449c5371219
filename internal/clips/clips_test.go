package clips

import (
	"testing"
)

const permalink = "https://example.com/videos/demo"

// TestParseRows covers the tolerant key aliases and per-field defaults.
func TestParseRows(t *testing.T) {
	rows := []interface{}{
		map[string]interface{}{
			"name":  "Intro",
			"start": float64(0),
			"end":   float64(30),
		},
		map[string]interface{}{
			"clip_name":   "Deep Dive",
			"startOffset": "90.9",
			"endOffset":   float64(240),
			"url":         "https://example.com/videos/demo#deep-dive",
		},
		map[string]interface{}{
			"name": "Outro",
		},
	}

	clips := ParseRows(rows, permalink)
	if len(clips) != 3 {
		t.Fatalf("ParseRows returned %d clips, want 3", len(clips))
	}

	intro := clips[0]
	if intro.Type != "Clip" || intro.Name != "Intro" || intro.StartOffset != 0 {
		t.Errorf("intro = %+v, want Clip named Intro starting at 0", intro)
	}
	if intro.EndOffset == nil || *intro.EndOffset != 30 {
		t.Errorf("intro end = %v, want 30", intro.EndOffset)
	}
	// A zero start still produces the timestamped deep link
	if intro.URL != "https://example.com/videos/demo?t=0" {
		t.Errorf("intro url = %q, want permalink?t=0", intro.URL)
	}

	deep := clips[1]
	if deep.Name != "Deep Dive" {
		t.Errorf("second clip name = %q, want the clip_name alias value", deep.Name)
	}
	// Numeric strings truncate rather than round
	if deep.StartOffset != 90 {
		t.Errorf("second clip start = %d, want truncated 90", deep.StartOffset)
	}
	// An explicit url wins over the permalink default
	if deep.URL != "https://example.com/videos/demo#deep-dive" {
		t.Errorf("second clip url = %q, want the explicit url", deep.URL)
	}

	outro := clips[2]
	if outro.StartOffset != 0 || outro.EndOffset != nil {
		t.Errorf("outro = %+v, want default start 0 and open end", outro)
	}
	if outro.URL != "https://example.com/videos/demo?t=0" {
		t.Errorf("outro url = %q, want permalink default", outro.URL)
	}
}

// TestParseRowsSkipsNonObjects drops scalar rows without disturbing order.
func TestParseRowsSkipsNonObjects(t *testing.T) {
	rows := []interface{}{
		"not a row",
		map[string]interface{}{"name": "Only"},
		float64(7),
	}
	clips := ParseRows(rows, permalink)
	if len(clips) != 1 || clips[0].Name != "Only" {
		t.Errorf("ParseRows = %+v, want the single object row", clips)
	}
}

// TestParseRowsNoPermalink leaves the URL empty when no explicit url and no
// permalink exist to build one from.
func TestParseRowsNoPermalink(t *testing.T) {
	clips := ParseRows([]interface{}{map[string]interface{}{"name": "A"}}, "")
	if len(clips) != 1 || clips[0].URL != "" {
		t.Errorf("ParseRows without permalink = %+v, want empty url", clips)
	}
}

// TestParseJSON parses the serialized form and fails soft on bad input.
func TestParseJSON(t *testing.T) {
	clips := ParseJSON(`[{"name":"Intro","start":5}]`, permalink)
	if len(clips) != 1 || clips[0].Name != "Intro" || clips[0].StartOffset != 5 {
		t.Errorf("ParseJSON = %+v, want one clip starting at 5", clips)
	}

	// Malformed JSON and non-array top levels lose the feature quietly
	if clips := ParseJSON(`{"name":"Intro"`, permalink); len(clips) != 0 {
		t.Errorf("ParseJSON(malformed) = %+v, want empty", clips)
	}
	if clips := ParseJSON(`{"name":"Intro"}`, permalink); len(clips) != 0 {
		t.Errorf("ParseJSON(object) = %+v, want empty", clips)
	}
}

// TestParseRowsNegativeStart keeps the zero default for negative offsets.
func TestParseRowsNegativeStart(t *testing.T) {
	clips := ParseRows([]interface{}{
		map[string]interface{}{"name": "Bad", "start": float64(-10)},
	}, permalink)
	if len(clips) != 1 || clips[0].StartOffset != 0 {
		t.Errorf("negative start = %+v, want clamped to 0", clips)
	}
}
