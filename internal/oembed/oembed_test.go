package oembed

import (
	"testing"
)

// TestToEmbedURL covers the recognized providers and their arrival forms.
func TestToEmbedURL(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"youtube watch", "https://www.youtube.com/watch?v=abc123XYZ", "https://www.youtube.com/embed/abc123XYZ"},
		{"youtube watch extra params", "https://www.youtube.com/watch?list=PL1&v=abc123XYZ", "https://www.youtube.com/embed/abc123XYZ"},
		{"youtube shorts", "https://www.youtube.com/shorts/abc123XYZ", "https://www.youtube.com/embed/abc123XYZ"},
		{"youtube live", "https://www.youtube.com/live/abc123XYZ", "https://www.youtube.com/embed/abc123XYZ"},
		{"youtube already embedded", "https://www.youtube.com/embed/abc123XYZ", "https://www.youtube.com/embed/abc123XYZ"},
		{"youtu.be short link", "https://youtu.be/abc123XYZ", "https://www.youtube.com/embed/abc123XYZ"},
		{"vimeo", "https://vimeo.com/76979871", "https://player.vimeo.com/video/76979871"},
		{"vimeo video path", "https://vimeo.com/video/76979871", "https://player.vimeo.com/video/76979871"},
		{"dailymotion", "https://www.dailymotion.com/video/x8abc12", "https://www.dailymotion.com/embed/video/x8abc12"},
		{"wistia medias", "https://home.wistia.com/medias/e4a27b971d", "https://fast.wistia.net/embed/iframe/e4a27b971d"},
		{"wistia iframe", "https://fast.wistia.net/embed/iframe/e4a27b971d", "https://fast.wistia.net/embed/iframe/e4a27b971d"},
	}
	for _, tc := range cases {
		if got := ToEmbedURL(tc.in); got != tc.want {
			t.Errorf("%s: ToEmbedURL(%q) = %q, want %q", tc.name, tc.in, got, tc.want)
		}
	}
}

// TestToEmbedURLPassThrough leaves unrecognized and unextractable URLs alone.
func TestToEmbedURLPassThrough(t *testing.T) {
	cases := []string{
		"https://example.com/self-hosted.mp4",    // unknown domain
		"https://www.youtube.com/feed/trending",  // provider recognized, no id
		"https://vimeo.com/about",                // provider recognized, no id
	}
	for _, in := range cases {
		if got := ToEmbedURL(in); got != in {
			t.Errorf("ToEmbedURL(%q) = %q, want pass-through", in, got)
		}
	}

	if got := ToEmbedURL(""); got != "" {
		t.Errorf("ToEmbedURL(\"\") = %q, want empty", got)
	}
}
