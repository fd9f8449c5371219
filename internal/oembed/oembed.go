// internal/oembed/oembed.go
// Package oembed rewrites third-party video-provider URLs into their
// canonical embeddable-player form. This is a best-effort rewrite, not
// validation: unrecognized domains and URLs that fail identifier extraction
// pass through unchanged.
package oembed

import (
	"fmt"
	"regexp"
	"strings"
)

// provider pairs a host-detection substring with an identifier pattern and
// the embeddable endpoint template. The first capturing group of the
// identifier pattern is the video identifier.
type provider struct {
	host     string         // Substring identifying the provider's domain
	idExpr   *regexp.Regexp // Identifier extraction pattern
	template string         // Embed URL template with one %s verb
}

var providers = []provider{
	{
		host:     "youtu.be",
		idExpr:   regexp.MustCompile(`youtu\.be/([A-Za-z0-9_-]+)`),
		template: "https://www.youtube.com/embed/%s",
	},
	{
		host:     "youtube.com",
		idExpr:   regexp.MustCompile(`youtube\.com/(?:watch\?(?:.*&)?v=|shorts/|embed/|live/)([A-Za-z0-9_-]+)`),
		template: "https://www.youtube.com/embed/%s",
	},
	{
		host:     "vimeo.com",
		idExpr:   regexp.MustCompile(`vimeo\.com/(?:video/)?(\d+)`),
		template: "https://player.vimeo.com/video/%s",
	},
	{
		host:     "dailymotion.com",
		idExpr:   regexp.MustCompile(`dailymotion\.com/(?:embed/)?video/([A-Za-z0-9]+)`),
		template: "https://www.dailymotion.com/embed/video/%s",
	},
	{
		host:     "wistia",
		idExpr:   regexp.MustCompile(`wistia\.(?:com|net)/(?:medias|embed/iframe)/([A-Za-z0-9]+)`),
		template: "https://fast.wistia.net/embed/iframe/%s",
	},
}

// ToEmbedURL rewrites a known video-hosting URL to its embeddable-player
// form. Empty input yields empty; anything unrecognized or unextractable
// returns the original string.
func ToEmbedURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	for _, p := range providers {
		if !strings.Contains(rawURL, p.host) {
			continue
		}
		match := p.idExpr.FindStringSubmatch(rawURL)
		if len(match) < 2 {
			// Provider recognized but identifier extraction failed
			return rawURL
		}
		return fmt.Sprintf(p.template, match[1])
	}
	return rawURL
}
