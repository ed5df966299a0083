// -----------------------------------------------------------------------
// Social Extractor - platform links, embedded widgets and share buttons
// -----------------------------------------------------------------------

package extractors

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/specto/internal/models"
)

// platformRegistry is the fixed set of platforms the extractor knows about.
// Detection matches anchor hosts against the listed domains, including
// subdomains (m.facebook.com) via suffix matching.
var platformRegistry = []struct {
	name    string
	domains []string
}{
	{"instagram", []string{"instagram.com"}},
	{"facebook", []string{"facebook.com", "fb.com"}},
	{"twitter", []string{"twitter.com", "x.com"}},
	{"linkedin", []string{"linkedin.com"}},
	{"youtube", []string{"youtube.com", "youtu.be"}},
	{"tiktok", []string{"tiktok.com"}},
}

// widgetClasses lists per-platform class-name tokens that identify embedded
// widget markup rather than plain profile links
var widgetClasses = map[string][]string{
	"instagram": {"instagram-media"},
	"facebook":  {"fb-post", "fb-page"},
	"twitter":   {"twitter-tweet", "twitter-timeline"},
	"linkedin":  {"linkedin-embed"},
	"youtube":   {"youtube-embed"},
	"tiktok":    {"tiktok-embed"},
}

// SocialExtractor finds social platform presence on a rendered page
type SocialExtractor struct {
	logger arbor.ILogger
}

// NewSocialExtractor creates a new social extractor
func NewSocialExtractor(logger arbor.ILogger) *SocialExtractor {
	return &SocialExtractor{logger: logger}
}

// Extract scans anchors, widget markup and share controls for each platform
// in the registry. The presence score is an unweighted count of platforms
// with at least one profile link.
func (e *SocialExtractor) Extract(page *models.RenderedPage) models.SocialPresence {
	presence := models.NewSocialPresence()
	if page == nil {
		return presence
	}

	for _, p := range platformRegistry {
		presence.Platforms[p.name] = models.PlatformPresence{}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		e.logger.Debug().Err(err).Str("url", page.URL).Msg("Failed to parse HTML for social extraction")
		return presence
	}

	seenURL := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" {
			return
		}
		platform := matchPlatform(href)
		if platform == "" {
			return
		}

		entry := presence.Platforms[platform]
		if !entry.Present {
			entry.Present = true
			entry.URL = href
			presence.Platforms[platform] = entry
		}
		if !seenURL[href] {
			seenURL[href] = true
			presence.SocialURLs = append(presence.SocialURLs, href)
		}
	})

	for platform, classes := range widgetClasses {
		count := 0
		for _, class := range classes {
			count += doc.Find(`[class*="` + class + `"]`).Length()
		}
		if count > 0 {
			presence.WidgetCounts[platform] = count
		}
	}

	doc.Find(`[class*="share"], [id*="share"]`).Each(func(_ int, s *goquery.Selection) {
		presence.HasShareButtons = true
		attrs := strings.ToLower(s.AttrOr("class", "") + " " + s.AttrOr("id", ""))
		for _, p := range platformRegistry {
			if strings.Contains(attrs, p.name) {
				presence.SharingButtons[p.name] = true
			}
		}
	})

	for _, entry := range presence.Platforms {
		if entry.Present {
			presence.PresenceScore++
		}
	}

	return presence
}

// matchPlatform returns the registry platform owning the href's host, or ""
func matchPlatform(href string) string {
	u, err := url.Parse(href)
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	for _, p := range platformRegistry {
		for _, domain := range p.domains {
			if host == domain || strings.HasSuffix(host, "."+domain) {
				return p.name
			}
		}
	}
	return ""
}
