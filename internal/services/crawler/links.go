// -----------------------------------------------------------------------
// Link discovery - anchor extraction, URL normalization, origin checks
// -----------------------------------------------------------------------

package crawler

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
)

var downloadExtensions = []string{
	".pdf", ".zip", ".tar", ".gz", ".exe", ".dmg",
	".pkg", ".deb", ".rpm", ".iso", ".rar", ".7z",
	".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
	".jpg", ".jpeg", ".png", ".gif", ".svg", ".webp", ".mp4", ".mp3",
}

// ExtractLinks finds anchor targets in rendered HTML, resolves them against
// the page URL and returns normalized absolute URLs deduplicated in document
// order. Non-navigable schemes and file downloads are skipped.
func ExtractLinks(html, baseURL string, logger arbor.ILogger) []string {
	parsedBase, err := url.Parse(baseURL)
	if err != nil {
		logger.Warn().Err(err).Str("base_url", baseURL).Msg("Failed to parse base URL")
		return []string{}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		logger.Warn().Err(err).Str("base_url", baseURL).Msg("Failed to parse HTML for link extraction")
		return []string{}
	}

	linkMap := make(map[string]bool)
	links := []string{}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" {
			return
		}

		// Skip unwanted link types
		if strings.HasPrefix(href, "javascript:") ||
			strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "mailto:") ||
			strings.HasPrefix(href, "tel:") ||
			strings.HasPrefix(href, "data:") {
			return
		}

		parsedHref, err := url.Parse(href)
		if err != nil {
			return
		}

		// Resolve relative URLs
		absoluteURL := parsedBase.ResolveReference(parsedHref)
		if absoluteURL.Scheme != "http" && absoluteURL.Scheme != "https" {
			return
		}

		normalizedURL := NormalizeURL(absoluteURL)

		if isFileDownload(normalizedURL) {
			return
		}

		// Deduplicate
		if !linkMap[normalizedURL] {
			linkMap[normalizedURL] = true
			links = append(links, normalizedURL)
		}
	})

	return links
}

// NormalizeURL strips the fragment, lowercases scheme and host and trims the
// trailing slash on non-root paths so equivalent URLs compare equal
func NormalizeURL(u *url.URL) string {
	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if len(u.Path) > 1 {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}
	return u.String()
}

// normalizeKey parses and normalizes a raw URL string for visited-set lookups
func normalizeKey(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return NormalizeURL(u)
}

// sameOrigin reports whether the link shares scheme and host with the origin
func sameOrigin(origin *url.URL, link string) bool {
	if origin == nil {
		return false
	}
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, origin.Scheme) && strings.EqualFold(u.Host, origin.Host)
}

func isFileDownload(urlStr string) bool {
	lowercaseURL := strings.ToLower(urlStr)
	for _, ext := range downloadExtensions {
		if strings.HasSuffix(lowercaseURL, ext) {
			return true
		}
	}
	return false
}
