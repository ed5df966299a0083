// -----------------------------------------------------------------------
// Technical Extractor - performance, mobile, tech stack and SEO signals
// -----------------------------------------------------------------------

package extractors

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/specto/internal/models"
)

// TechnicalExtractor reads performance, mobile, technology and SEO signals
// from one rendered page
type TechnicalExtractor struct {
	logger arbor.ILogger
}

// NewTechnicalExtractor creates a new technical extractor
func NewTechnicalExtractor(logger arbor.ILogger) *TechnicalExtractor {
	return &TechnicalExtractor{logger: logger}
}

// Extract builds the technical section for a page. Signals that cannot be
// read degrade to zero values; extraction never fails the analysis.
func (e *TechnicalExtractor) Extract(page *models.RenderedPage) models.TechnicalMetrics {
	metrics := models.NewTechnicalMetrics()
	if page == nil {
		return metrics
	}

	metrics.Performance = models.PerformanceMetrics{
		LoadTimeMs:         page.Metrics.LoadTimeMs,
		DOMContentLoadedMs: page.Metrics.DOMContentLoadedMs,
		FirstPaintMs:       page.Metrics.FirstPaintMs,
	}
	metrics.SSL = page.IsHTTPS()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		e.logger.Debug().Err(err).Str("url", page.URL).Msg("Failed to parse HTML for technical extraction")
		return metrics
	}

	globals := make(map[string]bool, len(page.Metrics.DetectedGlobals))
	for _, g := range page.Metrics.DetectedGlobals {
		globals[g] = true
	}

	metrics.MobileFriendly = e.mobileFriendliness(doc, page)
	metrics.TechStack = e.techStack(doc, globals)
	metrics.SEO = e.seoStructure(doc, page)

	return metrics
}

func (e *TechnicalExtractor) mobileFriendliness(doc *goquery.Document, page *models.RenderedPage) models.MobileFriendliness {
	mobile := models.MobileFriendliness{
		HasViewportMeta: doc.Find(`meta[name="viewport"]`).Length() > 0,
		BaseFontPx:      page.Metrics.BaseFontPx,
		ViewportWidth:   page.Metrics.ViewportWidth,
	}
	mobile.Friendly = mobile.HasViewportMeta && mobile.BaseFontPx >= 12 && mobile.ViewportWidth > 0
	return mobile
}

func (e *TechnicalExtractor) techStack(doc *goquery.Document, globals map[string]bool) models.TechStack {
	var sb strings.Builder
	doc.Find("script[src]").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok {
			sb.WriteString(strings.ToLower(src))
			sb.WriteString("\n")
		}
	})
	doc.Find("link[href]").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			sb.WriteString(strings.ToLower(href))
			sb.WriteString("\n")
		}
	})
	if generator, ok := doc.Find(`meta[name="generator"]`).Attr("content"); ok {
		sb.WriteString(strings.ToLower(generator))
		sb.WriteString("\n")
	}
	haystack := sb.String()

	return models.TechStack{
		CMS:       matchSignature(cmsSignatures, haystack, globals),
		Analytics: matchSignature(analyticsSignatures, haystack, globals),
		Marketing: matchSignature(marketingSignatures, haystack, globals),
		Payments:  matchSignature(paymentSignatures, haystack, globals),
	}
}

func (e *TechnicalExtractor) seoStructure(doc *goquery.Document, page *models.RenderedPage) models.SEOStructure {
	seo := models.SEOStructure{HeadingCounts: make(map[string]int)}

	seo.Title = strings.TrimSpace(doc.Find("title").First().Text())
	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		seo.HasMetaDescription = true
		seo.MetaDescription = strings.TrimSpace(desc)
	}

	for _, tag := range []string{"h1", "h2", "h3"} {
		seo.HeadingCounts[tag] = doc.Find(tag).Length()
	}

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		seo.ImageCount++
		if alt, ok := s.Attr("alt"); ok && strings.TrimSpace(alt) != "" {
			seo.ImagesWithAlt++
		}
	})

	pageHost := normalizeHost(hostOf(page.FinalURL, page.URL))
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "javascript:") ||
			strings.HasPrefix(href, "mailto:") ||
			strings.HasPrefix(href, "tel:") {
			return
		}
		parsed, err := url.Parse(href)
		if err != nil {
			return
		}
		if parsed.Host == "" || normalizeHost(parsed.Host) == pageHost {
			seo.InternalLinks++
		} else {
			seo.ExternalLinks++
		}
	})

	return seo
}

// hostOf returns the host of the first parseable candidate URL
func hostOf(candidates ...string) string {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if u, err := url.Parse(c); err == nil && u.Host != "" {
			return u.Host
		}
	}
	return ""
}

// normalizeHost lowercases a host and strips the www prefix so the bare and
// www forms of a domain compare equal
func normalizeHost(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}
