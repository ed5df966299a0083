package models

import "time"

// PageMetrics holds runtime measurements captured inside the browser
// after the page finished rendering. Values come from the Navigation
// Timing and Paint Timing APIs plus a computed-style probe.
type PageMetrics struct {
	LoadTimeMs         float64  `json:"load_time_ms"`               // navigationStart -> loadEventEnd
	DOMContentLoadedMs float64  `json:"dom_content_loaded_ms"`      // navigationStart -> domContentLoadedEventEnd
	FirstPaintMs       float64  `json:"first_paint_ms"`             // -1 when the browser exposes no paint entries
	BaseFontPx         float64  `json:"base_font_px"`               // Computed body font size in pixels
	ViewportWidth      int      `json:"viewport_width"`             // window.innerWidth at render time
	DetectedGlobals    []string `json:"detected_globals,omitempty"` // Well-known JS globals found on the page (wp, Shopify, ga, ...)
}

// RenderedPage is the output of one headless browser navigation
type RenderedPage struct {
	URL         string      `json:"url"`       // Requested URL
	FinalURL    string      `json:"final_url"` // URL after redirects
	Title       string      `json:"title"`
	HTML        string      `json:"html"`
	VisibleText string      `json:"visible_text"` // Space-joined text of visibly rendered nodes, document order
	Markdown    string      `json:"markdown"`     // HTML converted to markdown for reports and snapshots
	StatusCode  int         `json:"status_code"`
	Depth       int         `json:"depth"`
	Metrics     PageMetrics `json:"metrics"`
	RenderedAt  time.Time   `json:"rendered_at"`
}

// IsHTTPS reports whether the page was served over TLS
func (p *RenderedPage) IsHTTPS() bool {
	u := p.FinalURL
	if u == "" {
		u = p.URL
	}
	return len(u) >= 8 && u[:8] == "https://"
}

// CrawlSummary describes what one bounded crawl visited
type CrawlSummary struct {
	SeedURL      string   `json:"seed_url"`
	MaxDepth     int      `json:"max_depth"`
	PagesCrawled int      `json:"pages_crawled"`
	PagesFailed  int      `json:"pages_failed"`
	DurationMs   int64    `json:"duration_ms"`
	VisitedURLs  []string `json:"visited_urls"`
}

// CrawlResult bundles the rendered pages of one crawl with its summary.
// Pages are ordered pre-order: a parent page appears before the pages
// discovered through its links.
type CrawlResult struct {
	Pages   []*RenderedPage `json:"pages"`
	Summary CrawlSummary    `json:"summary"`
}

// AggregatedText concatenates visible text across all crawled pages in
// traversal order, separated by single spaces. Pages that failed to
// render contribute nothing.
func (r *CrawlResult) AggregatedText() string {
	var out string
	for _, p := range r.Pages {
		if p == nil || p.VisibleText == "" {
			continue
		}
		if out == "" {
			out = p.VisibleText
		} else {
			out += " " + p.VisibleText
		}
	}
	return out
}
