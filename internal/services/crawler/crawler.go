// -----------------------------------------------------------------------
// Crawler - bounded same-origin breadth-first site crawl
// -----------------------------------------------------------------------

package crawler

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/specto/internal/common"
	"github.com/ternarybob/specto/internal/interfaces"
	"github.com/ternarybob/specto/internal/models"
	"golang.org/x/time/rate"
)

type workItem struct {
	url   string
	depth int
}

// Crawler renders pages through the browser pool and follows same-origin
// links breadth-first. A single crawl fetches sequentially; concurrency
// lives at the analysis level where each job runs its own crawl.
type Crawler struct {
	renderer interfaces.PageRenderer
	config   common.CrawlerConfig
	limiter  *rate.Limiter
	logger   arbor.ILogger
}

// NewCrawler creates a crawler with a per-site rate limit on page loads
func NewCrawler(renderer interfaces.PageRenderer, config common.CrawlerConfig, logger arbor.ILogger) *Crawler {
	delay := config.RequestDelay
	if delay <= 0 {
		delay = time.Second
	}

	return &Crawler{
		renderer: renderer,
		config:   config,
		limiter:  rate.NewLimiter(rate.Every(delay), 1),
		logger:   logger,
	}
}

// Crawl renders the seed page and walks same-origin links breadth-first up
// to maxDepth, capped at the configured page limit. Pages are returned in
// traversal order with the seed first.
func (c *Crawler) Crawl(ctx context.Context, startURL string, maxDepth int) (*models.CrawlResult, error) {
	startTime := time.Now()

	if maxDepth < 0 {
		maxDepth = 0
	}
	if c.config.MaxDepth > 0 && maxDepth > c.config.MaxDepth {
		c.logger.Warn().
			Int("requested_depth", maxDepth).
			Int("max_depth", c.config.MaxDepth).
			Msg("Requested crawl depth exceeds configured maximum, clamping")
		maxDepth = c.config.MaxDepth
	}

	maxPages := c.config.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}

	result := &models.CrawlResult{
		Pages: make([]*models.RenderedPage, 0, maxPages),
		Summary: models.CrawlSummary{
			SeedURL:     startURL,
			MaxDepth:    maxDepth,
			VisitedURLs: make([]string, 0, maxPages),
		},
	}

	visited := make(map[string]bool)
	queue := []workItem{{url: startURL, depth: 0}}

	// Origin is anchored on where the seed actually lands, so http->https
	// and www redirects do not strand the crawl off-origin.
	var origin *url.URL

	for len(queue) > 0 && len(result.Pages) < maxPages {
		item := queue[0]
		queue = queue[1:]

		key := normalizeKey(item.url)
		if visited[key] {
			continue
		}
		visited[key] = true

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		page, err := c.renderer.Render(ctx, item.url)
		if err != nil {
			if item.depth == 0 {
				return nil, fmt.Errorf("failed to render start page %s: %w", item.url, err)
			}
			c.logger.Warn().
				Err(err).
				Str("url", item.url).
				Int("depth", item.depth).
				Msg("Failed to render page, skipping")
			result.Summary.PagesFailed++
			continue
		}
		page.Depth = item.depth

		if c.config.MaxBodySize > 0 && len(page.HTML) > c.config.MaxBodySize {
			c.logger.Warn().
				Str("url", item.url).
				Int("html_bytes", len(page.HTML)).
				Int("max_body_size", c.config.MaxBodySize).
				Msg("Rendered HTML exceeds size limit, truncating")
			page.HTML = page.HTML[:c.config.MaxBodySize]
		}

		result.Pages = append(result.Pages, page)
		result.Summary.VisitedURLs = append(result.Summary.VisitedURLs, item.url)

		if origin == nil {
			originURL := page.FinalURL
			if originURL == "" {
				originURL = startURL
			}
			if parsed, parseErr := url.Parse(originURL); parseErr == nil {
				origin = parsed
			} else {
				c.logger.Warn().
					Err(parseErr).
					Str("url", originURL).
					Msg("Cannot parse crawl origin, link following disabled")
			}
		}

		if item.depth >= maxDepth {
			continue
		}

		for _, link := range ExtractLinks(page.HTML, page.FinalURL, c.logger) {
			if !sameOrigin(origin, link) {
				continue
			}
			if c.shouldSkip(link) {
				continue
			}
			if visited[normalizeKey(link)] {
				continue
			}
			queue = append(queue, workItem{url: link, depth: item.depth + 1})
		}
	}

	result.Summary.PagesCrawled = len(result.Pages)
	result.Summary.DurationMs = time.Since(startTime).Milliseconds()

	c.logger.Info().
		Str("seed_url", startURL).
		Int("pages_crawled", result.Summary.PagesCrawled).
		Int("pages_failed", result.Summary.PagesFailed).
		Int("max_depth", maxDepth).
		Int64("duration_ms", result.Summary.DurationMs).
		Msg("Crawl completed")

	return result, nil
}

// shouldSkip reports whether the URL path matches a configured skip pattern
func (c *Crawler) shouldSkip(link string) bool {
	if len(c.config.SkipPatterns) == 0 {
		return false
	}

	u, err := url.Parse(link)
	if err != nil {
		return true
	}

	path := strings.ToLower(u.Path)
	for _, pattern := range c.config.SkipPatterns {
		if pattern == "" {
			continue
		}
		if strings.Contains(path, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}

var _ interfaces.SiteCrawler = (*Crawler)(nil)
